// Package otp generates and checks counter-based one-time passcodes (HOTP,
// RFC 4226) for the self-hosted delivery driver.
package otp
