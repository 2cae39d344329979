// Package clock provides a tiny time abstraction.
//
// Token expiry and OTP validity windows read time through Clocker so tests
// can pin the current instant with Fixed.
package clock
