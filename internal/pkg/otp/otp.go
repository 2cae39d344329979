package otp

import (
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// OTP defines the HOTP operations used by the local delivery driver.
type OTP interface {
	// NewSecret creates a fresh base32 secret for an account.
	NewSecret(accountName string) (string, error)
	// Code returns the code for secret at counter.
	Code(secret string, counter uint64) (string, error)
	// Validate reports whether code matches secret at counter.
	Validate(code, secret string, counter uint64) bool
	// Length is the number of digits in every generated code.
	Length() int
}

// HOTP implements OTP with pquerna/otp.
type HOTP struct {
	issuer string
	digits otp.Digits
}

// NewHOTP builds an HOTP generator. Lengths other than 6 and 8 fall back to 6.
func NewHOTP(issuer string, length int) *HOTP {
	digits := otp.Digits(length)
	if digits != otp.DigitsSix && digits != otp.DigitsEight {
		digits = otp.DigitsSix
	}

	return &HOTP{issuer: issuer, digits: digits}
}

// NewSecret creates a 160-bit secret as recommended by RFC 4226.
func (h *HOTP) NewSecret(accountName string) (string, error) {
	key, err := hotp.Generate(hotp.GenerateOpts{
		Issuer:      h.issuer,
		AccountName: accountName,
		SecretSize:  20,
		Digits:      h.digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}

	return key.Secret(), nil
}

// Code returns the code for secret at counter.
func (h *HOTP) Code(secret string, counter uint64) (string, error) {
	return hotp.GenerateCodeCustom(secret, counter, h.opts())
}

// Validate reports whether code matches secret at counter.
func (h *HOTP) Validate(code, secret string, counter uint64) bool {
	ok, err := hotp.ValidateCustom(code, counter, secret, h.opts())
	return ok && err == nil
}

// Length returns the effective digit count after the 6/8 fallback.
func (h *HOTP) Length() int {
	return h.digits.Length()
}

func (h *HOTP) opts() hotp.ValidateOpts {
	return hotp.ValidateOpts{Digits: h.digits, Algorithm: otp.AlgorithmSHA1}
}
