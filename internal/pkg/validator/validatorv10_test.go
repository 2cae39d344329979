package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type verifyInput struct {
	PhoneNumber string `validate:"required,phone"`
	OTP         string `validate:"required,otpcode"`
}

func TestV10Validator_Phone(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	valid := []string{"+14155550100", "14155550100", "+919953729194", "+12"}
	for _, phone := range valid {
		assert.NoError(t, v.Validate(verifyInput{PhoneNumber: phone, OTP: "123456"}), phone)
	}

	invalid := []string{"+04155550100", "+1", "415-555-0100", "+1415555010012345", "++14155550100", " +14155550100"}
	for _, phone := range invalid {
		err := v.Validate(verifyInput{PhoneNumber: phone, OTP: "123456"})

		var verr V10ValidationError
		require.ErrorAs(t, err, &verr, phone)
		assert.Contains(t, verr.Values(), "phone_number", phone)
	}
}

func TestV10Validator_OTPCode(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	assert.NoError(t, v.Validate(verifyInput{PhoneNumber: "+14155550100", OTP: "000123"}))

	for _, code := range []string{"12345", "1234567", "12a456", "", " 123456"} {
		err := v.Validate(verifyInput{PhoneNumber: "+14155550100", OTP: code})

		var verr V10ValidationError
		require.ErrorAs(t, err, &verr, code)
		assert.Contains(t, verr.Values(), "otp", code)
	}
}

func TestV10Validator_Messages(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	err = v.Validate(verifyInput{PhoneNumber: "abc", OTP: "1"})

	var verr V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "PhoneNumber must be a valid phone number", verr["phone_number"])
	assert.Equal(t, "OTP must be a 6 digit code", verr["otp"])
}

func TestV10Validator_OTPLength(t *testing.T) {
	v, err := NewV10Validator(WithOTPLength(8))
	require.NoError(t, err)

	assert.NoError(t, v.Validate(verifyInput{PhoneNumber: "+14155550100", OTP: "85808748"}))

	err = v.Validate(verifyInput{PhoneNumber: "+14155550100", OTP: "858087"})
	var verr V10ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "OTP must be a 8 digit code", verr["otp"])

	v, err = NewV10Validator(WithOTPLength(0))
	require.NoError(t, err)
	assert.NoError(t, v.Validate(verifyInput{PhoneNumber: "+14155550100", OTP: "123456"}))
}
