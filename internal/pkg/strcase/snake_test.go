package strcase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToLowerSnake(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"OTP":         "otp",
		"PhoneNumber": "phone_number",
		"SignedURL":   "signed_url",
		"HTTPServer":  "http_server",
		"userID":      "user_id",
		"Code6Digit":  "code6_digit",
	}

	for in, want := range tests {
		assert.Equal(t, want, ToLowerSnake(in), in)
	}
}
