package event

const OTPRequestedDestination string = "otp.requested"

// OTPRequestedMessage never carries the code or the clear phone number.
type OTPRequestedMessage struct {
	ID          int64  `json:"id"`
	PhoneHash   string `json:"phone_hash"`
	BrandName   string `json:"brand_name"`
	RequestedAt int64  `json:"requested_at"`
}
