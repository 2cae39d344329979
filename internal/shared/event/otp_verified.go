package event

const OTPVerifiedDestination string = "otp.verified"

type OTPVerifiedMessage struct {
	ID         int64  `json:"id"`
	PhoneHash  string `json:"phone_hash"`
	BrandName  string `json:"brand_name"`
	Valid      bool   `json:"valid"`
	VerifiedAt int64  `json:"verified_at"`
}
