package inbound

type MessageResponse struct {
	Message string `json:"message"`
}

type IssueOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

type VerifyOTPRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	OTP         string `json:"otp"`
}

type VerifyOTPResponse struct {
	Message   string `json:"message"`
	Status    bool   `json:"status"`
	SignedURL string `json:"signedURL,omitempty"`
}

type DownloadResponse struct {
	Message string `json:"message"`
	Object  string `json:"object"`
}
