package inbound

import (
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/verification/usecase"
)

// HTTPEndpoint exposes the OTP issue and verify handlers.
type HTTPEndpoint struct {
	uc uc
}

// IssueOTP sends a code to an eligible phone number.
func (h *HTTPEndpoint) IssueOTP(r *router.Request) (any, error) {
	var req IssueOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	if err := h.uc.IssueOTP(r.Context(), usecase.IssueOTPInput{PhoneNumber: req.PhoneNumber}); err != nil {
		return nil, err
	}

	return MessageResponse{Message: usecase.MsgOTPSent}, nil
}

// VerifyOTP checks a submitted code. A wrong code answers 200 with
// status false so clients can tell it apart from a malformed request.
func (h *HTTPEndpoint) VerifyOTP(r *router.Request) (any, error) {
	var req VerifyOTPRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyOTP(r.Context(), usecase.VerifyOTPInput{
		PhoneNumber: req.PhoneNumber,
		OTP:         req.OTP,
	})
	if err != nil {
		return nil, err
	}

	if !resp.Valid {
		return VerifyOTPResponse{Message: usecase.MsgVerifyFailed, Status: false}, nil
	}

	return VerifyOTPResponse{
		Message:   usecase.MsgVerified,
		Status:    true,
		SignedURL: resp.SignedURL,
	}, nil
}

func (h *HTTPEndpoint) Download(r *router.Request) (any, error) {
	resp, err := h.uc.Download(r.Context(), usecase.DownloadInput{Token: r.GetQuery("token")})
	if err != nil {
		return nil, err
	}

	return DownloadResponse{Message: usecase.MsgDownloadOK, Object: resp.Object}, nil
}

func (h *HTTPEndpoint) Health(*router.Request) (any, error) {
	return MessageResponse{Message: "ok"}, nil
}
