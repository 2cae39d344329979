package inbound

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/verification/usecase"
)

type uc interface {
	IssueOTP(ctx context.Context, in usecase.IssueOTPInput) error
	VerifyOTP(ctx context.Context, in usecase.VerifyOTPInput) (*usecase.VerifyOTPOutput, error)
	Download(ctx context.Context, in usecase.DownloadInput) (*usecase.DownloadOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/otp", end.IssueOTP)
	r.POST("/validate", end.VerifyOTP)
	r.GET("/download", end.Download)
	r.GET("/health", end.Health)
}
