package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
)

type VerifyOTPInput struct {
	PhoneNumber string `validate:"required,phone"`
	OTP         string `validate:"required,otpcode"`
}

type VerifyOTPOutput struct {
	Valid bool
	// SignedURL is set only when Valid is true.
	SignedURL string
}

// VerifyOTP asks the provider for a verdict on the submitted code. An
// invalid verdict is a normal result; a provider failure is an error.
func (s *Usecase) VerifyOTP(ctx context.Context, in VerifyOTPInput) (*VerifyOTPOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyOTP")
	defer span.End()

	in.PhoneNumber = entity.NormalizePhone(in.PhoneNumber)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	refID := entity.ReferenceID(in.PhoneNumber, s.template.BrandName)

	verdict, err := s.delivery.Verify(ctx, in.PhoneNumber, in.OTP, refID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify otp", "phone_number", in.PhoneNumber, "reference_id", refID, "error", err)
		return nil, goerror.NewUpstream(err, MsgVerifyFailed)
	}

	event := OTPVerifiedEvent{
		PhoneNumber: in.PhoneNumber,
		BrandName:   s.template.BrandName,
		Valid:       verdict.IsValid(),
		VerifiedAt:  s.clock.Now(),
	}
	s.publish(ctx, "otp.verified", func(ctx context.Context) error {
		return s.repoMessaging.PublishOTPVerified(ctx, event)
	})

	if !verdict.IsValid() {
		slog.InfoContext(ctx, "otp rejected by provider", "phone_number", in.PhoneNumber)
		return &VerifyOTPOutput{Valid: false}, nil
	}

	signedURL, err := s.artifact.Issue(ctx, in.PhoneNumber)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue artifact", "phone_number", in.PhoneNumber, "error", err)
		return nil, goerror.NewUpstream(err, MsgVerifyFailed)
	}

	return &VerifyOTPOutput{Valid: true, SignedURL: signedURL}, nil
}
