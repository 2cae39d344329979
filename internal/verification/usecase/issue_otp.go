package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
)

type IssueOTPInput struct {
	PhoneNumber string `validate:"required,phone"`
}

// IssueOTP checks eligibility and asks the provider to send one code.
// Every call sends; repeated calls are not deduplicated.
func (s *Usecase) IssueOTP(ctx context.Context, in IssueOTPInput) error {
	ctx, span := s.startSpan(ctx, "IssueOTP")
	defer span.End()

	in.PhoneNumber = entity.NormalizePhone(in.PhoneNumber)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	ok, err := s.eligibility.IsEligible(ctx, in.PhoneNumber)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo check eligibility", "phone_number", in.PhoneNumber, "error", err)
		return goerror.NewUpstream(err, MsgSendFailed)
	}
	if !ok {
		slog.WarnContext(ctx, "phone number is not eligible", "phone_number", in.PhoneNumber)
		return goerror.NewBusiness(MsgNotEligible, goerror.CodeRejected)
	}

	binding := s.template.Bind(in.PhoneNumber)
	if err := s.delivery.Send(ctx, binding); err != nil {
		slog.ErrorContext(ctx, "failed to send otp", "phone_number", in.PhoneNumber, "reference_id", binding.ReferenceID, "error", err)
		return goerror.NewUpstream(err, MsgSendFailed)
	}

	event := OTPRequestedEvent{
		PhoneNumber: in.PhoneNumber,
		BrandName:   binding.BrandName,
		RequestedAt: s.clock.Now(),
	}
	s.publish(ctx, "otp.requested", func(ctx context.Context) error {
		return s.repoMessaging.PublishOTPRequested(ctx, event)
	})

	return nil
}
