package delivery

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint/types"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
)

type pinpointAPI interface {
	SendOTPMessage(ctx context.Context, in *pinpoint.SendOTPMessageInput, optFns ...func(*pinpoint.Options)) (*pinpoint.SendOTPMessageOutput, error)
	VerifyOTPMessage(ctx context.Context, in *pinpoint.VerifyOTPMessageInput, optFns ...func(*pinpoint.Options)) (*pinpoint.VerifyOTPMessageOutput, error)
}

// Pinpoint uses the Amazon Pinpoint OTP API. The provider generates the
// code, owns the binding and enforces expiry and attempts.
type Pinpoint struct {
	client        pinpointAPI
	applicationID string
	tracer        tracer
}

func NewPinpoint(client pinpointAPI, applicationID string, ins instrument.Instrumentation) *Pinpoint {
	return &Pinpoint{
		client:        client,
		applicationID: applicationID,
		tracer:        tracer{ins: ins, driver: DriverPinpoint},
	}
}

func (p *Pinpoint) Send(ctx context.Context, b entity.Binding) (err error) {
	ctx, span := p.tracer.start(ctx, "Send")
	defer func() { p.tracer.end(span, entity.VerdictInvalid, err) }()

	appID := b.ApplicationID
	if appID == "" {
		appID = p.applicationID
	}

	params := &types.SendOTPMessageRequestParameters{
		BrandName:           aws.String(b.BrandName),
		Channel:             aws.String(b.Channel),
		DestinationIdentity: aws.String(b.PhoneNumber),
		ReferenceId:         aws.String(b.ReferenceID),
		CodeLength:          aws.Int32(int32(b.CodeLength)),
		ValidityPeriod:      aws.Int32(int32(b.Validity.Minutes())),
		AllowedAttempts:     aws.Int32(int32(b.AllowedAttempts)),
		Language:            aws.String(b.Language),
	}
	if b.OriginationIdentity != "" {
		params.OriginationIdentity = aws.String(b.OriginationIdentity)
	}

	out, err := p.client.SendOTPMessage(ctx, &pinpoint.SendOTPMessageInput{
		ApplicationId:                   aws.String(appID),
		SendOTPMessageRequestParameters: params,
	})
	if err != nil {
		return fmt.Errorf("pinpoint: send otp: %w", err)
	}

	if out.MessageResponse == nil {
		return nil
	}
	for dest, res := range out.MessageResponse.Result {
		switch res.DeliveryStatus {
		case types.DeliveryStatusSuccessful, types.DeliveryStatusDuplicate, "":
		default:
			return fmt.Errorf("%w: %s %s: %s", ErrDeliveryRejected, dest, res.DeliveryStatus, aws.ToString(res.StatusMessage))
		}
	}

	return nil
}

func (p *Pinpoint) Verify(ctx context.Context, phone, code, referenceID string) (verdict entity.Verdict, err error) {
	ctx, span := p.tracer.start(ctx, "Verify")
	defer func() { p.tracer.end(span, verdict, err) }()

	out, err := p.client.VerifyOTPMessage(ctx, &pinpoint.VerifyOTPMessageInput{
		ApplicationId: aws.String(p.applicationID),
		VerifyOTPMessageRequestParameters: &types.VerifyOTPMessageRequestParameters{
			DestinationIdentity: aws.String(phone),
			Otp:                 aws.String(code),
			ReferenceId:         aws.String(referenceID),
		},
	})

	var notFound *types.NotFoundException
	if errors.As(err, &notFound) {
		return entity.VerdictInvalid, nil
	}
	if err != nil {
		return entity.VerdictInvalid, fmt.Errorf("pinpoint: verify otp: %w", err)
	}

	if out.VerificationResponse != nil && aws.ToBool(out.VerificationResponse.Valid) {
		return entity.VerdictValid, nil
	}

	return entity.VerdictInvalid, nil
}
