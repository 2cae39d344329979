package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint"
	"github.com/aws/aws-sdk-go-v2/service/pinpoint/types"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinpoint struct {
	sendIn   *pinpoint.SendOTPMessageInput
	sendOut  *pinpoint.SendOTPMessageOutput
	sendErr  error
	verifyIn *pinpoint.VerifyOTPMessageInput
	verify   func(in *pinpoint.VerifyOTPMessageInput) (*pinpoint.VerifyOTPMessageOutput, error)
}

func (f *fakePinpoint) SendOTPMessage(_ context.Context, in *pinpoint.SendOTPMessageInput, _ ...func(*pinpoint.Options)) (*pinpoint.SendOTPMessageOutput, error) {
	f.sendIn = in
	if f.sendOut == nil {
		f.sendOut = &pinpoint.SendOTPMessageOutput{}
	}
	return f.sendOut, f.sendErr
}

func (f *fakePinpoint) VerifyOTPMessage(_ context.Context, in *pinpoint.VerifyOTPMessageInput, _ ...func(*pinpoint.Options)) (*pinpoint.VerifyOTPMessageOutput, error) {
	f.verifyIn = in
	return f.verify(in)
}

var binding = entity.BindingTemplate{
	ApplicationID:       "app-123",
	BrandName:           "Acme",
	OriginationIdentity: "+18005550199",
}.Bind("+14155550100")

func TestPinpoint_Send(t *testing.T) {
	fake := &fakePinpoint{}
	p := NewPinpoint(fake, "fallback-app", instrument.NewNoop())

	require.NoError(t, p.Send(context.Background(), binding))

	assert.Equal(t, "app-123", aws.ToString(fake.sendIn.ApplicationId))
	params := fake.sendIn.SendOTPMessageRequestParameters
	assert.Equal(t, "Acme", aws.ToString(params.BrandName))
	assert.Equal(t, "SMS", aws.ToString(params.Channel))
	assert.Equal(t, "+14155550100", aws.ToString(params.DestinationIdentity))
	assert.Equal(t, "+14155550100-Acme", aws.ToString(params.ReferenceId))
	assert.Equal(t, int32(6), aws.ToInt32(params.CodeLength))
	assert.Equal(t, int32(15), aws.ToInt32(params.ValidityPeriod))
	assert.Equal(t, int32(3), aws.ToInt32(params.AllowedAttempts))
	assert.Equal(t, "en-US", aws.ToString(params.Language))
	assert.Equal(t, "+18005550199", aws.ToString(params.OriginationIdentity))
}

func TestPinpoint_SendErrors(t *testing.T) {
	boom := errors.New("throttling")
	p := NewPinpoint(&fakePinpoint{sendErr: boom}, "app", instrument.NewNoop())
	assert.ErrorIs(t, p.Send(context.Background(), binding), boom)

	rejected := &fakePinpoint{sendOut: &pinpoint.SendOTPMessageOutput{
		MessageResponse: &types.MessageResponse{Result: map[string]types.MessageResult{
			"+14155550100": {DeliveryStatus: types.DeliveryStatusPermanentFailure, StatusMessage: aws.String("unreachable")},
		}},
	}}
	p = NewPinpoint(rejected, "app", instrument.NewNoop())
	assert.ErrorIs(t, p.Send(context.Background(), binding), ErrDeliveryRejected)
}

func TestPinpoint_Verify(t *testing.T) {
	fake := &fakePinpoint{verify: func(in *pinpoint.VerifyOTPMessageInput) (*pinpoint.VerifyOTPMessageOutput, error) {
		valid := aws.ToString(in.VerifyOTPMessageRequestParameters.Otp) == "123456"
		return &pinpoint.VerifyOTPMessageOutput{
			VerificationResponse: &types.VerificationResponse{Valid: aws.Bool(valid)},
		}, nil
	}}
	p := NewPinpoint(fake, "app-123", instrument.NewNoop())
	ctx := context.Background()

	v, err := p.Verify(ctx, "+14155550100", "123456", "+14155550100-Acme")
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictValid, v)
	assert.Equal(t, "app-123", aws.ToString(fake.verifyIn.ApplicationId))
	assert.Equal(t, "+14155550100-Acme", aws.ToString(fake.verifyIn.VerifyOTPMessageRequestParameters.ReferenceId))

	v, err = p.Verify(ctx, "+14155550100", "000000", "+14155550100-Acme")
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictInvalid, v)
}

func TestPinpoint_VerifyOutcomes(t *testing.T) {
	ctx := context.Background()

	notFound := NewPinpoint(&fakePinpoint{verify: func(*pinpoint.VerifyOTPMessageInput) (*pinpoint.VerifyOTPMessageOutput, error) {
		return nil, &types.NotFoundException{Message: aws.String("no binding")}
	}}, "app", instrument.NewNoop())
	v, err := notFound.Verify(ctx, "+14155550100", "123456", "x")
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictInvalid, v)

	empty := NewPinpoint(&fakePinpoint{verify: func(*pinpoint.VerifyOTPMessageInput) (*pinpoint.VerifyOTPMessageOutput, error) {
		return &pinpoint.VerifyOTPMessageOutput{}, nil
	}}, "app", instrument.NewNoop())
	v, err = empty.Verify(ctx, "+14155550100", "123456", "x")
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictInvalid, v)

	boom := context.DeadlineExceeded
	failing := NewPinpoint(&fakePinpoint{verify: func(*pinpoint.VerifyOTPMessageInput) (*pinpoint.VerifyOTPMessageOutput, error) {
		return nil, boom
	}}, "app", instrument.NewNoop())
	_, err = failing.Verify(ctx, "+14155550100", "123456", "x")
	assert.ErrorIs(t, err, boom)
}

func TestPinpoint_ValidityInMinutes(t *testing.T) {
	fake := &fakePinpoint{}
	b := binding
	b.Validity = 5 * time.Minute

	require.NoError(t, NewPinpoint(fake, "app", instrument.NewNoop()).Send(context.Background(), b))
	assert.Equal(t, int32(5), aws.ToInt32(fake.sendIn.SendOTPMessageRequestParameters.ValidityPeriod))
}
