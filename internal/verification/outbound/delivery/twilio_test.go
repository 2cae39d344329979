package delivery

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twclient "github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

type fakeTwilio struct {
	sid     string
	create  *verify.CreateVerificationParams
	check   *verify.CreateVerificationCheckParams
	sendErr error
	status  string
	chkErr  error
}

func (f *fakeTwilio) CreateVerification(sid string, p *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error) {
	f.sid, f.create = sid, p
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	status := "pending"
	return &verify.VerifyV2Verification{Status: &status}, nil
}

func (f *fakeTwilio) CreateVerificationCheck(sid string, p *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error) {
	f.sid, f.check = sid, p
	if f.chkErr != nil {
		return nil, f.chkErr
	}
	return &verify.VerifyV2VerificationCheck{Status: &f.status}, nil
}

func TestTwilio_Send(t *testing.T) {
	fake := &fakeTwilio{}
	tw := NewTwilio(fake, "VA123", instrument.NewNoop())

	require.NoError(t, tw.Send(context.Background(), binding))
	assert.Equal(t, "VA123", fake.sid)
	assert.Equal(t, "+14155550100", *fake.create.To)
	assert.Equal(t, "sms", *fake.create.Channel)
	assert.Equal(t, "en", *fake.create.Locale)

	fake.sendErr = errors.New("20003 authenticate")
	assert.ErrorIs(t, tw.Send(context.Background(), binding), fake.sendErr)
}

func TestTwilio_Verify(t *testing.T) {
	ctx := context.Background()

	fake := &fakeTwilio{status: "approved"}
	tw := NewTwilio(fake, "VA123", instrument.NewNoop())
	v, err := tw.Verify(ctx, "+14155550100", "123456", "+14155550100-Acme")
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictValid, v)
	assert.Equal(t, "123456", *fake.check.Code)

	fake.status = "pending"
	v, err = tw.Verify(ctx, "+14155550100", "000000", "")
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictInvalid, v)

	fake.chkErr = &twclient.TwilioRestError{Status: http.StatusNotFound, Code: 20404}
	v, err = tw.Verify(ctx, "+14155550100", "123456", "")
	require.NoError(t, err)
	assert.Equal(t, entity.VerdictInvalid, v)

	fake.chkErr = &twclient.TwilioRestError{Status: http.StatusServiceUnavailable}
	_, err = tw.Verify(ctx, "+14155550100", "123456", "")
	assert.Error(t, err)
}

func TestTwilioLocale(t *testing.T) {
	assert.Equal(t, "en", twilioLocale("en-US"))
	assert.Equal(t, "pt", twilioLocale("PT-br"))
	assert.Equal(t, "", twilioLocale(""))
}
