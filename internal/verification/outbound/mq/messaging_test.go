package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"github.com/shandysiswandi/otpgate/internal/verification/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedNumber int64

func (f fixedNumber) Generate() int64 { return int64(f) }

type capture struct {
	dest string
	msg  messaging.OutgoingMessage
	err  error
}

func (c *capture) Publish(_ context.Context, dest string, msg messaging.OutgoingMessage) (messaging.PublishResult, error) {
	c.dest, c.msg = dest, msg
	return messaging.PublishResult{Topic: dest}, c.err
}

func (c *capture) Close() error { return nil }

var at = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestPublishOTPRequested(t *testing.T) {
	c := &capture{}
	h := hash.NewHMACSHA256("events")
	m := NewMessaging(c, h, fixedNumber(42), instrument.NewNoop())

	ctx := instrument.SetCorrelationID(context.Background(), "cid-1")
	require.NoError(t, m.PublishOTPRequested(ctx, usecase.OTPRequestedEvent{
		PhoneNumber: "+14155550100",
		BrandName:   "Acme",
		RequestedAt: at,
	}))

	assert.Equal(t, event.OTPRequestedDestination, c.dest)
	assert.Equal(t, []messaging.Header{{Key: "cID", Value: "cid-1"}}, c.msg.Headers)
	assert.NotContains(t, string(c.msg.Body), "4155550100")

	var got event.OTPRequestedMessage
	require.NoError(t, json.Unmarshal(c.msg.Body, &got))
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, "Acme", got.BrandName)
	assert.Equal(t, at.UnixMilli(), got.RequestedAt)
	assert.True(t, h.Verify(got.PhoneHash, "+14155550100"))
	assert.Equal(t, got.PhoneHash, string(c.msg.Key))
}

func TestPublishOTPVerified(t *testing.T) {
	c := &capture{}
	m := NewMessaging(c, hash.NewHMACSHA256("events"), fixedNumber(7), instrument.NewNoop())

	require.NoError(t, m.PublishOTPVerified(context.Background(), usecase.OTPVerifiedEvent{
		PhoneNumber: "+14155550100",
		BrandName:   "Acme",
		Valid:       false,
		VerifiedAt:  at,
	}))

	assert.Equal(t, event.OTPVerifiedDestination, c.dest)

	var got map[string]any
	require.NoError(t, json.Unmarshal(c.msg.Body, &got))
	assert.Equal(t, false, got["valid"])
	assert.NotContains(t, got, "otp")
	assert.NotContains(t, got, "code")
}

func TestPublish_Error(t *testing.T) {
	c := &capture{err: errors.New("kafka: leader not available")}
	m := NewMessaging(c, hash.NewHMACSHA256("events"), fixedNumber(1), instrument.NewNoop())

	err := m.PublishOTPVerified(context.Background(), usecase.OTPVerifiedEvent{PhoneNumber: "+1"})
	assert.ErrorIs(t, err, c.err)
}
