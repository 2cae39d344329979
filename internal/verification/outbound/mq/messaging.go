package mq

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/shared/event"
	"github.com/shandysiswandi/otpgate/internal/verification/usecase"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const keyOfCorrelationID string = "cID"

type Messaging struct {
	client messaging.Publisher
	hmac   hash.Hash
	uid    uid.NumberID
	ins    instrument.Instrumentation
}

func NewMessaging(client messaging.Publisher, hmac hash.Hash, ids uid.NumberID, ins instrument.Instrumentation) *Messaging {
	return &Messaging{client: client, hmac: hmac, uid: ids, ins: ins}
}

func (m *Messaging) PublishOTPRequested(ctx context.Context, msg usecase.OTPRequestedEvent) (err error) {
	ctx, span := m.ins.Tracer("verification.outbound.mq").Start(ctx, "PublishOTPRequested")
	defer func() { endSpan(span, err) }()

	phoneHash, err := m.hmac.Hash(msg.PhoneNumber)
	if err != nil {
		return err
	}

	body, err := json.Marshal(event.OTPRequestedMessage{
		ID:          m.uid.Generate(),
		PhoneHash:   string(phoneHash),
		BrandName:   msg.BrandName,
		RequestedAt: msg.RequestedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}

	return m.publish(ctx, event.OTPRequestedDestination, phoneHash, body)
}

func (m *Messaging) PublishOTPVerified(ctx context.Context, msg usecase.OTPVerifiedEvent) (err error) {
	ctx, span := m.ins.Tracer("verification.outbound.mq").Start(ctx, "PublishOTPVerified")
	defer func() { endSpan(span, err) }()

	phoneHash, err := m.hmac.Hash(msg.PhoneNumber)
	if err != nil {
		return err
	}

	body, err := json.Marshal(event.OTPVerifiedMessage{
		ID:         m.uid.Generate(),
		PhoneHash:  string(phoneHash),
		BrandName:  msg.BrandName,
		Valid:      msg.Valid,
		VerifiedAt: msg.VerifiedAt.UnixMilli(),
	})
	if err != nil {
		return err
	}

	return m.publish(ctx, event.OTPVerifiedDestination, phoneHash, body)
}

func (m *Messaging) publish(ctx context.Context, dest string, key, body []byte) error {
	_, err := m.client.Publish(ctx, dest, messaging.OutgoingMessage{
		Key:     key,
		Body:    body,
		Headers: []messaging.Header{{Key: keyOfCorrelationID, Value: instrument.GetCorrelationID(ctx)}},
	})
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
