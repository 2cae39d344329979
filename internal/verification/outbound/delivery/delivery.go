// Package delivery sends and verifies OTPs through an external provider or
// the self-hosted local driver.
package delivery

import (
	"context"
	"errors"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Supported drivers.
const (
	DriverPinpoint = "pinpoint"
	DriverTwilio   = "twilio"
	DriverLocal    = "local"
)

// ErrDeliveryRejected is returned when the provider accepted the call but
// refused to deliver the message.
var ErrDeliveryRejected = errors.New("delivery: message rejected by provider")

type tracer struct {
	ins    instrument.Instrumentation
	driver string
}

func (t tracer) start(ctx context.Context, name string) (context.Context, trace.Span) {
	ctx, span := t.ins.Tracer("verification.outbound.delivery").Start(ctx, name)
	span.SetAttributes(attribute.String("delivery.driver", t.driver))
	return ctx, span
}

func (t tracer) end(span trace.Span, verdict entity.Verdict, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if span.IsRecording() {
		span.SetAttributes(attribute.String("delivery.verdict", verdict.String()))
	}
	span.End()
}
