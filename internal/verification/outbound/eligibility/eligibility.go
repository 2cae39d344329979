// Package eligibility answers whether a phone number may receive an OTP.
package eligibility

import (
	"context"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Supported drivers.
const (
	DriverStatic   = "static"
	DriverPostgres = "postgres"
	DriverDynamoDB = "dynamodb"
)

func startSpan(ctx context.Context, ins instrument.Instrumentation, driver string) (context.Context, trace.Span) {
	ctx, span := ins.Tracer("verification.outbound.eligibility").Start(ctx, "IsEligible")
	span.SetAttributes(attribute.String("eligibility.driver", driver))
	return ctx, span
}

func endSpan(span trace.Span, ok bool, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.Bool("eligibility.allowed", ok))
	}
	span.End()
}
