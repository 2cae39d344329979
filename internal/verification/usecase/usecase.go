package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
	"go.opentelemetry.io/otel/trace"
)

// Client-visible messages.
const (
	MsgOTPSent         = "OTP sent successfully"
	MsgNotEligible     = "Phone number not found in database"
	MsgSendFailed      = "Failed to send OTP"
	MsgVerified        = "OTP verified successfully"
	MsgVerifyFailed    = "OTP verification failed"
	MsgDownloadOK      = "Download authorized"
	MsgDownloadInvalid = "Invalid or expired download token"
	MsgDownloadOff     = "Download is not available"
)

// OTPRequestedEvent is emitted after a send was accepted by the provider.
type OTPRequestedEvent struct {
	PhoneNumber string
	BrandName   string
	RequestedAt time.Time
}

// OTPVerifiedEvent is emitted after the provider returned a verdict.
type OTPVerifiedEvent struct {
	PhoneNumber string
	BrandName   string
	Valid       bool
	VerifiedAt  time.Time
}

type repoEligibility interface {
	IsEligible(ctx context.Context, phone string) (bool, error)
}

type repoDelivery interface {
	Send(ctx context.Context, b entity.Binding) error
	Verify(ctx context.Context, phone, code, referenceID string) (entity.Verdict, error)
}

type repoArtifact interface {
	Issue(ctx context.Context, phone string) (string, error)
}

type repoMessaging interface {
	PublishOTPRequested(ctx context.Context, msg OTPRequestedEvent) error
	PublishOTPVerified(ctx context.Context, msg OTPVerifiedEvent) error
}

type Usecase struct {
	eligibility   repoEligibility
	delivery      repoDelivery
	artifact      repoArtifact
	repoMessaging repoMessaging
	template      entity.BindingTemplate
	validator     validator.Validator
	jwt           jwt.JWT
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	Eligibility repoEligibility
	Delivery    repoDelivery
	Artifact    repoArtifact
	// RepoMessaging is optional; events are skipped when nil.
	RepoMessaging repoMessaging
	Template      entity.BindingTemplate
	Validator     validator.Validator
	// JWT verifies download tokens; nil disables Download.
	JWT        jwt.JWT
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
	Goroutine  *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		eligibility:   dep.Eligibility,
		delivery:      dep.Delivery,
		artifact:      dep.Artifact,
		repoMessaging: dep.RepoMessaging,
		template:      dep.Template,
		validator:     dep.Validator,
		jwt:           dep.JWT,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("verification.usecase").Start(ctx, name)
}

// publish runs f in the background. Failures are logged and never reach the
// caller.
func (s *Usecase) publish(ctx context.Context, name string, f func(ctx context.Context) error) {
	if s.repoMessaging == nil || s.goroutine == nil {
		return
	}

	// The manager logs task failures and dropped tasks.
	s.goroutine.Go(ctx, name, func(ctx context.Context) error {
		if err := f(ctx); err != nil {
			return fmt.Errorf("publish %s event: %w", name, err)
		}
		return nil
	})
}
