package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	allowedPhone = "+14155550100"
	brand        = "Acme"
)

var (
	now         = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	errProvider = errors.New("provider: connection reset")
)

type fakeEligibility struct {
	isEligible func(ctx context.Context, phone string) (bool, error)
}

func (f *fakeEligibility) IsEligible(ctx context.Context, phone string) (bool, error) {
	return f.isEligible(ctx, phone)
}

type fakeDelivery struct {
	mu    sync.Mutex
	sent  []entity.Binding
	send  func(ctx context.Context, b entity.Binding) error
	check func(ctx context.Context, phone, code, referenceID string) (entity.Verdict, error)
}

func (f *fakeDelivery) Send(ctx context.Context, b entity.Binding) error {
	f.mu.Lock()
	f.sent = append(f.sent, b)
	f.mu.Unlock()

	if f.send == nil {
		return nil
	}
	return f.send(ctx, b)
}

func (f *fakeDelivery) Verify(ctx context.Context, phone, code, referenceID string) (entity.Verdict, error) {
	return f.check(ctx, phone, code, referenceID)
}

type fakeArtifact struct {
	calls int
	issue func(ctx context.Context, phone string) (string, error)
}

func (f *fakeArtifact) Issue(ctx context.Context, phone string) (string, error) {
	f.calls++
	return f.issue(ctx, phone)
}

type fakeMessaging struct {
	mu        sync.Mutex
	requested []OTPRequestedEvent
	verified  []OTPVerifiedEvent
	err       error
}

func (f *fakeMessaging) PublishOTPRequested(_ context.Context, msg OTPRequestedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, msg)
	return f.err
}

func (f *fakeMessaging) PublishOTPVerified(_ context.Context, msg OTPVerifiedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verified = append(f.verified, msg)
	return f.err
}

type fixture struct {
	eligibility *fakeEligibility
	delivery    *fakeDelivery
	artifact    *fakeArtifact
	messaging   *fakeMessaging
	goroutine   *goroutine.Manager
	uc          *Usecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := &fixture{
		eligibility: &fakeEligibility{isEligible: func(_ context.Context, phone string) (bool, error) {
			return phone == allowedPhone, nil
		}},
		delivery: &fakeDelivery{},
		artifact: &fakeArtifact{issue: func(context.Context, string) (string, error) {
			return "https://bucket.example/report.pdf?X-Amz-Signature=abc", nil
		}},
		messaging: &fakeMessaging{},
		goroutine: goroutine.NewManager(4),
	}

	f.uc = New(Dependency{
		Eligibility:   f.eligibility,
		Delivery:      f.delivery,
		Artifact:      f.artifact,
		RepoMessaging: f.messaging,
		Template:      entity.BindingTemplate{ApplicationID: "app-1", BrandName: brand, OriginationIdentity: "+18005550199"},
		Validator:     v,
		Clock:         clock.Fixed(now),
		Instrument:    instrument.NewNoop(),
		Goroutine:     f.goroutine,
	})

	return f
}

// drain waits for background event publishing.
func (f *fixture) drain(t *testing.T) {
	t.Helper()
	_ = f.goroutine.Wait()
}

func assertGoError(t *testing.T, err error, status int, msg string) {
	t.Helper()

	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, status, gerr.StatusCode())
	assert.Equal(t, msg, gerr.Msg())
}
