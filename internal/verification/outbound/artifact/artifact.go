// Package artifact mints the download reference handed out after a
// successful verification.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Supported drivers.
const (
	DriverStorage = "storage"
	DriverToken   = "token"
)

// DefaultExpiry is used when no link lifetime is configured.
const DefaultExpiry = 15 * time.Minute

// ErrEmptyURL is returned when a signer produced no URL.
var ErrEmptyURL = errors.New("artifact: signer returned an empty url")

func startSpan(ctx context.Context, ins instrument.Instrumentation, name string) (context.Context, trace.Span) {
	return ins.Tracer("verification.outbound.artifact").Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Storage presigns a GET for a fixed object in an object store.
type Storage struct {
	store  storage.Storage
	bucket string
	key    string
	expiry time.Duration
	ins    instrument.Instrumentation
}

func NewStorage(store storage.Storage, bucket, key string, expiry time.Duration, ins instrument.Instrumentation) *Storage {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	return &Storage{store: store, bucket: bucket, key: key, expiry: expiry, ins: ins}
}

func (s *Storage) Issue(ctx context.Context, _ string) (_ string, err error) {
	ctx, span := startSpan(ctx, s.ins, "IssueStorage")
	defer func() { endSpan(span, err) }()

	signed, err := s.store.PresignGet(ctx, s.bucket, s.key, s.expiry)
	if err != nil {
		return "", fmt.Errorf("artifact: presign %s/%s: %w", s.bucket, s.key, err)
	}
	if signed == "" {
		return "", ErrEmptyURL
	}

	return signed, nil
}

// Token links to this service's download endpoint with a signed token. The
// token subject is the keyed hash of the phone number.
type Token struct {
	jwt     jwt.JWT
	hash    hash.Hash
	baseURL string
	object  string
	ins     instrument.Instrumentation
}

func NewToken(j jwt.JWT, h hash.Hash, baseURL, object string, ins instrument.Instrumentation) *Token {
	return &Token{jwt: j, hash: h, baseURL: baseURL, object: object, ins: ins}
}

func (t *Token) Issue(ctx context.Context, phone string) (_ string, err error) {
	_, span := startSpan(ctx, t.ins, "IssueToken")
	defer func() { endSpan(span, err) }()

	subject, err := hash.String(t.hash, phone)
	if err != nil {
		return "", fmt.Errorf("artifact: hash subject: %w", err)
	}

	token, err := t.jwt.Generate(subject, t.object)
	if err != nil {
		return "", fmt.Errorf("artifact: sign token: %w", err)
	}

	u, err := url.Parse(t.baseURL)
	if err != nil {
		return "", fmt.Errorf("artifact: base url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
