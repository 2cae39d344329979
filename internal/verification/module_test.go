package verification

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/jwt"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopPublisher struct{}

func (nopPublisher) Publish(_ context.Context, dest string, _ messaging.OutgoingMessage) (messaging.PublishResult, error) {
	return messaging.PublishResult{Topic: dest}, nil
}

func (nopPublisher) Close() error { return nil }

const baseConfig = `
verification:
  application_id: app-1
  brand_name: Acme
  eligibility:
    driver: static
    static:
      allowed: "+14155550100"
  delivery:
    driver: pinpoint
  artifact:
    driver: token
    key: reports/welcome.pdf
    base_url: https://otp.example/download
`

func newDep(t *testing.T, yaml string) Dependency {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(yaml))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	j, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(strings.Repeat("m", 64)),
		TTL:    time.Minute,
		Clock:  clock.New(),
		UUID:   uid.NewUUID(),
	})
	require.NoError(t, err)

	return Dependency{
		Config:     cfg,
		Instrument: instrument.NewNoop(),
		Validator:  v,
		Router:     router.NewRouter(router.Config{Config: cfg, UUID: uid.NewUUID()}),
		Clock:      clock.New(),
		Goroutine:  goroutine.NewManager(2),
		HMAC:       hash.NewHMACSHA256("s"),
		OTP:        otp.NewHOTP("Acme", 6),
		JWT:        j,
		AWS:        &aws.Config{Region: "us-east-1"},
	}
}

func TestNew_RegistersRoutes(t *testing.T) {
	dep := newDep(t, baseConfig)
	require.NoError(t, New(dep))

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/otp"},
		{http.MethodPost, "/validate"},
		{http.MethodGet, "/download"},
		{http.MethodGet, "/health"},
	} {
		rec := httptest.NewRecorder()
		dep.Router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, strings.NewReader("{")))
		assert.NotEqual(t, http.StatusNotFound, rec.Code, tc.path)
	}
}

func TestNew_LocalDelivery(t *testing.T) {
	mr := miniredis.RunT(t)

	dep := newDep(t, strings.Replace(baseConfig, "driver: pinpoint", "driver: local", 1))
	require.ErrorIs(t, New(dep), ErrMissingDependency)

	dep.CacheConn = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	dep.Messaging = nopPublisher{}
	require.NoError(t, New(dep))
}

func TestNew_ConfigErrors(t *testing.T) {
	cases := map[string]struct {
		yaml string
		err  error
	}{
		"missing brand":        {strings.Replace(baseConfig, "brand_name: Acme", "brand_name: ' '", 1), ErrBrandRequired},
		"unknown eligibility":  {strings.Replace(baseConfig, "driver: static", "driver: ldap", 1), ErrUnknownDriver},
		"unknown delivery":     {strings.Replace(baseConfig, "driver: pinpoint", "driver: carrier-pigeon", 1), ErrUnknownDriver},
		"unknown artifact":     {strings.Replace(baseConfig, "driver: token", "driver: ftp", 1), ErrUnknownDriver},
		"postgres without db":  {strings.Replace(baseConfig, "driver: static", "driver: postgres", 1), ErrMissingDependency},
		"storage without blob": {strings.Replace(baseConfig, "driver: token", "driver: storage", 1), ErrMissingDependency},
		"events without mq":    {baseConfig + "  events:\n    enabled: true\n", ErrMissingDependency},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, New(newDep(t, tc.yaml)), tc.err)
		})
	}
}

func TestNew_DynamoDBNeedsAWS(t *testing.T) {
	dep := newDep(t, strings.Replace(baseConfig, "driver: static", "driver: dynamodb", 1))
	require.NoError(t, New(dep))

	dep = newDep(t, strings.Replace(baseConfig, "driver: static", "driver: dynamodb", 1))
	dep.AWS = nil
	assert.ErrorIs(t, New(dep), ErrMissingDependency)
}

func TestNew_CodeLengthAgreement(t *testing.T) {
	eight := baseConfig + "  code_length: 8\n"

	t.Run("default validator rejects longer codes", func(t *testing.T) {
		assert.ErrorIs(t, New(newDep(t, eight)), ErrCodeLengthMismatch)
	})

	t.Run("validator built for the configured length", func(t *testing.T) {
		dep := newDep(t, eight)
		v, err := validator.NewV10Validator(validator.WithOTPLength(8))
		require.NoError(t, err)
		dep.Validator = v

		require.NoError(t, New(dep))
	})

	t.Run("local generator must match", func(t *testing.T) {
		mr := miniredis.RunT(t)
		dep := newDep(t, strings.Replace(eight, "driver: pinpoint", "driver: local", 1))
		v, err := validator.NewV10Validator(validator.WithOTPLength(8))
		require.NoError(t, err)
		dep.Validator = v
		dep.CacheConn = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		dep.Messaging = nopPublisher{}

		assert.ErrorIs(t, New(dep), ErrCodeLengthMismatch)

		dep.OTP = otp.NewHOTP("Acme", 8)
		assert.NoError(t, New(dep))
	})
}
