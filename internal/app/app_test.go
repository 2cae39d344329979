package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
app:
  server:
    max_goroutine: 4
    http:
      address: 127.0.0.1:0
instrument:
  enabled: false
  log_level: error
  log_mask_fields: otp,phone_number
hash:
  hmac:
    secret: test-secret
jwt:
  secret: 0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef
  issuer: otpgate
  ttl_minutes: 15
verification:
  application_id: app-1
  brand_name: Acme
  eligibility:
    driver: static
    static:
      allowed: "+14155550100"
  delivery:
    driver: twilio
    twilio:
      account_sid: AC00000000000000000000000000000000
      auth_token: token
      service_sid: VA00000000000000000000000000000000
  artifact:
    driver: token
    key: reports/welcome.pdf
    base_url: https://otp.example/download
`

func newTestApp(t *testing.T) *App {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	a := &App{ctx: ctx, cancel: cancel, config: cfg}
	a.initInstrument()
	a.initLibraries()
	a.initJWT()
	a.initAWS()
	a.initDatabase()
	a.initCache()
	a.initStorage()
	a.initMessaging()
	a.initArtifact()
	a.initHTTPServer()
	a.initModules()
	a.initClosers()

	return a
}

func TestApp_OptionalResourcesStayNil(t *testing.T) {
	a := newTestApp(t)

	assert.Nil(t, a.aws)
	assert.Nil(t, a.dbConn)
	assert.Nil(t, a.cacheConn)
	assert.Nil(t, a.storage)
	assert.Nil(t, a.messaging)
	assert.NotNil(t, a.jwt)
}

func TestApp_Routes(t *testing.T) {
	a := newTestApp(t)
	h := a.httpServer.Handler

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"message":"ok"}`, rec.Body.String())
	})

	t.Run("ineligible number is rejected before delivery", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/otp", strings.NewReader(`{"phoneNumber":"+14155550199"}`))
		req.Header.Set("Content-Type", "application/json")
		h.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "Phone number not found in database", body["message"])
	})

	t.Run("download with forged token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/download?token=forged", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("cors preflight allows any origin", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodOptions, "/otp", nil)
		req.Header.Set("Origin", "https://client.example")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		h.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})
}

func TestApp_ServeAndStop(t *testing.T) {
	a := newTestApp(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errChan := a.Serve(l)

	resp, err := http.Get("http://" + l.Addr().String() + "/health")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Stop(ctx))

	assert.ErrorIs(t, <-errChan, http.ErrServerClosed)
}

func TestApp_Run(t *testing.T) {
	t.Run("returns cleanly once the context is done", func(t *testing.T) {
		a := newTestApp(t)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- a.Run(ctx) }()

		cancel()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	})

	t.Run("reports a listen failure", func(t *testing.T) {
		a := newTestApp(t)
		a.httpServer.Addr = "127.0.0.1:-1"

		assert.ErrorContains(t, a.Run(context.Background()), "listen on 127.0.0.1:-1")
	})

	t.Run("shutdown timeout falls back to default", func(t *testing.T) {
		a := newTestApp(t)
		assert.Equal(t, defaultShutdownTimeout, a.shutdownTimeout())
	})
}

func TestWaitReady(t *testing.T) {
	readyBackoffBase = time.Millisecond
	t.Cleanup(func() { readyBackoffBase = 200 * time.Millisecond })

	t.Run("recovers after transient failures", func(t *testing.T) {
		calls := 0
		err := waitReady(context.Background(), "db", 5, func(context.Context) error {
			calls++
			if calls < 3 {
				return errors.New("connection refused")
			}
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := waitReady(context.Background(), "db", 2, func(context.Context) error {
			calls++
			return errors.New("connection refused")
		})

		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})
}

type fakeStorage struct {
	statErr error
	putKeys []string
	putErr  error
}

func (f *fakeStorage) Close() error { return nil }

func (f *fakeStorage) PutObject(_ context.Context, _, key string, r io.Reader, _ storage.PutOptions) (storage.ObjectInfo, error) {
	if f.putErr != nil {
		return storage.ObjectInfo{}, f.putErr
	}
	if _, err := io.ReadAll(r); err != nil {
		return storage.ObjectInfo{}, err
	}
	f.putKeys = append(f.putKeys, key)
	return storage.ObjectInfo{Key: key}, nil
}

func (f *fakeStorage) StatObject(_ context.Context, _, key string) (storage.ObjectInfo, error) {
	return storage.ObjectInfo{Key: key}, f.statErr
}

func (f *fakeStorage) PresignGet(context.Context, string, string, time.Duration) (string, error) {
	return "", nil
}

func TestSeedArtifact(t *testing.T) {
	t.Run("existing object is left alone", func(t *testing.T) {
		stg := &fakeStorage{}
		require.NoError(t, seedArtifact(context.Background(), stg, "b", "k"))
		assert.Empty(t, stg.putKeys)
	})

	t.Run("missing object is uploaded", func(t *testing.T) {
		stg := &fakeStorage{statErr: errors.New("not found")}
		require.NoError(t, seedArtifact(context.Background(), stg, "b", "k"))
		assert.Equal(t, []string{"k"}, stg.putKeys)
	})

	t.Run("upload failure is returned", func(t *testing.T) {
		stg := &fakeStorage{statErr: errors.New("not found"), putErr: errors.New("denied")}
		assert.Error(t, seedArtifact(context.Background(), stg, "b", "k"))
	})
}

func TestApp_CodeLengthFollowsConfig(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig+"  code_length: 8\n"))
	require.NoError(t, err)

	a := &App{config: cfg}
	a.initLibraries()
	require.Equal(t, 8, a.hotp.Length())

	secret, err := a.hotp.NewSecret("+14155550100-Acme")
	require.NoError(t, err)
	code, err := a.hotp.Code(secret, 1)
	require.NoError(t, err)

	assert.NoError(t, a.validator.Validate(struct {
		OTP string `validate:"required,otpcode"`
	}{OTP: code}))
}
