package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer, fields ...string) *slog.Logger {
	h := &contextHandler{
		Handler: &maskHandler{
			next: slog.NewJSONHandler(buf, &slog.HandlerOptions{ReplaceAttr: replaceAttr}),
			keys: buildMaskKeys(fields),
		},
		serviceName: "otpgate",
	}
	return slog.New(h)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestMaskHandler_MasksNestedValues(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newTestLogger(buf, " OTP ", "")

	log.Info("request",
		"otp", "123456",
		slog.Group("body", "otp", "654321", "phone_number", "+14155550100"),
		"payload", `{"phone_number":"+14155550100","otp":"111111"}`,
		"raw", []byte(`[{"otp":"222222"}]`),
		"headers", map[string]string{"OTP": "333333"},
	)

	out := buf.String()
	for _, code := range []string{"123456", "654321", "111111", "222222", "333333"} {
		assert.NotContains(t, out, code)
	}
	assert.Contains(t, out, "+14155550100")

	line := decodeLine(t, buf)
	assert.Equal(t, "***", line["otp"])
	assert.Equal(t, "otpgate", line["service"])
	assert.Equal(t, "INFO", line["severity"])
}

func TestMaskHandler_WithAttrs(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newTestLogger(buf, "otp").With("otp", "123456")

	log.Info("x")

	assert.NotContains(t, buf.String(), "123456")
}

func TestContextHandler_CorrelationID(t *testing.T) {
	buf := &bytes.Buffer{}
	log := newTestLogger(buf)

	ctx := SetCorrelationID(context.Background(), "cid-1")
	log.InfoContext(ctx, "hello")

	assert.Equal(t, "cid-1", decodeLine(t, buf)["_cID"])
	assert.Equal(t, "cid-1", GetCorrelationID(ctx))
	assert.Empty(t, GetCorrelationID(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestBuildMaskKeys_AlwaysMasksOTP(t *testing.T) {
	keys := buildMaskKeys(nil)
	assert.Contains(t, keys, "otp")

	keys = buildMaskKeys([]string{"Authorization", " "})
	assert.Len(t, keys, 2)
	assert.Contains(t, keys, "authorization")
}
