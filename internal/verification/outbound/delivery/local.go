package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/otp"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
)

const (
	// DefaultSMSTopic receives the outbound SMS produced by the local driver.
	DefaultSMSTopic = "sms.outbound"

	keyPrefix     = "otp:binding:"
	fieldSecret   = "secret"
	fieldCounter  = "counter"
	fieldAttempts = "attempts"
)

// consumeScript spends one attempt and returns {attempts_left, secret, counter}.
// A binding is removed once no attempts are left; a missing binding returns nil.
var consumeScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
local left = redis.call('HINCRBY', KEYS[1], 'attempts', -1)
local vals = redis.call('HMGET', KEYS[1], 'secret', 'counter')
if left <= 0 then
  redis.call('DEL', KEYS[1])
end
return {left, vals[1], vals[2]}
`)

// commitScript stores a binding for a code that has already been handed to
// the broker. ARGV is {secret, counter, attempts, ttl_ms}. A stored counter at
// or past ARGV[2] means a newer send committed first; the call is then a no-op
// returning 0.
var commitScript = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'counter')
if cur and tonumber(cur) >= tonumber(ARGV[2]) then
  return 0
end
redis.call('HSET', KEYS[1], 'secret', ARGV[1], 'counter', ARGV[2], 'attempts', ARGV[3])
if tonumber(ARGV[4]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[4])
end
return 1
`)

// SMSMessage is published for an SMS gateway consumer to deliver.
type SMSMessage struct {
	To          string `json:"to"`
	Text        string `json:"text"`
	ReferenceID string `json:"reference_id"`
}

// LocalConfig configures the self-hosted driver.
type LocalConfig struct {
	Redis     redis.UniversalClient
	OTP       otp.OTP
	Hash      hash.Hash
	Publisher messaging.Publisher
	// Topic defaults to DefaultSMSTopic.
	Topic string
}

// Local generates HOTP codes itself and keeps bindings in Redis. Each send
// advances the HOTP counter, so a resend invalidates the previous code.
// The SMS text is handed to a broker for a gateway to deliver.
type Local struct {
	rdb       redis.UniversalClient
	otp       otp.OTP
	hash      hash.Hash
	publisher messaging.Publisher
	topic     string
	tracer    tracer
}

func NewLocal(cfg LocalConfig, ins instrument.Instrumentation) *Local {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultSMSTopic
	}

	return &Local{
		rdb:       cfg.Redis,
		otp:       cfg.OTP,
		hash:      cfg.Hash,
		publisher: cfg.Publisher,
		topic:     topic,
		tracer:    tracer{ins: ins, driver: DriverLocal},
	}
}

func (l *Local) Send(ctx context.Context, b entity.Binding) (err error) {
	ctx, span := l.tracer.start(ctx, "Send")
	defer func() { l.tracer.end(span, entity.VerdictInvalid, err) }()

	key, err := l.key(b.ReferenceID)
	if err != nil {
		return err
	}

	secret, counter, err := l.next(ctx, key, b.PhoneNumber)
	if err != nil {
		return err
	}

	code, err := l.otp.Code(secret, counter)
	if err != nil {
		return fmt.Errorf("local: generate code: %w", err)
	}

	body, err := json.Marshal(SMSMessage{
		To:          b.PhoneNumber,
		Text:        smsText(b, code),
		ReferenceID: b.ReferenceID,
	})
	if err != nil {
		return err
	}

	// The stored binding only moves once the SMS is with the broker, so a
	// failed publish leaves the previous code valid.
	if _, err := l.publisher.Publish(ctx, l.topic, messaging.OutgoingMessage{
		Key:  []byte(key),
		Body: body,
		Headers: []messaging.Header{
			{Key: "cID", Value: instrument.GetCorrelationID(ctx)},
		},
	}); err != nil {
		return fmt.Errorf("local: publish sms: %w", err)
	}

	if err := commitScript.Run(ctx, l.rdb, []string{key},
		secret, counter, b.AllowedAttempts, b.Validity.Milliseconds(),
	).Err(); err != nil {
		return fmt.Errorf("local: store binding: %w", err)
	}

	return nil
}

// next returns the secret and the counter for the next code of a binding.
// A missing binding starts over with a fresh secret at counter 1.
func (l *Local) next(ctx context.Context, key, phone string) (string, uint64, error) {
	vals, err := l.rdb.HMGet(ctx, key, fieldSecret, fieldCounter).Result()
	if err != nil {
		return "", 0, fmt.Errorf("local: load binding: %w", err)
	}

	secret, _ := vals[0].(string)
	raw, _ := vals[1].(string)
	if secret == "" || raw == "" {
		secret, err = l.otp.NewSecret(phone)
		if err != nil {
			return "", 0, fmt.Errorf("local: new secret: %w", err)
		}
		return secret, 1, nil
	}

	counter, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return "", 0, errors.Join(ErrCorruptBinding, err)
	}
	return secret, counter + 1, nil
}

func (l *Local) Verify(ctx context.Context, _, code, referenceID string) (verdict entity.Verdict, err error) {
	ctx, span := l.tracer.start(ctx, "Verify")
	defer func() { l.tracer.end(span, verdict, err) }()

	key, err := l.key(referenceID)
	if err != nil {
		return entity.VerdictInvalid, err
	}

	res, err := consumeScript.Run(ctx, l.rdb, []string{key}).Slice()
	if errors.Is(err, redis.Nil) {
		return entity.VerdictInvalid, nil
	}
	if err != nil {
		return entity.VerdictInvalid, fmt.Errorf("local: consume attempt: %w", err)
	}

	left, secret, counter, err := parseConsumed(res)
	if err != nil {
		return entity.VerdictInvalid, err
	}
	if left < 0 || !l.otp.Validate(code, secret, counter) {
		return entity.VerdictInvalid, nil
	}

	if err := l.rdb.Del(ctx, key).Err(); err != nil {
		return entity.VerdictInvalid, fmt.Errorf("local: consume binding: %w", err)
	}

	return entity.VerdictValid, nil
}

// key hashes the reference id so phone numbers never appear in Redis keys.
func (l *Local) key(referenceID string) (string, error) {
	h, err := hash.String(l.hash, referenceID)
	if err != nil {
		return "", fmt.Errorf("local: hash reference id: %w", err)
	}
	return keyPrefix + h, nil
}

func parseConsumed(res []any) (left int64, secret string, counter uint64, err error) {
	if len(res) != 3 {
		return 0, "", 0, fmt.Errorf("local: unexpected script reply of %d items", len(res))
	}

	left, ok := res[0].(int64)
	if !ok {
		return 0, "", 0, fmt.Errorf("local: unexpected attempts reply %T", res[0])
	}

	secret, _ = res[1].(string)
	raw, _ := res[2].(string)
	counter, err = strconv.ParseUint(raw, 10, 64)
	if err != nil || secret == "" {
		return 0, "", 0, errors.Join(ErrCorruptBinding, err)
	}

	return left, secret, counter, nil
}

// ErrCorruptBinding is returned when a stored binding lacks its secret or counter.
var ErrCorruptBinding = errors.New("delivery: corrupt binding")

func smsText(b entity.Binding, code string) string {
	return fmt.Sprintf("Your %s verification code is %s. It expires in %d minutes.",
		b.BrandName, code, int(b.Validity.Minutes()))
}
