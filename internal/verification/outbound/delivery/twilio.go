package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/verification/entity"
	twclient "github.com/twilio/twilio-go/client"
	verify "github.com/twilio/twilio-go/rest/verify/v2"
)

const twilioApproved = "approved"

type twilioAPI interface {
	CreateVerification(serviceSid string, params *verify.CreateVerificationParams) (*verify.VerifyV2Verification, error)
	CreateVerificationCheck(serviceSid string, params *verify.CreateVerificationCheckParams) (*verify.VerifyV2VerificationCheck, error)
}

// Twilio uses a Twilio Verify service. Code length, validity and attempts
// are properties of the Verify service itself; the binding is keyed by the
// destination number.
type Twilio struct {
	client     twilioAPI
	serviceSID string
	tracer     tracer
}

func NewTwilio(client twilioAPI, serviceSID string, ins instrument.Instrumentation) *Twilio {
	return &Twilio{
		client:     client,
		serviceSID: serviceSID,
		tracer:     tracer{ins: ins, driver: DriverTwilio},
	}
}

func (t *Twilio) Send(ctx context.Context, b entity.Binding) (err error) {
	_, span := t.tracer.start(ctx, "Send")
	defer func() { t.tracer.end(span, entity.VerdictInvalid, err) }()

	params := &verify.CreateVerificationParams{}
	params.SetTo(b.PhoneNumber)
	params.SetChannel(strings.ToLower(b.Channel))
	if locale := twilioLocale(b.Language); locale != "" {
		params.SetLocale(locale)
	}

	out, err := t.client.CreateVerification(t.serviceSID, params)
	if err != nil {
		return fmt.Errorf("twilio: create verification: %w", err)
	}
	if out != nil && out.Status != nil && *out.Status == "canceled" {
		return fmt.Errorf("%w: verification canceled", ErrDeliveryRejected)
	}

	return nil
}

func (t *Twilio) Verify(ctx context.Context, phone, code, _ string) (verdict entity.Verdict, err error) {
	_, span := t.tracer.start(ctx, "Verify")
	defer func() { t.tracer.end(span, verdict, err) }()

	params := &verify.CreateVerificationCheckParams{}
	params.SetTo(phone)
	params.SetCode(code)

	out, err := t.client.CreateVerificationCheck(t.serviceSID, params)

	// Twilio answers 404 once the verification expired, was approved or ran
	// out of attempts.
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) && restErr.Status == http.StatusNotFound {
		return entity.VerdictInvalid, nil
	}
	if err != nil {
		return entity.VerdictInvalid, fmt.Errorf("twilio: verification check: %w", err)
	}

	if out != nil && out.Status != nil && *out.Status == twilioApproved {
		return entity.VerdictValid, nil
	}

	return entity.VerdictInvalid, nil
}

// twilioLocale maps a language tag such as en-US to the two letter locale
// Twilio expects.
func twilioLocale(lang string) string {
	base, _, _ := strings.Cut(lang, "-")
	return strings.ToLower(base)
}
