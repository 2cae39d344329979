package validator

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shandysiswandi/otpgate/internal/pkg/strcase"
)

// E.164 with an optional leading plus, as accepted by the client form.
var rePhone = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)

// DefaultOTPLength is the code length accepted by the otpcode rule unless
// WithOTPLength says otherwise.
const DefaultOTPLength = 6

// V10Option configures NewV10Validator.
type V10Option func(*v10Options)

type v10Options struct {
	otpLength int
}

// WithOTPLength sets the exact number of digits the otpcode rule accepts.
// It must match the length of the codes the delivery provider sends.
func WithOTPLength(n int) V10Option {
	return func(o *v10Options) {
		if n > 0 {
			o.otpLength = n
		}
	}
}

// ErrTranslatorNotFound indicates the requested translator is unavailable.
var ErrTranslatorNotFound = errors.New("translator not found")

// V10Validator implements Validator using go-playground/validator v10.
type V10Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// V10ValidationError is a field-to-message map returned when validation fails.
//
// Keys are field names in snake_case to match typical JSON conventions.
type V10ValidationError map[string]string

// Error implements the error interface.
func (vs V10ValidationError) Error() string {
	if len(vs) == 0 {
		return "validation error"
	}

	b, err := json.Marshal(vs)
	if err != nil {
		return fmt.Sprintf("validation error (failed to marshal: %v)", err)
	}
	return string(b)
}

// Values returns the field error map.
func (vs V10ValidationError) Values() map[string]string {
	return vs
}

// NewV10Validator constructs a V10Validator with English translations and custom rules.
func NewV10Validator(opts ...V10Option) (*V10Validator, error) {
	o := v10Options{otpLength: DefaultOTPLength}
	for _, opt := range opts {
		opt(&o)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	enLang := en.New()
	uni := ut.New(enLang, enLang)
	enTrans, ok := uni.GetTranslator("en")
	if !ok {
		return nil, ErrTranslatorNotFound
	}

	if err := enTranslations.RegisterDefaultTranslations(validate, enTrans); err != nil {
		return nil, err
	}

	v10CustomValidation(validate, enTrans, o)

	return &V10Validator{
		validate:   validate,
		translator: enTrans,
	}, nil
}

// Validate validates a struct and returns a V10ValidationError on failure.
func (v *V10Validator) Validate(data any) error {
	if err := v.validate.Struct(data); err != nil {
		var validateErrs validator.ValidationErrors
		if !errors.As(err, &validateErrs) {
			return err
		}

		errV10 := make(V10ValidationError)
		for _, fe := range validateErrs {
			errV10[strcase.ToLowerSnake(fe.Field())] = fe.Translate(v.translator)
		}

		return errV10
	}

	return nil
}

//nolint:errcheck,gosec // make linter silent
func v10CustomValidation(validate *validator.Validate, enTrans ut.Translator, o v10Options) {
	registerRegexRule(validate, enTrans, "phone", rePhone, "{0} must be a valid phone number")
	registerRegexRule(validate, enTrans, "otpcode",
		regexp.MustCompile(fmt.Sprintf(`^\d{%d}$`, o.otpLength)),
		fmt.Sprintf("{0} must be a %d digit code", o.otpLength),
	)
}

//nolint:errcheck,gosec // registration only fails on programmer error
func registerRegexRule(validate *validator.Validate, enTrans ut.Translator, tag string, re *regexp.Regexp, msg string) {
	validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(string)
		if !ok {
			return false
		}

		return re.MatchString(s)
	})

	validate.RegisterTranslation(tag, enTrans,
		func(ut ut.Translator) error {
			return ut.Add(tag, msg, false)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, err := ut.T(fe.Tag(), fe.Field())
			if err != nil {
				slog.Warn("warning: error translating", "FieldError", fe, "error", err)
				return fe.Error()
			}

			return t
		},
	)
}
