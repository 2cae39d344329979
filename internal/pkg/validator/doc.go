// Package validator provides a small validation abstraction for request and
// domain structs.
//
// Business code should depend on the Validator interface so validation can be
// shared and tested consistently. The go-playground/validator v10
// implementation registers the phone number and OTP code rules used by the
// verification endpoints.
package validator

// Validator validates a struct according to its `validate` tags.
type Validator interface {
	Validate(data any) error
}
