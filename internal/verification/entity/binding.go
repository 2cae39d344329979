package entity

import (
	"strings"
	"time"
)

// ChannelSMS is the only delivery channel the service supports.
const ChannelSMS = "SMS"

// Binding defaults, applied when configuration leaves a value unset.
const (
	DefaultCodeLength      = 6
	DefaultValidity        = 15 * time.Minute
	DefaultAllowedAttempts = 3
	DefaultLanguage        = "en-US"
)

// Binding describes the provider-side association of a phone number and a
// reference id to a generated code.
type Binding struct {
	ApplicationID       string
	PhoneNumber         string
	ReferenceID         string
	BrandName           string
	Channel             string
	CodeLength          int
	Validity            time.Duration
	AllowedAttempts     int
	Language            string
	OriginationIdentity string
}

// BindingTemplate holds the configured attributes shared by every binding.
type BindingTemplate struct {
	ApplicationID       string
	BrandName           string
	OriginationIdentity string
	Language            string
	CodeLength          int
	Validity            time.Duration
	AllowedAttempts     int
}

// Bind creates the binding for phone. Zero-valued attributes fall back to
// the package defaults.
func (t BindingTemplate) Bind(phone string) Binding {
	b := Binding{
		ApplicationID:       t.ApplicationID,
		PhoneNumber:         phone,
		ReferenceID:         ReferenceID(phone, t.BrandName),
		BrandName:           t.BrandName,
		Channel:             ChannelSMS,
		CodeLength:          t.CodeLength,
		Validity:            t.Validity,
		AllowedAttempts:     t.AllowedAttempts,
		Language:            t.Language,
		OriginationIdentity: t.OriginationIdentity,
	}

	if b.CodeLength <= 0 {
		b.CodeLength = DefaultCodeLength
	}
	if b.Validity <= 0 {
		b.Validity = DefaultValidity
	}
	if b.AllowedAttempts <= 0 {
		b.AllowedAttempts = DefaultAllowedAttempts
	}
	if b.Language == "" {
		b.Language = DefaultLanguage
	}

	return b
}

// ReferenceID derives the id that ties a send to its later verification.
// Issue and verify must produce byte-identical values for the same phone.
func ReferenceID(phone, brand string) string {
	return phone + "-" + brand
}

// NormalizePhone trims surrounding whitespace. The rest of the value is
// used exactly as supplied.
func NormalizePhone(phone string) string {
	return strings.TrimSpace(phone)
}
