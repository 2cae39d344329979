// Package uid generates identifiers: UUIDs for request correlation and
// snowflake numbers for event IDs.
package uid

// StringID generates string identifiers.
type StringID interface {
	Generate() string
}

// NumberID generates numeric identifiers.
type NumberID interface {
	Generate() int64
}
