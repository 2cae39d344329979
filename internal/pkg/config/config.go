package config

import (
	"io"
	"time"
)

// TimeConfig defines helpers for retrieving time-based configuration values.
type TimeConfig interface {
	// GetSecond retrieves the value associated with key as a number of seconds.
	GetSecond(key string) time.Duration

	// GetMinute retrieves the value associated with key as a number of minutes.
	GetMinute(key string) time.Duration
}

// NumberConfig defines helpers for retrieving numeric configuration values.
type NumberConfig interface {
	GetInt(key string) int
	GetInt32(key string) int32
	GetUint(key string) uint
	GetFloat64(key string) float64
}

// Config defines a set of methods for retrieving configuration values of various types.
//
// A missing key yields the zero value of the requested type; callers that
// need a non-zero default must apply it themselves.
type Config interface {
	io.Closer
	TimeConfig
	NumberConfig

	// GetBool retrieves the configuration value associated with the given key as a bool.
	GetBool(key string) bool

	// GetString retrieves the configuration value associated with the given key as a string.
	GetString(key string) string

	// GetBinary retrieves the configuration value associated with the given key as a byte slice.
	// Configuration value is stored as base64 encoded.
	GetBinary(key string) []byte

	// GetArray retrieves the configuration value associated with the given key as a slice of strings.
	// Configuration value is stored with format <element1>,<element2>,...
	// Empty elements are dropped and the rest are trimmed.
	GetArray(key string) []string
}
