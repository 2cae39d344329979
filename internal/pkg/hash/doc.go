// Package hash provides keyed hashing for values that must be compared or
// correlated without being stored in clear text, such as OTP binding keys and phone
// numbers carried in audit events.
package hash

// Hash hashes a string and verifies a string against a previous hash.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}
