package entity

// Verdict is the deterministic outcome of a verify call.
//
// Provider failures are reported as errors, never as a Verdict.
type Verdict int

const (
	// VerdictInvalid covers a wrong code, an expired binding, exhausted
	// attempts and a binding that does not exist.
	VerdictInvalid Verdict = iota
	// VerdictValid means the code matched a live binding.
	VerdictValid
)

func (v Verdict) String() string {
	if v == VerdictValid {
		return "valid"
	}
	return "invalid"
}

// IsValid reports whether v is exactly VerdictValid.
func (v Verdict) IsValid() bool {
	return v == VerdictValid
}
