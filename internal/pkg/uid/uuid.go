package uid

import "github.com/google/uuid"

// UUID generates time-ordered UUIDv7 strings for correlation IDs and JWT
// token IDs.
type UUID struct{}

func NewUUID() *UUID {
	return &UUID{}
}

// Generate falls back to a random UUIDv4 if the v7 clock source fails.
func (*UUID) Generate() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
