// Package uuid wraps github.com/google/uuid with time-ordered (v7) identifiers
// as the default.
package uuid

import (
	"github.com/google/uuid"
)

// NewString returns a UUIDv7 in its canonical string form, falling back to a
// random v4 identifier if v7 generation fails.
func NewString() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
