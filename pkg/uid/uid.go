package uid

import "github.com/google/uuid"

// New returns a random (v4) identifier for trade requests and HTTP requests.
func New() string {
	return uuid.NewString()
}

// IsValid reports whether id parses as a UUID.
func IsValid(id string) bool {
	return uuid.Validate(id) == nil
}
