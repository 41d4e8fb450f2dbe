package mapping

import "errors"

var (
	// ErrInvalidAPIKey is returned when the key does not match the expected format
	ErrInvalidAPIKey = errors.New("mapping API key is malformed")

	// ErrAlreadyConfigured is returned when the service already holds a different key
	ErrAlreadyConfigured = errors.New("mapping service already configured with a different key")

	// ErrNotConfigured is returned by consumers that need a configured service
	ErrNotConfigured = errors.New("mapping service is not configured")
)
