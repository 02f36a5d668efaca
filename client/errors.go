package client

import (
	"errors"
	"fmt"

	"taskboard/domain"
)

// ErrStaleResponse marks a fetch superseded by a newer one. It is
// discarded silently, never shown to the user.
var ErrStaleResponse = errors.New("stale response discarded")

// ServerError is a non-2xx response from the backend. Local state is left
// exactly as it was before the attempt.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.Status)
	}
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// NetworkError is a transport-level failure, including timeouts.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err was rejected locally before any
// network round-trip.
func IsValidation(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}

// IsStale reports whether err is a silently discarded stale response.
func IsStale(err error) bool {
	return errors.Is(err, ErrStaleResponse)
}
