package domain

import "errors"

var (
	ErrSerializationFailure = errors.New("serialization failure")
	ErrNotFound             = errors.New("not found")
	ErrConflict             = errors.New("conflict")
	ErrInvalidInput         = errors.New("invalid input")
	ErrSubmitInFlight       = errors.New("submission already in progress")
)

// ValidationError carries the user-facing message for a failed booking rule.
// Validation failures stay local: they are surfaced to the caller and never
// reach the persistence layer.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
