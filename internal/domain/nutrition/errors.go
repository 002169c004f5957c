package nutrition

import "errors"

// Validation failure kinds. Match them with errors.Is.
var (
	ErrNotInteger     = errors.New("value is not a non-negative integer")
	ErrOutOfRange     = errors.New("value is out of range")
	ErrMealNameLength = errors.New("meal name length out of bounds")
	ErrDuplicateMeal  = errors.New("meal name already exists")
	ErrInvalidDate    = errors.New("invalid date")
)

// ValidationError carries the message shown to the user next to the failure kind.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}

func invalid(kind error, message string) *ValidationError {
	return &ValidationError{Kind: kind, Message: message}
}
