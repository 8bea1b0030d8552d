package conversation

import (
	"errors"
	"fmt"
)

// ValidationCode classifies why an input was rejected.
type ValidationCode string

const (
	CodeRequired        ValidationCode = "required"
	CodeTooLong         ValidationCode = "too_long"
	CodeInvalidFormat   ValidationCode = "invalid_format"
	CodeInvalidAge      ValidationCode = "invalid_age"
	CodeUnknownDoctor   ValidationCode = "unknown_doctor"
	CodeInvalidDate     ValidationCode = "invalid_date"
	CodePastDate        ValidationCode = "past_date"
	CodeUnavailableDate ValidationCode = "unavailable_date"
	CodeFullyBooked     ValidationCode = "fully_booked"
	CodeUnknownSlot     ValidationCode = "unknown_slot"
	CodePastSlot        ValidationCode = "past_slot"
	CodeInvalidChoice   ValidationCode = "invalid_choice"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("conversation: invalid input")

// ValidationError rejects one user input. The session stays where it was.
type ValidationError struct {
	Field   string
	Code    ValidationCode
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("conversation: invalid %s (%s): %s", e.Field, e.Code, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field string, code ValidationCode, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}
