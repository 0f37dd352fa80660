package prune

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is returned when top-k or the drop budget is out of range
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrEmptyMatrix is returned when the weight matrix has no rows or columns
	ErrEmptyMatrix = errors.New("empty weight matrix")
)

// Error represents a pruning error with context
type Error struct {
	Op      string // Operation that failed
	Err     error  // Underlying error
	Context string // Additional context
}

func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Context)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error
func NewError(op string, err error, context string) error {
	return &Error{
		Op:      op,
		Err:     err,
		Context: context,
	}
}

// IsInvalidParameter checks if an error is an "invalid parameter" error
func IsInvalidParameter(err error) bool {
	return errors.Is(err, ErrInvalidParameter)
}

// IsEmptyMatrix checks if an error is an "empty weight matrix" error
func IsEmptyMatrix(err error) bool {
	return errors.Is(err, ErrEmptyMatrix)
}
