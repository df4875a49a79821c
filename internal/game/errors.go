package game

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	ErrNotFound   = errors.New("not found")
	ErrDuplicate  = errors.New("duplicate entry")
	ErrInvalidArg = errors.New("invalid argument")
)

// RecordError provides context for registry errors.
type RecordError struct {
	Op  string // Operation that failed (e.g., "add game")
	Key string // Executable path if applicable
	Err error  // Underlying error
}

func (e *RecordError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s '%s': %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// NotFoundError returns a "not found" error for the given identity key.
func NotFoundError(op, key string) error {
	return &RecordError{Op: op, Key: key, Err: ErrNotFound}
}
