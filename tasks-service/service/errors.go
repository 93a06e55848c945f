package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no task has the given id; the caller should refresh its list.
	ErrNotFound = errors.New("task not found")
	// ErrUnauthorized means the task exists but belongs to another user.
	ErrUnauthorized = errors.New("user not authorized")
	// ErrValidation means the input must be corrected and resubmitted.
	ErrValidation = errors.New("validation failed")
	// ErrStorage means the persistence layer failed; the request may be retried.
	ErrStorage = errors.New("storage failure")
)

func validationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
