package verify

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidFile  = errors.New("not a regular file")
	ErrEmptyFile    = errors.New("file is empty")
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
	ErrNotATar      = errors.New("not a valid tar archive")
)

// Kind names a validation failure in API responses.
type Kind string

const (
	KindInvalidFile  Kind = "InvalidFile"
	KindEmptyFile    Kind = "EmptyFile"
	KindFileTooLarge Kind = "FileTooLarge"
	KindNotATar      Kind = "NotATar"
)

var kindErrors = map[Kind]error{
	KindInvalidFile:  ErrInvalidFile,
	KindEmptyFile:    ErrEmptyFile,
	KindFileTooLarge: ErrFileTooLarge,
	KindNotATar:      ErrNotATar,
}

// ValidationError is returned by Validate when a file must not reach the engine.
type ValidationError struct {
	Kind  Kind
	Path  string
	Cause error
}

func newValidationError(kind Kind, path string, cause error) *ValidationError {
	return &ValidationError{Kind: kind, Path: path, Cause: cause}
}

func (e *ValidationError) Error() string {
	msg := kindErrors[e.Kind].Error()
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *ValidationError) Unwrap() []error {
	errs := []error{kindErrors[e.Kind]}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// KindOf returns the validation kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Kind, true
	}
	return "", false
}
