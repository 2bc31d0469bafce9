package engineerr

import (
	"errors"
	"strings"
)

// UsageError marks an error as caused by invalid CLI invocation (bad
// flags, bad args) rather than an internal engine fault, so the CLI
// layer knows to print command usage alongside the error.
type UsageError struct {
	err error
}

func (e *UsageError) Error() string {
	return e.err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.err
}

// WrapUsage wraps err as a UsageError. Returns nil if err is nil.
func WrapUsage(err error) error {
	if err == nil {
		return nil
	}
	return &UsageError{err: err}
}

// IsUsage reports whether err is a UsageError, including cobra's own
// "unknown command"/"unknown flag" messages which arrive unwrapped.
func IsUsage(err error) bool {
	var ue *UsageError
	if errors.As(err, &ue) {
		return true
	}

	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command ") || strings.HasPrefix(msg, "unknown flag: ")
}
