// Package engineerr defines the engine's stable error-kind taxonomy,
// used to map failures to recovery policy and to UI-facing identifiers
// without string-matching error messages.
package engineerr

import (
	"errors"
	"fmt"
	"time"
)

// Kind is a stable identifier for an error's category, independent of
// its message text.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindHTTPAuth   Kind = "http_auth"
	KindHTTPRate   Kind = "http_rate"
	KindHTTPServer Kind = "http_server"
	// KindHTTPClient covers 4xx responses other than 401/403/429 — not
	// retried, but not an authentication failure either (e.g. a 404 a
	// caller may still treat as partial success).
	KindHTTPClient   Kind = "http_client"
	KindHashMismatch Kind = "hash_mismatch"
	KindArchiveCorrupt   Kind = "archive_corrupt"
	KindManifestInvalid  Kind = "manifest_invalid"
	KindIntegrityInvalid Kind = "integrity_invalid"
	KindFilesystem       Kind = "filesystem"
	KindCancelled        Kind = "cancelled"
)

// Error wraps an underlying cause with a stable Kind and, where
// relevant, the path or URL the failure occurred against.
type Error struct {
	Kind       Kind
	Op         string // component/operation that raised it, e.g. "fetch.Download"
	Path       string // file path or URL, when applicable
	Status     int    // HTTP status, when applicable
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d, path %s): %v", e.Op, e.Kind, e.Status, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (path %s): %v", e.Op, e.Kind, e.Path, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: %s (status %d): %v", e.Op, e.Kind, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds an *Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// WithPath attaches a path or URL to an *Error and returns it.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithStatus attaches an HTTP status code to an *Error and returns it.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// WithRetryAfter attaches a server-advertised retry delay (from a
// Retry-After header) and returns it.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// RetryAfterOf extracts the RetryAfter duration from err, if it (or
// something it wraps) is an *Error carrying one.
func RetryAfterOf(err error) (time.Duration, bool) {
	var e *Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	return 0, false
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; ok is false otherwise.
func KindOf(err error) (kind Kind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// Is reports whether err's Kind matches kind.
func Is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// Retryable reports whether the kind's standard policy is to retry
// locally rather than surface immediately. network and hash_mismatch
// are recovered locally by their respective components; everything
// else is surfaced.
func (k Kind) Retryable() bool {
	return k == KindNetwork || k == KindHashMismatch
}
