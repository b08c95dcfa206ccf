// Package crackerr defines the cracker's error taxonomy: a small closed
// set of semantic kinds every package-level error is classified into,
// letting callers (the CLI, the TUI) branch on "what category of thing
// went wrong" without matching on error strings or concrete types from
// half a dozen packages.
package crackerr

import (
	"errors"
	"fmt"
)

// Kind is a coarse error category.
type Kind int

const (
	// Unknown covers anything not otherwise classified.
	Unknown Kind = iota
	// NotFound means the search space was exhausted with no match.
	NotFound
	// InputShape means the caller's request itself is invalid (bad
	// charset, bad password length, malformed CLI flags).
	InputShape
	// ArchiveFormat means the target ZIP file is malformed or uses a
	// feature outside this cracker's scope.
	ArchiveFormat
	// IO means a filesystem or stream operation failed.
	IO
	// OutOfMemory means an allocation failed.
	OutOfMemory
	// Cancelled means the operation was stopped via context cancellation.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case InputShape:
		return "input_shape"
	case ArchiveFormat:
		return "archive_format"
	case IO:
		return "io"
	case OutOfMemory:
		return "out_of_memory"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind, so callers can classify it
// via errors.As without depending on the package that produced it.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap classifies err under kind. A nil err returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Of reports the Kind of err if it (or something it wraps) is a *Error,
// and Unknown otherwise.
func Of(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}
