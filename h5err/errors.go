// Package h5err defines the structured error taxonomy returned by the
// decode engine and its storage backends.
package h5err

import (
	"errors"
	"fmt"
	"strings"
)

// Phase indicates where in a read the error occurred
type Phase string

const (
	PhaseValidate Phase = "validate" // descriptor and request checks
	PhaseOpen     Phase = "open"     // dataset, type and space acquisition
	PhaseRead     Phase = "read"     // raw buffer reads
	PhaseDecode   Phase = "decode"   // buffer to value tree
	PhaseRelease  Phase = "release"  // handle release and vlen reclaim
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidLayout         Kind = "invalid_layout"
	KindMalformedRequest      Kind = "malformed_request"
	KindUnsupportedMemberType Kind = "unsupported_member_type"
	KindDimensionOverflow     Kind = "dimension_overflow"
	KindRankExceeded          Kind = "rank_exceeded"
	KindNameTooLong           Kind = "name_too_long"
	KindStorage               Kind = "storage"
	KindReclaimFailure        Kind = "reclaim_failure"
)

// Class tells the protocol layer which family of status a kind maps to.
type Class int

const (
	ClassClient Class = iota // 4xx-equivalent
	ClassServer              // 5xx-equivalent
)

func (c Class) String() string {
	if c == ClassClient {
		return "client"
	}
	return "server"
}

// Class returns the status family of the kind.
func (k Kind) Class() Class {
	switch k {
	case KindStorage, KindReclaimFailure:
		return ClassServer
	default:
		return ClassClient
	}
}

// Bounds carried over from the legacy format.
const (
	MaxRank       = 30
	MaxNameLength = 1024
	MaxDepth      = 64
)

// Error is the structured error type used throughout the module
type Error struct {
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a
// phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase != "" && t.Phase != e.Phase {
		return false
	}
	return e.Kind == t.Kind
}

// Class returns the status family of the error's kind.
func (e *Error) Class() Class {
	return e.Kind.Class()
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the variable or member path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidLayout reports an internally inconsistent type descriptor.
func InvalidLayout(path []string, detail string, args ...any) *Error {
	return New(PhaseValidate, KindInvalidLayout).Path(path...).Detail(detail, args...).Build()
}

// MalformedRequest reports a hyperslab request that cannot be satisfied.
func MalformedRequest(detail string, args ...any) *Error {
	return New(PhaseValidate, KindMalformedRequest).Detail(detail, args...).Build()
}

// Storage wraps a failure from the storage backend.
func Storage(phase Phase, path string, cause error) *Error {
	b := New(phase, KindStorage).Cause(cause)
	if path != "" {
		b.Path(path)
	}
	return b.Build()
}

// Sentinels for errors.Is matching on kind alone.
var (
	ErrInvalidLayout         = &Error{Kind: KindInvalidLayout}
	ErrMalformedRequest      = &Error{Kind: KindMalformedRequest}
	ErrUnsupportedMemberType = &Error{Kind: KindUnsupportedMemberType}
	ErrDimensionOverflow     = &Error{Kind: KindDimensionOverflow}
	ErrRankExceeded          = &Error{Kind: KindRankExceeded}
	ErrNameTooLong           = &Error{Kind: KindNameTooLong}
	ErrStorage               = &Error{Kind: KindStorage}
	ErrReclaimFailure        = &Error{Kind: KindReclaimFailure}
)

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// IsRelease reports whether err happened while releasing resources after
// the value tree was already complete.
func IsRelease(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Phase == PhaseRelease
}
