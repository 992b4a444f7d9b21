package deps

import (
	"errors"
	"fmt"
)

// Kind classifies a dependency pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnsupportedPlatform
	KindDownload
	KindExtraction
	KindValidation
	KindFileSystem
	KindInstallation
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindUnsupportedPlatform:
		return "unsupported platform"
	case KindDownload:
		return "download"
	case KindExtraction:
		return "extraction"
	case KindValidation:
		return "validation"
	case KindFileSystem:
		return "filesystem"
	case KindInstallation:
		return "installation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is. Every *Error matches the sentinel of its Kind.
var (
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrDownload            = errors.New("download error")
	ErrExtraction          = errors.New("extraction error")
	ErrValidation          = errors.New("validation error")
	ErrFileSystem          = errors.New("filesystem error")
	ErrInstallation        = errors.New("installation error")

	ErrInstallInProgress = errors.New("install already in progress")
)

var kindSentinels = map[Kind]error{
	KindUnsupportedPlatform: ErrUnsupportedPlatform,
	KindDownload:            ErrDownload,
	KindExtraction:          ErrExtraction,
	KindValidation:          ErrValidation,
	KindFileSystem:          ErrFileSystem,
	KindInstallation:        ErrInstallation,
}

// Error is the typed error returned by the pipeline.
type Error struct {
	Kind       Kind
	Dependency Name   // may be empty for primitives
	Op         string // short operation description, e.g. "download"
	Err        error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Dependency != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Dependency)
	}
	if e.Err == nil {
		return msg
	}
	if msg == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

// Unwrap returns the wrapped error, preserving the error chain.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e's Kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
