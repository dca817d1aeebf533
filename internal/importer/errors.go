package importer

import (
	"errors"
	"fmt"
)

// ErrKind categorises an expected import failure. Every rejected input maps
// to exactly one kind so the web layer can pick a status code and clients
// can branch without string matching.
type ErrKind int

const (
	KindUnknown ErrKind = iota
	KindFileTooLarge
	KindUnsupportedFileType
	KindParse         // empty file, no header columns, malformed JSON shape
	KindMapping       // required or primary-key column left unmapped
	KindRowValidation // per-cell type mismatch
	KindDuplicateKey  // cross-row primary-key collision
	KindCommit        // collaborator-reported insert failure
	KindSession       // unknown or closed session
	KindBusy          // a commit is already in flight
)

func (k ErrKind) String() string {
	switch k {
	case KindFileTooLarge:
		return "file_too_large"
	case KindUnsupportedFileType:
		return "unsupported_file_type"
	case KindParse:
		return "parse_error"
	case KindMapping:
		return "mapping_error"
	case KindRowValidation:
		return "row_validation_error"
	case KindDuplicateKey:
		return "duplicate_key_error"
	case KindCommit:
		return "commit_error"
	case KindSession:
		return "session_error"
	case KindBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Error is the tagged error type returned for every expected failure in the
// import pipeline. Hard failures (invariant violations such as a schema with
// zero columns) panic instead.
type Error struct {
	Kind    ErrKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// newError creates an *Error with no cause.
func newError(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// wrapError creates an *Error preserving the underlying cause.
func wrapError(kind ErrKind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf returns the kind of err, or KindUnknown if err is not an import
// pipeline error.
func KindOf(err error) ErrKind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindUnknown
}
