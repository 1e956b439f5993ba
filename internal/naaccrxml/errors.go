// =============================================================================
// NAACCR Flat/XML Converter - Error Kinds
// =============================================================================
//
// Every fatal condition raised by the converter is surfaced as a single error
// type, *Error, carrying a Kind, a human-readable message and, when known, the
// source line number and the structural path being processed. This is the
// contract the CLI (or any other host) consumes.
//
// Non-fatal conditions (line length mismatches) are NOT errors; they are
// reported as warnings by the flat-file decoder.
//
// =============================================================================

package naaccrxml

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a fatal conversion error.
type Kind string

const (
	KindUnsupportedVersion        Kind = "UnsupportedVersion"
	KindUnsupportedRecordType     Kind = "UnsupportedRecordType"
	KindColumnKeyCollision        Kind = "ColumnKeyCollision"
	KindMissingRequiredAttribute  Kind = "MissingRequiredAttribute"
	KindDictionaryURIMismatch     Kind = "DictionaryUriMismatch"
	KindIOFailure                 Kind = "IOFailure"
	KindMalformedUnderlyingStream Kind = "MalformedUnderlyingStream"
)

// Sentinels usable with errors.Is; an *Error matches the sentinel of its Kind.
var (
	ErrUnsupportedVersion        = &Error{Kind: KindUnsupportedVersion}
	ErrUnsupportedRecordType     = &Error{Kind: KindUnsupportedRecordType}
	ErrColumnKeyCollision        = &Error{Kind: KindColumnKeyCollision}
	ErrMissingRequiredAttribute  = &Error{Kind: KindMissingRequiredAttribute}
	ErrDictionaryURIMismatch     = &Error{Kind: KindDictionaryURIMismatch}
	ErrIOFailure                 = &Error{Kind: KindIOFailure}
	ErrMalformedUnderlyingStream = &Error{Kind: KindMalformedUnderlyingStream}
)

// Error is the converter's single fatal error type.
type Error struct {
	// Kind is the error classification.
	Kind Kind

	// Message is a human-readable description of the offending condition.
	Message string

	// Line is the 1-based source line number, or 0 when unknown.
	Line int

	// Path is the structural path (e.g. "NaaccrData/Patient[2]/Tumor[1]")
	// being read or written when the error happened, if known.
	Path string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " (path %s)", e.Path)
	}
	if e.Err != nil && (e.Message == "" || !strings.Contains(e.Message, e.Err.Error())) {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// NewError builds an *Error of the given kind with a formatted message.
func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapIO wraps an I/O failure, keeping the cause for errors.Is/As.
func WrapIO(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindIOFailure, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the Kind of err if it is (or wraps) an *Error, otherwise "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
