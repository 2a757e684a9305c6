package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	KindCredentialMissing ErrorKind = "credential_missing"
	KindInvalidQuery      ErrorKind = "invalid_query"
	KindAuthentication    ErrorKind = "authentication"
	KindRateLimit         ErrorKind = "rate_limit"
	KindTransientNetwork  ErrorKind = "transient_network"
	KindProvider          ErrorKind = "provider"
	KindEmptyResult       ErrorKind = "empty_result"
	KindMalformedPayload  ErrorKind = "malformed_payload"
	KindSchema            ErrorKind = "schema"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindExportIO          ErrorKind = "export_io"
)

// Error is the single failure type returned by every pipeline stage.
// Two errors match under errors.Is when their kinds are equal, so callers
// compare against the sentinels below:
//
//	if errors.Is(err, models.ErrRateLimit) { ... }
type Error struct {
	Kind ErrorKind
	Op   string // operation that failed, e.g., "newsapi fetch"
	Msg  string
	Err  error // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// --- Sentinel errors (kind only) ---

var (
	ErrCredentialMissing = &Error{Kind: KindCredentialMissing}
	ErrInvalidQuery      = &Error{Kind: KindInvalidQuery}
	ErrAuthentication    = &Error{Kind: KindAuthentication}
	ErrRateLimit         = &Error{Kind: KindRateLimit}
	ErrTransientNetwork  = &Error{Kind: KindTransientNetwork}
	ErrProvider          = &Error{Kind: KindProvider}
	ErrEmptyResult       = &Error{Kind: KindEmptyResult}
	ErrMalformedPayload  = &Error{Kind: KindMalformedPayload}
	ErrSchema            = &Error{Kind: KindSchema}
	ErrUnsupportedFormat = &Error{Kind: KindUnsupportedFormat}
	ErrExportIO          = &Error{Kind: KindExportIO}
)

// Errorf builds a classified error with a formatted message.
func Errorf(kind ErrorKind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
