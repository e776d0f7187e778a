package transcription

import (
	"errors"
	"fmt"
)

// ErrorKind distinguishes validation failures, which the caller can fix, from
// provider failures, which the caller can only retry.
type ErrorKind string

const (
	KindEmptyInput        ErrorKind = "empty_input"
	KindTooLarge          ErrorKind = "too_large"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindEmptyResult       ErrorKind = "empty_result"
	KindProvider          ErrorKind = "provider"
)

// Error is a typed transcription failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("transcription: %s: %v", e.Message, e.Cause)
	}
	return "transcription: " + e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// IsKind reports whether err is a transcription Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var terr *Error
	if !errors.As(err, &terr) {
		return false
	}
	return terr.Kind == kind
}

// Retryable reports whether the failure might succeed on a retry with the
// same input. Validation failures and empty results are not retryable.
func Retryable(err error) bool {
	return IsKind(err, KindProvider)
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func wrapError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}
