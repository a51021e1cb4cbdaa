package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies service failures so the HTTP layer can map them to a
// status class without string matching.
type ErrorKind int

const (
	KindValidation ErrorKind = iota + 1
	KindConflict
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindInvalidState
	KindExternalService
)

type Error struct {
	Kind    ErrorKind
	Message string
	// Retryable is set for external-service failures where the caller may
	// usefully try again (timeouts, unreachable upstream).
	Retryable bool
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func ValidationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func ConflictError(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func AuthenticationError(message string) *Error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func AuthorizationError(message string) *Error {
	return &Error{Kind: KindAuthorization, Message: message}
}

func NotFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InvalidStateError(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func ExternalServiceError(message string, retryable bool, cause error) *Error {
	return &Error{Kind: KindExternalService, Message: message, Retryable: retryable, cause: cause}
}

// KindOf returns the classification of err, or 0 when err carries none.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// ErrInvalidCredentials is the single message returned for every
// authentication failure. Unknown identifier and wrong password must be
// indistinguishable to the caller.
const ErrInvalidCredentials = "invalid phone/email or password"
