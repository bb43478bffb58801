package realtime

import (
	"errors"
	"fmt"
)

var (
	ErrClientDisconnected = errors.New("client disconnected")

	// ErrNotFound is returned by Store implementations when a referenced
	// record does not exist.
	ErrNotFound = errors.New("record not found")
)

// Event error codes delivered to the offending sender.
const (
	CodeValidation    = "VALIDATION_FAILED"
	CodeAuthorization = "NOT_AUTHORIZED"
	CodeNotFound      = "NOT_FOUND"
	CodePersistence   = "PERSISTENCE_FAILED"
)

// eventError is a failure attributable to a single inbound event. It is
// reported to the sender's own channel only and never affects any other
// connection.
type eventError struct {
	Code    string
	Message string
}

func (e *eventError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newValidationError(format string, args ...any) *eventError {
	return &eventError{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func newAuthorizationError(format string, args ...any) *eventError {
	return &eventError{Code: CodeAuthorization, Message: fmt.Sprintf(format, args...)}
}

func newNotFoundError(format string, args ...any) *eventError {
	return &eventError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func newPersistenceError(format string, args ...any) *eventError {
	return &eventError{Code: CodePersistence, Message: fmt.Sprintf(format, args...)}
}
