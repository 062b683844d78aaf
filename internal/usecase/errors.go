package usecase

import "fmt"

type ErrorCode string

const (
	ErrorMalformedPayload   ErrorCode = "MALFORMED_PAYLOAD"
	ErrorNoChatID           ErrorCode = "NO_CHAT_ID"
	ErrorBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrorDeliveryFailure    ErrorCode = "DELIVERY_FAILURE"
)

// Sentinels for errors.Is; any *Error with the same Code matches.
var (
	ErrNoChatID         = &Error{Code: ErrorNoChatID}
	ErrMalformedPayload = &Error{Code: ErrorMalformedPayload}
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on Code so callers can compare against the sentinel values.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
