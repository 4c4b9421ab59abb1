package model

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes failures of the core.
type ErrorCode string

const (
	// CodeNotAuthenticated means there is no valid tenant context.
	CodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"

	// CodeInvalidAmount means a ledger or record amount failed validation.
	CodeInvalidAmount ErrorCode = "INVALID_AMOUNT"

	// CodeExceedsBalance means a payment is larger than the outstanding balance.
	CodeExceedsBalance ErrorCode = "EXCEEDS_BALANCE"

	// CodeRemoteUnavailable means the remote service could not be reached in time.
	CodeRemoteUnavailable ErrorCode = "REMOTE_UNAVAILABLE"

	// CodeIOFailure means local storage failed. Nothing was written.
	CodeIOFailure ErrorCode = "IO_FAILURE"

	// CodeNotFound means the record does not exist for the tenant.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeInvalidRecord means a record failed structural validation.
	CodeInvalidRecord ErrorCode = "INVALID_RECORD"

	// CodeOutstandingBalance means a customer delete was blocked by policy.
	CodeOutstandingBalance ErrorCode = "OUTSTANDING_BALANCE"

	// CodeSessionEnded means the tenant session ended while work was in flight.
	CodeSessionEnded ErrorCode = "SESSION_ENDED"
)

// Error is the structured error returned by every core operation.
//
// Two Errors match under errors.Is when their codes are equal, so callers
// test against the sentinels below regardless of message or wrapped cause.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the failing operation, e.g. "ledger.record_payment".
	Op string

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotAuthenticated   = &Error{Code: CodeNotAuthenticated}
	ErrInvalidAmount      = &Error{Code: CodeInvalidAmount}
	ErrExceedsBalance     = &Error{Code: CodeExceedsBalance}
	ErrRemoteUnavailable  = &Error{Code: CodeRemoteUnavailable}
	ErrIOFailure          = &Error{Code: CodeIOFailure}
	ErrNotFound           = &Error{Code: CodeNotFound}
	ErrInvalidRecord      = &Error{Code: CodeInvalidRecord}
	ErrOutstandingBalance = &Error{Code: CodeOutstandingBalance}
	ErrSessionEnded       = &Error{Code: CodeSessionEnded}
)

// NewError creates an Error with a formatted message.
func NewError(code ErrorCode, op, format string, args ...any) *Error {
	return &Error{Code: code, Op: op, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error around an underlying cause.
func WrapError(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// CodeOf extracts the code of the first *Error in err's chain.
// Returns "" if err carries no code.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// RequireTenant returns ErrNotAuthenticated-coded error when restaurantID is empty.
func RequireTenant(op, restaurantID string) error {
	if restaurantID == "" {
		return NewError(CodeNotAuthenticated, op, "no restaurant context")
	}
	return nil
}
