package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a card studio error code.
type ErrorCode string

const (
	ErrMissingPrerequisite ErrorCode = "MISSING_PREREQUISITE" // 400
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrAuth                ErrorCode = "AUTH"                 // 401
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrBusy                ErrorCode = "BUSY"                 // 409
	ErrInternal            ErrorCode = "INTERNAL"             // 500
	ErrShareUnsupported    ErrorCode = "SHARE_UNSUPPORTED"    // 501
	ErrEmptyResponse       ErrorCode = "EMPTY_RESPONSE"       // 502
	ErrVideoFailed         ErrorCode = "VIDEO_FAILED"         // 502
	ErrUpstream            ErrorCode = "UPSTREAM"             // 502
)

// CardError represents a structured error with code, status, and details.
type CardError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *CardError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CardError) Unwrap() error { return e.cause }

// NewMissingPrerequisite creates a 400 error for an action whose input is not ready yet.
func NewMissingPrerequisite(what string) *CardError {
	return &CardError{
		Code:    ErrMissingPrerequisite,
		Status:  400,
		Message: fmt.Sprintf("missing prerequisite: %s", what),
		Details: map[string]any{"missing": what},
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CardError {
	return &CardError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewAuth creates a 401 error when the backend rejects the credentials.
func NewAuth(err error) *CardError {
	msg := "generation backend rejected the credentials"
	if err != nil {
		msg = err.Error()
	}
	return &CardError{
		Code:    ErrAuth,
		Status:  401,
		Message: msg,
		cause:   err,
	}
}

// NewNotFound creates a 404 error for an unknown session or job.
func NewNotFound(kind, identifier string) *CardError {
	return &CardError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewBusy creates a 409 error when a request of the same kind is still in flight.
func NewBusy(gate string) *CardError {
	return &CardError{
		Code:    ErrBusy,
		Status:  409,
		Message: fmt.Sprintf("%s generation already in progress", gate),
		Details: map[string]any{"gate": gate},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CardError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CardError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// NewShareUnsupported creates a 501 error when no share target is configured.
func NewShareUnsupported() *CardError {
	return &CardError{
		Code:    ErrShareUnsupported,
		Status:  501,
		Message: "sharing is not available; download the image and send it manually",
	}
}

// NewEmptyResponse creates a 502 error when the backend returned nothing usable.
func NewEmptyResponse(what string) *CardError {
	return &CardError{
		Code:    ErrEmptyResponse,
		Status:  502,
		Message: fmt.Sprintf("empty %s response", what),
		Details: map[string]any{"kind": what},
	}
}

// NewVideoFailed creates a 502 error when a finished video operation has no output.
func NewVideoFailed(operation string) *CardError {
	return &CardError{
		Code:    ErrVideoFailed,
		Status:  502,
		Message: "video generation finished without an output",
		Details: map[string]any{"operation": operation},
	}
}

// NewUpstream creates a 502 error for any other backend failure.
func NewUpstream(err error) *CardError {
	msg := "generation backend failed"
	if err != nil {
		msg = err.Error()
	}
	return &CardError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error (or anything it wraps) is a CardError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CardError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// As extracts the CardError from an error chain.
func As(err error) (*CardError, bool) {
	var cErr *CardError
	ok := stderrors.As(err, &cErr)
	return cErr, ok
}
