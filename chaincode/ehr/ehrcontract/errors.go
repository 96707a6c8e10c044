package ehrcontract

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes contract failures so the gateway can map them to
// transport-level responses without parsing message text.
type ErrorKind string

const (
	ErrorKindAuthorization           ErrorKind = "authorization"
	ErrorKindNotFound                ErrorKind = "not_found"
	ErrorKindAlreadyExists           ErrorKind = "already_exists"
	ErrorKindDuplicatePendingRequest ErrorKind = "duplicate_pending_request"
	ErrorKindAlreadyHandled          ErrorKind = "already_handled"
	ErrorKindConsentNotEnabled       ErrorKind = "consent_not_enabled"
	ErrorKindInvalidStatus           ErrorKind = "invalid_status"
	ErrorKindMalformedInput          ErrorKind = "malformed_input"
)

// ContractError is the structured error returned by every failing operation.
// A failing operation aborts the whole transaction; the platform guarantees
// no partial writes survive.
type ContractError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindOf returns the kind of a contract error, or empty string for foreign
// errors (ledger I/O failures, marshalling failures).
func KindOf(err error) ErrorKind {
	var ce *ContractError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func newAuthorizationError(format string, args ...interface{}) *ContractError {
	return &ContractError{Kind: ErrorKindAuthorization, Message: fmt.Sprintf(format, args...)}
}

func newNotFoundError(format string, args ...interface{}) *ContractError {
	return &ContractError{Kind: ErrorKindNotFound, Message: fmt.Sprintf(format, args...)}
}

func newAlreadyExistsError(format string, args ...interface{}) *ContractError {
	return &ContractError{Kind: ErrorKindAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

func newDuplicatePendingRequestError(format string, args ...interface{}) *ContractError {
	return &ContractError{Kind: ErrorKindDuplicatePendingRequest, Message: fmt.Sprintf(format, args...)}
}

func newAlreadyHandledError(format string, args ...interface{}) *ContractError {
	return &ContractError{Kind: ErrorKindAlreadyHandled, Message: fmt.Sprintf(format, args...)}
}

func newConsentNotEnabledError(format string, args ...interface{}) *ContractError {
	return &ContractError{Kind: ErrorKindConsentNotEnabled, Message: fmt.Sprintf(format, args...)}
}

func newInvalidStatusError(format string, args ...interface{}) *ContractError {
	return &ContractError{Kind: ErrorKindInvalidStatus, Message: fmt.Sprintf(format, args...)}
}

func newMalformedInputError(format string, args ...interface{}) *ContractError {
	return &ContractError{Kind: ErrorKindMalformedInput, Message: fmt.Sprintf(format, args...)}
}
