package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error by how callers should react to it.
type Kind string

const (
	KindValidation           Kind = "ValidationError"
	KindProvider             Kind = "ProviderError"
	KindTransientStore       Kind = "TransientStoreError"
	KindNotFound             Kind = "NotFoundError"
	KindUnsupportedOperation Kind = "UnsupportedOperationError"
	KindInternal             Kind = "InternalError"
)

// Error codes surfaced to API callers.
const (
	CodeTransactionNotFound         = "TRANSACTION_NOT_FOUND"
	CodeCorrelationNotFound         = "CORRELATION_NOT_FOUND"
	CodeTransactionNotRefundable    = "TRANSACTION_NOT_REFUNDABLE"
	CodeRefundAmountExceedsOriginal = "REFUND_AMOUNT_EXCEEDS_ORIGINAL"
	CodeTransactionAlreadyRefunded  = "TRANSACTION_ALREADY_REFUNDED"
	CodeInvalidRefundAmount         = "INVALID_REFUND_AMOUNT"
	CodeInvalidRequest              = "INVALID_REQUEST"
	CodeUnsupportedTransactionType  = "UNSUPPORTED_TRANSACTION_TYPE"
	CodeUnsupportedProvider         = "UNSUPPORTED_PROVIDER"
	CodeProviderError               = "PROVIDER_ERROR"
	CodeStoreRetriesExhausted       = "STORE_RETRIES_EXHAUSTED"
)

// Error is the single error type crossing the engine boundary.
type Error struct {
	Kind            Kind
	Code            string
	Message         string
	Retryable       bool
	SuggestedAction string
	Err             error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a non-retryable input error.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound builds an error for an unknown transaction or correlation id.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Unsupported builds an error for an unknown transaction type or provider.
func Unsupported(code, message string) *Error {
	return &Error{Kind: KindUnsupportedOperation, Code: code, Message: message}
}

// Provider wraps an upstream provider failure.
func Provider(message string, retryable bool, err error) *Error {
	action := "Contact support with the transaction id"
	if retryable {
		action = "Retry the request later"
	}
	return &Error{
		Kind:            KindProvider,
		Code:            CodeProviderError,
		Message:         message,
		Retryable:       retryable,
		SuggestedAction: action,
		Err:             err,
	}
}

// TransientStore wraps a store failure that outlived its retries.
func TransientStore(err error) *Error {
	return &Error{
		Kind:            KindTransientStore,
		Code:            CodeStoreRetriesExhausted,
		Message:         "transaction store is temporarily unavailable",
		Retryable:       true,
		SuggestedAction: "Retry the request later",
		Err:             err,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given code.
func Is(err error, code string) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// HTTPStatus maps an error to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindUnsupportedOperation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindProvider:
		return http.StatusBadGateway
	case KindTransientStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to return to callers. Internal errors
// never leak their details.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "Internal server error"
}
