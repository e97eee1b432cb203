package types

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode categorizes provider errors
type ErrorCode string

const (
	ErrCodeUnknown           ErrorCode = "unknown"
	ErrCodeAuthentication    ErrorCode = "authentication"
	ErrCodeRateLimit         ErrorCode = "rate_limit"
	ErrCodeQuotaExceeded     ErrorCode = "quota_exceeded"
	ErrCodeInvalidRequest    ErrorCode = "invalid_request"
	ErrCodeNotFound          ErrorCode = "not_found"
	ErrCodeRegionUnavailable ErrorCode = "region_unavailable"
	ErrCodeServerError       ErrorCode = "server_error"
	ErrCodeTimeout           ErrorCode = "timeout"
	ErrCodeNetwork           ErrorCode = "network"
)

// ProviderError represents a standardized error from a provider
type ProviderError struct {
	Code        ErrorCode    // Categorized error code
	Message     string       // Human-readable message
	StatusCode  int          // HTTP status code (0 if not applicable)
	Provider    ProviderType // Which provider generated this error
	Operation   string       // What operation failed (e.g., "generate", "transcribe")
	OriginalErr error        // Wrapped original error
	RetryAfter  int          // Seconds to wait before retry (for rate limits)
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s (status=%d, code=%s)", e.Provider, e.Message, e.StatusCode, e.Code)
	}
	return fmt.Sprintf("[%s] %s (code=%s)", e.Provider, e.Message, e.Code)
}

// Unwrap returns the original error for errors.Is/As
func (e *ProviderError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable returns true if the error is potentially recoverable with retry
func (e *ProviderError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeServerError, ErrCodeTimeout, ErrCodeNetwork:
		return true
	}
	return false
}

// WithOperation sets the operation field and returns the error for chaining
func (e *ProviderError) WithOperation(operation string) *ProviderError {
	e.Operation = operation
	return e
}

// WithStatusCode sets the status code field and returns the error for chaining
func (e *ProviderError) WithStatusCode(statusCode int) *ProviderError {
	e.StatusCode = statusCode
	return e
}

// WithOriginalErr sets the original error field and returns the error for chaining
func (e *ProviderError) WithOriginalErr(err error) *ProviderError {
	e.OriginalErr = err
	return e
}

// WithRetryAfter sets the retry after field and returns the error for chaining
func (e *ProviderError) WithRetryAfter(retryAfter int) *ProviderError {
	e.RetryAfter = retryAfter
	return e
}

// NewProviderError creates a new ProviderError
func NewProviderError(provider ProviderType, code ErrorCode, message string) *ProviderError {
	return &ProviderError{
		Code:     code,
		Message:  message,
		Provider: provider,
	}
}

// ClassifyHTTPStatus maps an HTTP status code to an ErrorCode. Vertex AI
// reports quota exhaustion as 429 with a RESOURCE_EXHAUSTED status, which is
// indistinguishable from rate limiting at this layer; both map to rate_limit
// and callers inspect the message for quota wording.
func ClassifyHTTPStatus(statusCode int) ErrorCode {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrCodeAuthentication
	case statusCode == http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case statusCode == http.StatusNotFound:
		return ErrCodeNotFound
	case statusCode == http.StatusRequestTimeout || statusCode == http.StatusGatewayTimeout:
		return ErrCodeTimeout
	case statusCode >= 500:
		return ErrCodeServerError
	case statusCode >= 400:
		return ErrCodeInvalidRequest
	}
	return ErrCodeUnknown
}

// AsProviderError extracts a *ProviderError from an error chain, if present.
func AsProviderError(err error) (*ProviderError, bool) {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
