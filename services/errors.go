package services

import (
	"errors"
	"fmt"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeUnknownProvider    ErrorType = "unknown_provider"
	ErrorTypeUnknownNetwork     ErrorType = "unknown_network"
	ErrorTypeMissingCredential  ErrorType = "missing_credential"
	ErrorTypeCredential         ErrorType = "credential"
	ErrorTypeQuotaExceeded      ErrorType = "quota_exceeded"
	ErrorTypeNoAvailableNetwork ErrorType = "no_available_network"
	ErrorTypeUpstream           ErrorType = "upstream"
	ErrorTypeValidation         ErrorType = "validation"
	ErrorTypeUnauthorized       ErrorType = "unauthorized"
	ErrorTypeNotFound           ErrorType = "not_found"
	ErrorTypeInternal           ErrorType = "internal"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Domain error variables

var (
	// Configuration / lookup errors. These abort before any upstream call.
	ErrUnknownProvider   = NewDomainError(ErrorTypeUnknownProvider, "unknown provider", nil)
	ErrUnknownNetwork    = NewDomainError(ErrorTypeUnknownNetwork, "network not found", nil)
	ErrMissingCredential = NewDomainError(ErrorTypeMissingCredential, "no credential configured for network", nil)
	ErrCredential        = NewDomainError(ErrorTypeCredential, "credential decryption failed", nil)

	// Quota errors. These abort without an upstream call.
	ErrQuotaExceeded      = NewDomainError(ErrorTypeQuotaExceeded, "request quota exceeded", nil)
	ErrNoAvailableNetwork = NewDomainError(ErrorTypeNoAvailableNetwork, "no available network for request type", nil)

	// Upstream errors carry provider status and body in Details.
	ErrUpstream = NewDomainError(ErrorTypeUpstream, "upstream provider error", nil)

	// Validation errors for malformed caller payloads.
	ErrValidation  = NewDomainError(ErrorTypeValidation, "invalid request payload", nil)
	ErrEmptyPrompt = NewDomainError(ErrorTypeValidation, "prompt is required", nil)
	ErrNoAudioData = NewDomainError(ErrorTypeValidation, "audio data is required for transcription", nil)

	// Auth errors for the client application surface.
	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "invalid API key", nil)
	ErrInactiveApp  = NewDomainError(ErrorTypeUnauthorized, "client application is disabled", nil)

	// Not found / internal.
	ErrRequestLogNotFound = NewDomainError(ErrorTypeNotFound, "request log not found", nil)
	ErrInternal           = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrDatabaseError      = NewDomainError(ErrorTypeInternal, "database error", nil)
)

// NewUpstreamError creates an upstream error carrying the provider's HTTP
// status and response body.
func NewUpstreamError(provider string, statusCode int, body string) *DomainError {
	msg := fmt.Sprintf("upstream %s returned status %d", provider, statusCode)
	if statusCode == 429 {
		msg = fmt.Sprintf("upstream %s rate limit exceeded", provider)
	}
	return NewDomainError(ErrorTypeUpstream, msg, nil).
		WithDetail("provider", provider).
		WithDetail("status_code", statusCode).
		WithDetail("body", body)
}

// Error type checking helper functions

// IsUnknownProviderError checks if an error is an unknown provider error
func IsUnknownProviderError(err error) bool {
	return hasType(err, ErrorTypeUnknownProvider)
}

// IsUnknownNetworkError checks if an error is an unknown network error
func IsUnknownNetworkError(err error) bool {
	return hasType(err, ErrorTypeUnknownNetwork)
}

// IsMissingCredentialError checks if an error is a missing credential error
func IsMissingCredentialError(err error) bool {
	return hasType(err, ErrorTypeMissingCredential)
}

// IsCredentialError checks if an error is a credential decryption error
func IsCredentialError(err error) bool {
	return hasType(err, ErrorTypeCredential)
}

// IsQuotaExceededError checks if an error is a quota exceeded error
func IsQuotaExceededError(err error) bool {
	return hasType(err, ErrorTypeQuotaExceeded)
}

// IsNoAvailableNetworkError checks if an error is a no available network error
func IsNoAvailableNetworkError(err error) bool {
	return hasType(err, ErrorTypeNoAvailableNetwork)
}

// IsUpstreamError checks if an error is an upstream provider error
func IsUpstreamError(err error) bool {
	return hasType(err, ErrorTypeUpstream)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasType(err, ErrorTypeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasType(err, ErrorTypeUnauthorized)
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasType(err, ErrorTypeNotFound)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return hasType(err, ErrorTypeInternal)
}

func hasType(err error, t ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == t
	}
	return false
}

// UpstreamStatusCode returns the HTTP status carried by an upstream error,
// or 0 when the error is not an upstream error.
func UpstreamStatusCode(err error) int {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Type != ErrorTypeUpstream {
		return 0
	}
	if code, ok := domainErr.Details["status_code"].(int); ok {
		return code
	}
	return 0
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}
