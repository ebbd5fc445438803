package domain

import (
	"fmt"
	"time"
)

// APIError is the body of every failed HTTP response. Field names the
// rejected PFT field when a manual edit or numeric input was refused.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Field     string    `json:"field,omitempty"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput        = "INVALID_INPUT"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeSessionNotFound     = "SESSION_NOT_FOUND"
	ErrCodeExtraction          = "EXTRACTION_ERROR"
	ErrCodeUnsupportedDocument = "UNSUPPORTED_DOCUMENT"
	ErrCodeNarrative           = "NARRATIVE_ERROR"
	ErrCodeRateLimit           = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer      = "INTERNAL_SERVER_ERROR"
)

// ValidationError rejects one field of a manual edit, numeric input or tool
// call. Input keeps the raw text as the user supplied it and may be empty.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Input  string `json:"input,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Reason, e.Input)
}

// Parameter returns the PFT parameter the error is about, if Field names one.
func (e *ValidationError) Parameter() (Parameter, bool) {
	p := Parameter(e.Field)
	return p, p.IsValid()
}

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError rejects field for reason.
func NewValidationError(field, reason, input string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason, Input: input}
}
