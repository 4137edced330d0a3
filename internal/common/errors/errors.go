// Package errors provides standardized error codes for the inquiry sync pipeline
// and the BPMN error integration used by the job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Sync pipeline errors
const (
	ErrCodeConfiguration       ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeValidationFailed    ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnsupportedFormType ErrorCode = "UNSUPPORTED_FORM_TYPE"
	ErrCodeTransientHTTP       ErrorCode = "TRANSIENT_HTTP_ERROR"
	ErrCodeRateLimited         ErrorCode = "RATE_LIMITED"
	ErrCodeRemoteRejection     ErrorCode = "REMOTE_REJECTION"
	ErrCodeInvalidResponse     ErrorCode = "INVALID_RESPONSE"
)

// Job level errors
const (
	ErrCodeInputParsingFailed ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeInputInvalid       ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeInquiryNotFound    ErrorCode = "INQUIRY_NOT_FOUND"
	ErrCodeStoreUnavailable   ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// Coder is implemented by typed errors that belong to the taxonomy above.
type Coder interface {
	ErrorCode() ErrorCode
}

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ErrorCode implements Coder.
func (e *StandardError) ErrorCode() ErrorCode {
	return e.Code
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	for k, v := range e.ErrorVariables {
		vars[k] = v
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewInputParsingFailedError creates a non-retryable job input error.
func NewInputParsingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Failed to parse job variables",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInputInvalidError creates a non-retryable job input validation error.
func NewInputInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputInvalid,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInquiryNotFoundError creates a non-retryable lookup error.
func NewInquiryNotFoundError(serviceArea, inquiryID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInquiryNotFound,
		Message:   "Inquiry not found",
		Details:   fmt.Sprintf("serviceArea: %s, inquiryId: %s", serviceArea, inquiryID),
		Retryable: false,
		Metadata: map[string]interface{}{
			"serviceArea": serviceArea,
			"inquiryId":   inquiryID,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreUnavailableError creates a retryable store error.
func NewStoreUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStoreUnavailable,
		Message:   "Inquiry store unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStoreUnavailable:
		return 3
	case ErrCodeTransientHTTP, ErrCodeRateLimited:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// CodeOf walks the error chain and returns the first taxonomy code found,
// or ErrCodeInternal for unclassified errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var coder Coder
	if stderrors.As(err, &coder) {
		return coder.ErrorCode()
	}
	return ErrCodeInternal
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "UNSUPPORTED"):
		return "VALIDATION"
	case strings.Contains(codeStr, "HTTP") || strings.Contains(codeStr, "RATE"):
		return "TRANSIENT"
	case strings.Contains(codeStr, "REMOTE") || strings.Contains(codeStr, "RESPONSE"):
		return "REMOTE"
	case strings.Contains(codeStr, "INQUIRY") || strings.Contains(codeStr, "STORE"):
		return "STORE"
	case strings.Contains(codeStr, "INPUT"):
		return "INPUT"
	default:
		return "OTHER"
	}
}
