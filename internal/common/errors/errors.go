// Package errors provides the service error taxonomy and its BPMN mapping.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeProvider         ErrorCode = "PROVIDER_ERROR"
	ErrCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrCodeStateConflict    ErrorCode = "STATE_CONFLICT"
	ErrCodeBatchItemFailure ErrorCode = "BATCH_ITEM_FAILURE"

	ErrCodeDatabase         ErrorCode = "DATABASE_ERROR"
	ErrCodeSearch           ErrorCode = "SEARCH_ERROR"
	ErrCodeCache            ErrorCode = "CACHE_ERROR"
	ErrCodeNotificationSend ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error. Details and the wrapped
// cause are for logs only; callers outside the process see Code and Message.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// SafeMessage is the label and message without internal details.
func (e *StandardError) SafeMessage() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches any StandardError carrying the same code, so sentinels work with errors.Is.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotFound         = &StandardError{Code: ErrCodeNotFound}
	ErrProvider         = &StandardError{Code: ErrCodeProvider}
	ErrValidation       = &StandardError{Code: ErrCodeValidation}
	ErrStateConflict    = &StandardError{Code: ErrCodeStateConflict}
	ErrBatchItemFailure = &StandardError{Code: ErrCodeBatchItemFailure}
	ErrDatabase         = &StandardError{Code: ErrCodeDatabase}
	ErrSearch           = &StandardError{Code: ErrCodeSearch}
	ErrCache            = &StandardError{Code: ErrCodeCache}
	ErrNotificationSend = &StandardError{Code: ErrCodeNotificationSend}
)

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns the job variables published with a failed or thrown job.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
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

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewNotFoundError reports a missing profile or match.
func NewNotFoundError(resource, id string) *StandardError {
	return newError(ErrCodeNotFound,
		fmt.Sprintf("%s not found", resource),
		fmt.Sprintf("%s: %s", resource, id),
		false, nil).WithMetadata("resource", resource)
}

// NewProviderError reports a failed or unparseable embedding/text-generation call.
func NewProviderError(stage string, err error) *StandardError {
	return newError(ErrCodeProvider,
		fmt.Sprintf("provider call failed during %s", stage),
		errString(err), true, err).WithMetadata("stage", stage)
}

// NewValidationError reports input rejected before any mutation.
func NewValidationError(field, reason string) *StandardError {
	return newError(ErrCodeValidation,
		fmt.Sprintf("invalid %s: %s", field, reason),
		"", false, nil).WithMetadata("field", field)
}

// NewStateConflictError reports an operation not allowed in the current match state.
func NewStateConflictError(reason string) *StandardError {
	return newError(ErrCodeStateConflict, reason, "", false, nil)
}

// NewBatchItemFailure reports one profile failing inside a batch run.
func NewBatchItemFailure(profileID string, err error) *StandardError {
	return newError(ErrCodeBatchItemFailure,
		"batch item failed",
		fmt.Sprintf("profile: %s, error: %s", profileID, errString(err)),
		false, err).WithMetadata("profileId", profileID)
}

// NewDatabaseError reports a failed store operation.
func NewDatabaseError(operation string, err error) *StandardError {
	return newError(ErrCodeDatabase,
		"database operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, errString(err)),
		true, err).WithMetadata("operation", operation)
}

// NewSearchError reports a failed similarity index query.
func NewSearchError(backend string, err error) *StandardError {
	return newError(ErrCodeSearch,
		"similarity search failed",
		fmt.Sprintf("backend: %s, error: %s", backend, errString(err)),
		true, err).WithMetadata("backend", backend)
}

// NewCacheError reports a failed cache or delivery-store operation.
func NewCacheError(operation string, err error) *StandardError {
	return newError(ErrCodeCache,
		"cache operation failed",
		fmt.Sprintf("operation: %s, error: %s", operation, errString(err)),
		true, err)
}

// NewNotificationSendError reports a failed nudge delivery.
func NewNotificationSendError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSend,
		"notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, errString(err)),
		true, err)
}

// NewInvalidInputError reports job variables that do not satisfy the activity schema.
func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "job input failed schema validation", details, false, nil)
}

// NewInternalError wraps an unexpected error.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "unexpected error", errString(err), false, err)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the recommended job retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabase, ErrCodeSearch, ErrCodeNotificationSend:
		return 3
	case ErrCodeProvider, ErrCodeCache:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError. Details are not carried over.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"errorCategory": GetErrorCategory(stdErr.Code),
			"timestamp":     stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case code == ErrCodeNotFound:
		return "NOT_FOUND"
	case code == ErrCodeStateConflict:
		return "STATE"
	case strings.Contains(codeStr, "PROVIDER"):
		return "AI"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "CACHE"):
		return "DATABASE"
	case strings.Contains(codeStr, "SEARCH"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	case strings.Contains(codeStr, "BATCH"):
		return "BATCH"
	default:
		return "OTHER"
	}
}
