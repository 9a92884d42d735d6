// Package errors provides standardized error handling for the clarity pipeline
// and its BPMN workflow integration.
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

const (
	// Fatal to a render request.
	ErrCodeTemplateNotFound    ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeTemplateBodyMissing ErrorCode = "TEMPLATE_BODY_MISSING"
	ErrCodeOutputNotFound      ErrorCode = "OUTPUT_NOT_FOUND"
	ErrCodeUnsupportedFormat   ErrorCode = "UNSUPPORTED_FORMAT"

	// Degraded: logged and surfaced as warnings, never returned by the pipeline.
	ErrCodeCatalogFetchFailed     ErrorCode = "CATALOG_FETCH_FAILED"
	ErrCodeAnalysisServiceFailed  ErrorCode = "ANALYSIS_SERVICE_FAILED"
	ErrCodeAnalysisServiceTimeout ErrorCode = "ANALYSIS_SERVICE_TIMEOUT"
	ErrCodeTranslationFailed      ErrorCode = "TRANSLATION_FAILED"
	ErrCodePersistenceFailed      ErrorCode = "PERSISTENCE_FAILED"

	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"

	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

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
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Is matches any StandardError carrying the same code, so sentinel
// comparisons like errors.Is(err, &StandardError{Code: ErrCodeOutputNotFound}) work.
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithMetadata returns e with key set in its metadata.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// AsStandardError unwraps err to a StandardError, if it carries one.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// HasCode reports whether err carries a StandardError with the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandardError(err)
	return ok && stdErr.Code == code
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

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError reports that no template entry resolved for id and locale.
func NewTemplateNotFoundError(templateID, locale string) *StandardError {
	return newError(ErrCodeTemplateNotFound, "Template not found",
		fmt.Sprintf("templateId: %s, locale: %s", templateID, locale), false).
		WithMetadata("templateId", templateID).
		WithMetadata("locale", locale)
}

// NewTemplateBodyMissingError reports a resolved template whose body is empty or unreadable.
func NewTemplateBodyMissingError(templateID string, err error) *StandardError {
	details := fmt.Sprintf("templateId: %s", templateID)
	if err != nil {
		details = fmt.Sprintf("%s, error: %s", details, err.Error())
	}
	return newError(ErrCodeTemplateBodyMissing, "Template body is missing", details, false).
		WithMetadata("templateId", templateID)
}

func NewOutputNotFoundError(outputID string) *StandardError {
	return newError(ErrCodeOutputNotFound, "Output configuration not found",
		fmt.Sprintf("outputId: %s", outputID), false).
		WithMetadata("outputId", outputID)
}

func NewUnsupportedFormatError(format string) *StandardError {
	return newError(ErrCodeUnsupportedFormat, "Unsupported export format",
		fmt.Sprintf("format: %s", format), false).
		WithMetadata("format", format)
}

// NewCatalogFetchFailedError creates a retryable configuration source error.
func NewCatalogFetchFailedError(kind string, err error) *StandardError {
	return newError(ErrCodeCatalogFetchFailed, "Catalog fetch failed",
		fmt.Sprintf("kind: %s, error: %s", kind, err.Error()), true).
		WithMetadata("kind", kind)
}

// NewAnalysisServiceFailedError covers non-2xx and malformed responses.
func NewAnalysisServiceFailedError(err error) *StandardError {
	return newError(ErrCodeAnalysisServiceFailed, "Analysis service request failed", err.Error(), true)
}

func NewAnalysisServiceTimeoutError() *StandardError {
	return newError(ErrCodeAnalysisServiceTimeout, "Analysis service timeout",
		"request exceeded the configured timeout", true)
}

func NewTranslationFailedError(locale string, err error) *StandardError {
	return newError(ErrCodeTranslationFailed, "Translation failed",
		fmt.Sprintf("locale: %s, error: %s", locale, err.Error()), true).
		WithMetadata("locale", locale)
}

// NewPersistenceFailedError creates a retryable session store error.
func NewPersistenceFailedError(key string, err error) *StandardError {
	return newError(ErrCodePersistenceFailed, "Session persistence failed",
		fmt.Sprintf("key: %s, error: %s", key, err.Error()), true).
		WithMetadata("key", key)
}

func NewSessionNotFoundError(sessionID string) *StandardError {
	return newError(ErrCodeSessionNotFound, "Session not found",
		fmt.Sprintf("sessionId: %s", sessionID), false).
		WithMetadata("sessionId", sessionID)
}

func NewInvalidInputError(details string) *StandardError {
	return newError(ErrCodeInvalidInput, "Invalid input", details, false)
}

// Generic constructors

func NewExternalServiceError(service string, err error) *StandardError {
	return newError(ErrCodeExternalService, fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to the BPMN error codes caught by
// boundary events in the clarity process models.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeTemplateNotFound:       "TEMPLATE_NOT_FOUND",
	ErrCodeTemplateBodyMissing:    "TEMPLATE_BODY_MISSING",
	ErrCodeOutputNotFound:         "OUTPUT_NOT_FOUND",
	ErrCodeUnsupportedFormat:      "UNSUPPORTED_FORMAT",
	ErrCodeCatalogFetchFailed:     "CATALOG_FETCH_FAILED",
	ErrCodeAnalysisServiceFailed:  "ANALYSIS_SERVICE_FAILED",
	ErrCodeAnalysisServiceTimeout: "ANALYSIS_SERVICE_TIMEOUT",
	ErrCodeTranslationFailed:      "TRANSLATION_FAILED",
	ErrCodePersistenceFailed:      "PERSISTENCE_FAILED",
	ErrCodeSessionNotFound:        "SESSION_NOT_FOUND",
	ErrCodeInvalidInput:           "INVALID_INPUT",
}

// GetRetryCount returns the recommended retry count for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCatalogFetchFailed,
		ErrCodePersistenceFailed,
		ErrCodeExternalService:
		return 3

	case ErrCodeAnalysisServiceFailed,
		ErrCodeTranslationFailed,
		ErrCodeAnalysisServiceTimeout,
		ErrCodeTimeout:
		return 2

	default:
		return 0 // business errors are thrown, not retried
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
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

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "OUTPUT") || strings.Contains(codeStr, "FORMAT"):
		return "DOCUMENT"
	case strings.Contains(codeStr, "CATALOG"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "ANALYSIS"):
		return "ANALYSIS"
	case strings.Contains(codeStr, "TRANSLATION"):
		return "TRANSLATION"
	case strings.Contains(codeStr, "PERSISTENCE") || strings.Contains(codeStr, "SESSION"):
		return "PERSISTENCE"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "EXTERNAL") || strings.Contains(codeStr, "TIMEOUT"):
		return "EXTERNAL"
	default:
		return "OTHER"
	}
}
