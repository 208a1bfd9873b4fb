// Package errors provides standardized error handling for BPMN workflow integration.
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
	// Application review
	ErrCodeApplicationNotFound ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeAlreadyReviewed     ErrorCode = "ALREADY_REVIEWED"
	ErrCodeProvisioningFailed  ErrorCode = "PROVISIONING_FAILED"

	// Assignments and profiles
	ErrCodeProfileNotFound     ErrorCode = "PROFILE_NOT_FOUND"
	ErrCodeDuplicateAssignment ErrorCode = "DUPLICATE_ASSIGNMENT"
	ErrCodeAssignmentNotFound  ErrorCode = "ASSIGNMENT_NOT_FOUND"

	// Sessions and scoring
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeScoringFailed   ErrorCode = "SCORING_FAILED"

	// Monthly reports
	ErrCodeTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeReportNotFound   ErrorCode = "REPORT_NOT_FOUND"
	ErrCodeAlreadyApproved  ErrorCode = "ALREADY_APPROVED"

	// Shared business codes
	ErrCodeInvalidState     ErrorCode = "INVALID_STATE"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"

	// Technical codes (retryable)
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeDatabaseWriteFailed      ErrorCode = "DATABASE_WRITE_FAILED"
	ErrCodeNotificationSendFailed   ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Fields    []string               `json:"fields,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
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

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewApplicationNotFoundError creates a non-retryable lookup error.
func NewApplicationNotFoundError(applicationID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeApplicationNotFound,
		Message:   "Application not found",
		Details:   fmt.Sprintf("applicationId: %s", applicationID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyReviewedError signals an approve/reject attempt on a resolved application.
func NewAlreadyReviewedError(applicationID, status string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyReviewed,
		Message:   "Application has already been reviewed",
		Details:   fmt.Sprintf("applicationId: %s, status: %s", applicationID, status),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProvisioningFailedError wraps an account/profile creation failure.
// The surrounding transaction must already be rolled back by the caller.
func NewProvisioningFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProvisioningFailed,
		Message:   "Account or profile provisioning failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProfileNotFoundError creates a non-retryable lookup error for participants.
func NewProfileNotFoundError(kind, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProfileNotFound,
		Message:   fmt.Sprintf("%s profile not found", kind),
		Details:   fmt.Sprintf("id: %s", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateAssignmentError signals a second active assignment for the same pair.
func NewDuplicateAssignmentError(advisorID, founderID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateAssignment,
		Message:   "An active assignment already exists for this advisor and founder",
		Details:   fmt.Sprintf("advisorId: %s, founderId: %s", advisorID, founderID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAssignmentNotFoundError creates a non-retryable lookup error.
func NewAssignmentNotFoundError(assignmentID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAssignmentNotFound,
		Message:   "Assignment not found",
		Details:   fmt.Sprintf("assignmentId: %s", assignmentID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionNotFoundError creates a non-retryable lookup error.
func NewSessionNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionNotFound,
		Message:   "Session not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewTemplateNotFoundError signals a missing active template for a period.
func NewTemplateNotFoundError(month, year int) *StandardError {
	return &StandardError{
		Code:      ErrCodeTemplateNotFound,
		Message:   "No active report template for period",
		Details:   fmt.Sprintf("month: %d, year: %d", month, year),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewReportNotFoundError creates a non-retryable lookup error.
func NewReportNotFoundError(reportID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeReportNotFound,
		Message:   "Monthly report not found",
		Details:   fmt.Sprintf("reportId: %s", reportID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadyApprovedError signals a review attempt on an approved report.
func NewAlreadyApprovedError(reportID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadyApproved,
		Message:   "Report has already been approved",
		Details:   fmt.Sprintf("reportId: %s", reportID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidStateError signals an operation attempted from a forbidding state.
func NewInvalidStateError(message, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidState,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError carries the full list of violated fields so a
// caller can display every error at once.
func NewValidationFailedError(message string, fields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   message,
		Details:   strings.Join(fields, "; "),
		Fields:    fields,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnauthorizedError signals a caller lacking the required role.
func NewUnauthorizedError(userID, requiredRole string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Caller lacks required role",
		Details:   fmt.Sprintf("userId: %s, requiredRole: %s", userID, requiredRole),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseWriteFailedError creates a retryable write error.
func NewDatabaseWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseWriteFailed,
		Message:   "Database write operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes (identical).
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeApplicationNotFound:      "APPLICATION_NOT_FOUND",
	ErrCodeAlreadyReviewed:          "ALREADY_REVIEWED",
	ErrCodeProvisioningFailed:       "PROVISIONING_FAILED",
	ErrCodeProfileNotFound:          "PROFILE_NOT_FOUND",
	ErrCodeDuplicateAssignment:      "DUPLICATE_ASSIGNMENT",
	ErrCodeAssignmentNotFound:       "ASSIGNMENT_NOT_FOUND",
	ErrCodeSessionNotFound:          "SESSION_NOT_FOUND",
	ErrCodeScoringFailed:            "SCORING_FAILED",
	ErrCodeTemplateNotFound:         "TEMPLATE_NOT_FOUND",
	ErrCodeReportNotFound:           "REPORT_NOT_FOUND",
	ErrCodeAlreadyApproved:          "ALREADY_APPROVED",
	ErrCodeInvalidState:             "INVALID_STATE",
	ErrCodeValidationFailed:         "VALIDATION_FAILED",
	ErrCodeUnauthorized:             "UNAUTHORIZED",
	ErrCodeDatabaseConnectionFailed: "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:     "QUERY_EXECUTION_FAILED",
	ErrCodeDatabaseWriteFailed:      "DATABASE_WRITE_FAILED",
	ErrCodeNotificationSendFailed:   "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
// Business-rule violations are never retried automatically.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseWriteFailed,
		ErrCodeNotificationSendFailed:
		return 3

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	if len(stdErr.Fields) > 0 {
		vars["violatedFields"] = stdErr.Fields
	}

	return &BPMNError{
		Code:           bpmnCode,
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
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
	case strings.Contains(codeStr, "APPLICATION") || strings.Contains(codeStr, "REVIEWED") || strings.Contains(codeStr, "PROVISIONING"):
		return "APPLICATION_REVIEW"
	case strings.Contains(codeStr, "ASSIGNMENT") || strings.Contains(codeStr, "PROFILE"):
		return "ASSIGNMENT"
	case strings.Contains(codeStr, "SESSION") || strings.Contains(codeStr, "SCORING"):
		return "SCORING"
	case strings.Contains(codeStr, "TEMPLATE") || strings.Contains(codeStr, "REPORT") || strings.Contains(codeStr, "APPROVED"):
		return "REPORTS"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
