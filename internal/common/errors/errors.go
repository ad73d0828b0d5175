// Package errors provides the typed failure taxonomy shared by the data
// service, the job workers and the HTTP API.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode is the coarse failure kind.
type ErrorCode string

const (
	ErrCodeConfigMissing    ErrorCode = "CONFIG_MISSING"
	ErrCodeThrottled        ErrorCode = "THROTTLED"
	ErrCodeAuthFailed       ErrorCode = "AUTH_FAILED"
	ErrCodeNetwork          ErrorCode = "NETWORK_ERROR"
	ErrCodeRemoteAPI        ErrorCode = "REMOTE_API_ERROR"
	ErrCodeMapping          ErrorCode = "MAPPING_ERROR"
	ErrCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeTimeout          ErrorCode = "TIMEOUT"

	ErrCodeStoreFailed            ErrorCode = "STORE_FAILED"
	ErrCodeSearchFailed           ErrorCode = "SEARCH_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// SubKind refines ErrCodeRemoteAPI.
type SubKind string

const (
	SubKindNone             SubKind = ""
	SubKindPermissionDenied SubKind = "PERMISSION_DENIED"
	SubKindNotFound         SubKind = "NOT_FOUND"
	SubKindRateLimited      SubKind = "RATE_LIMITED"
	SubKindQuotaExceeded    SubKind = "QUOTA_EXCEEDED"
	SubKindUnavailable      SubKind = "UNAVAILABLE"
	SubKindUnauthenticated  SubKind = "UNAUTHENTICATED"
	SubKindUnknown          SubKind = "UNKNOWN"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	SubKind   SubKind                `json:"subKind,omitempty"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	Err error `json:"-"`
}

func (e *StandardError) Error() string {
	if e.SubKind != SubKindNone {
		return fmt.Sprintf("StandardError[%s/%s]: %s", e.Code, e.SubKind, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Err
}

// WithMetadata sets a metadata key and returns e for chaining.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
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

// ToErrorVariables returns the variables set on a failed or thrown job.
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

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Err:       cause,
	}
}

func detailsOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// NewConfigMissingError reports a required setting that is absent.
func NewConfigMissingError(setting, hint string) *StandardError {
	return newError(ErrCodeConfigMissing, fmt.Sprintf("%s is not configured", setting), hint, false, nil).
		WithMetadata("setting", setting)
}

func NewThrottledError(operation string) *StandardError {
	return newError(ErrCodeThrottled, fmt.Sprintf("%s throttled", operation), "", true, nil)
}

func NewAuthFailedError(details string, cause error) *StandardError {
	return newError(ErrCodeAuthFailed, "Authorization with the remote store failed", details, true, cause)
}

func NewNetworkError(cause error) *StandardError {
	return newError(ErrCodeNetwork, "Network error", detailsOf(cause), true, cause)
}

// NewRemoteAPIError builds a remote store failure with the given sub-kind.
// Rate limiting and unavailability are retryable, the rest are not.
func NewRemoteAPIError(kind SubKind, cause error) *StandardError {
	retryable := kind == SubKindRateLimited || kind == SubKindUnavailable || kind == SubKindUnknown
	e := newError(ErrCodeRemoteAPI, "Remote store request failed", detailsOf(cause), retryable, cause)
	e.SubKind = kind
	return e
}

func NewMappingError(row int, details string) *StandardError {
	return newError(ErrCodeMapping, "Row could not be mapped to a candidate", details, false, nil).
		WithMetadata("row", row)
}

func NewNotFoundError(resource, id string) *StandardError {
	return newError(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), id, false, nil)
}

func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Validation failed", details, false, nil)
}

func NewTimeoutError(operation string, cause error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("%s timed out", operation), detailsOf(cause), true, cause)
}

func NewStoreFailedError(store string, cause error) *StandardError {
	return newError(ErrCodeStoreFailed, fmt.Sprintf("%s operation failed", store), detailsOf(cause), true, cause)
}

func NewSearchFailedError(cause error) *StandardError {
	return newError(ErrCodeSearchFailed, "Search request failed", detailsOf(cause), true, cause)
}

func NewNotificationSendFailedError(channel string, cause error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, fmt.Sprintf("Failed to send %s notification", channel), detailsOf(cause), true, cause)
}

func NewInternalError(cause error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", detailsOf(cause), false, cause)
}

// FromHTTPStatus maps a remote API status code and reason onto the
// remote store taxonomy.
func FromHTTPStatus(status int, reason string, cause error) *StandardError {
	reason = strings.ToLower(reason)
	switch {
	case status == 401:
		return NewRemoteAPIError(SubKindUnauthenticated, cause)
	case status == 403 && strings.Contains(reason, "ratelimit"):
		return NewRemoteAPIError(SubKindRateLimited, cause)
	case status == 403 && (strings.Contains(reason, "quota") || strings.Contains(reason, "limitexceeded")):
		return NewRemoteAPIError(SubKindQuotaExceeded, cause)
	case status == 403:
		return NewRemoteAPIError(SubKindPermissionDenied, cause)
	case status == 404:
		return NewRemoteAPIError(SubKindNotFound, cause)
	case status == 429:
		return NewRemoteAPIError(SubKindRateLimited, cause)
	case status >= 500:
		return NewRemoteAPIError(SubKindUnavailable, cause)
	default:
		return NewRemoteAPIError(SubKindUnknown, cause)
	}
}

// ==========================
// 4. Classification
// ==========================

// AsStandard extracts a StandardError from err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	se, ok := AsStandard(err)
	return ok && se.Code == code
}

// Classify normalizes any error into the taxonomy. online is the
// connectivity signal at the time of failure; when false every failure is a
// network failure.
func Classify(err error, online bool) *StandardError {
	if err == nil {
		return nil
	}
	if se, ok := AsStandard(err); ok {
		return se
	}
	if !online {
		return NewNetworkError(err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError("remote request", err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return NewNetworkError(err)
	}
	return NewRemoteAPIError(SubKindUnknown, err)
}

// KindOf returns "CODE" or "CODE/SUB_KIND" for err, or "" when err is nil.
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	se := Classify(err, true)
	if se.SubKind == SubKindNone {
		return string(se.Code)
	}
	return string(se.Code) + "/" + string(se.SubKind)
}

// UserMessage returns the notice shown to the viewer for err.
func UserMessage(err error) string {
	se, ok := AsStandard(err)
	if !ok {
		return "Failed to load candidates"
	}
	switch se.Code {
	case ErrCodeNetwork:
		return "Network error: check your connection"
	case ErrCodeTimeout:
		return "The candidate service took too long to respond"
	case ErrCodeConfigMissing:
		return "Candidate data source is not configured"
	case ErrCodeAuthFailed:
		return "Could not authorize with the candidate data source"
	case ErrCodeThrottled:
		return "Requests are being throttled, showing saved data"
	case ErrCodeRemoteAPI:
		switch se.SubKind {
		case SubKindPermissionDenied, SubKindUnauthenticated:
			return "Access denied to the candidate spreadsheet"
		case SubKindNotFound:
			return "Candidate spreadsheet not found"
		case SubKindRateLimited:
			return "Too many requests, try again shortly"
		case SubKindQuotaExceeded:
			return "API quota exceeded, try again later"
		case SubKindUnavailable:
			return "Candidate service is temporarily unavailable"
		}
	}
	return "Failed to load candidates"
}

// ==========================
// 5. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the job retry budget for code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeNetwork,
		ErrCodeRemoteAPI,
		ErrCodeStoreFailed,
		ErrCodeSearchFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeAuthFailed:
		return 3
	case ErrCodeTimeout, ErrCodeThrottled:
		return 2
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	code := string(stdErr.Code)
	if stdErr.SubKind != SubKindNone {
		code = code + "_" + string(stdErr.SubKind)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      code,
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

// GetErrorCategory groups codes for dashboards and logs.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeNetwork, ErrCodeTimeout:
		return "CONNECTIVITY"
	case ErrCodeRemoteAPI, ErrCodeAuthFailed, ErrCodeThrottled:
		return "REMOTE_STORE"
	case ErrCodeConfigMissing:
		return "CONFIGURATION"
	case ErrCodeMapping, ErrCodeValidationFailed:
		return "VALIDATION"
	case ErrCodeStoreFailed:
		return "STORAGE"
	case ErrCodeSearchFailed:
		return "SEARCH"
	case ErrCodeNotificationSendFailed:
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
