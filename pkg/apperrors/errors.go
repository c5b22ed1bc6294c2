// Package apperrors provides the structured error type returned by the core
// services. Handlers turn an AppError into a JSON response without leaking
// the internal cause to clients.
package apperrors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches AppErrors by code so wrapped copies compare equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid username or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound     = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrPersistence  = &AppError{Code: "PERSISTENCE_ERROR", Message: "The change could not be saved", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound  = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateUser = &AppError{Code: "DUPLICATE_USER", Message: "Username or email already exists", StatusCode: http.StatusConflict}
)

// Case errors.
var (
	ErrCaseNotFound            = &AppError{Code: "CASE_NOT_FOUND", Message: "Case not found", StatusCode: http.StatusNotFound}
	ErrDuplicateCIN            = &AppError{Code: "DUPLICATE_CIN", Message: "A case with this CIN already exists", StatusCode: http.StatusConflict}
	ErrCaseClosed              = &AppError{Code: "CASE_CLOSED", Message: "Case is closed", StatusCode: http.StatusConflict}
	ErrInvalidStatusTransition = &AppError{Code: "INVALID_STATUS_TRANSITION", Message: "Status transition is not allowed", StatusCode: http.StatusConflict}
	ErrEvidenceNotFound        = &AppError{Code: "EVIDENCE_NOT_FOUND", Message: "Evidence not found", StatusCode: http.StatusNotFound}
	ErrStorageUnavailable      = &AppError{Code: "STORAGE_UNAVAILABLE", Message: "Evidence storage is unavailable", StatusCode: http.StatusServiceUnavailable}
)

// Hearing errors.
var (
	ErrHearingNotFound     = &AppError{Code: "HEARING_NOT_FOUND", Message: "Hearing not found", StatusCode: http.StatusNotFound}
	ErrSchedulingConflict  = &AppError{Code: "SCHEDULING_CONFLICT", Message: "Scheduling conflict", StatusCode: http.StatusConflict}
	ErrOutsideCourtHours   = &AppError{Code: "OUTSIDE_COURT_HOURS", Message: "Hearings can only be scheduled on weekdays during court hours", StatusCode: http.StatusBadRequest}
	ErrInvalidHearingParty = &AppError{Code: "INVALID_PARTICIPANT", Message: "Judge or lawyer is not valid for this hearing", StatusCode: http.StatusBadRequest}
)

// Access errors.
var (
	ErrPaymentRequired = &AppError{Code: "PAYMENT_REQUIRED", Message: "Payment required to view this case", StatusCode: http.StatusPaymentRequired}
)
