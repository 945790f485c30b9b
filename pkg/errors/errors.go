package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError provides a structured error that can be rendered to API consumers.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}

	return e.Message
}

// Unwrap exposes the internal error for errors.Is / errors.As compatibility.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Internal
}

// Is reports whether target is an AppError carrying the same code. This lets callers
// match copies produced by WithInternal or WithMessage against the package sentinels.
func (e *AppError) Is(target error) bool {
	if e == nil {
		return false
	}
	var other *AppError
	if !errors.As(target, &other) || other == nil {
		return false
	}
	return e.Code == other.Code
}

// WithInternal returns a copy of the AppError with an attached internal error.
func (e *AppError) WithInternal(err error) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Internal = err
	return &cpy
}

// WithMessage returns a copy of the AppError with a replacement caller-visible message.
func (e *AppError) WithMessage(message string) *AppError {
	if e == nil {
		return nil
	}

	cpy := *e
	cpy.Message = message
	return &cpy
}

// Common errors exposed to the rest of the application.
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	ErrAccountDisabled = &AppError{
		Code:       "ACCOUNT_DISABLED",
		Message:    "This account has been deactivated",
		StatusCode: http.StatusForbidden,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Permission denied",
		StatusCode: http.StatusForbidden,
	}

	ErrTenantNotAssigned = &AppError{
		Code:       "TENANT_NOT_ASSIGNED",
		Message:    "Your account is not assigned to a barangay",
		StatusCode: http.StatusForbidden,
	}

	ErrTenantSetupIncomplete = &AppError{
		Code:       "TENANT_SETUP_INCOMPLETE",
		Message:    "Complete your barangay profile before inviting members",
		StatusCode: http.StatusPreconditionFailed,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "Resource already exists",
		StatusCode: http.StatusConflict,
	}

	ErrInvitationExpired = &AppError{
		Code:       "INVITATION_EXPIRED",
		Message:    "This invitation has expired",
		StatusCode: http.StatusGone,
	}

	ErrInvitationUsed = &AppError{
		Code:       "INVITATION_ALREADY_USED",
		Message:    "This invitation has already been used",
		StatusCode: http.StatusConflict,
	}

	ErrInvitationRequired = &AppError{
		Code:       "INVITATION_REQUIRED",
		Message:    "An invitation code is required to create an account",
		StatusCode: http.StatusForbidden,
	}

	ErrCodeGenerationExhausted = &AppError{
		Code:       "CODE_GENERATION_EXHAUSTED",
		Message:    "Could not allocate an invitation code, please try again",
		StatusCode: http.StatusServiceUnavailable,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests, please slow down",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrBackendUnavailable = &AppError{
		Code:       "BACKEND_UNAVAILABLE",
		Message:    "A backing service is unavailable, please retry",
		StatusCode: http.StatusInternalServerError,
	}

	ErrInternalServer = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "Internal server error",
		StatusCode: http.StatusInternalServerError,
	}
)

// New builds a new application error with the provided metadata.
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Backend wraps a storage or identity-provider failure. It is the only class clients
// should treat as retryable.
func Backend(err error) *AppError {
	return ErrBackendUnavailable.WithInternal(err)
}

// FromError converts a generic error into an AppError, defaulting to ErrInternalServer.
func FromError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return ErrInternalServer.WithInternal(err)
}

// NewBadRequest wraps validation errors with a helpful message.
func NewBadRequest(message string) *AppError {
	return ErrBadRequest.WithMessage(message)
}

// NewForbidden returns a permission error with a role-specific explanation.
func NewForbidden(message string) *AppError {
	return ErrForbidden.WithMessage(message)
}

// NewConflict returns a conflict error describing the duplicate.
func NewConflict(message string) *AppError {
	return ErrConflict.WithMessage(message)
}
