package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Payment Session (PAY) ----

func ErrInvalidAmount() *AppError {
	return New("PAY_001", "Amount must be greater than zero", http.StatusBadRequest)
}

func ErrSessionNotFound() *AppError {
	return New("PAY_002", "Payment session not found", http.StatusNotFound)
}

func ErrAddressExhausted(err error) *AppError {
	return Wrap("PAY_003", "Unable to allocate a payment address", http.StatusInternalServerError, err)
}

// ---- Balance Oracle (ORC) ----
// Oracle errors stay internal: confirmation is fail-closed, so the polling
// client sees "not paid yet", never a provider failure.

func ErrProviderFailed(provider string, err error) *AppError {
	return Wrap("ORC_001", fmt.Sprintf("Chain provider %s failed", provider), http.StatusBadGateway, err)
}

func ErrAllProvidersFailed(err error) *AppError {
	return Wrap("ORC_002", "All chain providers failed", http.StatusBadGateway, err)
}

// ---- Admin Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a PAY_001-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("PAY_001", message, http.StatusBadRequest)
}
