package apperror

import (
	"errors"
	"net/http"

	"github.com/fixora/kpiboard/internal/domain"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrBadRequest      = &AppError{Code: "BAD_REQUEST", Message: "Bad request", Status: http.StatusBadRequest}
	ErrUnauthorized    = &AppError{Code: "UNAUTHORIZED", Message: "Unauthorized", Status: http.StatusUnauthorized}
	ErrTooManyRequests = &AppError{Code: "TOO_MANY_REQUESTS", Message: "Too many requests", Status: http.StatusTooManyRequests}
	ErrInternalServer  = &AppError{Code: "INTERNAL_ERROR", Message: "Internal server error", Status: http.StatusInternalServerError}
)

func NewBadRequest(message string) *AppError {
	return &AppError{Code: "BAD_REQUEST", Message: message, Status: http.StatusBadRequest}
}

func NewUnauthorized(message string) *AppError {
	return &AppError{Code: "UNAUTHORIZED", Message: message, Status: http.StatusUnauthorized}
}

func NewInternalServer(message string) *AppError {
	return &AppError{Code: "INTERNAL_ERROR", Message: message, Status: http.StatusInternalServerError}
}

// MapError converts any error into an AppError. Domain validation errors
// become 400s; everything unrecognised is hidden behind a 500.
func MapError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrInvalidHandlerKind):
		return &AppError{Code: "INVALID_KIND", Message: err.Error(), Status: http.StatusBadRequest}
	case errors.Is(err, domain.ErrInvalidDateRange):
		return &AppError{Code: "INVALID_DATE_RANGE", Message: err.Error(), Status: http.StatusBadRequest}
	case errors.Is(err, domain.ErrInvalidScoring):
		return &AppError{Code: "INVALID_SCORING", Message: err.Error(), Status: http.StatusBadRequest}
	default:
		return NewInternalServer("An unexpected error occurred")
	}
}
