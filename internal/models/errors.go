package models

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse represents a standardized API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// AppError represents a custom application error
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal server error",
		Err:     err,
	}
}

// NewFeatureDisabledError rejects an operation whose feature flag is off.
func NewFeatureDisabledError(feature string) *AppError {
	return &AppError{
		Code:    "FEATURE_DISABLED",
		Message: fmt.Sprintf("%s is disabled", feature),
	}
}

// NewDifferentRoomsError rejects a merge between streams of different broadcasts.
func NewDifferentRoomsError(targetRoom, sourceRoom string) *AppError {
	return &AppError{
		Code:    "DIFFERENT_ROOMS",
		Message: fmt.Sprintf("cannot merge streams from different rooms (%s, %s)", targetRoom, sourceRoom),
	}
}

// NewNoLiveError signals a capture start for a room that is not broadcasting.
func NewNoLiveError(roomID string) *AppError {
	return &AppError{
		Code:    "NO_LIVE",
		Message: fmt.Sprintf("room %s has no live broadcast", roomID),
	}
}

// NewNoProductsError rejects linking a session that has no products.
func NewNoProductsError(sessionID uint) *AppError {
	return &AppError{
		Code:    "NO_PRODUCTS",
		Message: fmt.Sprintf("session %d has no products", sessionID),
	}
}

// NewRateLimitedError signals an upstream API refusing further calls.
func NewRateLimitedError(upstream string) *AppError {
	return &AppError{
		Code:    "RATE_LIMITED",
		Message: fmt.Sprintf("%s rate limit exceeded", upstream),
	}
}

// NewUpstreamError wraps a failure from an external dependency.
func NewUpstreamError(upstream string, err error) *AppError {
	return &AppError{
		Code:    "UPSTREAM_ERROR",
		Message: fmt.Sprintf("%s request failed", upstream),
		Err:     err,
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// respondWithError creates a standardized error response
func RespondWithError(c *fiber.Ctx, status int, err error) error {
	var response ErrorResponse

	if appErr, ok := err.(*AppError); ok {
		response = ErrorResponse{
			Error: appErr.Message,
			Code:  appErr.Code,
		}
		if appErr.Err != nil {
			response.Details = appErr.Err.Error()
		}
	} else {
		response = ErrorResponse{
			Error: err.Error(),
		}
	}

	return c.Status(status).JSON(response)
}
