// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"

	"spazatrack/internal/apperr"
)

// Stable machine-readable codes carried in every error envelope.
const (
	CodeBadRequest         = "bad_request"
	CodeValidation         = "validation_error"
	CodeDuplicateUsername  = "duplicate_username"
	CodeDuplicateEmail     = "duplicate_email"
	CodeInvalidCredentials = "invalid_credentials"
	CodeInvalidToken       = "invalid_token"
	CodeExpiredToken       = "token_expired"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodeInsufficientStock  = "insufficient_stock"
	CodeRateLimited        = "rate_limited"
	CodeInternal           = "internal_error"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string            `json:"detail"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

func New(code, detail string) *APIError {
	return &APIError{Detail: detail, Code: code}
}

// NewValidation wraps multiple field errors.
func NewValidation(fields map[string]string) *APIError {
	return &APIError{Detail: "validation failed", Code: CodeValidation, Fields: fields}
}

// Internal is the only body a 5xx ever carries.
func Internal() *APIError {
	return New(CodeInternal, "internal server error")
}

var mapping = []struct {
	err    error
	status int
	code   string
}{
	{apperr.ErrDuplicateUsername, http.StatusConflict, CodeDuplicateUsername},
	{apperr.ErrDuplicateEmail, http.StatusConflict, CodeDuplicateEmail},
	{apperr.ErrInvalidCredentials, http.StatusUnauthorized, CodeInvalidCredentials},
	{apperr.ErrExpiredToken, http.StatusUnauthorized, CodeExpiredToken},
	{apperr.ErrInvalidToken, http.StatusUnauthorized, CodeInvalidToken},
	{apperr.ErrForbidden, http.StatusForbidden, CodeForbidden},
	{apperr.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{apperr.ErrInsufficientStock, http.StatusConflict, CodeInsufficientStock},
}

// FromError translates a domain error into a status code and envelope.
// Anything outside the taxonomy, storage failures included, becomes an opaque
// 500; the caller is responsible for logging the cause.
func FromError(err error) (int, *APIError) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity, NewValidation(ve.Fields)
	}
	for _, m := range mapping {
		if errors.Is(err, m.err) {
			return m.status, New(m.code, m.err.Error())
		}
	}
	return http.StatusInternalServerError, Internal()
}
