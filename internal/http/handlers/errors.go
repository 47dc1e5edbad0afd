// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes symbolic error code constants that are mapped to HTTP
// responses (via the `fail()` helper in this package), plus the translation
// from service-layer sentinel errors onto (status, code) pairs.
//
// Conventions:
//   - Codes are lowercase, snake_case, and domain-agnostic unless explicitly noted.
//   - Generic codes (e.g., bad_request, not_found, conflict) mirror common HTTP
//     status semantics to aid interoperability.
//   - Domain-specific codes (e.g., insufficient_funds, not_matured) are reserved
//     for banking conditions that cannot be conveyed by status alone.
//   - All error responses must include both an HTTP status and one of these codes.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "not_matured",
//	  "message": "deposit has not reached maturity"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkurosawa/go-deposit-backend/internal/client"
	"github.com/mkurosawa/go-deposit-backend/internal/services"
)

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeNotFound     = "not_found"
	ErrCodeConflict     = "conflict"
	ErrCodeRateLimited  = "too_many_requests"
	ErrCodeInternal     = "internal_error"

	// Domain-specific:
	ErrCodeValidation        = "validation_failed"
	ErrCodeFundingRequired   = "funding_account_required"
	ErrCodeInsufficientFunds = "insufficient_funds"
	ErrCodeNotMatured        = "not_matured"
	ErrCodeDepositClosed     = "deposit_closed"
	ErrCodeDownstream        = "downstream_error"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
)

// statusFor translates a service or client error onto the HTTP status and
// stable code the envelope carries. Unknown errors map to 500/internal_error
// so no internal detail leaks by accident.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrOwnerRequired),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidPrincipal),
		errors.Is(err, services.ErrInvalidRate),
		errors.Is(err, services.ErrInvalidTerm):
		return http.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, services.ErrFundingRequired):
		return http.StatusBadRequest, ErrCodeFundingRequired
	case errors.Is(err, services.ErrAccountNotFound),
		errors.Is(err, services.ErrDepositNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, services.ErrInsufficientFunds):
		return http.StatusConflict, ErrCodeInsufficientFunds
	case errors.Is(err, services.ErrNotMatured):
		return http.StatusConflict, ErrCodeNotMatured
	case errors.Is(err, services.ErrAlreadyClosed):
		return http.StatusConflict, ErrCodeDepositClosed
	}
	var se *client.StatusError
	if errors.As(err, &se) {
		return http.StatusBadGateway, ErrCodeDownstream
	}
	return http.StatusInternalServerError, ErrCodeInternal
}

// failFromError maps err via statusFor and writes the standard envelope with
// the error's own message as the human-readable text.
func failFromError(c *gin.Context, err error) {
	status, code := statusFor(err)
	fail(c, status, code, err.Error())
}

// errAsStatus unwraps a downstream *client.StatusError, normalizing an empty
// envelope code so proxied errors always carry a stable code.
func errAsStatus(err error) (*client.StatusError, bool) {
	var se *client.StatusError
	if !errors.As(err, &se) {
		return nil, false
	}
	if se.Code == "" {
		se = &client.StatusError{Service: se.Service, Status: se.Status, Code: ErrCodeDownstream, Message: se.Error()}
	}
	return se, true
}
