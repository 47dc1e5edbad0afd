// Package services defines the business logic for savings accounts, time
// deposits, and the funds-transfer sagas that span both. This file
// centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// Validation errors: the request itself is malformed. No downstream call is
// attempted when one of these is returned.
var (
	// ErrOwnerRequired is returned when an account or deposit is created
	// without an owner.
	ErrOwnerRequired = errors.New("owner is required")

	// ErrInvalidAmount is returned when a ledger operation amount is not
	// strictly positive.
	ErrInvalidAmount = errors.New("amount must be > 0")

	// ErrInvalidPrincipal is returned when a deposit principal is not
	// strictly positive.
	ErrInvalidPrincipal = errors.New("principal must be > 0")

	// ErrInvalidRate is returned when an annual rate is negative.
	ErrInvalidRate = errors.New("annualRate must be >= 0")

	// ErrInvalidTerm is returned when a term length is not strictly positive.
	ErrInvalidTerm = errors.New("termDays must be > 0")

	// ErrFundingRequired is returned by the transfer orchestrator when the
	// funding account is missing: a transfer is by definition funded.
	ErrFundingRequired = errors.New("fromAccountId is required")
)

// Not-found errors.
var (
	// ErrAccountNotFound indicates that the referenced savings account does
	// not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrDepositNotFound indicates that the referenced time deposit does
	// not exist.
	ErrDepositNotFound = errors.New("deposit not found")
)

// State errors: the operation is invalid for the aggregate's current state.
// The aggregate is left unchanged when one of these is returned.
var (
	// ErrInsufficientFunds is returned when a withdrawal exceeds the
	// account balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAlreadyClosed is returned by the non-idempotent close path when
	// the deposit is already CLOSED.
	ErrAlreadyClosed = errors.New("already closed")

	// ErrNotMatured is returned when closure is requested before the
	// deposit's maturity.
	ErrNotMatured = errors.New("not matured yet")
)
