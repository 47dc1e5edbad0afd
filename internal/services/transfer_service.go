// Package services – TransferService
//
// This file implements the transfer saga orchestrator: funding a new time
// deposit from a savings account as withdraw -> create, with a compensating
// deposit when creation fails after the money already left the account.
// Compensation is best-effort and never masks the original failure; a
// failed compensation is logged and counted so operational tooling can
// reconcile the mismatch out of band.
package services

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
)

// TransferRequest carries one funding request. It is constructed per
// incoming saga invocation, consumed entirely within one orchestration
// call, and discarded after.
//
// FromAccountID may be empty on the create entry point, in which case no
// ledger call is made at all; the transfer entry point requires it.
type TransferRequest struct {
	FromAccountID string          `json:"fromAccountId"`
	Owner         string          `json:"owner"`
	Principal     decimal.Decimal `json:"principal"`
	AnnualRate    decimal.Decimal `json:"annualRate"`
	TermDays      int             `json:"termDays"`
}

// DepositCreator is the slice of the deposit service the orchestrator
// needs: creating the aggregate once funding has succeeded.
type DepositCreator interface {
	Create(ctx context.Context, owner string, principal, annualRate decimal.Decimal, termDays int) (*domain.TimeDeposit, error)
}

// TransferService coordinates the withdraw-then-create saga across the
// savings ledger and the time-deposit aggregate. It takes its collaborators
// as explicit parameters; each downstream call and each store mutation is an
// individually-committed step, and saga atomicity is emulated only through
// the compensation and idempotent-replay protocol.
type TransferService struct {
	// Ledger is the savings-account collaborator.
	Ledger SavingsLedger
	// Deposits creates the funded aggregate.
	Deposits DepositCreator
}

// NewTransferService constructs a TransferService.
func NewTransferService(ledger SavingsLedger, deposits DepositCreator) *TransferService {
	return &TransferService{Ledger: ledger, Deposits: deposits}
}

// Transfer funds a new time deposit from a savings account and returns the
// new deposit's ID. The funding account is required on this entry point.
// The bool mirrors CreateFunded's: whether a compensating deposit was
// attempted after the money had already left the account.
func (s *TransferService) Transfer(ctx context.Context, req TransferRequest, idempotencyKey string) (string, bool, error) {
	if req.FromAccountID == "" {
		return "", false, ErrFundingRequired
	}
	td, compensated, err := s.CreateFunded(ctx, req, idempotencyKey)
	if err != nil {
		return "", compensated, err
	}
	return td.ID, false, nil
}

// CreateFunded is the saga body shared by both entry points (POST /transfers
// and POST /deposits with a funding account):
//
//  1. Validate the request; nothing has moved yet, so a validation failure
//     is terminal with no downstream call.
//  2. Withdraw the principal with the derived ":WD" key. A withdrawal
//     failure fails the whole operation immediately; no deposit was created,
//     so there is nothing to compensate.
//  3. Create the OPEN aggregate.
//  4. If creation fails after a successful withdrawal, deposit the principal
//     back with the derived ":CP" key. The compensation's own failure is
//     swallowed: the caller always sees the original creation error, and the
//     inconsistency is surfaced via log and counter for reconciliation.
//
// The returned bool reports whether a compensation was attempted, letting
// the transport layer tell "nothing happened" apart from "a withdrawal
// occurred but creation failed, and reversal was attempted".
func (s *TransferService) CreateFunded(ctx context.Context, req TransferRequest, idempotencyKey string) (*domain.TimeDeposit, bool, error) {
	if err := ValidateDepositInputs(req.Owner, req.Principal, req.AnnualRate, req.TermDays); err != nil {
		return nil, false, err
	}

	wdKey := domain.DeriveKey(idempotencyKey, domain.SuffixWithdraw)
	cpKey := domain.DeriveKey(idempotencyKey, domain.SuffixCompensate)

	if req.FromAccountID != "" {
		if _, err := s.Ledger.Withdraw(ctx, req.FromAccountID, req.Principal, wdKey); err != nil {
			transferSagas.WithLabelValues("withdraw_failed").Inc()
			return nil, false, err
		}
	}

	td, err := s.Deposits.Create(ctx, req.Owner, req.Principal, req.AnnualRate, req.TermDays)
	if err != nil {
		if req.FromAccountID == "" {
			transferSagas.WithLabelValues("create_failed").Inc()
			return nil, false, err
		}
		s.compensate(ctx, req.FromAccountID, req.Principal, cpKey)
		transferSagas.WithLabelValues("compensated").Inc()
		return nil, true, err
	}

	transferSagas.WithLabelValues("completed").Inc()
	return td, false, nil
}

// compensate returns withdrawn funds after a failed creation. Errors are
// logged and counted, never propagated: the original failure must reach the
// caller, and a compensation failure on top of it means manual
// reconciliation.
func (s *TransferService) compensate(ctx context.Context, accountID string, amount decimal.Decimal, key string) {
	if _, err := s.Ledger.Deposit(ctx, accountID, amount, key); err != nil {
		sagaCompensations.WithLabelValues("failed").Inc()
		log.Error().
			Err(err).
			Str("account_id", accountID).
			Str("amount", amount.String()).
			Str("idempotency_key", key).
			Msg("compensating deposit failed; funds not returned")
		return
	}
	sagaCompensations.WithLabelValues("applied").Inc()
}
