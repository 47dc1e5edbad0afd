// Package services – DepositService
//
// This file implements the time-deposit aggregate service: creation with
// validation and half-up principal rounding, simple-interest payout math,
// and the two closure paths. CloseAndTransfer is the closure saga: it marks
// the aggregate CLOSING before the payout call so a crash mid-flight leaves
// visible evidence, relies on the downstream ledger's idempotency-key dedup
// for safe retries, and replays an already-CLOSED deposit without any
// downstream call.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
	"github.com/mkurosawa/go-deposit-backend/internal/repo"
)

// daysPerYear is the simple-interest day-count denominator.
var daysPerYear = decimal.NewFromInt(365)

// rateDivScale is the decimal precision of the rate*days/365 division.
// The quotient is kept well past the final 2-digit rounding so repeated
// terms like 1/365 do not truncate prematurely.
const rateDivScale = 20

// SavingsLedger is the downstream collaborator moving money in and out of
// savings accounts. An empty idempotency key means the legacy no-key path:
// the call is made without a dedup contract.
//
// Implementations must be idempotent per (account, key): retrying a call
// with the same non-empty key must not reapply the movement.
type SavingsLedger interface {
	// Withdraw debits amount from the account.
	Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, idempotencyKey string) (*domain.AccountSnapshot, error)

	// Deposit credits amount to the account.
	Deposit(ctx context.Context, accountID string, amount decimal.Decimal, idempotencyKey string) (*domain.AccountSnapshot, error)
}

// DepositRepo defines the repository contract required by DepositService.
type DepositRepo interface {
	// CreateDeposit persists a new aggregate (defaults via model hook).
	CreateDeposit(ctx context.Context, db *gorm.DB, td *domain.TimeDeposit) error

	// GetDeposit fetches an aggregate by ID.
	GetDeposit(ctx context.Context, db *gorm.DB, id string) (*domain.TimeDeposit, error)

	// SaveDeposit writes the aggregate row back.
	SaveDeposit(ctx context.Context, db *gorm.DB, td *domain.TimeDeposit) error
}

// DepositService manages the TimeDeposit aggregate lifecycle.
type DepositService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the deposit repository used by this service.
	Repo DepositRepo
}

// NewDepositService constructs a DepositService.
func NewDepositService(db *gorm.DB, r DepositRepo) *DepositService {
	return &DepositService{DB: db, Repo: r}
}

// ValidateDepositInputs checks the creation invariants: owner present,
// principal > 0, annualRate >= 0, termDays > 0. Shared by the deposit
// service and the transfer orchestrator so malformed input is rejected
// before any money moves.
func ValidateDepositInputs(owner string, principal, annualRate decimal.Decimal, termDays int) error {
	if strings.TrimSpace(owner) == "" {
		return ErrOwnerRequired
	}
	if !principal.IsPositive() {
		return ErrInvalidPrincipal
	}
	if annualRate.IsNegative() {
		return ErrInvalidRate
	}
	if termDays <= 0 {
		return ErrInvalidTerm
	}
	return nil
}

// Create validates inputs, rounds the principal half-up to 2 decimals, and
// persists a new OPEN aggregate. Validation failure means no write at all.
func (s *DepositService) Create(ctx context.Context, owner string, principal, annualRate decimal.Decimal, termDays int) (*domain.TimeDeposit, error) {
	if err := ValidateDepositInputs(owner, principal, annualRate, termDays); err != nil {
		return nil, err
	}
	td := &domain.TimeDeposit{
		Owner:      owner,
		Principal:  domain.RoundMoney(principal),
		AnnualRate: annualRate,
		TermDays:   termDays,
	}
	if err := s.Repo.CreateDeposit(ctx, s.DB, td); err != nil {
		return nil, err
	}
	return td, nil
}

// Get returns the aggregate by ID.
func (s *DepositService) Get(ctx context.Context, id string) (*domain.TimeDeposit, error) {
	td, err := s.Repo.GetDeposit(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrDepositNotFound
		}
		return nil, err
	}
	return td, nil
}

// CalculatePayout computes the simple-interest payout
// principal * (1 + annualRate * termDays / 365), rounded half-up to 2
// decimals. Pure, no side effects.
func (s *DepositService) CalculatePayout(td *domain.TimeDeposit) decimal.Decimal {
	days := decimal.NewFromInt(int64(td.TermDays))
	factor := decimal.New(1, 0).Add(td.AnnualRate.Mul(days).DivRound(daysPerYear, rateDivScale))
	return domain.RoundMoney(td.Principal.Mul(factor))
}

// Close is the pure accounting close with no linked transfer: it fails when
// the deposit is already CLOSED or not yet matured, otherwise computes the
// payout and finalizes the status. Payout account and close time are not
// recorded on this degenerate path.
func (s *DepositService) Close(ctx context.Context, id string, now time.Time) (decimal.Decimal, error) {
	td, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if td.Status == domain.StatusClosed {
		return decimal.Zero, ErrAlreadyClosed
	}
	if !td.Matured(now) {
		return decimal.Zero, ErrNotMatured
	}
	payout := s.CalculatePayout(td)
	td.Status = domain.StatusClosed
	if err := s.Repo.SaveDeposit(ctx, s.DB, td); err != nil {
		return decimal.Zero, err
	}
	return payout, nil
}

// CloseAndTransfer runs the closure saga: maturity check, payout
// computation, downstream payout deposit, state finalization.
//
// Sequence:
//  1. An already-CLOSED deposit replays its recorded payout with no
//     downstream call. A retried closure must never re-trigger payment.
//  2. Before maturity the call fails and the aggregate is untouched.
//  3. CLOSING is persisted before the external call.
//  4. The payout is deposited with the derived ":CLOSE" key.
//  5. A failed payout call propagates its error and leaves the row CLOSING;
//     a retry with the same client key completes the transition because the
//     ledger deduplicates the deposit.
//
// There is no compensating action here: the money movement is a one-way
// payout, not a withdrawal that could be reversed.
func (s *DepositService) CloseAndTransfer(ctx context.Context, id, toAccountID string, now time.Time, ledger SavingsLedger, idempotencyKey string) (decimal.Decimal, error) {
	td, err := s.Get(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}

	if td.Status == domain.StatusClosed {
		depositClosures.WithLabelValues("replay").Inc()
		if td.PayoutAmount != nil {
			return *td.PayoutAmount, nil
		}
		// Closed through the plain accounting path: the payout was never
		// recorded, but the formula is deterministic.
		return s.CalculatePayout(td), nil
	}

	if !td.Matured(now) {
		return decimal.Zero, ErrNotMatured
	}

	if td.Status == domain.StatusOpen {
		td.Status = domain.StatusClosing
		if err := s.Repo.SaveDeposit(ctx, s.DB, td); err != nil {
			return decimal.Zero, err
		}
	}

	payout := s.CalculatePayout(td)

	closeKey := domain.DeriveKey(idempotencyKey, domain.SuffixClose)
	if _, err := ledger.Deposit(ctx, toAccountID, payout, closeKey); err != nil {
		depositClosures.WithLabelValues("payout_failed").Inc()
		return decimal.Zero, err
	}

	td.Status = domain.StatusClosed
	td.PayoutAmount = &payout
	td.PayoutAccount = &toAccountID
	td.ClosedAt = &now
	if err := s.Repo.SaveDeposit(ctx, s.DB, td); err != nil {
		return decimal.Zero, err
	}
	depositClosures.WithLabelValues("closed").Inc()
	return payout, nil
}
