// Package services – AccountService
//
// This file implements the AccountService, the savings-account ledger. It
// holds the deduplication contract the sagas rely on: a deposit or withdrawal
// carrying a non-empty idempotency key is applied at most once per
// (account, key) pair, and a retried request is answered from the recorded
// ledger entry without moving money again.
//
// Service-level errors (ErrAccountNotFound, ErrInsufficientFunds, ...) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
	"github.com/mkurosawa/go-deposit-backend/internal/repo"
)

// AccountRepo defines the repository contract required by AccountService.
// Implementations are responsible for persistence of accounts and their
// ledger entries.
type AccountRepo interface {
	// CreateAccount inserts a new zero-balance account row.
	CreateAccount(ctx context.Context, db *gorm.DB, owner string) (*domain.Account, error)

	// GetAccount fetches an account by ID.
	GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error)

	// GetLedgerEntry fetches the entry recorded for (accountID, key).
	GetLedgerEntry(ctx context.Context, db *gorm.DB, accountID, key string) (*domain.LedgerEntry, error)

	// ApplyLedgerOp commits one balance mutation and its ledger entry as a
	// single unit of work, guarded by the account's optimistic version.
	ApplyLedgerOp(ctx context.Context, db *gorm.DB, acc *domain.Account, op domain.LedgerOp, amount, newBalance decimal.Decimal, key string) (*domain.LedgerEntry, error)
}

// AccountService provides the savings-account ledger operations: account
// creation, balance reads, and idempotent deposit/withdraw mutations.
type AccountService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the account repository used by this service.
	Repo AccountRepo

	// MaxRetries bounds retries of a balance write that lost an optimistic
	// version race.
	MaxRetries int
}

// NewAccountService constructs an AccountService with a sane retry bound.
func NewAccountService(db *gorm.DB, r AccountRepo) *AccountService {
	return &AccountService{DB: db, Repo: r, MaxRetries: 3}
}

// Create opens a new zero-balance account for owner.
func (s *AccountService) Create(ctx context.Context, owner string) (*domain.AccountSnapshot, error) {
	if owner == "" {
		return nil, ErrOwnerRequired
	}
	a, err := s.Repo.CreateAccount(ctx, s.DB, owner)
	if err != nil {
		return nil, err
	}
	return a.Snapshot(), nil
}

// Get returns the current snapshot of an account.
func (s *AccountService) Get(ctx context.Context, id string) (*domain.AccountSnapshot, error) {
	a, err := s.Repo.GetAccount(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return a.Snapshot(), nil
}

// Deposit credits amount to the account. With a non-empty key the operation
// is idempotent: a key already recorded for the account answers with the
// stored post-operation snapshot and no balance change.
func (s *AccountService) Deposit(ctx context.Context, id string, amount decimal.Decimal, key string) (*domain.AccountSnapshot, error) {
	return s.apply(ctx, id, domain.OpDeposit, amount, key)
}

// Withdraw debits amount from the account, failing with ErrInsufficientFunds
// when the balance does not cover it. Idempotency via key works as for
// Deposit.
func (s *AccountService) Withdraw(ctx context.Context, id string, amount decimal.Decimal, key string) (*domain.AccountSnapshot, error) {
	return s.apply(ctx, id, domain.OpWithdraw, amount, key)
}

// apply runs one ledger operation: replay check, balance math, optimistic
// write with bounded retries.
func (s *AccountService) apply(ctx context.Context, id string, op domain.LedgerOp, amount decimal.Decimal, key string) (*domain.AccountSnapshot, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	amount = domain.RoundMoney(amount)

	if key != "" {
		if snap, ok, err := s.replay(ctx, id, key); err != nil {
			return nil, err
		} else if ok {
			return snap, nil
		}
	}

	retries := s.MaxRetries
	if retries < 1 {
		retries = 1
	}
	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		acc, err := s.Repo.GetAccount(ctx, s.DB, id)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, ErrAccountNotFound
			}
			return nil, err
		}

		var newBalance decimal.Decimal
		switch op {
		case domain.OpDeposit:
			newBalance = acc.Balance.Add(amount)
		case domain.OpWithdraw:
			if acc.Balance.LessThan(amount) {
				return nil, ErrInsufficientFunds
			}
			newBalance = acc.Balance.Sub(amount)
		}

		entry, err := s.Repo.ApplyLedgerOp(ctx, s.DB, acc, op, amount, newBalance, key)
		if err == nil {
			return &domain.AccountSnapshot{ID: acc.ID, Owner: acc.Owner, Balance: entry.BalanceAfter}, nil
		}
		if errors.Is(err, repo.ErrVersionConflict) {
			lastErr = err
			continue
		}
		// A unique violation on (account, key) means a concurrent request
		// with the same key won the race; serve its recorded result.
		if key != "" {
			if snap, ok, rerr := s.replay(ctx, id, key); rerr == nil && ok {
				return snap, nil
			}
		}
		return nil, err
	}
	return nil, lastErr
}

// replay answers an already-recorded (account, key) operation from its
// ledger entry. The bool result reports whether an entry existed.
func (s *AccountService) replay(ctx context.Context, id, key string) (*domain.AccountSnapshot, bool, error) {
	e, err := s.Repo.GetLedgerEntry(ctx, s.DB, id, key)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &domain.AccountSnapshot{ID: e.AccountID, Balance: e.BalanceAfter}, true, nil
}
