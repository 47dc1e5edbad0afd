// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for savings
// accounts and their ledger entries.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an account or ledger entry is not found, functions return
//     gorm.ErrRecordNotFound (also exported here as ErrNotFound).
//   - ApplyLedgerOp returns ErrVersionConflict when the optimistic version
//     check fails; the service layer reloads and retries.
//   - On other DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrVersionConflict is returned when an optimistic balance update raced a
// concurrent writer. Callers reload the account and retry.
var ErrVersionConflict = errors.New("account version conflict")

// CreateAccount inserts a new zero-balance account owned by owner.
// The account ID is a randomly generated UUID, CreatedAt is set to UTC.
func CreateAccount(ctx context.Context, db *gorm.DB, owner string) (*domain.Account, error) {
	a := &domain.Account{
		ID:        uuid.NewString(),
		Owner:     owner,
		Balance:   decimal.Zero,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

// GetAccount fetches a single account by its ID. If the record does not
// exist, it returns ErrNotFound.
func GetAccount(ctx context.Context, db *gorm.DB, id string) (*domain.Account, error) {
	var a domain.Account
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// GetLedgerEntry fetches the ledger entry recorded for (accountID, key), or
// ErrNotFound when the key has not been seen. Used to answer idempotent
// replays without reapplying money movement.
func GetLedgerEntry(ctx context.Context, db *gorm.DB, accountID, key string) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := db.WithContext(ctx).
		Where("account_id = ? AND idempotency_key = ?", accountID, key).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ApplyLedgerOp commits one balance mutation as a single unit of work: the
// balance/version update and the ledger-entry insert either both land or
// neither does.
//
// The UPDATE carries the version the caller read; zero affected rows means a
// concurrent writer got there first and ErrVersionConflict is returned.
// A non-empty idempotency key is stored on the entry, where the unique
// (account_id, idempotency_key) index turns replayed keys into constraint
// violations surfaced to the caller as the stored entry (see service layer).
func ApplyLedgerOp(ctx context.Context, db *gorm.DB, acc *domain.Account, op domain.LedgerOp, amount, newBalance decimal.Decimal, key string) (*domain.LedgerEntry, error) {
	entry := &domain.LedgerEntry{
		ID:           uuid.NewString(),
		AccountID:    acc.ID,
		Op:           op,
		Amount:       amount,
		BalanceAfter: newBalance,
		CreatedAt:    time.Now().UTC(),
	}
	if key != "" {
		entry.IdempotencyKey = &key
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&domain.Account{}).
			Where("id = ? AND version = ?", acc.ID, acc.Version).
			Updates(map[string]any{
				"balance": newBalance,
				"version": acc.Version + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrVersionConflict
		}
		return tx.Create(entry).Error
	})
	if err != nil {
		return nil, err
	}

	acc.Balance = newBalance
	acc.Version++
	return entry, nil
}
