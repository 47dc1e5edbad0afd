// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// TimeDeposit aggregate.
//
// Error semantics mirror account_repo.go: missing rows surface as
// ErrNotFound, other DB errors are propagated raw.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
)

// CreateDeposit persists a freshly built TimeDeposit aggregate. Creation
// defaults (ID, StartAt, MaturityAt, status) are applied by the model's
// BeforeCreate hook.
func CreateDeposit(ctx context.Context, db *gorm.DB, td *domain.TimeDeposit) error {
	return db.WithContext(ctx).Create(td).Error
}

// GetDeposit fetches a deposit by ID, or ErrNotFound when missing.
func GetDeposit(ctx context.Context, db *gorm.DB, id string) (*domain.TimeDeposit, error) {
	var td domain.TimeDeposit
	if err := db.WithContext(ctx).Where("id = ?", id).First(&td).Error; err != nil {
		return nil, err
	}
	return &td, nil
}

// SaveDeposit writes the full aggregate row back. Each saga step persists
// its state transition individually (CLOSING before the payout call, CLOSED
// after it), so there is no transaction spanning the downstream call.
func SaveDeposit(ctx context.Context, db *gorm.DB, td *domain.TimeDeposit) error {
	return db.WithContext(ctx).Save(td).Error
}
