// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// by the health endpoints, where a stuck CLOSING count is the operational
// signal that a closure saga needs manual reconciliation.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
)

// SavingsStats summarizes the savings schema.
type SavingsStats struct {
	Accounts      int64 `json:"accounts"`
	LedgerEntries int64 `json:"ledger_entries"`
}

// DepositStats summarizes time deposits by lifecycle state. Closing counts
// deposits whose payout call may or may not have been delivered; a non-zero
// value that does not drain on retry needs out-of-band reconciliation.
type DepositStats struct {
	Open    int64 `json:"open"`
	Closing int64 `json:"closing"`
	Closed  int64 `json:"closed"`
}

// GetSavingsStats returns row counts for accounts and ledger entries.
func GetSavingsStats(ctx context.Context, db *gorm.DB) (SavingsStats, error) {
	var s SavingsStats
	if err := db.WithContext(ctx).Model(&domain.Account{}).Count(&s.Accounts).Error; err != nil {
		return s, err
	}
	if err := db.WithContext(ctx).Model(&domain.LedgerEntry{}).Count(&s.LedgerEntries).Error; err != nil {
		return s, err
	}
	return s, nil
}

// GetDepositStats returns time-deposit counts grouped by status.
func GetDepositStats(ctx context.Context, db *gorm.DB) (DepositStats, error) {
	var s DepositStats
	type row struct {
		Status domain.DepositStatus
		N      int64
	}
	var rows []row
	err := db.WithContext(ctx).
		Model(&domain.TimeDeposit{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return s, err
	}
	for _, r := range rows {
		switch r.Status {
		case domain.StatusOpen:
			s.Open = r.N
		case domain.StatusClosing:
			s.Closing = r.N
		case domain.StatusClosed:
			s.Closed = r.N
		}
	}
	return s, nil
}
