// Package domain defines the persistence models for savings accounts, time
// deposits, and the ledger entries that make money movement idempotent.
// These types are mapped with GORM and form the core data layer shared by
// the savings and time-deposit services.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MoneyScale is the number of fractional digits kept on every persisted
// monetary amount. All amounts are rounded half-up to this scale.
const MoneyScale = 2

// RoundMoney rounds an amount half-up to MoneyScale fractional digits.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// Account represents a savings account holding a running balance. Balances
// only change through the deposit/withdraw operations of the account
// service, each of which appends a LedgerEntry.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Owner: identifier of the account holder; indexed for retrieval.
//   - Balance: current balance, fixed-point decimal with 2 fractional digits.
//   - Version: optimistic-concurrency counter bumped on every balance write.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
type Account struct {
	ID        string          `json:"id"         gorm:"type:char(36);primaryKey"`
	Owner     string          `json:"owner"      gorm:"type:varchar(64);not null;index:idx_account_owner"`
	Balance   decimal.Decimal `json:"balance"    gorm:"type:decimal(19,2);not null"`
	Version   int64           `json:"-"          gorm:"not null;default:0"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName returns the database table name for Account.
func (Account) TableName() string { return "accounts" }

// BeforeCreate assigns a UUID and zero balance when unset.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// AccountSnapshot is the read model returned by ledger operations. It is the
// wire shape the savings service responds with after a deposit or withdrawal
// and the shape its HTTP client hands back to the saga orchestrator.
type AccountSnapshot struct {
	ID      string          `json:"id"`
	Owner   string          `json:"owner,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

// Snapshot converts the account row into its read model.
func (a *Account) Snapshot() *AccountSnapshot {
	return &AccountSnapshot{ID: a.ID, Owner: a.Owner, Balance: a.Balance}
}

// LedgerOp identifies the kind of balance mutation a LedgerEntry records.
type LedgerOp string

const (
	OpDeposit  LedgerOp = "deposit"
	OpWithdraw LedgerOp = "withdraw"
)

// LedgerEntry records one applied balance mutation on an account. Entries
// keyed by a client idempotency key carry the deduplication contract: a
// retried operation with the same (account_id, idempotency_key) pair is
// answered from the stored entry instead of being applied again.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - AccountID: foreign key to the mutated account (indexed).
//   - Op: "deposit" or "withdraw".
//   - Amount: the amount moved, always positive.
//   - BalanceAfter: account balance immediately after the mutation.
//   - IdempotencyKey: client key scoping the dedup window; empty for the
//     legacy no-key path (no dedup contract, unique index not engaged).
//   - CreatedAt: timestamp managed by GORM.
type LedgerEntry struct {
	ID             string          `json:"id"            gorm:"type:char(36);primaryKey"`
	AccountID      string          `json:"account_id"    gorm:"type:char(36);not null;index;uniqueIndex:ux_ledger_account_key,priority:1"`
	Op             LedgerOp        `json:"op"            gorm:"type:varchar(16);not null;check:op IN ('deposit','withdraw')"`
	Amount         decimal.Decimal `json:"amount"        gorm:"type:decimal(19,2);not null"`
	BalanceAfter   decimal.Decimal `json:"balance_after" gorm:"type:decimal(19,2);not null"`
	IdempotencyKey *string         `json:"-"             gorm:"type:varchar(200);uniqueIndex:ux_ledger_account_key,priority:2"`
	CreatedAt      time.Time       `json:"created_at"`

	// Account is the mutated account. Entries are cascade-deleted if the
	// account is removed.
	Account Account `json:"-" gorm:"foreignKey:AccountID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for LedgerEntry.
func (LedgerEntry) TableName() string { return "ledger_entries" }

// DepositStatus is the lifecycle state of a time deposit. The machine is
// monotonic: OPEN -> CLOSING -> CLOSED, with CLOSED terminal.
type DepositStatus string

const (
	// StatusOpen is the initial state of a freshly created deposit.
	StatusOpen DepositStatus = "OPEN"
	// StatusClosing marks a closure in progress: the CLOSING row is
	// persisted before the payout call, so a crash mid-flight leaves
	// visible evidence that a payout may or may not have been sent.
	StatusClosing DepositStatus = "CLOSING"
	// StatusClosed is terminal; payout fields are set and immutable.
	StatusClosed DepositStatus = "CLOSED"
)

// CanTransition reports whether moving from s to next is a legal step of the
// status machine.
func (s DepositStatus) CanTransition(next DepositStatus) bool {
	switch s {
	case StatusOpen:
		return next == StatusClosing
	case StatusClosing:
		return next == StatusClosed
	default:
		return false
	}
}

// Terminal reports whether the status admits no further transitions.
func (s DepositStatus) Terminal() bool { return s == StatusClosed }

// TimeDeposit is the aggregate root of the time-deposit service. Principal,
// rate and term are immutable after creation; payout fields are populated
// only when a closure saga completes.
//
// Fields:
//   - ID: UUID primary key (char(36)), generated at creation.
//   - Owner: identifier of the depositor, immutable once set.
//   - Principal: fixed-point decimal, > 0, rounded half-up to 2 digits.
//   - AnnualRate: non-negative decimal fraction (0.05 = 5%).
//   - TermDays: positive term length in days.
//   - StartAt: defaults to creation time when unset.
//   - MaturityAt: defaults to StartAt + TermDays days when unset.
//   - Status: OPEN at creation; see DepositStatus.
//   - PayoutAmount / PayoutAccount / ClosedAt: set only on successful closure.
type TimeDeposit struct {
	ID            string           `json:"id"            gorm:"type:char(36);primaryKey"`
	Owner         string           `json:"owner"         gorm:"type:varchar(64);not null;index:idx_deposit_owner"`
	Principal     decimal.Decimal  `json:"principal"     gorm:"type:decimal(19,2);not null"`
	AnnualRate    decimal.Decimal  `json:"annualRate"    gorm:"type:decimal(9,6);not null"`
	TermDays      int              `json:"termDays"      gorm:"not null"`
	StartAt       time.Time        `json:"startAt"       gorm:"not null"`
	MaturityAt    time.Time        `json:"maturityDate"  gorm:"not null"`
	Status        DepositStatus    `json:"status"        gorm:"type:varchar(16);not null;default:'OPEN'"`
	PayoutAmount  *decimal.Decimal `json:"payoutAmount,omitempty"  gorm:"type:decimal(19,2)"`
	PayoutAccount *string          `json:"payoutAccount,omitempty" gorm:"type:char(36)"`
	ClosedAt      *time.Time       `json:"closedAt,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// TableName returns the database table name for TimeDeposit.
func (TimeDeposit) TableName() string { return "time_deposits" }

// BeforeCreate applies creation-time defaults: a fresh UUID, StartAt = now,
// MaturityAt = StartAt + TermDays days, status OPEN.
func (td *TimeDeposit) BeforeCreate(tx *gorm.DB) error {
	if td.ID == "" {
		td.ID = uuid.NewString()
	}
	if td.StartAt.IsZero() {
		td.StartAt = time.Now().UTC()
	}
	if td.MaturityAt.IsZero() {
		td.MaturityAt = td.StartAt.AddDate(0, 0, td.TermDays)
	}
	if td.Status == "" {
		td.Status = StatusOpen
	}
	return nil
}

// Matured reports whether the deposit's term has elapsed at the given time.
func (td *TimeDeposit) Matured(now time.Time) bool {
	return !now.Before(td.MaturityAt)
}
