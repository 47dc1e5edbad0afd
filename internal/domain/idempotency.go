// Package domain defines the core persistence models for the application.
// This file holds the idempotency-key derivation used by the funds-transfer
// sagas: a single client-supplied request key fans out into one sub-key per
// downstream mutating call, so at-least-once retries of a saga deduplicate
// each money movement independently at the receiving ledger.
package domain

import "strings"

// Suffix tags appended to the client request key, one per saga step. Each
// step of a saga must use a distinct suffix so the ledger deduplicates the
// withdraw, the compensating deposit, and the closure payout separately.
const (
	// SuffixWithdraw scopes the funding withdrawal of a transfer saga.
	SuffixWithdraw = ":WD"
	// SuffixCompensate scopes the compensating deposit issued when deposit
	// creation fails after a successful withdrawal.
	SuffixCompensate = ":CP"
	// SuffixClose scopes the payout deposit of a closure saga.
	SuffixClose = ":CLOSE"
)

// DeriveKey produces the per-step idempotency key for a downstream call.
// A missing or blank base key yields "" (the legacy no-key path: downstream
// calls are made without any idempotency header and carry no dedup
// contract). Otherwise the result is base + suffix.
func DeriveKey(base, suffix string) string {
	if strings.TrimSpace(base) == "" {
		return ""
	}
	return base + suffix
}
