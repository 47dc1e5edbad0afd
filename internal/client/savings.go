package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
	"github.com/mkurosawa/go-deposit-backend/internal/services"
)

// Savings calls the savings service's account and ledger endpoints. It
// satisfies services.SavingsLedger, so the deposit saga can run against the
// remote ledger exactly as it does against the in-process one in tests.
//
// Known downstream statuses are translated onto the service sentinels the
// saga already branches on:
//   - 404 → services.ErrAccountNotFound
//   - 409 → services.ErrInsufficientFunds
//
// Anything else comes back as a *StatusError.
type Savings struct {
	baseURL string
	hc      *http.Client
}

// NewSavings builds a savings client for the given base URL. A nil hc gets a
// default client with a bounded timeout.
func NewSavings(baseURL string, hc *http.Client) *Savings {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Savings{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

// amountRequest is the wire shape of deposit and withdraw calls.
type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// createAccountRequest is the wire shape of account creation.
type createAccountRequest struct {
	Owner string `json:"owner"`
}

// CreateAccount opens a savings account for owner.
func (c *Savings) CreateAccount(ctx context.Context, owner string) (*domain.AccountSnapshot, error) {
	var snap domain.AccountSnapshot
	err := doJSON(ctx, c.hc, "savings", http.MethodPost, c.baseURL+"/accounts",
		createAccountRequest{Owner: owner}, &snap, "")
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Get fetches the account snapshot.
func (c *Savings) Get(ctx context.Context, accountID string) (*domain.AccountSnapshot, error) {
	var snap domain.AccountSnapshot
	err := doJSON(ctx, c.hc, "savings", http.MethodGet,
		c.baseURL+"/accounts/"+url.PathEscape(accountID), nil, &snap, "")
	if err != nil {
		return nil, mapSavingsErr(err)
	}
	return &snap, nil
}

// Deposit credits amount to the account. A non-empty idempotencyKey is sent
// as the Idempotency-Key header so the ledger can dedup replays.
func (c *Savings) Deposit(ctx context.Context, accountID string, amount decimal.Decimal, idempotencyKey string) (*domain.AccountSnapshot, error) {
	return c.ledgerOp(ctx, accountID, "deposit", amount, idempotencyKey)
}

// Withdraw debits amount from the account.
func (c *Savings) Withdraw(ctx context.Context, accountID string, amount decimal.Decimal, idempotencyKey string) (*domain.AccountSnapshot, error) {
	return c.ledgerOp(ctx, accountID, "withdraw", amount, idempotencyKey)
}

func (c *Savings) ledgerOp(ctx context.Context, accountID, op string, amount decimal.Decimal, idempotencyKey string) (*domain.AccountSnapshot, error) {
	var snap domain.AccountSnapshot
	err := doJSON(ctx, c.hc, "savings", http.MethodPost,
		c.baseURL+"/accounts/"+url.PathEscape(accountID)+"/"+op,
		amountRequest{Amount: amount}, &snap, idempotencyKey)
	if err != nil {
		return nil, mapSavingsErr(err)
	}
	return &snap, nil
}

// mapSavingsErr translates recognized downstream statuses onto the sentinels
// the saga layer branches on. Unrecognized statuses pass through unchanged.
func mapSavingsErr(err error) error {
	var se *StatusError
	if !errors.As(err, &se) {
		return err
	}
	switch se.Status {
	case http.StatusNotFound:
		return services.ErrAccountNotFound
	case http.StatusConflict:
		return services.ErrInsufficientFunds
	default:
		return err
	}
}
