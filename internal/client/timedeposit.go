package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
	"github.com/mkurosawa/go-deposit-backend/internal/services"
)

// TimeDeposit calls the time deposit service on behalf of the mashup/BFF.
// Bearer tokens and idempotency keys from the inbound request are passed
// through unchanged, so dedup and auth decisions stay with the owning
// service.
type TimeDeposit struct {
	baseURL string
	hc      *http.Client
}

// NewTimeDeposit builds a time deposit client for the given base URL. A nil
// hc gets a default client with a bounded timeout.
func NewTimeDeposit(baseURL string, hc *http.Client) *TimeDeposit {
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &TimeDeposit{baseURL: strings.TrimRight(baseURL, "/"), hc: hc}
}

// CloseResult is the wire shape of a successful closure.
type CloseResult struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	Payout      decimal.Decimal `json:"payout"`
	ToAccountID string          `json:"toAccountId"`
}

// Create opens a time deposit, optionally funded from a savings account when
// req.FromAccountID is set. The idempotency key is forwarded as a header.
func (c *TimeDeposit) Create(ctx context.Context, req services.TransferRequest, idempotencyKey string) (*domain.TimeDeposit, error) {
	var td domain.TimeDeposit
	err := doJSON(ctx, c.hc, "timedeposit", http.MethodPost, c.baseURL+"/deposits", req, &td, idempotencyKey)
	if err != nil {
		return nil, mapDepositErr(err)
	}
	return &td, nil
}

// Get fetches the deposit aggregate.
func (c *TimeDeposit) Get(ctx context.Context, id string) (*domain.TimeDeposit, error) {
	var td domain.TimeDeposit
	err := doJSON(ctx, c.hc, "timedeposit", http.MethodGet,
		c.baseURL+"/deposits/"+url.PathEscape(id), nil, &td, "")
	if err != nil {
		return nil, mapDepositErr(err)
	}
	return &td, nil
}

// Close matures the deposit into toAccountID. A zero at leaves the closure
// time to the downstream clock; otherwise it is sent as RFC3339.
func (c *TimeDeposit) Close(ctx context.Context, id, toAccountID string, at time.Time, idempotencyKey string) (*CloseResult, error) {
	q := url.Values{}
	q.Set("toAccountId", toAccountID)
	if !at.IsZero() {
		q.Set("at", at.Format(time.RFC3339))
	}
	var res CloseResult
	err := doJSON(ctx, c.hc, "timedeposit", http.MethodPost,
		c.baseURL+"/deposits/"+url.PathEscape(id)+"/close?"+q.Encode(), nil, &res, idempotencyKey)
	if err != nil {
		return nil, mapDepositErr(err)
	}
	return &res, nil
}

// mapDepositErr translates a downstream 404 onto the deposit sentinel; other
// statuses stay as *StatusError so the BFF can echo them faithfully.
func mapDepositErr(err error) error {
	var se *StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return services.ErrDepositNotFound
	}
	return err
}
