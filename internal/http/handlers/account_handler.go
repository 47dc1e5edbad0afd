// Savings account HTTP handlers.
//
// This file exposes REST endpoints for savings accounts and their ledger:
//   - POST   /accounts                 (open an account)
//   - GET    /accounts/{id}            (balance inquiry)
//   - POST   /accounts/{id}/deposit    (credit)
//   - POST   /accounts/{id}/withdraw   (debit)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Ledger endpoints honor the
// Idempotency-Key header validated by upstream middleware; replays are served
// from the recorded entry without moving money again.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
	"github.com/mkurosawa/go-deposit-backend/internal/http/middleware"
)

// AccountService defines the savings operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type AccountService interface {
	// Create opens an account for owner with a zero balance.
	Create(ctx context.Context, owner string) (*domain.AccountSnapshot, error)
	// Get returns the account's read model.
	Get(ctx context.Context, id string) (*domain.AccountSnapshot, error)
	// Deposit credits amount; a non-empty key enables dedup replay.
	Deposit(ctx context.Context, id string, amount decimal.Decimal, key string) (*domain.AccountSnapshot, error)
	// Withdraw debits amount under the balance-sufficiency rule.
	Withdraw(ctx context.Context, id string, amount decimal.Decimal, key string) (*domain.AccountSnapshot, error)
}

// AccountHandlers groups the savings service's HTTP endpoints.
type AccountHandlers struct {
	svc AccountService
}

// NewAccountHandlers constructs AccountHandlers bound to the given service.
func NewAccountHandlers(svc AccountService) *AccountHandlers {
	return &AccountHandlers{svc: svc}
}

// CreateAccountRequest is the JSON payload for opening an account.
type CreateAccountRequest struct {
	// Owner is the display name of the account holder.
	Owner string `json:"owner" binding:"required" example:"alice"`
}

// AmountRequest is the JSON payload for deposit and withdraw operations.
type AmountRequest struct {
	// Amount is a positive decimal; it is rounded half-up to cents.
	Amount decimal.Decimal `json:"amount" example:"100.50"`
}

// CreateAccount godoc
// @ID          createAccount
// @Summary     Open a savings account
// @Tags        Accounts
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateAccountRequest  true  "Account payload"
// @Success     201  {object}  domain.AccountSnapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /accounts [post]
func (h *AccountHandlers) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	snap, err := h.svc.Create(c.Request.Context(), req.Owner)
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, http.StatusCreated, snap)
}

// GetAccount godoc
// @ID          getAccount
// @Summary     Balance inquiry
// @Tags        Accounts
// @Produce     json
// @Param       id  path  string  true  "Account ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.AccountSnapshot
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Router      /accounts/{id} [get]
func (h *AccountHandlers) GetAccount(c *gin.Context) {
	snap, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}

// Deposit godoc
// @ID          depositToAccount
// @Summary     Credit an account
// @Tags        Accounts
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Dedup key for safe retries"
// @Param       id    path  string                   true  "Account ID (UUID)"  format(uuid)
// @Param       body  body  handlers.AmountRequest  true  "Amount payload"
// @Success     200  {object}  domain.AccountSnapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Router      /accounts/{id}/deposit [post]
func (h *AccountHandlers) Deposit(c *gin.Context) {
	h.ledgerOp(c, h.svc.Deposit)
}

// Withdraw godoc
// @ID          withdrawFromAccount
// @Summary     Debit an account
// @Tags        Accounts
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Dedup key for safe retries"
// @Param       id    path  string                   true  "Account ID (UUID)"  format(uuid)
// @Param       body  body  handlers.AmountRequest  true  "Amount payload"
// @Success     200  {object}  domain.AccountSnapshot
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Insufficient funds"
// @Router      /accounts/{id}/withdraw [post]
func (h *AccountHandlers) Withdraw(c *gin.Context) {
	h.ledgerOp(c, h.svc.Withdraw)
}

// ledgerOp is the shared body of both ledger endpoints: bind the amount, pick
// up the validated idempotency key, and run the operation.
func (h *AccountHandlers) ledgerOp(c *gin.Context, op func(ctx context.Context, id string, amount decimal.Decimal, key string) (*domain.AccountSnapshot, error)) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	snap, err := op(c.Request.Context(), c.Param("id"), req.Amount, key)
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, http.StatusOK, snap)
}
