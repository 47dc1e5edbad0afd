// Time deposit HTTP handlers.
//
// This file exposes REST endpoints for the time deposit aggregate:
//   - POST   /deposits              (create, optionally funded from savings)
//   - GET    /deposits/{id}         (read)
//   - POST   /deposits/{id}/close   (mature and pay out into savings)
//
// Creation with a funding account and closure are both multi-step sagas over
// the savings ledger; the handlers stay transport-thin and leave ordering,
// compensation, and replay semantics to the service layer.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/mkurosawa/go-deposit-backend/internal/domain"
	"github.com/mkurosawa/go-deposit-backend/internal/http/middleware"
	"github.com/mkurosawa/go-deposit-backend/internal/services"
)

// DepositService defines the aggregate operations consumed by HTTP handlers.
type DepositService interface {
	// Get returns the deposit aggregate.
	Get(ctx context.Context, id string) (*domain.TimeDeposit, error)
	// CloseAndTransfer matures the deposit and pays out into toAccountID.
	CloseAndTransfer(ctx context.Context, id, toAccountID string, now time.Time, ledger services.SavingsLedger, idempotencyKey string) (decimal.Decimal, error)
}

// FundedCreator is the saga entry point shared with the transfer endpoint:
// create a deposit, withdrawing the principal first when a funding account is
// given.
type FundedCreator interface {
	CreateFunded(ctx context.Context, req services.TransferRequest, idempotencyKey string) (*domain.TimeDeposit, bool, error)
}

// DepositHandlers groups the time deposit service's HTTP endpoints.
type DepositHandlers struct {
	svc     DepositService
	creator FundedCreator
	ledger  services.SavingsLedger
}

// NewDepositHandlers constructs DepositHandlers. The ledger is the savings
// collaborator handed to closure calls for the payout deposit.
func NewDepositHandlers(svc DepositService, creator FundedCreator, ledger services.SavingsLedger) *DepositHandlers {
	return &DepositHandlers{svc: svc, creator: creator, ledger: ledger}
}

// CloseDepositResponse is the JSON shape of a successful closure. Replays of
// an already-closed deposit return the same shape with the recorded payout.
type CloseDepositResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status" example:"CLOSED"`
	Payout      decimal.Decimal `json:"payout" example:"1100.00"`
	ToAccountID string          `json:"toAccountId"`
}

// CreateDeposit godoc
// @ID          createDeposit
// @Summary     Open a time deposit
// @Description Creates an OPEN deposit. When fromAccountId is set, the
// @Description principal is withdrawn from that savings account first; if
// @Description creation then fails, a compensating deposit returns the funds
// @Description and the error body carries "compensated": true.
// @Tags        Deposits
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Dedup key; saga steps derive suffixed keys from it"
// @Param       body  body  services.TransferRequest  true  "Deposit payload"
// @Success     201  {object}  domain.TimeDeposit
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed"
// @Failure     404  {object}  handlers.ErrorResponse  "Funding account not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Insufficient funds"
// @Router      /deposits [post]
func (h *DepositHandlers) CreateDeposit(c *gin.Context) {
	var req services.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	td, compensated, err := h.creator.CreateFunded(c.Request.Context(), req, key)
	if err != nil {
		status, code := statusFor(err)
		failCompensated(c, status, code, err.Error(), compensated)
		return
	}
	ok(c, http.StatusCreated, td)
}

// GetDeposit godoc
// @ID          getDeposit
// @Summary     Read a time deposit
// @Tags        Deposits
// @Produce     json
// @Param       id  path  string  true  "Deposit ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.TimeDeposit
// @Failure     404  {object}  handlers.ErrorResponse  "Deposit not found"
// @Router      /deposits/{id} [get]
func (h *DepositHandlers) GetDeposit(c *gin.Context) {
	td, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, http.StatusOK, td)
}

// CloseDeposit godoc
// @ID          closeDeposit
// @Summary     Close a matured deposit and pay out
// @Description Transitions OPEN -> CLOSING -> CLOSED, depositing the payout
// @Description into toAccountId. Closing an already-CLOSED deposit replays
// @Description the recorded payout without touching the ledger again. A
// @Description payout failure leaves the deposit CLOSING so the call can be
// @Description retried with the same key.
// @Tags        Deposits
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Dedup key for safe retries"
// @Param       id           path   string  true   "Deposit ID (UUID)"  format(uuid)
// @Param       toAccountId  query  string  true   "Savings account receiving the payout"
// @Param       at           query  string  false  "Closure time, RFC3339; defaults to now"
// @Success     200  {object}  handlers.CloseDepositResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Deposit or account not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Not matured"
// @Failure     502  {object}  handlers.ErrorResponse  "Savings service unavailable"
// @Router      /deposits/{id}/close [post]
func (h *DepositHandlers) CloseDeposit(c *gin.Context) {
	toAccountID := c.Query("toAccountId")
	if toAccountID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "toAccountId query parameter required")
		return
	}

	now := time.Now().UTC()
	if at := c.Query("at"); at != "" {
		parsed, err := time.Parse(time.RFC3339, at)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at must be RFC3339")
			return
		}
		now = parsed
	}
	key, _ := middleware.GetIdempotencyKey(c)
	id := c.Param("id")

	payout, err := h.svc.CloseAndTransfer(c.Request.Context(), id, toAccountID, now, h.ledger, key)
	if err != nil {
		failFromError(c, err)
		return
	}
	ok(c, http.StatusOK, CloseDepositResponse{
		ID:          id,
		Status:      string(domain.StatusClosed),
		Payout:      payout,
		ToAccountID: toAccountID,
	})
}
