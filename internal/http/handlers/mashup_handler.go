// Mashup (BFF) HTTP handlers.
//
// This file exposes the aggregating surface that front ends call:
//   - GET  /api/v1/summary                  (account snapshot + deposit in one call)
//   - POST /api/v1/deposits                 (proxied create)
//   - POST /api/v1/deposits/{id}/close      (proxied closure)
//
// The mashup owns no data. It composes the two downstream services over
// their HTTP clients, forwarding the caller's bearer token and
// Idempotency-Key unchanged so authorization and dedup stay with the
// services that own the resources.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mkurosawa/go-deposit-backend/internal/client"
	"github.com/mkurosawa/go-deposit-backend/internal/domain"
	"github.com/mkurosawa/go-deposit-backend/internal/http/middleware"
	"github.com/mkurosawa/go-deposit-backend/internal/services"
)

// SavingsReader is the slice of the savings client the mashup reads with.
type SavingsReader interface {
	Get(ctx context.Context, accountID string) (*domain.AccountSnapshot, error)
}

// DepositGateway is the slice of the time deposit client the mashup uses.
type DepositGateway interface {
	Create(ctx context.Context, req services.TransferRequest, idempotencyKey string) (*domain.TimeDeposit, error)
	Get(ctx context.Context, id string) (*domain.TimeDeposit, error)
	Close(ctx context.Context, id, toAccountID string, at time.Time, idempotencyKey string) (*client.CloseResult, error)
}

// MashupHandlers groups the BFF endpoints.
type MashupHandlers struct {
	savings  SavingsReader
	deposits DepositGateway
}

// NewMashupHandlers constructs MashupHandlers over the two downstream clients.
func NewMashupHandlers(savings SavingsReader, deposits DepositGateway) *MashupHandlers {
	return &MashupHandlers{savings: savings, deposits: deposits}
}

// SummaryResponse combines the balance inquiry with the deposit view.
type SummaryResponse struct {
	Account *domain.AccountSnapshot `json:"account"`
	Deposit *domain.TimeDeposit     `json:"deposit,omitempty"`
}

// Summary godoc
// @ID          getSummary
// @Summary     Combined balance and deposit view
// @Tags        Mashup
// @Produce     json
// @Param       accountId  query  string  true   "Savings account ID"
// @Param       depositId  query  string  false  "Time deposit ID"
// @Success     200  {object}  handlers.SummaryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Missing accountId"
// @Failure     404  {object}  handlers.ErrorResponse  "Account or deposit not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Downstream unavailable"
// @Router      /api/v1/summary [get]
func (h *MashupHandlers) Summary(c *gin.Context) {
	accountID := c.Query("accountId")
	if accountID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "accountId query parameter required")
		return
	}
	ctx := c.Request.Context()

	snap, err := h.savings.Get(ctx, accountID)
	if err != nil {
		failFromError(c, err)
		return
	}

	resp := SummaryResponse{Account: snap}
	if depositID := c.Query("depositId"); depositID != "" {
		td, err := h.deposits.Get(ctx, depositID)
		if err != nil {
			failFromError(c, err)
			return
		}
		resp.Deposit = td
	}
	ok(c, http.StatusOK, resp)
}

// ProxyCreateDeposit godoc
// @ID          mashupCreateDeposit
// @Summary     Create a time deposit via the mashup
// @Tags        Mashup
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Forwarded to the deposit service"
// @Param       body  body  services.TransferRequest  true  "Deposit payload"
// @Success     201  {object}  domain.TimeDeposit
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     502  {object}  handlers.ErrorResponse  "Downstream unavailable"
// @Router      /api/v1/deposits [post]
func (h *MashupHandlers) ProxyCreateDeposit(c *gin.Context) {
	var req services.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	td, err := h.deposits.Create(c.Request.Context(), req, key)
	if err != nil {
		failDownstream(c, err)
		return
	}
	ok(c, http.StatusCreated, td)
}

// ProxyCloseDeposit godoc
// @ID          mashupCloseDeposit
// @Summary     Close a time deposit via the mashup
// @Tags        Mashup
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Forwarded to the deposit service"
// @Param       id           path   string  true   "Deposit ID (UUID)"  format(uuid)
// @Param       toAccountId  query  string  true   "Savings account receiving the payout"
// @Param       at           query  string  false  "Closure time, RFC3339"
// @Success     200  {object}  client.CloseResult
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Deposit not found"
// @Failure     502  {object}  handlers.ErrorResponse  "Downstream unavailable"
// @Router      /api/v1/deposits/{id}/close [post]
func (h *MashupHandlers) ProxyCloseDeposit(c *gin.Context) {
	toAccountID := c.Query("toAccountId")
	if toAccountID == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "toAccountId query parameter required")
		return
	}
	var at time.Time
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "at must be RFC3339")
			return
		}
		at = parsed
	}
	key, _ := middleware.GetIdempotencyKey(c)

	res, err := h.deposits.Close(c.Request.Context(), c.Param("id"), toAccountID, at, key)
	if err != nil {
		failDownstream(c, err)
		return
	}
	ok(c, http.StatusOK, res)
}

// failDownstream echoes a downstream error envelope when the deposit service
// answered with one, so proxied calls look the same as direct calls; other
// errors go through the standard mapping.
func failDownstream(c *gin.Context, err error) {
	if se, ok := errAsStatus(err); ok {
		fail(c, se.Status, se.Code, se.Message)
		return
	}
	failFromError(c, err)
}
