// Transfer HTTP handler.
//
// This file exposes the dedicated saga entry point:
//   - POST /transfers   (fund a new time deposit from a savings account)
//
// Unlike POST /deposits, the funding account is mandatory here; the endpoint
// exists for clients that think in terms of "move money into a product"
// rather than "create a product".
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkurosawa/go-deposit-backend/internal/http/middleware"
	"github.com/mkurosawa/go-deposit-backend/internal/services"
)

// TransferService defines the orchestration operation consumed by the
// transfer endpoint.
type TransferService interface {
	// Transfer runs the withdraw-then-create saga and returns the new
	// deposit's ID plus whether a compensating deposit was attempted.
	Transfer(ctx context.Context, req services.TransferRequest, idempotencyKey string) (string, bool, error)
}

// TransferHandlers groups the transfer endpoint.
type TransferHandlers struct {
	svc TransferService
}

// NewTransferHandlers constructs TransferHandlers bound to the given service.
func NewTransferHandlers(svc TransferService) *TransferHandlers {
	return &TransferHandlers{svc: svc}
}

// TransferResponse is the JSON shape of a successful transfer.
type TransferResponse struct {
	DepositID string `json:"depositId"`
}

// Transfer godoc
// @ID          transferToDeposit
// @Summary     Fund a new time deposit from savings
// @Description Withdraws the principal from fromAccountId and creates an OPEN
// @Description deposit. If creation fails after the withdrawal, a
// @Description compensating deposit returns the funds and the error body
// @Description carries "compensated": true.
// @Tags        Transfers
// @Accept      json
// @Produce     json
// @Param       Idempotency-Key  header  string  false  "Dedup key; saga steps derive suffixed keys from it"
// @Param       body  body  services.TransferRequest  true  "Transfer payload"
// @Success     201  {object}  handlers.TransferResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed / funding account missing"
// @Failure     404  {object}  handlers.ErrorResponse  "Funding account not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Insufficient funds"
// @Router      /transfers [post]
func (h *TransferHandlers) Transfer(c *gin.Context) {
	var req services.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	key, _ := middleware.GetIdempotencyKey(c)

	depositID, compensated, err := h.svc.Transfer(c.Request.Context(), req, key)
	if err != nil {
		status, code := statusFor(err)
		failCompensated(c, status, code, err.Error(), compensated)
		return
	}
	ok(c, http.StatusCreated, TransferResponse{DepositID: depositID})
}
