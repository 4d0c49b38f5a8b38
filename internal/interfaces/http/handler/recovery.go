package handler

import (
	appledger "github.com/clinicpos/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader lets a till retry a recovery without recording it twice
const IdempotencyKeyHeader = "Idempotency-Key"

// RecoveryHandler handles recoveries: cash received against debts
type RecoveryHandler struct {
	BaseHandler
	allocation *appledger.AllocationService
}

// NewRecoveryHandler creates a new RecoveryHandler
func NewRecoveryHandler(allocation *appledger.AllocationService) *RecoveryHandler {
	return &RecoveryHandler{allocation: allocation}
}

// Allocate godoc
// @ID           allocateRecovery
//
//	@Summary		Record a recovery
//	@Description	Applies the amount to the debtor's outstanding invoices, oldest first. Any excess is kept as unapplied and reported in warnings.
//	@Tags			recoveries
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string			false	"Retry key"
//	@Param			request			body		AllocateRequest	true	"Recovery"
//	@Success		201				{object}	dto.Response{data=RecoveryResponse}
//	@Failure		400				{object}	dto.Response
//	@Failure		409				{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/recoveries [post]
func (h *RecoveryHandler) Allocate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req AllocateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	debtor, ok := h.debtor(c, req.DebtorKind, req.DebtorID)
	if !ok {
		return
	}

	result, err := h.allocation.Allocate(c.Request.Context(), appledger.AllocateRequest{
		Debtor:         debtor,
		Amount:         req.Amount,
		Mode:           req.Mode,
		Reference:      req.Reference,
		Actor:          actor,
		IdempotencyKey: c.GetHeader(IdempotencyKeyHeader),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toRecoveryResponse(result))
}

// Receipt godoc
// @ID           getRecoveryReceipt
//
//	@Summary		Re-print a recovery receipt
//	@Tags			recoveries
//	@Produce		json
//	@Param			id	path		string	true	"Cash movement ID"
//	@Success		200	{object}	dto.Response{data=RecoveryResponse}
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/recoveries/{id} [get]
func (h *RecoveryHandler) Receipt(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	result, err := h.allocation.Receipt(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRecoveryResponse(result))
}

// Reapply godoc
// @ID           reapplyRecovery
//
//	@Summary		Amend a recovery
//	@Description	Reverts the recovery's allocations and allocates the new amount again. The movement keeps its business date.
//	@Tags			recoveries
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Cash movement ID"
//	@Param			request	body		ReapplyRequest	true	"New amount"
//	@Success		200		{object}	dto.Response{data=RecoveryResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		404		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/recoveries/{id} [put]
func (h *RecoveryHandler) Reapply(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req ReapplyRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.allocation.RevertAndReapply(c.Request.Context(), appledger.ReapplyRequest{
		MovementID: id,
		Amount:     req.Amount,
		Mode:       req.Mode,
		Reference:  req.Reference,
		Actor:      actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRecoveryResponse(result))
}

// Revert godoc
// @ID           revertRecovery
//
//	@Summary		Delete a recovery
//	@Description	Restores every balance the recovery reduced, then deletes it
//	@Tags			recoveries
//	@Produce		json
//	@Param			id	path		string	true	"Cash movement ID"
//	@Success		200	{object}	dto.Response{data=RevertResponse}
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/recoveries/{id} [delete]
func (h *RecoveryHandler) Revert(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	result, err := h.allocation.Revert(c.Request.Context(), appledger.RevertRequest{MovementID: id, Actor: actor})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toRevertResponse(result))
}
