package handler

import (
	appledger "github.com/clinicpos/backend/internal/application/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/gin-gonic/gin"
)

// InvoiceHandler handles invoice posting and date corrections
type InvoiceHandler struct {
	BaseHandler
	posting     *appledger.InvoicePostingService
	corrections *appledger.DateCorrectionService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(posting *appledger.InvoicePostingService, corrections *appledger.DateCorrectionService) *InvoiceHandler {
	return &InvoiceHandler{
		posting:     posting,
		corrections: corrections,
	}
}

// Post godoc
// @ID           postInvoice
//
//	@Summary		Post an invoice
//	@Description	Creates a debt on the working date, or on business_date when the caller may post there
//	@Tags			invoices
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PostInvoiceRequest	true	"Invoice"
//	@Success		201		{object}	dto.Response{data=InvoiceResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		409		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/invoices [post]
func (h *InvoiceHandler) Post(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req PostInvoiceRequest
	if !h.bindJSON(c, &req) {
		return
	}
	debtor, ok := h.debtor(c, req.DebtorKind, req.DebtorID)
	if !ok {
		return
	}
	var date valueobject.BusinessDate
	if req.BusinessDate != "" {
		d, err := valueobject.ParseBusinessDate(req.BusinessDate)
		if err != nil {
			h.BadRequest(c, err.Error())
			return
		}
		date = d
	}

	inv, err := h.posting.Post(c.Request.Context(), appledger.PostInvoiceRequest{
		Number:       req.Number,
		Debtor:       debtor,
		Description:  req.Description,
		AmountDue:    req.AmountDue,
		BusinessDate: date,
		Actor:        actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, toInvoiceResponse(inv))
}

// Get godoc
// @ID           getInvoice
//
//	@Summary		Get an invoice
//	@Tags			invoices
//	@Produce		json
//	@Param			id	path		string	true	"Invoice ID"
//	@Success		200	{object}	dto.Response{data=InvoiceResponse}
//	@Failure		404	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/invoices/{id} [get]
func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	inv, err := h.posting.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toInvoiceResponse(inv))
}

// MoveDate godoc
// @ID           moveInvoiceDate
//
//	@Summary		Move an invoice to another business date
//	@Description	Closed source or target dates require DATE_CORRECTION. Both dates' totals are recomputed and the move is audited.
//	@Tags			invoices
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string					true	"Invoice ID"
//	@Param			request	body		MoveInvoiceDateRequest	true	"New date and reason"
//	@Success		200		{object}	dto.Response{data=MoveInvoiceDateResponse}
//	@Failure		400		{object}	dto.Response
//	@Failure		403		{object}	dto.Response
//	@Failure		404		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/invoices/{id}/move-date [post]
func (h *InvoiceHandler) MoveDate(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req MoveInvoiceDateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	newDate, err := valueobject.ParseBusinessDate(req.NewDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.corrections.MoveInvoiceDate(c.Request.Context(), appledger.MoveInvoiceDateRequest{
		InvoiceID: id,
		NewDate:   newDate,
		Reason:    req.Reason,
		Actor:     actor,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, MoveInvoiceDateResponse{
		Invoice:      toInvoiceResponse(result.Invoice),
		Correction:   toDateCorrectionResponse(result.Correction),
		OldAggregate: toAggregateResponse(result.OldAggregate),
		NewAggregate: toAggregateResponse(result.NewAggregate),
	})
}

// ListDateCorrections godoc
// @ID           listInvoiceDateCorrections
//
//	@Summary		List the date corrections of an invoice
//	@Tags			invoices
//	@Produce		json
//	@Param			id	path		string	true	"Invoice ID"
//	@Success		200	{object}	dto.Response{data=[]DateCorrectionResponse}
//	@Security		BearerAuth
//	@Router			/invoices/{id}/date-corrections [get]
func (h *InvoiceHandler) ListDateCorrections(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	corrections, err := h.corrections.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]DateCorrectionResponse, 0, len(corrections))
	for i := range corrections {
		out = append(out, toDateCorrectionResponse(&corrections[i]))
	}
	h.Success(c, out)
}
