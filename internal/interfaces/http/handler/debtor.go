package handler

import (
	appledger "github.com/clinicpos/backend/internal/application/ledger"
	"github.com/gin-gonic/gin"
)

// DebtorHandler exposes what a patient or staff member still owes
type DebtorHandler struct {
	BaseHandler
	debts *appledger.DebtLedger
}

// NewDebtorHandler creates a new DebtorHandler
func NewDebtorHandler(debts *appledger.DebtLedger) *DebtorHandler {
	return &DebtorHandler{debts: debts}
}

// Outstanding godoc
// @ID           getDebtorOutstanding
//
//	@Summary		List a debtor's outstanding invoices
//	@Description	Unpaid invoices in allocation order (oldest first) and their total
//	@Tags			debtors
//	@Produce		json
//	@Param			kind	path		string	true	"patient or staff"
//	@Param			id		path		string	true	"Debtor ID"
//	@Success		200		{object}	dto.Response{data=OutstandingResponse}
//	@Failure		400		{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/debtors/{kind}/{id}/outstanding [get]
func (h *DebtorHandler) Outstanding(c *gin.Context) {
	debtor, ok := h.debtor(c, c.Param("kind"), c.Param("id"))
	if !ok {
		return
	}

	invoices, err := h.debts.OutstandingFor(c.Request.Context(), debtor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := OutstandingResponse{
		DebtorKind: debtor.Kind.String(),
		DebtorID:   debtor.ID,
		Invoices:   make([]InvoiceResponse, 0, len(invoices)),
	}
	for _, inv := range invoices {
		resp.Invoices = append(resp.Invoices, toInvoiceResponse(inv))
		resp.Total = resp.Total.Add(inv.BalanceRemaining)
	}
	h.Success(c, resp)
}
