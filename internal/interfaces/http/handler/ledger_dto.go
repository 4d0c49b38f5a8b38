package handler

import (
	"time"

	appledger "github.com/clinicpos/backend/internal/application/ledger"
	"github.com/clinicpos/backend/internal/domain/ledger"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Amounts are decimals and accept either a JSON string ("150.00") or a
// number. They carry no binding tag: the services reject zero and
// negative amounts with INVALID_AMOUNT.

// CloseDayRequest closes the working date and names the next one
//
//	@Description	Request body for closing the business day
type CloseDayRequest struct {
	NextDate string `json:"next_date" binding:"required,bizdate" example:"2024-03-21"`
}

// ReopenDayRequest reopens a closed date. The reason is mandatory; an empty
// one is rejected by the ledger with REASON_REQUIRED.
//
//	@Description	Request body for reopening a closed date
type ReopenDayRequest struct {
	Reason string `json:"reason" binding:"max=500" example:"Late lab invoices"`
}

// PostInvoiceRequest creates a debt against a patient or staff member
//
//	@Description	Request body for posting an invoice
type PostInvoiceRequest struct {
	DebtorKind   string          `json:"debtor_kind" binding:"required" example:"PATIENT"`
	DebtorID     string          `json:"debtor_id" binding:"required,uuid" example:"5b1c8e9a-6f43-4c2e-9d3b-1a2b3c4d5e6f"`
	Number       string          `json:"number" binding:"omitempty,notblank,max=50" example:"INV-20240320-0001"`
	Description  string          `json:"description" binding:"max=500" example:"Consultation"`
	AmountDue    decimal.Decimal `json:"amount_due" swaggertype:"string" example:"1000.00"`
	BusinessDate string          `json:"business_date" binding:"omitempty,bizdate" example:"2024-03-20"`
}

// AllocateRequest records a recovery and spreads it over outstanding debts
//
//	@Description	Request body for recording a recovery
type AllocateRequest struct {
	DebtorKind string          `json:"debtor_kind" binding:"required" example:"PATIENT"`
	DebtorID   string          `json:"debtor_id" binding:"required,uuid" example:"5b1c8e9a-6f43-4c2e-9d3b-1a2b3c4d5e6f"`
	Amount     decimal.Decimal `json:"amount" swaggertype:"string" example:"2500.00"`
	Mode       string          `json:"mode" binding:"omitempty,notblank,max=20" example:"CASH"`
	Reference  string          `json:"reference" binding:"omitempty,notblank,max=50" example:"RCV-20240320-0001"`
}

// ReapplyRequest amends a recovery: its allocations are reverted and the new
// amount is allocated again
//
//	@Description	Request body for amending a recovery
type ReapplyRequest struct {
	Amount    decimal.Decimal `json:"amount" swaggertype:"string" example:"1800.00"`
	Mode      string          `json:"mode" binding:"omitempty,notblank,max=20" example:"CARD"`
	Reference string          `json:"reference" binding:"omitempty,notblank,max=50" example:"RCV-20240320-0001"`
}

// MoveInvoiceDateRequest corrects an invoice's business date
//
//	@Description	Request body for moving an invoice to another date
type MoveInvoiceDateRequest struct {
	NewDate string `json:"new_date" binding:"required,bizdate" example:"2024-03-19"`
	Reason  string `json:"reason" binding:"max=500" example:"Entered on the wrong day"`
}

// WorkingDateResponse is the date new postings land on
type WorkingDateResponse struct {
	WorkingDate valueobject.BusinessDate `json:"working_date" swaggertype:"string"`
}

// ClosureRecordResponse is the audit trail of one closed date
type ClosureRecordResponse struct {
	ID           uuid.UUID                `json:"id"`
	Date         valueobject.BusinessDate `json:"date" swaggertype:"string"`
	NextDate     valueobject.BusinessDate `json:"next_date" swaggertype:"string"`
	Status       string                   `json:"status"`
	ClosedBy     *uuid.UUID               `json:"closed_by,omitempty"`
	ClosedAt     time.Time                `json:"closed_at"`
	ReopenedBy   *uuid.UUID               `json:"reopened_by,omitempty"`
	ReopenedAt   *time.Time               `json:"reopened_at,omitempty"`
	ReopenReason string                   `json:"reopen_reason,omitempty"`
	Version      int                      `json:"version"`
}

// DayStateResponse is the derived state of one business date
type DayStateResponse struct {
	Date        valueobject.BusinessDate `json:"date" swaggertype:"string"`
	State       string                   `json:"state"`
	WorkingDate valueobject.BusinessDate `json:"working_date" swaggertype:"string"`
	Record      *ClosureRecordResponse   `json:"record,omitempty"`
}

// AggregateResponse holds the cached totals of one business date
type AggregateResponse struct {
	Date            valueobject.BusinessDate `json:"date" swaggertype:"string"`
	InvoiceCount    int64                    `json:"invoice_count"`
	InvoiceTotalDue decimal.Decimal          `json:"invoice_total_due" swaggertype:"string"`
	RecoveryCount   int64                    `json:"recovery_count"`
	RecoveryTotal   decimal.Decimal          `json:"recovery_total" swaggertype:"string"`
	RecomputedAt    time.Time                `json:"recomputed_at"`
}

// CloseDayResponse is returned by close and reclose
type CloseDayResponse struct {
	Record    *ClosureRecordResponse `json:"record"`
	Aggregate *AggregateResponse     `json:"aggregate,omitempty"`
	// Advanced is false when the call found the date already closed
	Advanced bool `json:"advanced"`
}

// InvoiceResponse is one debt and its remaining balance
type InvoiceResponse struct {
	ID               uuid.UUID                `json:"id"`
	Number           string                   `json:"number"`
	DebtorKind       string                   `json:"debtor_kind"`
	DebtorID         uuid.UUID                `json:"debtor_id"`
	Description      string                   `json:"description"`
	AmountDue        decimal.Decimal          `json:"amount_due" swaggertype:"string"`
	BalanceRemaining decimal.Decimal          `json:"balance_remaining" swaggertype:"string"`
	Status           string                   `json:"status"`
	BusinessDate     valueobject.BusinessDate `json:"business_date" swaggertype:"string"`
	PostedAt         time.Time                `json:"posted_at"`
	Version          int                      `json:"version"`
}

// OutstandingResponse lists a debtor's unpaid invoices, oldest first
type OutstandingResponse struct {
	DebtorKind string            `json:"debtor_kind"`
	DebtorID   uuid.UUID         `json:"debtor_id"`
	Invoices   []InvoiceResponse `json:"invoices"`
	Total      decimal.Decimal   `json:"total" swaggertype:"string"`
}

// AllocationLineResponse is one invoice touched by a recovery
type AllocationLineResponse struct {
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	PostedAt      time.Time       `json:"posted_at"`
	Description   string          `json:"description"`
	AmountDue     decimal.Decimal `json:"amount_due" swaggertype:"string"`
	Applied       decimal.Decimal `json:"applied" swaggertype:"string"`
	BalanceBefore decimal.Decimal `json:"balance_before" swaggertype:"string"`
	BalanceAfter  decimal.Decimal `json:"balance_after" swaggertype:"string"`
	Paid          bool            `json:"paid"`
}

// RecoveryResponse is the receipt of a recovery
type RecoveryResponse struct {
	MovementID          uuid.UUID                `json:"movement_id"`
	Reference           string                   `json:"reference"`
	Mode                string                   `json:"mode"`
	Amount              decimal.Decimal          `json:"amount" swaggertype:"string"`
	BusinessDate        valueobject.BusinessDate `json:"business_date" swaggertype:"string"`
	PostedAt            time.Time                `json:"posted_at"`
	DebtorKind          string                   `json:"debtor_kind"`
	DebtorID            uuid.UUID                `json:"debtor_id"`
	Breakdown           []AllocationLineResponse `json:"breakdown"`
	TotalApplied        decimal.Decimal          `json:"total_applied" swaggertype:"string"`
	Unapplied           decimal.Decimal          `json:"unapplied" swaggertype:"string"`
	DebtorPriorBalance  decimal.Decimal          `json:"debtor_prior_balance" swaggertype:"string"`
	DebtorNewBalance    decimal.Decimal          `json:"debtor_new_balance" swaggertype:"string"`
	DebtsResynchronized bool                     `json:"debts_resynchronized"`
	Warnings            []string                 `json:"warnings,omitempty"`
}

// RevertResponse lists the balances restored by a revert
type RevertResponse struct {
	MovementID    uuid.UUID                `json:"movement_id"`
	DebtorKind    string                   `json:"debtor_kind"`
	DebtorID      uuid.UUID                `json:"debtor_id"`
	Restored      []AllocationLineResponse `json:"restored"`
	TotalRestored decimal.Decimal          `json:"total_restored" swaggertype:"string"`
}

// DateCorrectionResponse is one audited date move
type DateCorrectionResponse struct {
	ID          uuid.UUID                `json:"id"`
	SourceTable string                   `json:"source_table"`
	RecordID    uuid.UUID                `json:"record_id"`
	OldDate     valueobject.BusinessDate `json:"old_date" swaggertype:"string"`
	NewDate     valueobject.BusinessDate `json:"new_date" swaggertype:"string"`
	ActorID     uuid.UUID                `json:"actor_id"`
	Reason      string                   `json:"reason"`
	CreatedAt   time.Time                `json:"created_at"`
}

// MoveInvoiceDateResponse is the moved invoice with both refreshed aggregates
type MoveInvoiceDateResponse struct {
	Invoice      InvoiceResponse        `json:"invoice"`
	Correction   DateCorrectionResponse `json:"correction"`
	OldAggregate *AggregateResponse     `json:"old_aggregate,omitempty"`
	NewAggregate *AggregateResponse     `json:"new_aggregate,omitempty"`
}

func toClosureRecordResponse(r *ledger.ClosureRecord) *ClosureRecordResponse {
	if r == nil {
		return nil
	}
	return &ClosureRecordResponse{
		ID:           r.ID,
		Date:         r.Date,
		NextDate:     r.NextDate,
		Status:       r.Status.String(),
		ClosedBy:     r.ClosedBy,
		ClosedAt:     r.ClosedAt,
		ReopenedBy:   r.ReopenedBy,
		ReopenedAt:   r.ReopenedAt,
		ReopenReason: r.ReopenReason,
		Version:      r.Version,
	}
}

func toDayStateResponse(s ledger.DayState) DayStateResponse {
	return DayStateResponse{
		Date:        s.Date,
		State:       string(s.Kind),
		WorkingDate: s.WorkingDate,
		Record:      toClosureRecordResponse(s.Record),
	}
}

func toAggregateResponse(a *ledger.DailyAggregate) *AggregateResponse {
	if a == nil {
		return nil
	}
	return &AggregateResponse{
		Date:            a.Date,
		InvoiceCount:    a.InvoiceCount,
		InvoiceTotalDue: a.InvoiceTotalDue,
		RecoveryCount:   a.RecoveryCount,
		RecoveryTotal:   a.RecoveryTotal,
		RecomputedAt:    a.RecomputedAt,
	}
}

func toCloseDayResponse(r *appledger.CloseResult) CloseDayResponse {
	return CloseDayResponse{
		Record:    toClosureRecordResponse(r.Record),
		Aggregate: toAggregateResponse(r.Aggregate),
		Advanced:  r.Advanced,
	}
}

func toInvoiceResponse(inv *ledger.Invoice) InvoiceResponse {
	return InvoiceResponse{
		ID:               inv.ID,
		Number:           inv.Number,
		DebtorKind:       inv.Debtor.Kind.String(),
		DebtorID:         inv.Debtor.ID,
		Description:      inv.Description,
		AmountDue:        inv.AmountDue,
		BalanceRemaining: inv.BalanceRemaining,
		Status:           inv.Status.String(),
		BusinessDate:     inv.BusinessDate(),
		PostedAt:         inv.PostedAt,
		Version:          inv.Version,
	}
}

func toAllocationLines(lines []ledger.AllocationLine) []AllocationLineResponse {
	out := make([]AllocationLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, AllocationLineResponse{
			InvoiceID:     l.InvoiceID,
			InvoiceNumber: l.InvoiceNumber,
			PostedAt:      l.PostedAt,
			Description:   l.Description,
			AmountDue:     l.AmountDue,
			Applied:       l.Applied,
			BalanceBefore: l.BalanceBefore,
			BalanceAfter:  l.BalanceAfter,
			Paid:          l.Paid,
		})
	}
	return out
}

func toRecoveryResponse(r *appledger.AllocationResult) RecoveryResponse {
	return RecoveryResponse{
		MovementID:          r.MovementID,
		Reference:           r.Reference,
		Mode:                string(r.Mode),
		Amount:              r.Amount,
		BusinessDate:        r.BusinessDate,
		PostedAt:            r.PostedAt,
		DebtorKind:          r.Debtor.Kind.String(),
		DebtorID:            r.Debtor.ID,
		Breakdown:           toAllocationLines(r.Breakdown),
		TotalApplied:        r.TotalApplied,
		Unapplied:           r.Unapplied,
		DebtorPriorBalance:  r.DebtorPriorBalance,
		DebtorNewBalance:    r.DebtorNewBalance,
		DebtsResynchronized: r.DebtsResynchronized,
		Warnings:            r.Warnings,
	}
}

func toRevertResponse(r *appledger.RevertResult) RevertResponse {
	return RevertResponse{
		MovementID:    r.MovementID,
		DebtorKind:    r.Debtor.Kind.String(),
		DebtorID:      r.Debtor.ID,
		Restored:      toAllocationLines(r.Restored),
		TotalRestored: r.TotalRestored,
	}
}

func toDateCorrectionResponse(c *ledger.DateCorrection) DateCorrectionResponse {
	return DateCorrectionResponse{
		ID:          c.ID,
		SourceTable: c.SourceTable,
		RecordID:    c.RecordID,
		OldDate:     c.OldDate,
		NewDate:     c.NewDate,
		ActorID:     c.ActorID,
		Reason:      c.Reason,
		CreatedAt:   c.CreatedAt,
	}
}
