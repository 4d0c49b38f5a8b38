package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationDetail records how much of one cash movement went to one invoice.
// For every invoice, the sum of its details plus its remaining balance equals
// its amount due.
type AllocationDetail struct {
	ID             uuid.UUID
	CashMovementID uuid.UUID
	InvoiceID      uuid.UUID
	AmountApplied  decimal.Decimal
	AppliedAt      time.Time
}

// AllocationLine is one row of a receipt breakdown
type AllocationLine struct {
	InvoiceID     uuid.UUID
	InvoiceNumber string
	PostedAt      time.Time
	Description   string
	AmountDue     decimal.Decimal
	Applied       decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Paid          bool
}

// AllocationWalk is the outcome of distributing one payment
type AllocationWalk struct {
	Details      []AllocationDetail
	Lines        []AllocationLine
	Touched      []*Invoice
	TotalApplied decimal.Decimal
	Unapplied    decimal.Decimal
}

// SortFIFO orders invoices oldest first: by posting time, then creation time,
// then number so equal timestamps still give a stable order
func SortFIFO(invoices []*Invoice) {
	sort.SliceStable(invoices, func(i, j int) bool {
		a, b := invoices[i], invoices[j]
		if !a.PostedAt.Equal(b.PostedAt) {
			return a.PostedAt.Before(b.PostedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Number < b.Number
	})
}

// AllocateFIFO walks invoices oldest first, applying min(remaining, balance)
// to each until the amount runs out. Invoices are mutated in place; the caller
// persists Touched and Details. Whatever is left over is returned as
// Unapplied and is not attached to any invoice.
func AllocateFIFO(
	movementID uuid.UUID,
	invoices []*Invoice,
	amount decimal.Decimal,
	policy SettlementPolicy,
	now time.Time,
) (*AllocationWalk, error) {
	ordered := make([]*Invoice, len(invoices))
	copy(ordered, invoices)
	SortFIFO(ordered)

	walk := &AllocationWalk{
		Details:      make([]AllocationDetail, 0),
		Lines:        make([]AllocationLine, 0),
		Touched:      make([]*Invoice, 0),
		TotalApplied: decimal.Zero,
	}
	remaining := amount

	for _, inv := range ordered {
		if !remaining.IsPositive() {
			break
		}
		if !inv.BalanceRemaining.IsPositive() {
			continue
		}

		applied := decimal.Min(remaining, inv.BalanceRemaining)
		before := inv.BalanceRemaining
		if err := inv.ApplyPayment(applied, policy, now); err != nil {
			return nil, err
		}

		walk.Details = append(walk.Details, AllocationDetail{
			ID:             uuid.New(),
			CashMovementID: movementID,
			InvoiceID:      inv.ID,
			AmountApplied:  applied,
			AppliedAt:      now.UTC(),
		})
		walk.Lines = append(walk.Lines, AllocationLine{
			InvoiceID:     inv.ID,
			InvoiceNumber: inv.Number,
			PostedAt:      inv.PostedAt,
			Description:   inv.Description,
			AmountDue:     inv.AmountDue,
			Applied:       applied,
			BalanceBefore: before,
			BalanceAfter:  inv.BalanceRemaining,
			Paid:          inv.Status == InvoiceStatusPaid,
		})
		walk.Touched = append(walk.Touched, inv)

		remaining = remaining.Sub(applied)
		walk.TotalApplied = walk.TotalApplied.Add(applied)
	}

	walk.Unapplied = remaining
	return walk, nil
}

// TotalBalance sums BalanceRemaining over invoices
func TotalBalance(invoices []*Invoice) decimal.Decimal {
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.BalanceRemaining)
	}
	return total
}
