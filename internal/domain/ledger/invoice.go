package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStatus is the settlement state of an invoice
type InvoiceStatus string

const (
	InvoiceStatusPaid   InvoiceStatus = "PAID"   // balance below the settlement epsilon
	InvoiceStatusCredit InvoiceStatus = "CREDIT" // still owed
)

// IsValid checks if the status is a valid InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusCredit
}

// String returns the string representation of InvoiceStatus
func (s InvoiceStatus) String() string {
	return string(s)
}

// Invoice is a sale line posted against a debtor. AmountDue is the debtor's
// portion only; any insurer portion is settled elsewhere.
//
// Balance changes only through ApplyPayment/RestorePayment, and the business
// date only through MoveTo.
type Invoice struct {
	shared.BaseAggregateRoot
	Number           string
	Debtor           DebtorRef
	Description      string
	AmountDue        decimal.Decimal
	BalanceRemaining decimal.Decimal
	Status           InvoiceStatus
	PostedAt         time.Time // UTC; its calendar day is the business date
}

// NewInvoice creates an unpaid invoice posted at postedAt
func NewInvoice(
	number string,
	debtor DebtorRef,
	description string,
	amountDue decimal.Decimal,
	postedAt time.Time,
	policy SettlementPolicy,
) (*Invoice, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_INVOICE_NUMBER", "Invoice number cannot exceed 50 characters")
	}
	if err := debtor.Validate(); err != nil {
		return nil, err
	}
	if !amountDue.IsPositive() {
		return nil, shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_AMOUNT", "Amount due must be positive")
	}
	if postedAt.IsZero() {
		return nil, shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_POSTED_AT", "Posting time cannot be empty")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Number:            number,
		Debtor:            debtor,
		Description:       strings.TrimSpace(description),
		AmountDue:         amountDue,
		BalanceRemaining:  amountDue,
		Status:            policy.StatusFor(amountDue),
		PostedAt:          postedAt.UTC(),
	}
	return inv, nil
}

// BusinessDate returns the business date the invoice is attributed to
func (inv *Invoice) BusinessDate() valueobject.BusinessDate {
	return valueobject.BusinessDateOf(inv.PostedAt)
}

// IsOutstanding reports whether the invoice still counts as debt
func (inv *Invoice) IsOutstanding(policy SettlementPolicy) bool {
	return inv.Status == InvoiceStatusCredit && !policy.IsSettled(inv.BalanceRemaining)
}

// AmountSettled returns AmountDue - BalanceRemaining
func (inv *Invoice) AmountSettled() decimal.Decimal {
	return inv.AmountDue.Sub(inv.BalanceRemaining)
}

// ApplyPayment reduces the balance by amount and re-derives the status
func (inv *Invoice) ApplyPayment(amount decimal.Decimal, policy SettlementPolicy, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_AMOUNT", "Applied amount must be positive")
	}
	if amount.GreaterThan(inv.BalanceRemaining) {
		return shared.NewCategorizedError(shared.CodeInvalidState, "EXCEEDS_BALANCE",
			fmt.Sprintf("Applied amount %s exceeds remaining balance %s on invoice %s",
				amount.StringFixed(2), inv.BalanceRemaining.StringFixed(2), inv.Number))
	}
	inv.BalanceRemaining = inv.BalanceRemaining.Sub(amount)
	inv.Status = policy.StatusFor(inv.BalanceRemaining)
	inv.Touch(now)
	return nil
}

// RestorePayment adds a previously applied amount back to the balance.
// The balance can never exceed AmountDue.
func (inv *Invoice) RestorePayment(amount decimal.Decimal, policy SettlementPolicy, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_AMOUNT", "Restored amount must be positive")
	}
	restored := inv.BalanceRemaining.Add(amount)
	if restored.GreaterThan(inv.AmountDue) {
		return shared.NewCategorizedError(shared.CodeInvalidState, "EXCEEDS_AMOUNT_DUE",
			fmt.Sprintf("Restoring %s would raise invoice %s above its amount due %s",
				amount.StringFixed(2), inv.Number, inv.AmountDue.StringFixed(2)))
	}
	inv.BalanceRemaining = restored
	inv.Status = policy.StatusFor(restored)
	inv.Touch(now)
	return nil
}

// MoveTo reassigns the invoice to another business date, keeping the time of
// day. Returns the previous business date.
func (inv *Invoice) MoveTo(date valueobject.BusinessDate, now time.Time) (valueobject.BusinessDate, error) {
	if date.IsZero() {
		return valueobject.BusinessDate{}, shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_DATE", "New business date cannot be empty")
	}
	old := inv.BusinessDate()
	if old.Equal(date) {
		return old, shared.NewCategorizedError(shared.CodeInvalidInput, "SAME_DATE",
			fmt.Sprintf("Invoice %s is already posted on %s", inv.Number, date))
	}
	inv.PostedAt = date.WithTimeOf(inv.PostedAt)
	inv.Touch(now)
	return old, nil
}

// GenerateInvoiceNumber builds "INV-YYYYMMDD-XXXXXXXX" for a business date
func GenerateInvoiceNumber(date valueobject.BusinessDate) string {
	return generateNumber("INV", date)
}

func generateNumber(prefix string, date valueobject.BusinessDate) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s", prefix, date.Time().Format("20060102"), suffix)
}
