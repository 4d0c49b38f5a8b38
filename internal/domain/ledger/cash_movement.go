package ledger

import (
	"strings"
	"time"

	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementKind classifies cash movements. The ledger core only creates recoveries.
type MovementKind string

const (
	MovementKindRecovery MovementKind = "RECOVERY"
)

// PaymentMode is the channel the money arrived through
type PaymentMode string

const (
	PaymentModeCash     PaymentMode = "CASH"
	PaymentModeCard     PaymentMode = "CARD"
	PaymentModeMobile   PaymentMode = "MOBILE"
	PaymentModeTransfer PaymentMode = "TRANSFER"
	PaymentModeCheque   PaymentMode = "CHEQUE"
)

// NormalizePaymentMode upper-cases the tag and defaults to CASH.
// Unknown tags are kept as given; the channel list is owned by the front desk.
func NormalizePaymentMode(mode string) (PaymentMode, error) {
	m := strings.ToUpper(strings.TrimSpace(mode))
	if m == "" {
		return PaymentModeCash, nil
	}
	if len(m) > 30 {
		return "", shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_PAYMENT_MODE", "Payment mode cannot exceed 30 characters")
	}
	return PaymentMode(m), nil
}

// CashMovement is money received for recovery purposes. One movement can
// fund allocation details across many invoices.
type CashMovement struct {
	shared.BaseAggregateRoot
	Kind         MovementKind
	Debtor       DebtorRef
	Amount       decimal.Decimal
	Mode         PaymentMode
	Reference    string
	ActorID      uuid.UUID
	PostedAt     time.Time
	BusinessDate valueobject.BusinessDate // working date at posting time
}

// NewRecoveryMovement creates a RECOVERY movement. An empty reference gets a
// generated RC-YYYYMMDD-XXXXXXXX one.
func NewRecoveryMovement(
	debtor DebtorRef,
	amount decimal.Decimal,
	mode PaymentMode,
	reference string,
	actorID uuid.UUID,
	businessDate valueobject.BusinessDate,
	now time.Time,
) (*CashMovement, error) {
	if err := debtor.Validate(); err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_AMOUNT", "Recovery amount must be positive")
	}
	if actorID == uuid.Nil {
		return nil, shared.NewInvalidInputError("Actor ID cannot be empty")
	}
	if businessDate.IsZero() {
		return nil, shared.NewInvalidInputError("Business date cannot be empty")
	}
	reference = strings.TrimSpace(reference)
	if len(reference) > 100 {
		return nil, shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_REFERENCE", "Reference cannot exceed 100 characters")
	}
	if reference == "" {
		reference = GenerateRecoveryReference(businessDate)
	}

	return &CashMovement{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		Kind:              MovementKindRecovery,
		Debtor:            debtor,
		Amount:            amount,
		Mode:              mode,
		Reference:         reference,
		ActorID:           actorID,
		PostedAt:          now.UTC(),
		BusinessDate:      businessDate,
	}, nil
}

// Amend replaces amount, mode and reference. An empty reference keeps the
// current one. Posting time, business date and the posting actor are kept.
func (m *CashMovement) Amend(amount decimal.Decimal, mode PaymentMode, reference string, now time.Time) error {
	if !amount.IsPositive() {
		return shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_AMOUNT", "Recovery amount must be positive")
	}
	reference = strings.TrimSpace(reference)
	if len(reference) > 100 {
		return shared.NewCategorizedError(shared.CodeInvalidInput, "INVALID_REFERENCE", "Reference cannot exceed 100 characters")
	}
	m.Amount = amount
	if mode != "" {
		m.Mode = mode
	}
	if reference != "" {
		m.Reference = reference
	}
	m.Touch(now)
	return nil
}

// GenerateRecoveryReference builds "RC-YYYYMMDD-XXXXXXXX" for a business date
func GenerateRecoveryReference(date valueobject.BusinessDate) string {
	return generateNumber("RC", date)
}
