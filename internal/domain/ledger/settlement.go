package ledger

import "github.com/shopspring/decimal"

// DefaultSettlementEpsilon is the rounding threshold below which a balance
// counts as settled
var DefaultSettlementEpsilon = decimal.NewFromInt(5)

// SettlementPolicy decides when a remaining balance is small enough to call
// an invoice paid. The same threshold drives status flips and the
// outstanding-debt filter so the two can never disagree.
type SettlementPolicy struct {
	Epsilon decimal.Decimal
}

// NewSettlementPolicy creates a policy. A negative epsilon is clamped to zero.
func NewSettlementPolicy(epsilon decimal.Decimal) SettlementPolicy {
	if epsilon.IsNegative() {
		epsilon = decimal.Zero
	}
	return SettlementPolicy{Epsilon: epsilon}
}

// DefaultSettlementPolicy uses DefaultSettlementEpsilon
func DefaultSettlementPolicy() SettlementPolicy {
	return NewSettlementPolicy(DefaultSettlementEpsilon)
}

// IsSettled reports balance < epsilon. A zero balance is always settled,
// even with a zero epsilon.
func (p SettlementPolicy) IsSettled(balance decimal.Decimal) bool {
	return !balance.IsPositive() || balance.LessThan(p.Epsilon)
}

// StatusFor returns PAID for a settled balance, CREDIT otherwise
func (p SettlementPolicy) StatusFor(balance decimal.Decimal) InvoiceStatus {
	if p.IsSettled(balance) {
		return InvoiceStatusPaid
	}
	return InvoiceStatusCredit
}
