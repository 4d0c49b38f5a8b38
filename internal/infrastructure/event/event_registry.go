package event

import "github.com/clinicpos/backend/internal/domain/ledger"

// RegisterLedgerEvents registers every ledger event type with the serializer
func RegisterLedgerEvents(serializer *EventSerializer) {
	serializer.Register(ledger.EventTypeDayClosed, &ledger.DayClosedEvent{})
	serializer.Register(ledger.EventTypeDayReopened, &ledger.DayReopenedEvent{})
	serializer.Register(ledger.EventTypeDayReclosed, &ledger.DayReclosedEvent{})

	serializer.Register(ledger.EventTypeRecoveryAllocated, &ledger.RecoveryEvent{})
	serializer.Register(ledger.EventTypeRecoveryReapplied, &ledger.RecoveryEvent{})
	serializer.Register(ledger.EventTypeRecoveryReverted, &ledger.RecoveryEvent{})

	serializer.Register(ledger.EventTypeInvoiceDateCorrected, &ledger.InvoiceDateCorrectedEvent{})
}
