package ledger

import (
	"strings"
	"time"

	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// SourceTableInvoices is the source table recorded for invoice date corrections
const SourceTableInvoices = "invoices"

// DateCorrection is an append-only audit row for a business date reassignment
type DateCorrection struct {
	ID          uuid.UUID
	SourceTable string
	RecordID    uuid.UUID
	OldDate     valueobject.BusinessDate
	NewDate     valueobject.BusinessDate
	ActorID     uuid.UUID
	Reason      string
	CreatedAt   time.Time
}

// NewDateCorrection creates an audit row. The reason is mandatory.
func NewDateCorrection(
	sourceTable string,
	recordID uuid.UUID,
	oldDate, newDate valueobject.BusinessDate,
	actorID uuid.UUID,
	reason string,
	now time.Time,
) (*DateCorrection, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, NewReasonRequiredError("Correcting a business date")
	}
	if len(reason) > 500 {
		return nil, shared.NewInvalidInputError("Reason cannot exceed 500 characters")
	}
	if recordID == uuid.Nil || actorID == uuid.Nil {
		return nil, shared.NewInvalidInputError("Record and actor IDs cannot be empty")
	}
	return &DateCorrection{
		ID:          uuid.New(),
		SourceTable: sourceTable,
		RecordID:    recordID,
		OldDate:     oldDate,
		NewDate:     newDate,
		ActorID:     actorID,
		Reason:      reason,
		CreatedAt:   now.UTC(),
	}, nil
}
