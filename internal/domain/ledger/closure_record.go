package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/clinicpos/backend/internal/domain/shared"
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ClosureStatus is the persisted state of a closed business date
type ClosureStatus string

const (
	ClosureStatusClosed   ClosureStatus = "CLOSED"
	ClosureStatusReopened ClosureStatus = "REOPENED"
)

// IsValid checks if the status is a valid ClosureStatus
func (s ClosureStatus) IsValid() bool {
	return s == ClosureStatusClosed || s == ClosureStatusReopened
}

// String returns the string representation of ClosureStatus
func (s ClosureStatus) String() string {
	return string(s)
}

// ClosureRecord is the audit row for one business date that has been closed.
// Records are never deleted; reopening and re-closing update them in place.
type ClosureRecord struct {
	ID           uuid.UUID
	Date         valueobject.BusinessDate
	NextDate     valueobject.BusinessDate
	Status       ClosureStatus
	ClosedBy     *uuid.UUID
	ClosedAt     time.Time
	ReopenedBy   *uuid.UUID
	ReopenedAt   *time.Time
	ReopenReason string
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewClosureRecord creates a CLOSED record for date, pointing at nextDate
func NewClosureRecord(date, nextDate valueobject.BusinessDate, closedBy uuid.UUID, now time.Time) (*ClosureRecord, error) {
	if date.IsZero() || nextDate.IsZero() {
		return nil, shared.NewInvalidInputError("Closure dates cannot be empty")
	}
	if date.Equal(nextDate) {
		return nil, shared.NewCategorizedError(shared.CodeInvalidInput, "SAME_DATE",
			fmt.Sprintf("Next business date must differ from %s", date))
	}
	now = now.UTC()
	return &ClosureRecord{
		ID:        uuid.New(),
		Date:      date,
		NextDate:  nextDate,
		Status:    ClosureStatusClosed,
		ClosedBy:  actorRef(closedBy),
		ClosedAt:  now,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsClosed reports status CLOSED
func (r *ClosureRecord) IsClosed() bool {
	return r.Status == ClosureStatusClosed
}

// IsReopened reports status REOPENED
func (r *ClosureRecord) IsReopened() bool {
	return r.Status == ClosureStatusReopened
}

// WasClosedBy reports whether actorID performed the latest close
func (r *ClosureRecord) WasClosedBy(actorID uuid.UUID) bool {
	return r.ClosedBy != nil && *r.ClosedBy == actorID
}

// Close seals the date again, e.g. after a reopen or when a close is retried
// after a crash. The reopen fields are kept as the trail of the last reopen.
func (r *ClosureRecord) Close(nextDate valueobject.BusinessDate, closedBy uuid.UUID, now time.Time) error {
	if nextDate.IsZero() {
		return shared.NewInvalidInputError("Next business date cannot be empty")
	}
	if r.Date.Equal(nextDate) {
		return shared.NewCategorizedError(shared.CodeInvalidInput, "SAME_DATE",
			fmt.Sprintf("Next business date must differ from %s", r.Date))
	}
	now = now.UTC()
	r.Status = ClosureStatusClosed
	r.NextDate = nextDate
	r.ClosedBy = actorRef(closedBy)
	r.ClosedAt = now
	r.UpdatedAt = now
	return nil
}

// Reopen lifts the posting block. Only a CLOSED record can be reopened and a
// reason is always required.
func (r *ClosureRecord) Reopen(reopenedBy uuid.UUID, reason string, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return NewReasonRequiredError("Reopening a business date")
	}
	if !r.IsClosed() {
		return NewNotClosedError(r.Date)
	}
	now = now.UTC()
	r.Status = ClosureStatusReopened
	r.ReopenedBy = actorRef(reopenedBy)
	r.ReopenedAt = &now
	r.ReopenReason = reason
	r.UpdatedAt = now
	return nil
}

// Reclose seals a REOPENED date again without changing its next date
func (r *ClosureRecord) Reclose(closedBy uuid.UUID, now time.Time) error {
	if !r.IsReopened() {
		return shared.NewCategorizedError(shared.CodeInvalidState, "NOT_REOPENED",
			fmt.Sprintf("Business date %s is not reopened", r.Date))
	}
	now = now.UTC()
	r.Status = ClosureStatusClosed
	r.ClosedBy = actorRef(closedBy)
	r.ClosedAt = now
	r.UpdatedAt = now
	return nil
}

func actorRef(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
