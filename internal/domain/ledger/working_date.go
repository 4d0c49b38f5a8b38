package ledger

import (
	"time"

	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// WorkingDate is the single business date new postings are attributed to
type WorkingDate struct {
	Date      valueobject.BusinessDate
	UpdatedAt time.Time
	UpdatedBy *uuid.UUID
}

// NewWorkingDate creates the initial working date
func NewWorkingDate(date valueobject.BusinessDate, now time.Time) *WorkingDate {
	return &WorkingDate{Date: date, UpdatedAt: now.UTC()}
}

// Advance moves the working date to date
func (w *WorkingDate) Advance(date valueobject.BusinessDate, by uuid.UUID, now time.Time) {
	w.Date = date
	w.UpdatedAt = now.UTC()
	w.UpdatedBy = actorRef(by)
}
