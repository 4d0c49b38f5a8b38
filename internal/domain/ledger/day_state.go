package ledger

import (
	"github.com/clinicpos/backend/internal/domain/shared/valueobject"
)

// DayStateKind enumerates the states a business date can be in
type DayStateKind string

const (
	// DayOpen is the working date with no closure record yet
	DayOpen DayStateKind = "OPEN"
	// DayClosed has a CLOSED record
	DayClosed DayStateKind = "CLOSED"
	// DayReopened has a REOPENED record; posting works as on an open day
	DayReopened DayStateKind = "REOPENED"
	// DayFuture lies after the working date and has never been opened
	DayFuture DayStateKind = "FUTURE"
	// DayUnrecorded lies before the working date but has no closure record,
	// e.g. a date skipped over by a close
	DayUnrecorded DayStateKind = "UNRECORDED"
)

// DayState is the state of one business date, derived from the working date
// and the date's closure record at read time
type DayState struct {
	Kind        DayStateKind             `json:"state"`
	Date        valueobject.BusinessDate `json:"date"`
	WorkingDate valueobject.BusinessDate `json:"working_date"`
	Record      *ClosureRecord           `json:"-"`
}

// DeriveDayState computes the state of date. record may be nil.
func DeriveDayState(date, workingDate valueobject.BusinessDate, record *ClosureRecord) DayState {
	state := DayState{Date: date, WorkingDate: workingDate, Record: record}
	switch {
	case record != nil && record.IsReopened():
		state.Kind = DayReopened
	case record != nil:
		state.Kind = DayClosed
	case date.Equal(workingDate):
		state.Kind = DayOpen
	case date.After(workingDate):
		state.Kind = DayFuture
	default:
		state.Kind = DayUnrecorded
	}
	return state
}

// IsWorkingDate reports whether the date is the current working date
func (s DayState) IsWorkingDate() bool {
	return s.Date.Equal(s.WorkingDate)
}

// AcceptsPostings reports whether an ordinary actor may post to the date
func (s DayState) AcceptsPostings() bool {
	return s.IsWorkingDate() || s.Kind == DayReopened
}
