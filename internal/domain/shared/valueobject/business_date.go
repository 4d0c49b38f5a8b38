package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// BusinessDateLayout is the canonical text form of a BusinessDate
const BusinessDateLayout = "2006-01-02"

// BusinessDate is a civil calendar date with no time of day.
// It is the unit that financial postings are attributed to and is distinct
// from the wall-clock date. The zero value is "no date".
//
// Internally it is kept at midnight UTC so that equality and ordering never
// depend on the location a timestamp was produced in.
type BusinessDate struct {
	t time.Time
}

// NewBusinessDate creates a BusinessDate from year, month and day
func NewBusinessDate(year int, month time.Month, day int) BusinessDate {
	return BusinessDate{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// BusinessDateOf returns the business date of a timestamp, using the
// timestamp's own calendar day in UTC
func BusinessDateOf(ts time.Time) BusinessDate {
	u := ts.UTC()
	return NewBusinessDate(u.Year(), u.Month(), u.Day())
}

// ParseBusinessDate parses a YYYY-MM-DD string
func ParseBusinessDate(s string) (BusinessDate, error) {
	t, err := time.Parse(BusinessDateLayout, s)
	if err != nil {
		return BusinessDate{}, fmt.Errorf("invalid business date %q: expected YYYY-MM-DD", s)
	}
	return BusinessDate{t: t}, nil
}

// MustParseBusinessDate parses a YYYY-MM-DD string and panics on error
func MustParseBusinessDate(s string) BusinessDate {
	d, err := ParseBusinessDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero returns true for the zero BusinessDate
func (d BusinessDate) IsZero() bool {
	return d.t.IsZero()
}

// Time returns midnight UTC of the date
func (d BusinessDate) Time() time.Time {
	return d.t
}

// Start returns the first instant of the date (inclusive)
func (d BusinessDate) Start() time.Time {
	return d.t
}

// End returns the first instant of the following date (exclusive)
func (d BusinessDate) End() time.Time {
	return d.t.AddDate(0, 0, 1)
}

// AddDays returns the date n days later (or earlier for negative n)
func (d BusinessDate) AddDays(n int) BusinessDate {
	return BusinessDate{t: d.t.AddDate(0, 0, n)}
}

// Equal reports whether both dates are the same calendar day
func (d BusinessDate) Equal(other BusinessDate) bool {
	return d.t.Equal(other.t)
}

// Before reports whether d is strictly earlier than other
func (d BusinessDate) Before(other BusinessDate) bool {
	return d.t.Before(other.t)
}

// After reports whether d is strictly later than other
func (d BusinessDate) After(other BusinessDate) bool {
	return d.t.After(other.t)
}

// WithTimeOf returns the timestamp on this date carrying the time of day of ts
func (d BusinessDate) WithTimeOf(ts time.Time) time.Time {
	u := ts.UTC()
	return time.Date(d.t.Year(), d.t.Month(), d.t.Day(),
		u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), time.UTC)
}

// String returns the date as YYYY-MM-DD, or "" for the zero date
func (d BusinessDate) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(BusinessDateLayout)
}

// MarshalJSON implements json.Marshaler
func (d BusinessDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *BusinessDate) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = BusinessDate{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseBusinessDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer. Dates are stored as midnight UTC timestamps.
func (d BusinessDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.t, nil
}

// Scan implements sql.Scanner
func (d *BusinessDate) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*d = BusinessDate{}
		return nil
	case time.Time:
		*d = BusinessDateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into BusinessDate", value)
	}
}

func (d *BusinessDate) scanString(s string) error {
	if len(s) < len(BusinessDateLayout) {
		return fmt.Errorf("cannot scan %q into BusinessDate", s)
	}
	parsed, err := ParseBusinessDate(s[:len(BusinessDateLayout)])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
