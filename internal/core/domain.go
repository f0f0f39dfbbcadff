package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyStore    = errors.New("empty store name")
	ErrEmptyItem     = errors.New("empty item description")
	ErrInvalidUnit   = errors.New("invalid unit")
	ErrMonthMismatch = errors.New("month does not match date")
)

// Date is a calendar day. It marshals as YYYY-MM-DD and carries no
// time-of-day component.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// MonthKey returns the YYYY-MM prefix of the date.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.AddDate(0, 0, n)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Record is a single expense entry. IDs are assigned by the store on
// creation and never reused; month is denormalized from date to back the
// secondary month index; unitBase/unitPrice are derived from
// value/qty/unit and never set by callers directly.
type Record struct {
	ID        int64      `json:"id,omitempty"`
	Date      Date       `json:"date"`
	Month     string     `json:"month"`
	Store     string     `json:"store"`
	Item      string     `json:"item"`
	Category  string     `json:"category"`
	Obs       string     `json:"obs"`
	Value     Money      `json:"value"`
	Qty       *float64   `json:"qty"`
	Unit      Unit       `json:"unit,omitempty"`
	UnitBase  Unit       `json:"unitBase,omitempty"`
	UnitPrice *UnitPrice `json:"unitPrice"`
	CreatedAt int64      `json:"createdAt,omitempty"`
	UpdatedAt int64      `json:"updatedAt,omitempty"`
}

// StoreName is a registry entry used to populate vendor pickers. It is not
// a foreign key: records carry the vendor name as a free-text copy.
type StoreName struct {
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// Normalize trims free-text fields, fills the month column from the date
// and recomputes the derived unit fields. Called by the store on every
// write so the month invariant and unit prices can never go stale.
func (r *Record) Normalize() {
	r.Store = strings.TrimSpace(r.Store)
	r.Item = strings.TrimSpace(r.Item)
	r.Category = strings.TrimSpace(r.Category)
	r.Obs = strings.TrimSpace(r.Obs)
	if !r.Date.IsZero() {
		r.Month = r.Date.MonthKey()
	}
	if r.Qty != nil && IsValidUnit(r.Unit) {
		r.UnitPrice, r.UnitBase = CalcUnitPrice(r.Value, *r.Qty, r.Unit)
	} else {
		r.UnitBase = r.Unit
		r.UnitPrice = nil
	}
}

// Validate checks the required fields and the month/date invariant.
func (r Record) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Store) == "" {
		return ErrEmptyStore
	}
	if strings.TrimSpace(r.Item) == "" {
		return ErrEmptyItem
	}
	if r.Value.Cents < 0 {
		return ErrInvalidAmount
	}
	if r.Month != "" && r.Month != r.Date.MonthKey() {
		return fmt.Errorf("%w: month=%q date=%q", ErrMonthMismatch, r.Month, r.Date)
	}
	if r.Unit != "" && !IsValidUnit(r.Unit) {
		return fmt.Errorf("%w: %q", ErrInvalidUnit, r.Unit)
	}
	return nil
}
