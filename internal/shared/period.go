package shared

import (
	"fmt"
	"time"
)

// Period identifies a calendar month, the universal time axis for ledger
// actuals, projections, and scenario events.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod parses a YYYY-MM value into a Period.
func ParsePeriod(value string) (Period, error) {
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return Period{}, fmt.Errorf("shared: invalid period %q: expected YYYY-MM", value)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

// MustPeriod parses a YYYY-MM value and panics on failure. Intended for
// tests and seed data.
func MustPeriod(value string) Period {
	p, err := ParsePeriod(value)
	if err != nil {
		panic(err)
	}
	return p
}

// String renders the period as YYYY-MM.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// IsZero reports whether the period is the zero value.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// AddMonths returns the period n months after p. Negative n moves backwards.
func (p Period) AddMonths(n int) Period {
	total := p.Year*12 + int(p.Month) - 1 + n
	return Period{Year: total / 12, Month: time.Month(total%12 + 1)}
}

// Next returns the following calendar month.
func (p Period) Next() Period {
	return p.AddMonths(1)
}

// Before reports whether p precedes other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

// After reports whether p follows other.
func (p Period) After(other Period) bool {
	return other.Before(p)
}

// Compare returns -1, 0, or 1 ordering p against other.
func (p Period) Compare(other Period) int {
	switch {
	case p.Before(other):
		return -1
	case p.After(other):
		return 1
	default:
		return 0
	}
}

// MonthsBetween returns the number of months from p to other; positive when
// other follows p.
func MonthsBetween(p, other Period) int {
	return (other.Year-p.Year)*12 + int(other.Month) - int(p.Month)
}

// PeriodRange enumerates every month from start through end inclusive.
func PeriodRange(start, end Period) []Period {
	if end.Before(start) {
		return nil
	}
	periods := make([]Period, 0, MonthsBetween(start, end)+1)
	for p := start; !p.After(end); p = p.Next() {
		periods = append(periods, p)
	}
	return periods
}

// MarshalText implements encoding.TextMarshaler so periods serialize as
// YYYY-MM in JSON object keys and values.
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
