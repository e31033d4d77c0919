package shared

import "testing"

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-06")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if p.String() != "2025-06" {
		t.Fatalf("round trip mismatch: %s", p)
	}
	if _, err := ParsePeriod("06/2025"); err == nil {
		t.Fatalf("expected error for non YYYY-MM value")
	}
	if _, err := ParsePeriod("2025-13"); err == nil {
		t.Fatalf("expected error for month 13")
	}
}

func TestPeriodArithmetic(t *testing.T) {
	p := MustPeriod("2024-11")
	if got := p.AddMonths(3).String(); got != "2025-02" {
		t.Fatalf("AddMonths across year boundary: %s", got)
	}
	if got := p.AddMonths(-11).String(); got != "2023-12" {
		t.Fatalf("AddMonths backwards: %s", got)
	}
	if n := MonthsBetween(MustPeriod("2024-10"), MustPeriod("2025-01")); n != 3 {
		t.Fatalf("MonthsBetween: %d", n)
	}
}

func TestPeriodRange(t *testing.T) {
	periods := PeriodRange(MustPeriod("2024-11"), MustPeriod("2025-02"))
	if len(periods) != 4 {
		t.Fatalf("expected 4 periods, got %d", len(periods))
	}
	if periods[0].String() != "2024-11" || periods[3].String() != "2025-02" {
		t.Fatalf("unexpected bounds: %v", periods)
	}
	if got := PeriodRange(MustPeriod("2025-02"), MustPeriod("2025-01")); got != nil {
		t.Fatalf("inverted range should be nil, got %v", got)
	}
}

func TestPeriodOrdering(t *testing.T) {
	a := MustPeriod("2025-01")
	b := MustPeriod("2025-02")
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("ordering broken")
	}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Fatalf("compare broken")
	}
}
