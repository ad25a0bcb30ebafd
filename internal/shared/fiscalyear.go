package shared

import (
	"fmt"
	"time"
)

// FinancialYear identifies an April 1 to March 31 year by its starting calendar year.
type FinancialYear int

// FinancialYearOf returns the financial year containing t, evaluated in t's location.
func FinancialYearOf(t time.Time) FinancialYear {
	if t.Month() >= time.April {
		return FinancialYear(t.Year())
	}
	return FinancialYear(t.Year() - 1)
}

// StartYear is the calendar year of April 1.
func (fy FinancialYear) StartYear() int { return int(fy) }

// EndYear is the calendar year of March 31.
func (fy FinancialYear) EndYear() int { return int(fy) + 1 }

// Label renders the year as "2024-25".
func (fy FinancialYear) Label() string {
	return fmt.Sprintf("%d-%02d", fy.StartYear(), fy.EndYear()%100)
}

// Compact renders the year as "202425".
func (fy FinancialYear) Compact() string {
	return fmt.Sprintf("%d%02d", fy.StartYear(), fy.EndYear()%100)
}

// Bounds returns the half-open range [April 1 00:00, next April 1 00:00) in loc.
func (fy FinancialYear) Bounds(loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(fy.StartYear(), time.April, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(1, 0, 0)
}

// Contains reports whether t falls inside the financial year.
func (fy FinancialYear) Contains(t time.Time, loc *time.Location) bool {
	start, end := fy.Bounds(loc)
	return !t.Before(start) && t.Before(end)
}

// StartOfDay returns 00:00:00.000 of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns 23:59:59.999 of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), loc)
}
