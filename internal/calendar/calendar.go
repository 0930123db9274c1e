// Package calendar provides civil-date arithmetic for elapsed-period
// counting: working days, calendar months, quarters and years.
package calendar

import "time"

// Date builds a civil date at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf normalizes a timestamp to its civil date at UTC midnight.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// HolidaySet is a lookup of non-working dates.
type HolidaySet map[time.Time]struct{}

// NewHolidaySet normalizes the given dates into a set. A nil or empty
// slice yields an empty set, meaning no holidays are excluded.
func NewHolidaySet(dates []time.Time) HolidaySet {
	set := make(HolidaySet, len(dates))
	for _, d := range dates {
		set[DayOf(d)] = struct{}{}
	}
	return set
}

// Contains reports whether the set holds the given date.
func (s HolidaySet) Contains(t time.Time) bool {
	if s == nil {
		return false
	}
	_, ok := s[DayOf(t)]
	return ok
}

// WorkingDaysBetween counts the days in [start, end] inclusive that are
// neither Sundays nor listed holidays. Returns 0 when end precedes start.
func WorkingDaysBetween(start, end time.Time, holidays HolidaySet) int {
	start = DayOf(start)
	end = DayOf(end)
	if end.Before(start) {
		return 0
	}
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Sunday {
			continue
		}
		if holidays.Contains(d) {
			continue
		}
		days++
	}
	return days
}

// MonthsBetween counts calendar-month boundaries crossed from start to
// end. The result is negative when end precedes start.
func MonthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
}

// QuartersBetween counts quarter boundaries crossed, flooring toward
// negative infinity for un-ordered inputs.
func QuartersBetween(start, end time.Time) int {
	return floorDiv(MonthsBetween(start, end), 3)
}

// MonthStart returns the first day of t's calendar month.
func MonthStart(t time.Time) time.Time {
	return Date(t.Year(), t.Month(), 1)
}

// QuarterStart returns the first day of the three-month block containing
// t (January, April, July or October the 1st).
func QuarterStart(t time.Time) time.Time {
	quarterMonth := ((int(t.Month())-1)/3)*3 + 1
	return Date(t.Year(), time.Month(quarterMonth), 1)
}

// YearStart returns January 1st of t's year.
func YearStart(t time.Time) time.Time {
	return Date(t.Year(), time.January, 1)
}

// Clamp bounds t to the inclusive range [lo, hi].
func Clamp(t, lo, hi time.Time) time.Time {
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
