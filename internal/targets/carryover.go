package targets

import (
	"context"
	"fmt"
	"time"

	"github.com/salespulse/salespulse/internal/calendar"
)

// CarryOver holds the "current obligation" per period granularity: the
// nominal target multiplied by elapsed periods, net of cumulative
// achievement, floored at zero. Shortfalls roll forward into the next
// period's obligation; over-delivery never produces a credit.
type CarryOver struct {
	Daily     float64 `json:"daily"`
	Monthly   float64 `json:"monthly"`
	Quarterly float64 `json:"quarterly"`
	Yearly    float64 `json:"yearly"`
}

// Calculator derives carry-over obligations from a target's stored
// fields plus a snapshot read of the transaction store. It is stateless
// and its results are never cached: correctness depends on the precise
// reference date.
type Calculator struct {
	aggregator      *Aggregator
	directory       DirectoryReader
	holidayCalendar string
}

// NewCalculator wires the calculator. holidayCalendar names the holiday
// list consulted for working-day counts; empty means none.
func NewCalculator(aggregator *Aggregator, directory DirectoryReader, holidayCalendar string) *Calculator {
	return &Calculator{
		aggregator:      aggregator,
		directory:       directory,
		holidayCalendar: holidayCalendar,
	}
}

// CarryOver computes all four current-obligation values for a target as
// of referenceDate. The reference date is always explicit so callers
// and tests control "now". A target without period boundaries yields
// all zeros without touching the store.
func (c *Calculator) CarryOver(ctx context.Context, t *Target, referenceDate time.Time) (CarryOver, error) {
	if !t.HasPeriod() {
		return CarryOver{}, nil
	}

	ref := calendar.DayOf(referenceDate)
	start := calendar.DayOf(t.StartDate)
	end := calendar.DayOf(t.EndDate)

	// The calculation never looks before the target's start or past its
	// end: the obligation freezes at the full-period value once the
	// period has ended, and starts at one period's worth on day one.
	effective := calendar.Clamp(ref, start, end)

	var achievedToDate float64
	if c.needsAchievement(t) {
		var err error
		achievedToDate, err = c.aggregator.AchievedBetween(ctx, t.Scope, start, effective)
		if err != nil {
			return CarryOver{}, err
		}
	}

	var co CarryOver
	var err error
	co.Daily, err = c.daily(ctx, t, ref, start, effective, achievedToDate)
	if err != nil {
		return CarryOver{}, err
	}
	co.Monthly = periodic(t.MonthlyTarget, monthsElapsed(start, effective), achievedToDate)
	co.Quarterly = periodic(t.QuarterlyTarget, quartersElapsed(start, effective), achievedToDate)
	co.Yearly = periodic(t.YearlyTarget, yearsElapsed(start, effective), achievedToDate)
	return co, nil
}

func (c *Calculator) needsAchievement(t *Target) bool {
	if t.DailyTarget > 0 && t.Level == LevelIndividual {
		return true
	}
	return t.MonthlyTarget > 0 || t.QuarterlyTarget > 0 || t.YearlyTarget > 0
}

// daily treats working days as periods. Daily targets are defined only
// for individuals. When the reference date precedes the period start the
// obligation is exactly one nominal day, guarding against a zero or
// negative working-day count zeroing the obligation prematurely.
func (c *Calculator) daily(ctx context.Context, t *Target, ref, start, effective time.Time, achievedToDate float64) (float64, error) {
	if t.DailyTarget <= 0 || t.Level != LevelIndividual {
		return 0, nil
	}
	if ref.Before(start) {
		return t.DailyTarget, nil
	}

	holidays, err := c.holidays(ctx, start, effective)
	if err != nil {
		return 0, err
	}
	daysElapsed := calendar.WorkingDaysBetween(start, effective, holidays)
	return floorZero(t.DailyTarget*float64(daysElapsed) - achievedToDate), nil
}

func (c *Calculator) holidays(ctx context.Context, from, to time.Time) (calendar.HolidaySet, error) {
	if c.holidayCalendar == "" {
		return nil, nil
	}
	dates, err := c.directory.HolidaysBetween(ctx, c.holidayCalendar, from, to)
	if err != nil {
		return nil, fmt.Errorf("targets: load holidays: %w", err)
	}
	return calendar.NewHolidaySet(dates), nil
}

// monthsElapsed counts elapsed calendar months within the period. The
// first partial month counts as one full period.
func monthsElapsed(start, effective time.Time) int {
	monthStart := calendar.MonthStart(effective)
	if !monthStart.After(start) {
		return 1
	}
	return calendar.MonthsBetween(start, monthStart) + 1
}

func quartersElapsed(start, effective time.Time) int {
	quarterStart := calendar.QuarterStart(effective)
	if !quarterStart.After(start) {
		return 1
	}
	return calendar.QuartersBetween(start, quarterStart) + 1
}

func yearsElapsed(start, effective time.Time) int {
	yearStart := calendar.YearStart(effective)
	if !yearStart.After(start) {
		return 1
	}
	return effective.Year() - start.Year() + 1
}

func periodic(nominal float64, elapsed int, achievedToDate float64) float64 {
	if nominal <= 0 {
		return 0
	}
	return floorZero(nominal*float64(elapsed) - achievedToDate)
}

func floorZero(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
