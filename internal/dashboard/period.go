package dashboard

import (
	"fmt"
	"time"

	"github.com/salespulse/salespulse/internal/calendar"
	"github.com/salespulse/salespulse/internal/targets"
)

// ViewMode selects the reporting window shared by all reporters.
type ViewMode string

const (
	ViewDaily     ViewMode = "daily"
	ViewMonthly   ViewMode = "monthly"
	ViewQuarterly ViewMode = "quarterly"
	ViewYearly    ViewMode = "yearly"
)

// ParseViewMode validates a query-string view mode, defaulting to
// monthly.
func ParseViewMode(s string) (ViewMode, error) {
	switch s {
	case "":
		return ViewMonthly, nil
	case string(ViewDaily), string(ViewMonthly), string(ViewQuarterly), string(ViewYearly):
		return ViewMode(s), nil
	}
	return "", fmt.Errorf("dashboard: unknown view mode %q", s)
}

// Granularity maps the view mode onto the matching target column.
func (m ViewMode) Granularity() targets.Granularity {
	switch m {
	case ViewDaily:
		return targets.GranularityDaily
	case ViewQuarterly:
		return targets.GranularityQuarterly
	case ViewYearly:
		return targets.GranularityYearly
	default:
		return targets.GranularityMonthly
	}
}

// Period is an inclusive date range.
type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// PeriodFor returns the window containing ref for the view mode.
func PeriodFor(mode ViewMode, ref time.Time) Period {
	day := calendar.DayOf(ref)
	switch mode {
	case ViewDaily:
		return Period{From: day, To: day}
	case ViewQuarterly:
		start := calendar.QuarterStart(day)
		return Period{From: start, To: start.AddDate(0, 3, -1)}
	case ViewYearly:
		start := calendar.YearStart(day)
		return Period{From: start, To: start.AddDate(1, 0, -1)}
	default:
		start := calendar.MonthStart(day)
		return Period{From: start, To: start.AddDate(0, 1, -1)}
	}
}

// NextPeriodFor returns the window immediately after the one containing
// ref, used for pipeline coverage.
func NextPeriodFor(mode ViewMode, ref time.Time) Period {
	current := PeriodFor(mode, ref)
	return PeriodFor(mode, current.To.AddDate(0, 0, 1))
}
