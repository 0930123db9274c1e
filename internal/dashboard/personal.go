package dashboard

import (
	"context"
	"fmt"

	"github.com/salespulse/salespulse/internal/calendar"
	"github.com/salespulse/salespulse/internal/targets"
)

// PersonalTargetRoute is one active target of the employee with its
// live obligation and progress.
type PersonalTargetRoute struct {
	TargetID             int64   `json:"target_id"`
	StartDate            string  `json:"start_date"`
	EndDate              string  `json:"end_date"`
	MonthlyTarget        float64 `json:"monthly_target"`
	MonthlyTargetCurrent float64 `json:"monthly_target_current"`
	AchievedTotal        float64 `json:"achieved_total"`
	MonthlyProgress      float64 `json:"monthly_progress"`
}

// PersonalOverview is the individual dashboard: the rep's own month
// figures plus their target route.
type PersonalOverview struct {
	EmployeeID     int64                 `json:"employee_id"`
	EmployeeName   string                `json:"employee_name"`
	Period         Period                `json:"period"`
	Revenue        float64               `json:"revenue"`
	Collected      float64               `json:"collected"`
	Outstanding    float64               `json:"outstanding"`
	AchievementPct float64               `json:"achievement_pct"`
	Targets        []PersonalTargetRoute `json:"targets"`
}

// PersonalOverviewForUser resolves a login to its active employee and
// builds that employee's dashboard. A user without an employee record
// yields ErrUnknownUser.
func (s *Service) PersonalOverviewForUser(ctx context.Context, userID int64) (*PersonalOverview, error) {
	employee, err := s.directory.EmployeeByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: resolve user: %w", err)
	}
	if employee == nil {
		return nil, fmt.Errorf("%w: user %d", ErrUnknownUser, userID)
	}
	return s.PersonalOverview(ctx, employee.ID)
}

// PersonalOverview builds the individual dashboard for one employee.
// The month figures pass through the cache; the target route reads live
// derived fields maintained by the refresh tick.
func (s *Service) PersonalOverview(ctx context.Context, employeeID int64) (*PersonalOverview, error) {
	now := s.clock()
	month := PeriodFor(ViewMonthly, now)

	name, err := s.directory.EmployeeName(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	scope, err := s.personalScope(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: personal scope: %w", err)
	}

	type monthFigures struct {
		Revenue     float64 `json:"revenue"`
		Collected   float64 `json:"collected"`
		Outstanding float64 `json:"outstanding"`
	}
	var figures monthFigures
	key, err := s.cache.BuildKey(ctx, keyPersonal("month", employeeID, now)...)
	if err != nil {
		return nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &figures, func(ctx context.Context) (interface{}, error) {
		snap, err := s.sales.RevenueAndOutstanding(ctx, scope, month.From, month.To)
		if err != nil {
			return nil, err
		}
		collected, err := s.sales.CollectedBetween(ctx, scope, month.From, month.To)
		if err != nil {
			return nil, err
		}
		return monthFigures{Revenue: snap.Revenue, Collected: collected, Outstanding: snap.Outstanding}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: personal month: %w", err)
	}

	level := targets.LevelIndividual
	asOf := calendar.DayOf(now)
	active, _, err := s.targets.List(ctx, targets.ListTargetsRequest{
		Level:      &level,
		EmployeeID: &employeeID,
		ActiveAt:   &asOf,
		Limit:      20,
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: personal targets: %w", err)
	}

	overview := &PersonalOverview{
		EmployeeID:   employeeID,
		EmployeeName: name,
		Period:       month,
		Revenue:      figures.Revenue,
		Collected:    figures.Collected,
		Outstanding:  figures.Outstanding,
	}
	var targetSum float64
	for _, t := range active {
		if t.DocStatus == targets.DocStatusCancelled {
			continue
		}
		overview.Targets = append(overview.Targets, PersonalTargetRoute{
			TargetID:             t.ID,
			StartDate:            t.StartDate.Format("2006-01-02"),
			EndDate:              t.EndDate.Format("2006-01-02"),
			MonthlyTarget:        t.MonthlyTarget,
			MonthlyTargetCurrent: t.MonthlyTargetCurrent,
			AchievedTotal:        t.AchievedTotal,
			MonthlyProgress:      t.MonthlyProgress,
		})
		targetSum += t.MonthlyTarget
	}
	overview.AchievementPct = targets.Progress(figures.Revenue, targetSum)
	return overview, nil
}
