package targets

import (
	"context"
	"fmt"
	"time"
)

// Recompute runs the derivation pipeline on a target: organizational
// fields, achieved total over the full period, carry-over obligations as
// of now, and progress percentages. Only the target's own derived
// fields are mutated; no external records are written. The pipeline is
// idempotent for a fixed now and unchanged transaction data.
func (s *Service) Recompute(ctx context.Context, t *Target, now time.Time) error {
	if err := s.deriveDepartment(ctx, t); err != nil {
		return err
	}
	if err := s.deriveParentDepartment(ctx, t); err != nil {
		return err
	}
	if err := s.deriveOwnerDisplay(ctx, t); err != nil {
		return err
	}
	if err := s.computeAchievedTotal(ctx, t); err != nil {
		return err
	}

	co, err := s.calculator.CarryOver(ctx, t, now)
	if err != nil {
		return err
	}
	t.DailyTargetCurrent = co.Daily
	t.MonthlyTargetCurrent = co.Monthly
	t.QuarterlyTargetCurrent = co.Quarterly
	t.YearlyTargetCurrent = co.Yearly

	t.YearlyProgress = Progress(t.AchievedTotal, t.YearlyTarget)
	t.QuarterlyProgress = Progress(t.AchievedTotal, t.QuarterlyTarget)
	t.MonthlyProgress = Progress(t.AchievedTotal, t.MonthlyTarget)
	t.WeeklyProgress = Progress(t.AchievedTotal, t.WeeklyTarget)
	t.DailyProgress = Progress(t.AchievedTotal, t.DailyTarget)
	return nil
}

// deriveDepartment fills an individual target's department from the
// employee record when not set explicitly.
func (s *Service) deriveDepartment(ctx context.Context, t *Target) error {
	if t.Level != LevelIndividual || t.EmployeeID == nil || t.DepartmentID != nil {
		return nil
	}
	department, err := s.directory.EmployeeDepartment(ctx, *t.EmployeeID)
	if err != nil {
		return fmt.Errorf("targets: derive department: %w", err)
	}
	t.DepartmentID = department
	return nil
}

func (s *Service) deriveParentDepartment(ctx context.Context, t *Target) error {
	if t.DepartmentID == nil {
		t.ParentDepartmentID = nil
		return nil
	}
	parent, err := s.directory.ParentDepartment(ctx, *t.DepartmentID)
	if err != nil {
		return fmt.Errorf("targets: derive parent department: %w", err)
	}
	t.ParentDepartmentID = parent
	return nil
}

// deriveOwnerDisplay sets the human-readable label matching the scope.
// Missing linked records leave the label empty rather than failing.
func (s *Service) deriveOwnerDisplay(ctx context.Context, t *Target) error {
	var name string
	var err error
	switch t.Level {
	case LevelCompany:
		if t.CompanyID != nil {
			name, err = s.directory.CompanyName(ctx, *t.CompanyID)
		}
	case LevelDepartment:
		if t.DepartmentID != nil {
			name, err = s.directory.DepartmentName(ctx, *t.DepartmentID)
		}
	case LevelIndividual:
		if t.EmployeeID != nil {
			name, err = s.directory.EmployeeName(ctx, *t.EmployeeID)
		}
	}
	if err != nil {
		return fmt.Errorf("targets: derive owner display: %w", err)
	}
	t.OwnerDisplay = name
	return nil
}

// computeAchievedTotal sums achievement over the full nominal period,
// unlike the to-date window used inside carry-over math.
func (s *Service) computeAchievedTotal(ctx context.Context, t *Target) error {
	if !t.HasPeriod() {
		t.AchievedTotal = 0
		return nil
	}
	achieved, err := s.aggregator.AchievedBetween(ctx, t.Scope, t.StartDate, t.EndDate)
	if err != nil {
		return err
	}
	t.AchievedTotal = achieved
	return nil
}

// Progress is the achievement percentage against a nominal target,
// clamped to [0, 100]. Zero or negative targets report zero progress.
func Progress(achieved, target float64) float64 {
	if target <= 0 {
		return 0
	}
	progress := achieved / target * 100
	if progress > 100 {
		return 100
	}
	if progress < 0 {
		return 0
	}
	return progress
}
