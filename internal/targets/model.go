package targets

import "time"

// Level is the scope granularity of a sales target.
type Level string

const (
	LevelCompany    Level = "COMPANY"
	LevelDepartment Level = "DEPARTMENT"
	LevelIndividual Level = "INDIVIDUAL"
)

// Granularity selects one of the per-period nominal target amounts.
type Granularity string

const (
	GranularityDaily     Granularity = "DAILY"
	GranularityMonthly   Granularity = "MONTHLY"
	GranularityQuarterly Granularity = "QUARTERLY"
	GranularityYearly    Granularity = "YEARLY"
)

// DocStatus mirrors the document lifecycle of the upstream ERP: draft
// records are editable, submitted records are final, cancelled records
// are excluded from aggregate sums.
type DocStatus int16

const (
	DocStatusDraft     DocStatus = 0
	DocStatusSubmitted DocStatus = 1
	DocStatusCancelled DocStatus = 2
)

// Scope identifies what a target applies to. Exactly one reference is
// populated per level; the constructors below are the only way scopes
// are built, so no clear-irrelevant-fields normalization exists.
type Scope struct {
	Level        Level  `json:"level" db:"target_level"`
	CompanyID    *int64 `json:"company_id,omitempty" db:"company_id"`
	DepartmentID *int64 `json:"department_id,omitempty" db:"department_id"`
	EmployeeID   *int64 `json:"employee_id,omitempty" db:"employee_id"`
}

// CompanyScope targets company-wide revenue. A nil companyID means all
// companies.
func CompanyScope(companyID *int64) Scope {
	return Scope{Level: LevelCompany, CompanyID: companyID}
}

// DepartmentScope targets the allocated revenue of one department's
// sales people.
func DepartmentScope(departmentID int64) Scope {
	return Scope{Level: LevelDepartment, DepartmentID: &departmentID}
}

// IndividualScope targets one employee's allocated revenue. The
// department is optional; when nil it is derived from the employee
// record during recomputation.
func IndividualScope(employeeID int64, departmentID *int64) Scope {
	return Scope{Level: LevelIndividual, EmployeeID: &employeeID, DepartmentID: departmentID}
}

// Target is a sales target for a company, department or individual over
// an inclusive date period, together with the derived achievement and
// carry-over state maintained by the lifecycle controller.
type Target struct {
	ID int64 `json:"id" db:"id"`
	Scope

	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`

	DailyTarget     float64 `json:"daily_target" db:"daily_target"`
	WeeklyTarget    float64 `json:"weekly_target" db:"weekly_target"`
	MonthlyTarget   float64 `json:"monthly_target" db:"monthly_target"`
	QuarterlyTarget float64 `json:"quarterly_target" db:"quarterly_target"`
	YearlyTarget    float64 `json:"yearly_target" db:"yearly_target"`

	DocStatus DocStatus `json:"docstatus" db:"docstatus"`

	// Derived fields, owned exclusively by this subsystem.
	ParentDepartmentID     *int64  `json:"parent_department_id,omitempty" db:"parent_department_id"`
	OwnerDisplay           string  `json:"owner_display" db:"owner_display"`
	AchievedTotal          float64 `json:"achieved_total" db:"achieved_total"`
	DailyTargetCurrent     float64 `json:"daily_target_current" db:"daily_target_current"`
	MonthlyTargetCurrent   float64 `json:"monthly_target_current" db:"monthly_target_current"`
	QuarterlyTargetCurrent float64 `json:"quarterly_target_current" db:"quarterly_target_current"`
	YearlyTargetCurrent    float64 `json:"yearly_target_current" db:"yearly_target_current"`
	YearlyProgress         float64 `json:"yearly_progress" db:"yearly_progress"`
	QuarterlyProgress      float64 `json:"quarterly_progress" db:"quarterly_progress"`
	MonthlyProgress        float64 `json:"monthly_progress" db:"monthly_progress"`
	WeeklyProgress         float64 `json:"weekly_progress" db:"weekly_progress"`
	DailyProgress          float64 `json:"daily_progress" db:"daily_progress"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasPeriod reports whether both period boundaries are configured.
// Targets without a period are a normal state: all derived values stay
// zero until the record is completed.
func (t *Target) HasPeriod() bool {
	return !t.StartDate.IsZero() && !t.EndDate.IsZero()
}

// NominalTarget returns the per-period amount for a granularity.
func (t *Target) NominalTarget(g Granularity) float64 {
	switch g {
	case GranularityDaily:
		return t.DailyTarget
	case GranularityMonthly:
		return t.MonthlyTarget
	case GranularityQuarterly:
		return t.QuarterlyTarget
	case GranularityYearly:
		return t.YearlyTarget
	}
	return 0
}

// DerivedFields is the subset persisted by the scheduled refresh, which
// bypasses full validation and writes only what recomputation owns.
type DerivedFields struct {
	AchievedTotal          float64
	DailyTargetCurrent     float64
	MonthlyTargetCurrent   float64
	QuarterlyTargetCurrent float64
	YearlyTargetCurrent    float64
	YearlyProgress         float64
	QuarterlyProgress      float64
	MonthlyProgress        float64
	WeeklyProgress         float64
	DailyProgress          float64
}

// Derived snapshots the target's computed fields.
func (t *Target) Derived() DerivedFields {
	return DerivedFields{
		AchievedTotal:          t.AchievedTotal,
		DailyTargetCurrent:     t.DailyTargetCurrent,
		MonthlyTargetCurrent:   t.MonthlyTargetCurrent,
		QuarterlyTargetCurrent: t.QuarterlyTargetCurrent,
		YearlyTargetCurrent:    t.YearlyTargetCurrent,
		YearlyProgress:         t.YearlyProgress,
		QuarterlyProgress:      t.QuarterlyProgress,
		MonthlyProgress:        t.MonthlyProgress,
		WeeklyProgress:         t.WeeklyProgress,
		DailyProgress:          t.DailyProgress,
	}
}
