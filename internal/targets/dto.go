package targets

import "time"

const dateLayout = "2006-01-02"

type CreateTargetRequest struct {
	Level        Level  `json:"level" validate:"required,oneof=COMPANY DEPARTMENT INDIVIDUAL"`
	CompanyID    *int64 `json:"company_id,omitempty" validate:"omitempty,gt=0"`
	DepartmentID *int64 `json:"department_id,omitempty" validate:"omitempty,gt=0"`
	EmployeeID   *int64 `json:"employee_id,omitempty" validate:"omitempty,gt=0"`

	StartDate *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`

	DailyTarget     float64 `json:"daily_target" validate:"gte=0"`
	WeeklyTarget    float64 `json:"weekly_target" validate:"gte=0"`
	MonthlyTarget   float64 `json:"monthly_target" validate:"gte=0"`
	QuarterlyTarget float64 `json:"quarterly_target" validate:"gte=0"`
	YearlyTarget    float64 `json:"yearly_target" validate:"gte=0"`
}

// Target builds the domain record. Validation of scope consistency
// happens in the service, not here.
func (r CreateTargetRequest) Target() (Target, error) {
	t := Target{
		Scope: Scope{
			Level:        r.Level,
			CompanyID:    r.CompanyID,
			DepartmentID: r.DepartmentID,
			EmployeeID:   r.EmployeeID,
		},
		DailyTarget:     r.DailyTarget,
		WeeklyTarget:    r.WeeklyTarget,
		MonthlyTarget:   r.MonthlyTarget,
		QuarterlyTarget: r.QuarterlyTarget,
		YearlyTarget:    r.YearlyTarget,
	}
	var err error
	if t.StartDate, err = parseOptDate(r.StartDate); err != nil {
		return Target{}, err
	}
	if t.EndDate, err = parseOptDate(r.EndDate); err != nil {
		return Target{}, err
	}
	return t, nil
}

type UpdateTargetRequest struct {
	Level        *Level `json:"level,omitempty" validate:"omitempty,oneof=COMPANY DEPARTMENT INDIVIDUAL"`
	CompanyID    *int64 `json:"company_id,omitempty" validate:"omitempty,gt=0"`
	DepartmentID *int64 `json:"department_id,omitempty" validate:"omitempty,gt=0"`
	EmployeeID   *int64 `json:"employee_id,omitempty" validate:"omitempty,gt=0"`

	StartDate *string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `json:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`

	DailyTarget     *float64 `json:"daily_target,omitempty" validate:"omitempty,gte=0"`
	WeeklyTarget    *float64 `json:"weekly_target,omitempty" validate:"omitempty,gte=0"`
	MonthlyTarget   *float64 `json:"monthly_target,omitempty" validate:"omitempty,gte=0"`
	QuarterlyTarget *float64 `json:"quarterly_target,omitempty" validate:"omitempty,gte=0"`
	YearlyTarget    *float64 `json:"yearly_target,omitempty" validate:"omitempty,gte=0"`
}

// Apply copies the provided fields onto the target. Changing the level
// resets the scope references so a repurposed record cannot keep stale
// ones.
func (r UpdateTargetRequest) Apply(t *Target) error {
	if r.Level != nil && *r.Level != t.Level {
		t.Scope = Scope{Level: *r.Level}
	}
	if r.CompanyID != nil {
		t.CompanyID = r.CompanyID
	}
	if r.DepartmentID != nil {
		t.DepartmentID = r.DepartmentID
	}
	if r.EmployeeID != nil {
		t.EmployeeID = r.EmployeeID
	}
	if r.StartDate != nil {
		d, err := parseOptDate(r.StartDate)
		if err != nil {
			return err
		}
		t.StartDate = d
	}
	if r.EndDate != nil {
		d, err := parseOptDate(r.EndDate)
		if err != nil {
			return err
		}
		t.EndDate = d
	}
	if r.DailyTarget != nil {
		t.DailyTarget = *r.DailyTarget
	}
	if r.WeeklyTarget != nil {
		t.WeeklyTarget = *r.WeeklyTarget
	}
	if r.MonthlyTarget != nil {
		t.MonthlyTarget = *r.MonthlyTarget
	}
	if r.QuarterlyTarget != nil {
		t.QuarterlyTarget = *r.QuarterlyTarget
	}
	if r.YearlyTarget != nil {
		t.YearlyTarget = *r.YearlyTarget
	}
	return nil
}

type ListTargetsRequest struct {
	Level        *Level     `json:"level,omitempty" validate:"omitempty,oneof=COMPANY DEPARTMENT INDIVIDUAL"`
	DepartmentID *int64     `json:"department_id,omitempty" validate:"omitempty,gt=0"`
	EmployeeID   *int64     `json:"employee_id,omitempty" validate:"omitempty,gt=0"`
	ActiveAt     *time.Time `json:"active_at,omitempty"`
	Limit        int        `json:"limit" validate:"gte=0,lte=500"`
	Offset       int        `json:"offset" validate:"gte=0"`
}

type ListTargetsResponse struct {
	Items []Target `json:"items"`
	Total int      `json:"total"`
}

func parseOptDate(s *string) (time.Time, error) {
	if s == nil || *s == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateLayout, *s)
}
