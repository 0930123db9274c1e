package targets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the target record does not exist.
var ErrNotFound = errors.New("record not found")

// Repository persists targets and their derived fields.
type Repository interface {
	Get(ctx context.Context, id int64) (*Target, error)
	List(ctx context.Context, req ListTargetsRequest) ([]Target, int, error)
	ListIDsPage(ctx context.Context, afterID int64, limit int) ([]int64, error)
	Create(ctx context.Context, t Target) (int64, error)
	Update(ctx context.Context, t Target) error
	UpdateDerived(ctx context.Context, id int64, d DerivedFields) error
	UpdateDocStatus(ctx context.Context, id int64, status DocStatus) error
	SumCurrentTarget(ctx context.Context, f CurrentTargetFilter) (float64, error)
}

// CurrentTargetFilter selects which active targets contribute to a
// dashboard target sum as of a date.
type CurrentTargetFilter struct {
	Level        Level
	Granularity  Granularity
	AsOf         time.Time
	CompanyID    *int64
	DepartmentID *int64
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the PostgreSQL-backed target repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const targetColumns = `
	id, target_level, company_id, department_id, parent_department_id, employee_id,
	owner_display, start_date, end_date,
	daily_target, weekly_target, monthly_target, quarterly_target, yearly_target,
	docstatus, achieved_total,
	daily_target_current, monthly_target_current, quarterly_target_current, yearly_target_current,
	yearly_progress, quarterly_progress, monthly_progress, weekly_progress, daily_progress,
	created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Target, error) {
	row := r.pool.QueryRow(ctx, `SELECT`+targetColumns+` FROM sales_targets WHERE id = $1`, id)
	t, err := scanTarget(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *repository) List(ctx context.Context, req ListTargetsRequest) ([]Target, int, error) {
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argPos := 1

	if req.Level != nil {
		conditions = append(conditions, fmt.Sprintf("target_level = $%d", argPos))
		args = append(args, *req.Level)
		argPos++
	}
	if req.DepartmentID != nil {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", argPos))
		args = append(args, *req.DepartmentID)
		argPos++
	}
	if req.EmployeeID != nil {
		conditions = append(conditions, fmt.Sprintf("employee_id = $%d", argPos))
		args = append(args, *req.EmployeeID)
		argPos++
	}
	if req.ActiveAt != nil {
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d AND end_date >= $%d", argPos, argPos))
		args = append(args, *req.ActiveAt)
		argPos++
	}

	whereClause := "WHERE " + conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM sales_targets " + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT%s FROM sales_targets %s ORDER BY start_date DESC, id DESC LIMIT $%d OFFSET $%d`,
		targetColumns, whereClause, argPos, argPos+1)
	args = append(args, limit, req.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	return out, total, rows.Err()
}

func (r *repository) ListIDsPage(ctx context.Context, afterID int64, limit int) ([]int64, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM sales_targets WHERE id > $1 ORDER BY id LIMIT $2`, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0, limit)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *repository) Create(ctx context.Context, t Target) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO sales_targets (
			target_level, company_id, department_id, parent_department_id, employee_id,
			owner_display, start_date, end_date,
			daily_target, weekly_target, monthly_target, quarterly_target, yearly_target,
			docstatus, achieved_total,
			daily_target_current, monthly_target_current, quarterly_target_current, yearly_target_current,
			yearly_progress, quarterly_progress, monthly_progress, weekly_progress, daily_progress,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, NOW(), NOW()
		) RETURNING id`,
		t.Level, optInt8(t.CompanyID), optInt8(t.DepartmentID), optInt8(t.ParentDepartmentID), optInt8(t.EmployeeID),
		t.OwnerDisplay, optDate(t.StartDate), optDate(t.EndDate),
		t.DailyTarget, t.WeeklyTarget, t.MonthlyTarget, t.QuarterlyTarget, t.YearlyTarget,
		t.DocStatus, t.AchievedTotal,
		t.DailyTargetCurrent, t.MonthlyTargetCurrent, t.QuarterlyTargetCurrent, t.YearlyTargetCurrent,
		t.YearlyProgress, t.QuarterlyProgress, t.MonthlyProgress, t.WeeklyProgress, t.DailyProgress,
	).Scan(&id)
	return id, err
}

func (r *repository) Update(ctx context.Context, t Target) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sales_targets SET
			target_level = $2, company_id = $3, department_id = $4, parent_department_id = $5,
			employee_id = $6, owner_display = $7, start_date = $8, end_date = $9,
			daily_target = $10, weekly_target = $11, monthly_target = $12,
			quarterly_target = $13, yearly_target = $14,
			achieved_total = $15,
			daily_target_current = $16, monthly_target_current = $17,
			quarterly_target_current = $18, yearly_target_current = $19,
			yearly_progress = $20, quarterly_progress = $21, monthly_progress = $22,
			weekly_progress = $23, daily_progress = $24,
			updated_at = NOW()
		WHERE id = $1`,
		t.ID,
		t.Level, optInt8(t.CompanyID), optInt8(t.DepartmentID), optInt8(t.ParentDepartmentID),
		optInt8(t.EmployeeID), t.OwnerDisplay, optDate(t.StartDate), optDate(t.EndDate),
		t.DailyTarget, t.WeeklyTarget, t.MonthlyTarget, t.QuarterlyTarget, t.YearlyTarget,
		t.AchievedTotal,
		t.DailyTargetCurrent, t.MonthlyTargetCurrent, t.QuarterlyTargetCurrent, t.YearlyTargetCurrent,
		t.YearlyProgress, t.QuarterlyProgress, t.MonthlyProgress, t.WeeklyProgress, t.DailyProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDerived is the partial write used by the scheduled refresh. It
// deliberately leaves updated_at untouched so a tick does not masquerade
// as a user edit.
func (r *repository) UpdateDerived(ctx context.Context, id int64, d DerivedFields) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sales_targets SET
			achieved_total = $2,
			daily_target_current = $3, monthly_target_current = $4,
			quarterly_target_current = $5, yearly_target_current = $6,
			yearly_progress = $7, quarterly_progress = $8, monthly_progress = $9,
			weekly_progress = $10, daily_progress = $11
		WHERE id = $1`,
		id,
		d.AchievedTotal,
		d.DailyTargetCurrent, d.MonthlyTargetCurrent, d.QuarterlyTargetCurrent, d.YearlyTargetCurrent,
		d.YearlyProgress, d.QuarterlyProgress, d.MonthlyProgress, d.WeeklyProgress, d.DailyProgress,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) UpdateDocStatus(ctx context.Context, id int64, status DocStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sales_targets SET docstatus = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SumCurrentTarget totals COALESCE(current, nominal) for active targets
// covering the as-of date. Cancelled targets never contribute.
func (r *repository) SumCurrentTarget(ctx context.Context, f CurrentTargetFilter) (float64, error) {
	currentCol, nominalCol, err := granularityColumns(f.Granularity)
	if err != nil {
		return 0, err
	}

	conditions := []string{"docstatus < 2", "target_level = $1", "start_date <= $2", "end_date >= $2"}
	args := []interface{}{f.Level, calendarDate(f.AsOf)}
	argPos := 3

	if f.CompanyID != nil {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argPos))
		args = append(args, *f.CompanyID)
		argPos++
	}
	if f.DepartmentID != nil {
		conditions = append(conditions, fmt.Sprintf("department_id = $%d", argPos))
		args = append(args, *f.DepartmentID)
		argPos++
	}

	whereClause := conditions[0]
	for i := 1; i < len(conditions); i++ {
		whereClause += " AND " + conditions[i]
	}

	query := fmt.Sprintf(
		`SELECT COALESCE(SUM(COALESCE(NULLIF(%s, 0), %s, 0)), 0) FROM sales_targets WHERE %s`,
		currentCol, nominalCol, whereClause)

	var total float64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func granularityColumns(g Granularity) (current, nominal string, err error) {
	switch g {
	case GranularityDaily:
		return "daily_target_current", "daily_target", nil
	case GranularityMonthly:
		return "monthly_target_current", "monthly_target", nil
	case GranularityQuarterly:
		return "quarterly_target_current", "quarterly_target", nil
	case GranularityYearly:
		return "yearly_target_current", "yearly_target", nil
	}
	return "", "", fmt.Errorf("targets: unknown granularity %q", g)
}

func scanTarget(row pgx.Row) (*Target, error) {
	var t Target
	var companyID, departmentID, parentDepartmentID, employeeID pgtype.Int8
	var startDate, endDate pgtype.Date
	var ownerDisplay pgtype.Text
	var createdAt, updatedAt pgtype.Timestamptz

	err := row.Scan(
		&t.ID, &t.Level, &companyID, &departmentID, &parentDepartmentID, &employeeID,
		&ownerDisplay, &startDate, &endDate,
		&t.DailyTarget, &t.WeeklyTarget, &t.MonthlyTarget, &t.QuarterlyTarget, &t.YearlyTarget,
		&t.DocStatus, &t.AchievedTotal,
		&t.DailyTargetCurrent, &t.MonthlyTargetCurrent, &t.QuarterlyTargetCurrent, &t.YearlyTargetCurrent,
		&t.YearlyProgress, &t.QuarterlyProgress, &t.MonthlyProgress, &t.WeeklyProgress, &t.DailyProgress,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.CompanyID = int8Ptr(companyID)
	t.DepartmentID = int8Ptr(departmentID)
	t.ParentDepartmentID = int8Ptr(parentDepartmentID)
	t.EmployeeID = int8Ptr(employeeID)
	if ownerDisplay.Valid {
		t.OwnerDisplay = ownerDisplay.String
	}
	if startDate.Valid {
		t.StartDate = startDate.Time
	}
	if endDate.Valid {
		t.EndDate = endDate.Time
	}
	if createdAt.Valid {
		t.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		t.UpdatedAt = updatedAt.Time
	}
	return &t, nil
}

func int8Ptr(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	val := v.Int64
	return &val
}

func optInt8(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func optDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func calendarDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: true}
}
