package directory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository satisfies the scope-resolution reads of the targets and
// dashboard subsystems. Name lookups return an empty string for missing
// records so derived display labels degrade instead of failing.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) EmployeeIDsByDepartment(ctx context.Context, departmentID int64) ([]int64, error) {
	return r.collectIDs(ctx,
		`SELECT id FROM employees WHERE department_id = $1 AND active`, departmentID)
}

// SalesPersonIDsByEmployees maps employees to their enabled sales-person
// records. Employees without one are silently skipped.
func (r *Repository) SalesPersonIDsByEmployees(ctx context.Context, employeeIDs []int64) ([]int64, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}
	return r.collectIDs(ctx,
		`SELECT id FROM sales_persons WHERE employee_id = ANY($1) AND enabled`, employeeIDs)
}

func (r *Repository) SalesPersonIDByEmployee(ctx context.Context, employeeID int64) (*int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`SELECT id FROM sales_persons WHERE employee_id = $1 AND enabled ORDER BY id LIMIT 1`,
		employeeID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (r *Repository) EmployeeDepartment(ctx context.Context, employeeID int64) (*int64, error) {
	var dep pgtype.Int8
	err := r.pool.QueryRow(ctx,
		`SELECT department_id FROM employees WHERE id = $1`, employeeID).Scan(&dep)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !dep.Valid {
		return nil, nil
	}
	return &dep.Int64, nil
}

func (r *Repository) ParentDepartment(ctx context.Context, departmentID int64) (*int64, error) {
	var parent pgtype.Int8
	err := r.pool.QueryRow(ctx,
		`SELECT parent_department_id FROM departments WHERE id = $1`, departmentID).Scan(&parent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !parent.Valid {
		return nil, nil
	}
	return &parent.Int64, nil
}

func (r *Repository) HolidaysBetween(ctx context.Context, calendar string, from, to time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT holiday_date FROM holidays WHERE calendar = $1 AND holiday_date BETWEEN $2 AND $3
		 ORDER BY holiday_date`, calendar, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var d pgtype.Date
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d.Time)
	}
	return out, rows.Err()
}

func (r *Repository) CompanyName(ctx context.Context, companyID int64) (string, error) {
	return r.lookupName(ctx, `SELECT name FROM companies WHERE id = $1`, companyID)
}

func (r *Repository) DepartmentName(ctx context.Context, departmentID int64) (string, error) {
	return r.lookupName(ctx, `SELECT name FROM departments WHERE id = $1`, departmentID)
}

func (r *Repository) EmployeeName(ctx context.Context, employeeID int64) (string, error) {
	return r.lookupName(ctx, `SELECT full_name FROM employees WHERE id = $1`, employeeID)
}

// EmployeeByUser resolves the employee record behind a login, used by
// the personal dashboard. Returns nil when the user has no employee.
func (r *Repository) EmployeeByUser(ctx context.Context, userID int64) (*Employee, error) {
	var e Employee
	var uid, dep, comp pgtype.Int8
	err := r.pool.QueryRow(ctx,
		`SELECT id, user_id, full_name, department_id, company_id
		 FROM employees WHERE user_id = $1 AND active`, userID).
		Scan(&e.ID, &uid, &e.FullName, &dep, &comp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if uid.Valid {
		e.UserID = &uid.Int64
	}
	if dep.Valid {
		e.DepartmentID = &dep.Int64
	}
	if comp.Valid {
		e.CompanyID = &comp.Int64
	}
	return &e, nil
}

func (r *Repository) Companies(ctx context.Context) ([]Company, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) Departments(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, parent_department_id FROM departments ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		var d Department
		var parent pgtype.Int8
		if err := rows.Scan(&d.ID, &d.Name, &parent); err != nil {
			return nil, err
		}
		if parent.Valid {
			d.ParentID = &parent.Int64
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *Repository) collectIDs(ctx context.Context, query string, args ...interface{}) ([]int64, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) lookupName(ctx context.Context, query string, id int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx, query, id).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}
