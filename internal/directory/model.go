// Package directory exposes read-only views of the organizational
// structure: companies, departments, employees, sales-person links and
// holiday calendars. Targets and dashboards resolve scopes through it;
// the records themselves are mastered elsewhere.
package directory

import "time"

type Company struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

type Department struct {
	ID       int64  `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	ParentID *int64 `json:"parent_id,omitempty" db:"parent_department_id"`
}

type Employee struct {
	ID           int64  `json:"id" db:"id"`
	UserID       *int64 `json:"user_id,omitempty" db:"user_id"`
	FullName     string `json:"full_name" db:"full_name"`
	DepartmentID *int64 `json:"department_id,omitempty" db:"department_id"`
	CompanyID    *int64 `json:"company_id,omitempty" db:"company_id"`
}

type SalesPerson struct {
	ID         int64  `json:"id" db:"id"`
	EmployeeID *int64 `json:"employee_id,omitempty" db:"employee_id"`
	Name       string `json:"name" db:"name"`
	Enabled    bool   `json:"enabled" db:"enabled"`
}

type Holiday struct {
	Calendar string    `json:"calendar" db:"calendar"`
	Date     time.Time `json:"date" db:"holiday_date"`
}
