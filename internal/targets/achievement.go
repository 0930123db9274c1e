package targets

import (
	"context"
	"fmt"
	"time"
)

// SalesReader exposes the invoice sums the aggregator needs. Only
// submitted invoices are visible through this interface.
type SalesReader interface {
	// CompanyInvoiceTotal sums invoice grand totals in [from, to],
	// optionally restricted to one company.
	CompanyInvoiceTotal(ctx context.Context, companyID *int64, from, to time.Time) (float64, error)
	// AllocatedTotal sums the sales-team allocated amounts attributed to
	// the given sales people for invoices posted in [from, to].
	AllocatedTotal(ctx context.Context, salesPersonIDs []int64, from, to time.Time) (float64, error)
}

// DirectoryReader resolves organizational structure: employees,
// departments, sales-person links and holiday calendars.
type DirectoryReader interface {
	EmployeeIDsByDepartment(ctx context.Context, departmentID int64) ([]int64, error)
	SalesPersonIDsByEmployees(ctx context.Context, employeeIDs []int64) ([]int64, error)
	SalesPersonIDByEmployee(ctx context.Context, employeeID int64) (*int64, error)
	EmployeeDepartment(ctx context.Context, employeeID int64) (*int64, error)
	ParentDepartment(ctx context.Context, departmentID int64) (*int64, error)
	HolidaysBetween(ctx context.Context, calendar string, from, to time.Time) ([]time.Time, error)
	CompanyName(ctx context.Context, companyID int64) (string, error)
	DepartmentName(ctx context.Context, departmentID int64) (string, error)
	EmployeeName(ctx context.Context, employeeID int64) (string, error)
}

// Aggregator computes recognized revenue attributable to a target's
// scope within an arbitrary window. It holds no state between calls;
// every invocation re-reads the transaction store.
type Aggregator struct {
	sales     SalesReader
	directory DirectoryReader
}

// NewAggregator wires the aggregator's read dependencies.
func NewAggregator(sales SalesReader, directory DirectoryReader) *Aggregator {
	return &Aggregator{sales: sales, directory: directory}
}

// AchievedBetween sums recognized revenue for the target's scope over
// [from, to] inclusive. An unresolvable scope (department with no
// employees, employee without a sales-person link) yields 0, never an
// unscoped total. Store failures propagate.
func (a *Aggregator) AchievedBetween(ctx context.Context, scope Scope, from, to time.Time) (float64, error) {
	if from.IsZero() || to.IsZero() {
		return 0, nil
	}

	switch scope.Level {
	case LevelCompany:
		total, err := a.sales.CompanyInvoiceTotal(ctx, scope.CompanyID, from, to)
		if err != nil {
			return 0, fmt.Errorf("targets: company achieved: %w", err)
		}
		return total, nil

	case LevelDepartment:
		if scope.DepartmentID == nil {
			return 0, nil
		}
		employees, err := a.directory.EmployeeIDsByDepartment(ctx, *scope.DepartmentID)
		if err != nil {
			return 0, fmt.Errorf("targets: department employees: %w", err)
		}
		if len(employees) == 0 {
			return 0, nil
		}
		salesPeople, err := a.directory.SalesPersonIDsByEmployees(ctx, employees)
		if err != nil {
			return 0, fmt.Errorf("targets: department sales people: %w", err)
		}
		return a.allocated(ctx, salesPeople, from, to)

	case LevelIndividual:
		if scope.EmployeeID == nil {
			return 0, nil
		}
		salesPerson, err := a.directory.SalesPersonIDByEmployee(ctx, *scope.EmployeeID)
		if err != nil {
			return 0, fmt.Errorf("targets: employee sales person: %w", err)
		}
		if salesPerson == nil {
			return 0, nil
		}
		return a.allocated(ctx, []int64{*salesPerson}, from, to)
	}
	return 0, nil
}

func (a *Aggregator) allocated(ctx context.Context, salesPersonIDs []int64, from, to time.Time) (float64, error) {
	if len(salesPersonIDs) == 0 {
		return 0, nil
	}
	total, err := a.sales.AllocatedTotal(ctx, salesPersonIDs, from, to)
	if err != nil {
		return 0, fmt.Errorf("targets: allocated total: %w", err)
	}
	return total, nil
}
