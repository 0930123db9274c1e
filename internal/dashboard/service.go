// Package dashboard builds the scoped rollup views: company, department
// and personal. It only reads; targets own their derived state and the
// sales store is mastered elsewhere.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/salespulse/salespulse/internal/directory"
	"github.com/salespulse/salespulse/internal/sales"
	"github.com/salespulse/salespulse/internal/targets"
)

// Status thresholds shared by the reporters. Fixed by policy, not
// configurable.
const (
	coverageHealthyPct = 100
	coverageWatchPct   = 70
	pacingOnPacePct    = 95
	collectionStrong   = 90
	collectionStable   = 70
)

// Aging bucket upper bounds in days overdue.
var agingBounds = []int{30, 60, 90}

// ErrUnknownUser indicates a login with no active employee behind it.
var ErrUnknownUser = errors.New("no employee for user")

// TargetReader is the slice of the target store the dashboards consume.
type TargetReader interface {
	SumCurrentTarget(ctx context.Context, f targets.CurrentTargetFilter) (float64, error)
	List(ctx context.Context, req targets.ListTargetsRequest) ([]targets.Target, int, error)
}

// DirectoryReader resolves dashboard scopes to sales people and feeds
// the filter-option endpoints.
type DirectoryReader interface {
	EmployeeIDsByDepartment(ctx context.Context, departmentID int64) ([]int64, error)
	SalesPersonIDsByEmployees(ctx context.Context, employeeIDs []int64) ([]int64, error)
	SalesPersonIDByEmployee(ctx context.Context, employeeID int64) (*int64, error)
	DepartmentName(ctx context.Context, departmentID int64) (string, error)
	EmployeeName(ctx context.Context, employeeID int64) (string, error)
	EmployeeByUser(ctx context.Context, userID int64) (*directory.Employee, error)
	Companies(ctx context.Context) ([]directory.Company, error)
	Departments(ctx context.Context) ([]directory.Department, error)
}

// Clock supplies the reporting reference date.
type Clock func() time.Time

// Config carries the report tunables that are deployment-specific.
type Config struct {
	// FinancingRatePct is the annual financing rate used to price
	// payment delays, in percent.
	FinancingRatePct float64
	// RiskWindowDays bounds the at-risk horizon of the revenue
	// waterfall.
	RiskWindowDays int
	// TopDelayCustomers caps the delay-cost customer attribution,
	// clamped to [3, 12].
	TopDelayCustomers int
}

type Service struct {
	targets   TargetReader
	sales     sales.Reader
	directory DirectoryReader
	cache     *Cache
	cfg       Config
	clock     Clock
}

func NewService(targetReader TargetReader, salesReader sales.Reader, directory DirectoryReader, cache *Cache, cfg Config, clock Clock) *Service {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.RiskWindowDays <= 0 {
		cfg.RiskWindowDays = 30
	}
	switch {
	case cfg.TopDelayCustomers <= 0:
		cfg.TopDelayCustomers = 6
	case cfg.TopDelayCustomers < 3:
		cfg.TopDelayCustomers = 3
	case cfg.TopDelayCustomers > 12:
		cfg.TopDelayCustomers = 12
	}
	return &Service{
		targets:   targetReader,
		sales:     salesReader,
		directory: directory,
		cache:     cache,
		cfg:       cfg,
		clock:     clock,
	}
}

// departmentScope resolves a department to the invoice scope of its
// sales team. An empty team yields a match-nothing scope, mirroring the
// achievement rules.
func (s *Service) departmentScope(ctx context.Context, departmentID int64) (sales.InvoiceScope, error) {
	employees, err := s.directory.EmployeeIDsByDepartment(ctx, departmentID)
	if err != nil {
		return sales.InvoiceScope{}, err
	}
	if len(employees) == 0 {
		return sales.ForSalesPersons([]int64{}), nil
	}
	salesPeople, err := s.directory.SalesPersonIDsByEmployees(ctx, employees)
	if err != nil {
		return sales.InvoiceScope{}, err
	}
	if salesPeople == nil {
		salesPeople = []int64{}
	}
	return sales.ForSalesPersons(salesPeople), nil
}

// personalScope resolves one employee to their sales-person allocation
// scope.
func (s *Service) personalScope(ctx context.Context, employeeID int64) (sales.InvoiceScope, error) {
	sp, err := s.directory.SalesPersonIDByEmployee(ctx, employeeID)
	if err != nil {
		return sales.InvoiceScope{}, err
	}
	if sp == nil {
		return sales.ForSalesPersons([]int64{}), nil
	}
	return sales.ForSalesPersons([]int64{*sp}), nil
}

// FilterOptions lists the companies and departments a dashboard client
// can scope by.
type FilterOptions struct {
	Companies   []directory.Company    `json:"companies"`
	Departments []directory.Department `json:"departments"`
}

func (s *Service) FilterOptions(ctx context.Context) (*FilterOptions, error) {
	companies, err := s.directory.Companies(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: company options: %w", err)
	}
	departments, err := s.directory.Departments(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: department options: %w", err)
	}
	return &FilterOptions{Companies: companies, Departments: departments}, nil
}

func coverageStatus(target, coveragePct float64) string {
	switch {
	case target <= 0:
		return "No Target"
	case coveragePct >= coverageHealthyPct:
		return "Healthy"
	case coveragePct >= coverageWatchPct:
		return "Watch"
	default:
		return "Weak"
	}
}

func pacingStatus(actual, expected float64) string {
	if expected <= 0 {
		return "No Target"
	}
	pct := actual / expected * 100
	switch {
	case pct >= 100:
		return "Ahead"
	case pct >= pacingOnPacePct:
		return "On Pace"
	default:
		return "Behind"
	}
}

func collectionFlag(efficiencyPct float64) string {
	switch {
	case efficiencyPct >= collectionStrong:
		return "Strong"
	case efficiencyPct >= collectionStable:
		return "Stable"
	default:
		return "Weak"
	}
}

// normalizeDealStatus folds raw opportunity statuses into the funnel
// buckets used by the company dashboard.
func normalizeDealStatus(raw string) string {
	switch raw {
	case "Open", "Replied":
		return "Open"
	case "Quotation", "Negotiation":
		return "Proposal"
	case "Converted":
		return "Won"
	case "Lost", "Closed":
		return "Lost"
	default:
		return "Other"
	}
}
