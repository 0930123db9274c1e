package targets

import (
	"context"
	"sync"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type stubSales struct {
	companyTotal float64
	companyCalls int

	// allocated revenue per sales person; AllocatedTotal sums the
	// entries for the requested IDs.
	allocated  map[int64]float64
	allocCalls [][]int64

	err error
}

func (s *stubSales) CompanyInvoiceTotal(_ context.Context, _ *int64, _, _ time.Time) (float64, error) {
	s.companyCalls++
	return s.companyTotal, s.err
}

func (s *stubSales) AllocatedTotal(_ context.Context, salesPersonIDs []int64, _, _ time.Time) (float64, error) {
	s.allocCalls = append(s.allocCalls, salesPersonIDs)
	if s.err != nil {
		return 0, s.err
	}
	var total float64
	for _, id := range salesPersonIDs {
		total += s.allocated[id]
	}
	return total, nil
}

type stubDirectory struct {
	employeesByDept       map[int64][]int64
	salesPersonByEmployee map[int64]int64
	departmentByEmployee  map[int64]int64
	parentByDepartment    map[int64]int64
	holidays              []time.Time
	companyNames          map[int64]string
	departmentNames       map[int64]string
	employeeNames         map[int64]string
}

func (d *stubDirectory) EmployeeIDsByDepartment(_ context.Context, departmentID int64) ([]int64, error) {
	return d.employeesByDept[departmentID], nil
}

func (d *stubDirectory) SalesPersonIDsByEmployees(_ context.Context, employeeIDs []int64) ([]int64, error) {
	var out []int64
	for _, e := range employeeIDs {
		if sp, ok := d.salesPersonByEmployee[e]; ok {
			out = append(out, sp)
		}
	}
	return out, nil
}

func (d *stubDirectory) SalesPersonIDByEmployee(_ context.Context, employeeID int64) (*int64, error) {
	sp, ok := d.salesPersonByEmployee[employeeID]
	if !ok {
		return nil, nil
	}
	return &sp, nil
}

func (d *stubDirectory) EmployeeDepartment(_ context.Context, employeeID int64) (*int64, error) {
	dep, ok := d.departmentByEmployee[employeeID]
	if !ok {
		return nil, nil
	}
	return &dep, nil
}

func (d *stubDirectory) ParentDepartment(_ context.Context, departmentID int64) (*int64, error) {
	parent, ok := d.parentByDepartment[departmentID]
	if !ok {
		return nil, nil
	}
	return &parent, nil
}

func (d *stubDirectory) HolidaysBetween(_ context.Context, _ string, from, to time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, h := range d.holidays {
		if !h.Before(from) && !h.After(to) {
			out = append(out, h)
		}
	}
	return out, nil
}

func (d *stubDirectory) CompanyName(_ context.Context, id int64) (string, error) {
	return d.companyNames[id], nil
}

func (d *stubDirectory) DepartmentName(_ context.Context, id int64) (string, error) {
	return d.departmentNames[id], nil
}

func (d *stubDirectory) EmployeeName(_ context.Context, id int64) (string, error) {
	return d.employeeNames[id], nil
}

// memRepo is an in-memory Repository for service-level tests.
type memRepo struct {
	mu           sync.Mutex
	targets      map[int64]Target
	nextID       int64
	derivedSaves int
}

func newMemRepo() *memRepo {
	return &memRepo{targets: make(map[int64]Target)}
}

func (r *memRepo) Get(_ context.Context, id int64) (*Target, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := t
	return &copied, nil
}

func (r *memRepo) List(_ context.Context, req ListTargetsRequest) ([]Target, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Target
	for _, t := range r.targets {
		if req.Level != nil && t.Level != *req.Level {
			continue
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (r *memRepo) ListIDsPage(_ context.Context, afterID int64, limit int) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id := afterID + 1; id <= r.nextID && len(ids) < limit; id++ {
		if _, ok := r.targets[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memRepo) Create(_ context.Context, t Target) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	r.targets[t.ID] = t
	return t.ID, nil
}

func (r *memRepo) Update(_ context.Context, t Target) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[t.ID]; !ok {
		return ErrNotFound
	}
	r.targets[t.ID] = t
	return nil
}

func (r *memRepo) UpdateDerived(_ context.Context, id int64, d DerivedFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok {
		return ErrNotFound
	}
	t.AchievedTotal = d.AchievedTotal
	t.DailyTargetCurrent = d.DailyTargetCurrent
	t.MonthlyTargetCurrent = d.MonthlyTargetCurrent
	t.QuarterlyTargetCurrent = d.QuarterlyTargetCurrent
	t.YearlyTargetCurrent = d.YearlyTargetCurrent
	t.YearlyProgress = d.YearlyProgress
	t.QuarterlyProgress = d.QuarterlyProgress
	t.MonthlyProgress = d.MonthlyProgress
	t.WeeklyProgress = d.WeeklyProgress
	t.DailyProgress = d.DailyProgress
	r.targets[id] = t
	r.derivedSaves++
	return nil
}

func (r *memRepo) UpdateDocStatus(_ context.Context, id int64, status DocStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[id]
	if !ok {
		return ErrNotFound
	}
	t.DocStatus = status
	r.targets[id] = t
	return nil
}

func (r *memRepo) SumCurrentTarget(_ context.Context, f CurrentTargetFilter) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total float64
	for _, t := range r.targets {
		if t.DocStatus == DocStatusCancelled || t.Level != f.Level {
			continue
		}
		if !t.HasPeriod() || f.AsOf.Before(t.StartDate) || f.AsOf.After(t.EndDate) {
			continue
		}
		switch f.Granularity {
		case GranularityDaily:
			total += pick(t.DailyTargetCurrent, t.DailyTarget)
		case GranularityMonthly:
			total += pick(t.MonthlyTargetCurrent, t.MonthlyTarget)
		case GranularityQuarterly:
			total += pick(t.QuarterlyTargetCurrent, t.QuarterlyTarget)
		case GranularityYearly:
			total += pick(t.YearlyTargetCurrent, t.YearlyTarget)
		}
	}
	return total, nil
}

func pick(current, nominal float64) float64 {
	if current != 0 {
		return current
	}
	return nominal
}
