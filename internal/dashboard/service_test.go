package dashboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salespulse/salespulse/internal/directory"
	"github.com/salespulse/salespulse/internal/sales"
	"github.com/salespulse/salespulse/internal/targets"
)

type mockSales struct {
	revenue        float64
	outstanding    float64
	collected      float64
	atRisk         float64
	overdue        []sales.OverdueInvoice
	leakage        []sales.LeakageRow
	pipeline       []sales.PipelineRow
	statusCounts   []sales.StatusCount
	revenueCalls   int
	collectedCalls int
	overdueCalls   int
	pipelineCalls  int
}

func (m *mockSales) CompanyInvoiceTotal(_ context.Context, _ *int64, _, _ time.Time) (float64, error) {
	return m.revenue, nil
}

func (m *mockSales) AllocatedTotal(_ context.Context, _ []int64, _, _ time.Time) (float64, error) {
	return m.revenue, nil
}

func (m *mockSales) RevenueAndOutstanding(_ context.Context, _ sales.InvoiceScope, _, _ time.Time) (sales.RevenueSnapshot, error) {
	m.revenueCalls++
	return sales.RevenueSnapshot{Revenue: m.revenue, Outstanding: m.outstanding}, nil
}

func (m *mockSales) OutstandingAtRisk(_ context.Context, _ sales.InvoiceScope, _, _ time.Time) (float64, error) {
	return m.atRisk, nil
}

func (m *mockSales) OverdueInvoices(_ context.Context, _ sales.InvoiceScope, _ time.Time) ([]sales.OverdueInvoice, error) {
	m.overdueCalls++
	return m.overdue, nil
}

func (m *mockSales) LeakageRows(_ context.Context, _ sales.InvoiceScope, _, _ time.Time) ([]sales.LeakageRow, error) {
	return m.leakage, nil
}

func (m *mockSales) CollectedBetween(_ context.Context, _ sales.InvoiceScope, _, _ time.Time) (float64, error) {
	m.collectedCalls++
	return m.collected, nil
}

func (m *mockSales) OpenPipeline(_ context.Context, _ sales.InvoiceScope, _, _ time.Time) ([]sales.PipelineRow, error) {
	m.pipelineCalls++
	return m.pipeline, nil
}

func (m *mockSales) OpportunityStatusCounts(_ context.Context, _ sales.InvoiceScope) ([]sales.StatusCount, error) {
	return m.statusCounts, nil
}

type mockTargets struct {
	sum     float64
	list    []targets.Target
	sumArgs []targets.CurrentTargetFilter
}

func (m *mockTargets) SumCurrentTarget(_ context.Context, f targets.CurrentTargetFilter) (float64, error) {
	m.sumArgs = append(m.sumArgs, f)
	return m.sum, nil
}

func (m *mockTargets) List(_ context.Context, _ targets.ListTargetsRequest) ([]targets.Target, int, error) {
	return m.list, len(m.list), nil
}

type mockDirectory struct {
	employees      []int64
	salesPeople    []int64
	salesPerson    *int64
	deptName       string
	empName        string
	employeeByUser map[int64]*directory.Employee
	companies      []directory.Company
	departments    []directory.Department
}

func (m *mockDirectory) EmployeeIDsByDepartment(_ context.Context, _ int64) ([]int64, error) {
	return m.employees, nil
}

func (m *mockDirectory) SalesPersonIDsByEmployees(_ context.Context, _ []int64) ([]int64, error) {
	return m.salesPeople, nil
}

func (m *mockDirectory) SalesPersonIDByEmployee(_ context.Context, _ int64) (*int64, error) {
	return m.salesPerson, nil
}

func (m *mockDirectory) DepartmentName(_ context.Context, _ int64) (string, error) {
	return m.deptName, nil
}

func (m *mockDirectory) EmployeeName(_ context.Context, _ int64) (string, error) {
	return m.empName, nil
}

func (m *mockDirectory) EmployeeByUser(_ context.Context, userID int64) (*directory.Employee, error) {
	return m.employeeByUser[userID], nil
}

func (m *mockDirectory) Companies(_ context.Context) ([]directory.Company, error) {
	return m.companies, nil
}

func (m *mockDirectory) Departments(_ context.Context) ([]directory.Department, error) {
	return m.departments, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newCachedService(t *testing.T, ts *mockTargets, ms *mockSales, dir *mockDirectory, now time.Time) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewCache(client, 5*time.Minute)
	return NewService(ts, ms, dir, cache,
		Config{FinancingRatePct: 12, RiskWindowDays: 30},
		func() time.Time { return now })
}

func TestPeriodRanges(t *testing.T) {
	ref := date(2024, time.May, 17)

	assert.Equal(t, Period{From: ref, To: ref}, PeriodFor(ViewDaily, ref))
	assert.Equal(t,
		Period{From: date(2024, time.May, 1), To: date(2024, time.May, 31)},
		PeriodFor(ViewMonthly, ref))
	assert.Equal(t,
		Period{From: date(2024, time.April, 1), To: date(2024, time.June, 30)},
		PeriodFor(ViewQuarterly, ref))
	assert.Equal(t,
		Period{From: date(2024, time.January, 1), To: date(2024, time.December, 31)},
		PeriodFor(ViewYearly, ref))

	next := NextPeriodFor(ViewMonthly, ref)
	assert.Equal(t, date(2024, time.June, 1), next.From)
	assert.Equal(t, date(2024, time.June, 30), next.To)
}

func TestCoverageStatusThresholds(t *testing.T) {
	cases := []struct {
		name     string
		target   float64
		coverage float64
		want     string
	}{
		{"no target", 0, 0, "No Target"},
		{"healthy at exactly 100", 1000, 100, "Healthy"},
		{"watch at 70", 1000, 70, "Watch"},
		{"watch below 100", 1000, 99.9, "Watch"},
		{"weak below 70", 1000, 69.9, "Weak"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, coverageStatus(tc.target, tc.coverage))
		})
	}
}

func TestPacingStatusThresholds(t *testing.T) {
	cases := []struct {
		name     string
		actual   float64
		expected float64
		want     string
	}{
		{"no target", 50, 0, "No Target"},
		{"ahead above 100", 110, 100, "Ahead"},
		{"ahead at exactly 100", 100, 100, "Ahead"},
		{"on pace at 95", 95, 100, "On Pace"},
		{"on pace just under 100", 99.9, 100, "On Pace"},
		{"behind under 95", 94, 100, "Behind"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, pacingStatus(tc.actual, tc.expected))
		})
	}
}

func TestCollectionFlags(t *testing.T) {
	assert.Equal(t, "Strong", collectionFlag(95))
	assert.Equal(t, "Strong", collectionFlag(90))
	assert.Equal(t, "Stable", collectionFlag(75))
	assert.Equal(t, "Weak", collectionFlag(69.9))
}

func TestCompanyCoverageWeightsPipeline(t *testing.T) {
	ts := &mockTargets{sum: 1000}
	ms := &mockSales{pipeline: []sales.PipelineRow{
		{Amount: 1000, Probability: 50},
		{Amount: 400, Probability: 100},
	}}
	svc := newCachedService(t, ts, ms, &mockDirectory{}, date(2024, time.May, 17))

	overview, err := svc.CompanyOverview(context.Background(), nil, ViewMonthly)
	require.NoError(t, err)

	assert.Equal(t, 900.0, overview.Coverage.WeightedPipeline)
	assert.Equal(t, 90.0, overview.Coverage.CoveragePct)
	assert.Equal(t, "Watch", overview.Coverage.Status)
	// Coverage looks at the period after the current one.
	require.Len(t, ts.sumArgs, 1)
	assert.Equal(t, date(2024, time.June, 1), ts.sumArgs[0].AsOf)
	assert.Equal(t, targets.LevelCompany, ts.sumArgs[0].Level)
}

func TestCompanyFunnelNormalizesStatuses(t *testing.T) {
	ts := &mockTargets{}
	ms := &mockSales{statusCounts: []sales.StatusCount{
		{Status: "Open", Count: 3},
		{Status: "Replied", Count: 2},
		{Status: "Quotation", Count: 4},
		{Status: "Converted", Count: 6},
		{Status: "Lost", Count: 2},
	}}
	svc := newCachedService(t, ts, ms, &mockDirectory{}, date(2024, time.May, 17))

	overview, err := svc.CompanyOverview(context.Background(), nil, ViewMonthly)
	require.NoError(t, err)

	funnel := overview.Funnel
	assert.Equal(t, []FunnelBucket{
		{Status: "Open", Count: 5},
		{Status: "Proposal", Count: 4},
		{Status: "Won", Count: 6},
		{Status: "Lost", Count: 2},
	}, funnel.Buckets)
	assert.Equal(t, 75.0, funnel.ConversionPct)
}

func TestCachedSectionsSkipStoreWithinTTL(t *testing.T) {
	ts := &mockTargets{sum: 1000}
	ms := &mockSales{revenue: 500, collected: 450}
	dir := &mockDirectory{employees: []int64{1}, salesPeople: []int64{10}, deptName: "Field Sales"}
	svc := newCachedService(t, ts, ms, dir, date(2024, time.May, 17))

	_, err := svc.DepartmentOverview(context.Background(), 5, ViewMonthly)
	require.NoError(t, err)
	firstOverdue := ms.overdueCalls
	firstRevenue := ms.revenueCalls
	firstCollected := ms.collectedCalls

	_, err = svc.DepartmentOverview(context.Background(), 5, ViewMonthly)
	require.NoError(t, err)

	assert.Equal(t, firstOverdue, ms.overdueCalls, "delay cost must come from cache")
	// KPIs are cached, so no further revenue reads happen.
	assert.Equal(t, firstRevenue, ms.revenueCalls)
	// Pacing stays live, so exactly one extra collection read happens.
	assert.Equal(t, firstCollected+1, ms.collectedCalls)
}

func TestDepartmentPacingDailyUsesCollections(t *testing.T) {
	ts := &mockTargets{sum: 100}
	ms := &mockSales{revenue: 1000, collected: 96}
	dir := &mockDirectory{employees: []int64{1}, salesPeople: []int64{10}}
	svc := newCachedService(t, ts, ms, dir, date(2024, time.May, 17))

	overview, err := svc.DepartmentOverview(context.Background(), 5, ViewDaily)
	require.NoError(t, err)

	assert.Equal(t, 96.0, overview.Pacing.Actual, "daily pacing compares collections, not revenue")
	assert.Equal(t, "On Pace", overview.Pacing.Status)
	assert.Equal(t, -4.0, overview.Pacing.Slippage)
}

func TestDepartmentPacingMonthlyUsesCollections(t *testing.T) {
	ts := &mockTargets{sum: 500}
	ms := &mockSales{revenue: 1000, collected: 450}
	dir := &mockDirectory{employees: []int64{1}, salesPeople: []int64{10}}
	svc := newCachedService(t, ts, ms, dir, date(2024, time.May, 17))

	overview, err := svc.DepartmentOverview(context.Background(), 5, ViewMonthly)
	require.NoError(t, err)

	assert.Equal(t, 450.0, overview.Pacing.Actual, "pacing compares collections, not billed revenue")
	assert.Equal(t, -50.0, overview.Pacing.Slippage)
	assert.Equal(t, "Behind", overview.Pacing.Status)
}

func TestDepartmentCoverageScopesTargets(t *testing.T) {
	ts := &mockTargets{sum: 1000}
	ms := &mockSales{pipeline: []sales.PipelineRow{
		{Amount: 1600, Probability: 50},
	}}
	dir := &mockDirectory{employees: []int64{1}, salesPeople: []int64{10}}
	svc := newCachedService(t, ts, ms, dir, date(2024, time.May, 17))

	overview, err := svc.DepartmentOverview(context.Background(), 5, ViewMonthly)
	require.NoError(t, err)

	assert.Equal(t, 800.0, overview.Coverage.WeightedPipeline)
	assert.Equal(t, 80.0, overview.Coverage.CoveragePct)
	assert.Equal(t, "Watch", overview.Coverage.Status)
	// The coverage sum reads department targets for the next period.
	require.NotEmpty(t, ts.sumArgs)
	assert.Equal(t, targets.LevelDepartment, ts.sumArgs[0].Level)
	require.NotNil(t, ts.sumArgs[0].DepartmentID)
	assert.Equal(t, int64(5), *ts.sumArgs[0].DepartmentID)
	assert.Equal(t, date(2024, time.June, 1), ts.sumArgs[0].AsOf)
}

func TestDelayCostBucketsAndRate(t *testing.T) {
	now := date(2024, time.May, 17)
	ts := &mockTargets{}
	ms := &mockSales{overdue: []sales.OverdueInvoice{
		{InvoiceID: 1, CustomerName: "Acme", DueDate: now.AddDate(0, 0, -10), Outstanding: 1000},
		{InvoiceID: 2, CustomerName: "Globex", DueDate: now.AddDate(0, 0, -45), Outstanding: 2000},
		{InvoiceID: 3, CustomerName: "Acme", DueDate: now.AddDate(0, 0, -120), Outstanding: 500},
	}}
	dir := &mockDirectory{employees: []int64{1}, salesPeople: []int64{10}}
	svc := newCachedService(t, ts, ms, dir, now)

	overview, err := svc.DepartmentOverview(context.Background(), 5, ViewMonthly)
	require.NoError(t, err)
	delay := overview.DelayCost

	dailyRate := 12.0 / 100 / 365
	wantTotal := 1000*dailyRate*10 + 2000*dailyRate*45 + 500*dailyRate*120
	assert.InDelta(t, wantTotal, delay.TotalCost, 1e-9)

	require.Len(t, delay.Buckets, 4)
	assert.Equal(t, "0-30", delay.Buckets[0].Label)
	assert.Equal(t, 1, delay.Buckets[0].Count)
	assert.Equal(t, 1000.0, delay.Buckets[0].Outstanding)
	assert.Equal(t, "31-60", delay.Buckets[1].Label)
	assert.Equal(t, 1, delay.Buckets[1].Count)
	assert.Equal(t, 2000.0, delay.Buckets[1].Outstanding)
	assert.Equal(t, "61-90", delay.Buckets[2].Label)
	assert.Zero(t, delay.Buckets[2].Count)
	assert.Zero(t, delay.Buckets[2].Outstanding)
	assert.Equal(t, "90+", delay.Buckets[3].Label)
	assert.Equal(t, 1, delay.Buckets[3].Count)
	assert.Equal(t, 500.0, delay.Buckets[3].Outstanding)

	// Globex carries the largest cost and leads the attribution.
	require.NotEmpty(t, delay.TopCustomers)
	assert.Equal(t, "Globex", delay.TopCustomers[0].CustomerName)
}

func TestDelayCostTopCustomerLimit(t *testing.T) {
	now := date(2024, time.May, 17)
	overdue := make([]sales.OverdueInvoice, 0, 5)
	for i := int64(1); i <= 5; i++ {
		overdue = append(overdue, sales.OverdueInvoice{
			InvoiceID:    i,
			CustomerName: fmt.Sprintf("Customer %d", i),
			DueDate:      now.AddDate(0, 0, -int(i)*10),
			Outstanding:  1000,
		})
	}
	ms := &mockSales{overdue: overdue}
	dir := &mockDirectory{employees: []int64{1}, salesPeople: []int64{10}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewService(&mockTargets{}, ms, dir, NewCache(client, 5*time.Minute),
		Config{FinancingRatePct: 12, TopDelayCustomers: 3},
		func() time.Time { return now })

	overview, err := svc.DepartmentOverview(context.Background(), 5, ViewMonthly)
	require.NoError(t, err)

	assert.Len(t, overview.DelayCost.TopCustomers, 3)
	// Longest overdue carries the highest cost at equal outstanding.
	assert.Equal(t, "Customer 5", overview.DelayCost.TopCustomers[0].CustomerName)
}

func TestFilterOptions(t *testing.T) {
	dir := &mockDirectory{
		companies:   []directory.Company{{ID: 1, Name: "Initech"}},
		departments: []directory.Department{{ID: 5, Name: "Field Sales"}},
	}
	svc := newCachedService(t, &mockTargets{}, &mockSales{}, dir, date(2024, time.May, 17))

	options, err := svc.FilterOptions(context.Background())
	require.NoError(t, err)

	require.Len(t, options.Companies, 1)
	assert.Equal(t, "Initech", options.Companies[0].Name)
	require.Len(t, options.Departments, 1)
	assert.Equal(t, "Field Sales", options.Departments[0].Name)
}

func TestPersonalOverviewForUser(t *testing.T) {
	sp := int64(10)
	dir := &mockDirectory{
		salesPerson: &sp,
		empName:     "Ada Rivera",
		employeeByUser: map[int64]*directory.Employee{
			42: {ID: 3, FullName: "Ada Rivera"},
		},
	}
	ms := &mockSales{revenue: 800, collected: 700}
	svc := newCachedService(t, &mockTargets{}, ms, dir, date(2024, time.May, 17))

	overview, err := svc.PersonalOverviewForUser(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(3), overview.EmployeeID)

	_, err = svc.PersonalOverviewForUser(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestDiscountLeakagePercentages(t *testing.T) {
	ts := &mockTargets{}
	ms := &mockSales{leakage: []sales.LeakageRow{
		{InvoiceID: 1, ListTotal: 1000, BilledTotal: 900, Share: 1},
		{InvoiceID: 2, ListTotal: 500, BilledTotal: 500, Share: 0.5},
	}}
	dir := &mockDirectory{employees: []int64{1}, salesPeople: []int64{10}}
	svc := newCachedService(t, ts, ms, dir, date(2024, time.May, 17))

	overview, err := svc.DepartmentOverview(context.Background(), 5, ViewMonthly)
	require.NoError(t, err)
	leakage := overview.Leakage

	assert.Equal(t, 1250.0, leakage.ListTotal)
	assert.Equal(t, 1150.0, leakage.BilledTotal)
	assert.InDelta(t, 8.0, leakage.LeakagePct, 1e-9)
	assert.InDelta(t, 92.0, leakage.RealizationPct, 1e-9)
}

func TestPersonalOverviewBuildsTargetRoute(t *testing.T) {
	sp := int64(10)
	ts := &mockTargets{list: []targets.Target{
		{
			ID:                   1,
			Scope:                targets.IndividualScope(3, nil),
			StartDate:            date(2024, time.January, 1),
			EndDate:              date(2024, time.December, 31),
			MonthlyTarget:        1000,
			MonthlyTargetCurrent: 400,
			AchievedTotal:        600,
			MonthlyProgress:      60,
			DocStatus:            targets.DocStatusSubmitted,
		},
	}}
	ms := &mockSales{revenue: 800, collected: 700, outstanding: 100}
	dir := &mockDirectory{salesPerson: &sp, empName: "Ada Rivera"}
	svc := newCachedService(t, ts, ms, dir, date(2024, time.May, 17))

	overview, err := svc.PersonalOverview(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "Ada Rivera", overview.EmployeeName)
	assert.Equal(t, 800.0, overview.Revenue)
	require.Len(t, overview.Targets, 1)
	assert.Equal(t, 400.0, overview.Targets[0].MonthlyTargetCurrent)
	assert.Equal(t, 80.0, overview.AchievementPct)
}
