package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/salespulse/salespulse/internal/calendar"
	"github.com/salespulse/salespulse/internal/sales"
	"github.com/salespulse/salespulse/internal/targets"
)

// DepartmentKPIs is the revenue/collection snapshot for one department.
type DepartmentKPIs struct {
	Period              Period  `json:"period"`
	Revenue             float64 `json:"revenue"`
	Collected           float64 `json:"collected"`
	Outstanding         float64 `json:"outstanding"`
	CollectionMonthPct  float64 `json:"collection_month_pct"`
	CollectionMonthFlag string  `json:"collection_month_flag"`
	CollectionQtrPct    float64 `json:"collection_rolling3_pct"`
	CollectionQtrFlag   string  `json:"collection_rolling3_flag"`
}

// Pacing compares the window's collections against the summed target
// for the view mode's granularity.
type Pacing struct {
	Mode      ViewMode `json:"mode"`
	Period    Period   `json:"period"`
	Actual    float64  `json:"actual"`
	Expected  float64  `json:"expected"`
	Slippage  float64  `json:"slippage"`
	Status    string   `json:"status"`
	TargetSum float64  `json:"target_sum"`
}

// Leakage summarizes billed-below-list discounting.
type Leakage struct {
	Period         Period  `json:"period"`
	ListTotal      float64 `json:"list_total"`
	BilledTotal    float64 `json:"billed_total"`
	LeakagePct     float64 `json:"leakage_pct"`
	RealizationPct float64 `json:"net_realization_pct"`
}

// AgingBucket is one overdue band of the delay-cost report.
type AgingBucket struct {
	Label       string  `json:"label"`
	Count       int     `json:"count"`
	Outstanding float64 `json:"outstanding"`
	Cost        float64 `json:"cost"`
}

// CustomerDelayCost attributes delay cost to one customer.
type CustomerDelayCost struct {
	CustomerName string  `json:"customer_name"`
	Outstanding  float64 `json:"outstanding"`
	Cost         float64 `json:"cost"`
}

// DelayCost prices overdue receivables at the configured financing
// rate.
type DelayCost struct {
	AsOf         time.Time           `json:"as_of"`
	TotalCost    float64             `json:"total_cost"`
	Buckets      []AgingBucket       `json:"buckets"`
	TopCustomers []CustomerDelayCost `json:"top_customers"`
}

// DepartmentOverview bundles the department dashboard sections.
type DepartmentOverview struct {
	DepartmentID   int64          `json:"department_id"`
	DepartmentName string         `json:"department_name"`
	Coverage       Coverage       `json:"coverage"`
	KPIs           DepartmentKPIs `json:"kpis"`
	Pacing         Pacing         `json:"pacing"`
	Leakage        Leakage        `json:"leakage"`
	DelayCost      DelayCost      `json:"delay_cost"`
}

// DepartmentOverview builds the department dashboard. Coverage and
// pacing are computed live against target sums; the other sections
// pass through the short-TTL cache.
func (s *Service) DepartmentOverview(ctx context.Context, departmentID int64, mode ViewMode) (*DepartmentOverview, error) {
	now := s.clock()
	scope, err := s.departmentScope(ctx, departmentID)
	if err != nil {
		return nil, fmt.Errorf("dashboard: department scope: %w", err)
	}
	name, err := s.directory.DepartmentName(ctx, departmentID)
	if err != nil {
		return nil, err
	}

	coverage, err := s.pipelineCoverage(ctx, targets.CurrentTargetFilter{
		Level:        targets.LevelDepartment,
		DepartmentID: &departmentID,
	}, scope, mode)
	if err != nil {
		return nil, err
	}

	pacing, err := s.departmentPacing(ctx, departmentID, scope, mode)
	if err != nil {
		return nil, err
	}

	var kpis DepartmentKPIs
	key, err := s.cache.BuildKey(ctx, keyDepartment("kpis", departmentID, mode, now)...)
	if err != nil {
		return nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &kpis, func(ctx context.Context) (interface{}, error) {
		return s.departmentKPIs(ctx, scope)
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: department kpis: %w", err)
	}

	var leakage Leakage
	key, err = s.cache.BuildKey(ctx, keyDepartment("leakage", departmentID, mode, now)...)
	if err != nil {
		return nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &leakage, func(ctx context.Context) (interface{}, error) {
		return s.discountLeakage(ctx, scope, mode)
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: leakage: %w", err)
	}

	var delay DelayCost
	key, err = s.cache.BuildKey(ctx, keyDepartment("delay", departmentID, mode, now)...)
	if err != nil {
		return nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &delay, func(ctx context.Context) (interface{}, error) {
		return s.paymentDelayCost(ctx, scope)
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: delay cost: %w", err)
	}

	return &DepartmentOverview{
		DepartmentID:   departmentID,
		DepartmentName: name,
		Coverage:       *coverage,
		KPIs:           kpis,
		Pacing:         *pacing,
		Leakage:        leakage,
		DelayCost:      delay,
	}, nil
}

// departmentPacing compares the window's collections against the
// summed department target for the granularity. Every view mode paces
// on collected money; billed revenue is reported by the KPI section.
func (s *Service) departmentPacing(ctx context.Context, departmentID int64, scope sales.InvoiceScope, mode ViewMode) (*Pacing, error) {
	now := s.clock()
	period := PeriodFor(mode, now)

	targetSum, err := s.targets.SumCurrentTarget(ctx, targets.CurrentTargetFilter{
		Level:        targets.LevelDepartment,
		Granularity:  mode.Granularity(),
		AsOf:         calendar.DayOf(now),
		DepartmentID: &departmentID,
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: department target sum: %w", err)
	}

	actual, err := s.sales.CollectedBetween(ctx, scope, period.From, period.To)
	if err != nil {
		return nil, fmt.Errorf("dashboard: pacing actual: %w", err)
	}

	p := &Pacing{
		Mode:      mode,
		Period:    period,
		Actual:    actual,
		Expected:  targetSum,
		Slippage:  actual - targetSum,
		TargetSum: targetSum,
	}
	p.Status = pacingStatus(actual, targetSum)
	return p, nil
}

func (s *Service) departmentKPIs(ctx context.Context, scope sales.InvoiceScope) (DepartmentKPIs, error) {
	now := s.clock()
	month := PeriodFor(ViewMonthly, now)

	snap, err := s.sales.RevenueAndOutstanding(ctx, scope, month.From, month.To)
	if err != nil {
		return DepartmentKPIs{}, err
	}
	collected, err := s.sales.CollectedBetween(ctx, scope, month.From, month.To)
	if err != nil {
		return DepartmentKPIs{}, err
	}

	kpis := DepartmentKPIs{
		Period:      month,
		Revenue:     snap.Revenue,
		Collected:   collected,
		Outstanding: snap.Outstanding,
	}
	if snap.Revenue > 0 {
		kpis.CollectionMonthPct = collected / snap.Revenue * 100
	}
	kpis.CollectionMonthFlag = collectionFlag(kpis.CollectionMonthPct)

	// Rolling three months including the current one.
	rollingFrom := month.From.AddDate(0, -2, 0)
	rollingSnap, err := s.sales.RevenueAndOutstanding(ctx, scope, rollingFrom, month.To)
	if err != nil {
		return DepartmentKPIs{}, err
	}
	rollingCollected, err := s.sales.CollectedBetween(ctx, scope, rollingFrom, month.To)
	if err != nil {
		return DepartmentKPIs{}, err
	}
	if rollingSnap.Revenue > 0 {
		kpis.CollectionQtrPct = rollingCollected / rollingSnap.Revenue * 100
	}
	kpis.CollectionQtrFlag = collectionFlag(kpis.CollectionQtrPct)
	return kpis, nil
}

func (s *Service) discountLeakage(ctx context.Context, scope sales.InvoiceScope, mode ViewMode) (Leakage, error) {
	now := s.clock()
	period := PeriodFor(mode, now)

	rows, err := s.sales.LeakageRows(ctx, scope, period.From, period.To)
	if err != nil {
		return Leakage{}, err
	}

	leakage := Leakage{Period: period}
	for _, row := range rows {
		leakage.ListTotal += row.ListTotal * row.Share
		leakage.BilledTotal += row.BilledTotal * row.Share
	}
	if leakage.ListTotal > 0 {
		leakage.LeakagePct = (leakage.ListTotal - leakage.BilledTotal) / leakage.ListTotal * 100
		leakage.RealizationPct = leakage.BilledTotal / leakage.ListTotal * 100
	}
	return leakage, nil
}

// paymentDelayCost prices each overdue invoice at
// rate/100/365 per day outstanding and folds the results into aging
// buckets plus a top-customer attribution.
func (s *Service) paymentDelayCost(ctx context.Context, scope sales.InvoiceScope) (DelayCost, error) {
	now := calendar.DayOf(s.clock())
	invoices, err := s.sales.OverdueInvoices(ctx, scope, now)
	if err != nil {
		return DelayCost{}, err
	}

	dailyRate := s.cfg.FinancingRatePct / 100 / 365
	buckets := make([]AgingBucket, len(agingBounds)+1)
	for i, bound := range agingBounds {
		lower := 0
		if i > 0 {
			lower = agingBounds[i-1] + 1
		}
		buckets[i].Label = fmt.Sprintf("%d-%d", lower, bound)
	}
	buckets[len(agingBounds)].Label = fmt.Sprintf("%d+", agingBounds[len(agingBounds)-1])

	byCustomer := map[string]*CustomerDelayCost{}
	report := DelayCost{AsOf: now}
	for _, inv := range invoices {
		daysOverdue := int(now.Sub(calendar.DayOf(inv.DueDate)).Hours() / 24)
		if daysOverdue <= 0 {
			continue
		}
		cost := inv.Outstanding * dailyRate * float64(daysOverdue)
		report.TotalCost += cost

		idx := len(agingBounds)
		for i, bound := range agingBounds {
			if daysOverdue <= bound {
				idx = i
				break
			}
		}
		buckets[idx].Count++
		buckets[idx].Outstanding += inv.Outstanding
		buckets[idx].Cost += cost

		entry, ok := byCustomer[inv.CustomerName]
		if !ok {
			entry = &CustomerDelayCost{CustomerName: inv.CustomerName}
			byCustomer[inv.CustomerName] = entry
		}
		entry.Outstanding += inv.Outstanding
		entry.Cost += cost
	}
	report.Buckets = buckets

	for _, entry := range byCustomer {
		report.TopCustomers = append(report.TopCustomers, *entry)
	}
	sort.Slice(report.TopCustomers, func(i, j int) bool {
		return report.TopCustomers[i].Cost > report.TopCustomers[j].Cost
	})
	if len(report.TopCustomers) > s.cfg.TopDelayCustomers {
		report.TopCustomers = report.TopCustomers[:s.cfg.TopDelayCustomers]
	}
	return report, nil
}
