package dashboard

import (
	"context"
	"fmt"

	"github.com/salespulse/salespulse/internal/sales"
	"github.com/salespulse/salespulse/internal/targets"
)

// Coverage compares the weighted open pipeline closing in the next
// period against the company target for that period.
type Coverage struct {
	Mode             ViewMode `json:"mode"`
	NextPeriod       Period   `json:"next_period"`
	WeightedPipeline float64  `json:"weighted_pipeline"`
	NextPeriodTarget float64  `json:"next_period_target"`
	CoveragePct      float64  `json:"coverage_pct"`
	Status           string   `json:"status"`
}

// Waterfall decomposes the current period's revenue position.
type Waterfall struct {
	Period      Period  `json:"period"`
	Revenue     float64 `json:"revenue"`
	Collected   float64 `json:"collected"`
	Outstanding float64 `json:"outstanding"`
	AtRisk      float64 `json:"at_risk"`
}

// FunnelBucket is one normalized deal-status count.
type FunnelBucket struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Funnel is the deal-status distribution plus the conversion rate of
// closed deals.
type Funnel struct {
	Buckets       []FunnelBucket `json:"buckets"`
	ConversionPct float64        `json:"conversion_pct"`
}

// CompanyOverview bundles the company dashboard sections.
type CompanyOverview struct {
	Coverage  Coverage  `json:"coverage"`
	Waterfall Waterfall `json:"waterfall"`
	Funnel    Funnel    `json:"funnel"`
}

// CompanyOverview builds the company dashboard. companyID nil means all
// companies. Coverage is computed live; the waterfall and funnel pass
// through the short-TTL cache.
func (s *Service) CompanyOverview(ctx context.Context, companyID *int64, mode ViewMode) (*CompanyOverview, error) {
	now := s.clock()
	scope := sales.AllCompanies()
	if companyID != nil {
		scope = sales.ForCompany(*companyID)
	}

	coverage, err := s.companyCoverage(ctx, companyID, scope, mode)
	if err != nil {
		return nil, err
	}

	var waterfall Waterfall
	key, err := s.cache.BuildKey(ctx, keyCompany("waterfall", companyID, mode, now)...)
	if err != nil {
		return nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &waterfall, func(ctx context.Context) (interface{}, error) {
		return s.companyWaterfall(ctx, scope, mode)
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: waterfall: %w", err)
	}

	var funnel Funnel
	key, err = s.cache.BuildKey(ctx, keyCompany("funnel", companyID, mode, now)...)
	if err != nil {
		return nil, err
	}
	err = s.cache.FetchJSON(ctx, key, &funnel, func(ctx context.Context) (interface{}, error) {
		return s.companyFunnel(ctx, scope)
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard: funnel: %w", err)
	}

	return &CompanyOverview{Coverage: *coverage, Waterfall: waterfall, Funnel: funnel}, nil
}

func (s *Service) companyCoverage(ctx context.Context, companyID *int64, scope sales.InvoiceScope, mode ViewMode) (*Coverage, error) {
	return s.pipelineCoverage(ctx, targets.CurrentTargetFilter{
		Level:     targets.LevelCompany,
		CompanyID: companyID,
	}, scope, mode)
}

// pipelineCoverage weighs the open pipeline expected to close in the
// next period against the target sum for that period. The filter
// carries the scope dimensions; granularity and as-of are set here.
func (s *Service) pipelineCoverage(ctx context.Context, filter targets.CurrentTargetFilter, scope sales.InvoiceScope, mode ViewMode) (*Coverage, error) {
	now := s.clock()
	next := NextPeriodFor(mode, now)

	filter.Granularity = mode.Granularity()
	filter.AsOf = next.From
	target, err := s.targets.SumCurrentTarget(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("dashboard: next period target: %w", err)
	}

	rows, err := s.sales.OpenPipeline(ctx, scope, next.From, next.To)
	if err != nil {
		return nil, fmt.Errorf("dashboard: pipeline: %w", err)
	}
	var weighted float64
	for _, row := range rows {
		weighted += row.Amount * row.Probability / 100
	}

	cov := &Coverage{
		Mode:             mode,
		NextPeriod:       next,
		WeightedPipeline: weighted,
		NextPeriodTarget: target,
	}
	if target > 0 {
		cov.CoveragePct = weighted / target * 100
	}
	cov.Status = coverageStatus(target, cov.CoveragePct)
	return cov, nil
}

func (s *Service) companyWaterfall(ctx context.Context, scope sales.InvoiceScope, mode ViewMode) (Waterfall, error) {
	now := s.clock()
	period := PeriodFor(mode, now)

	snap, err := s.sales.RevenueAndOutstanding(ctx, scope, period.From, period.To)
	if err != nil {
		return Waterfall{}, err
	}
	collected, err := s.sales.CollectedBetween(ctx, scope, period.From, period.To)
	if err != nil {
		return Waterfall{}, err
	}
	atRisk, err := s.sales.OutstandingAtRisk(ctx, scope, now, now.AddDate(0, 0, s.cfg.RiskWindowDays))
	if err != nil {
		return Waterfall{}, err
	}

	return Waterfall{
		Period:      period,
		Revenue:     snap.Revenue,
		Collected:   collected,
		Outstanding: snap.Outstanding,
		AtRisk:      atRisk,
	}, nil
}

// funnelOrder fixes the bucket sequence in responses.
var funnelOrder = []string{"Open", "Proposal", "Won", "Lost", "Other"}

func (s *Service) companyFunnel(ctx context.Context, scope sales.InvoiceScope) (Funnel, error) {
	counts, err := s.sales.OpportunityStatusCounts(ctx, scope)
	if err != nil {
		return Funnel{}, err
	}

	byStatus := map[string]int{}
	for _, c := range counts {
		byStatus[normalizeDealStatus(c.Status)] += c.Count
	}

	var funnel Funnel
	for _, status := range funnelOrder {
		if n, ok := byStatus[status]; ok {
			funnel.Buckets = append(funnel.Buckets, FunnelBucket{Status: status, Count: n})
		}
	}
	won := byStatus["Won"]
	lost := byStatus["Lost"]
	if won+lost > 0 {
		funnel.ConversionPct = float64(won) / float64(won+lost) * 100
	}
	return funnel, nil
}
