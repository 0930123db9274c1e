package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/salespulse/salespulse/internal/jobs"
	"github.com/salespulse/salespulse/internal/targets"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const (
	defaultPageSize   = 200
	refreshConcurrent = 8
)

// TargetRefresher is the slice of the target service the job drives.
type TargetRefresher interface {
	ListIDsPage(ctx context.Context, afterID int64, limit int) ([]int64, error)
	Refresh(ctx context.Context, id int64, now time.Time) (*targets.Target, error)
}

// TargetsRefreshJob walks every stored target, regardless of docstatus,
// and recomputes its derived fields. Its effect on an unchanged store
// with a frozen clock is nil, so overlapping or repeated runs are safe.
type TargetsRefreshJob struct {
	Service TargetRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewTargetsRefreshJob wires dependencies for the refresh handler.
func NewTargetsRefreshJob(service TargetRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics) *TargetsRefreshJob {
	return &TargetsRefreshJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// WithClock overrides the run clock. Tests freeze it to assert
// idempotence.
func (j *TargetsRefreshJob) WithClock(clock func() time.Time) *TargetsRefreshJob {
	j.clock = clock
	return j
}

// Handle processes targets:refresh tasks. Store errors abort the run
// and surface through asynq's retry machinery.
func (j *TargetsRefreshJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("targets refresh: handler not configured")
	}
	var payload TargetsRefreshPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.PageSize <= 0 {
		payload.PageSize = defaultPageSize
	}

	tracker := j.metrics().Track(TaskTargetsRefresh)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	runID := uuid.NewString()
	now := j.clock()
	logger := j.logger().With(slog.String("run_id", runID))
	logger.Info("starting targets refresh")

	refreshed, err := j.refreshAll(ctx, payload.PageSize, now)
	if err != nil {
		resultErr = err
		logger.Error("targets refresh aborted",
			slog.Int("refreshed", refreshed), slog.Any("error", err))
		return resultErr
	}

	j.metrics().AddRefreshed(TaskTargetsRefresh, refreshed)
	logger.Info("completed targets refresh",
		slog.Int("refreshed", refreshed), slog.Duration("duration", time.Since(now)))
	return resultErr
}

// refreshAll pages through target IDs and fans each page out across a
// bounded errgroup. The shared reference date keeps one run internally
// consistent even when it straddles midnight.
func (j *TargetsRefreshJob) refreshAll(ctx context.Context, pageSize int, now time.Time) (int, error) {
	var afterID int64
	refreshed := 0
	for {
		ids, err := j.Service.ListIDsPage(ctx, afterID, pageSize)
		if err != nil {
			return refreshed, err
		}
		if len(ids) == 0 {
			return refreshed, nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(refreshConcurrent)
		for _, id := range ids {
			id := id
			g.Go(func() error {
				_, err := j.Service.Refresh(gctx, id, now)
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return refreshed, err
		}
		refreshed += len(ids)
		afterID = ids[len(ids)-1]
	}
}

func (j *TargetsRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *TargetsRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
