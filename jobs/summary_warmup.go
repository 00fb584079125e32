package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/reports"
)

// ReportBuilder is the slice of the report service the warmup needs. Invoice
// progress is not warmed: it is keyed by a single invoice, so there is no
// bounded set of cache entries worth precomputing.
type ReportBuilder interface {
	MonthlyDetail(ctx context.Context, f reports.Filters) (reports.MonthlyDetailView, []string, error)
	PeriodSummary(ctx context.Context, f reports.Filters) (reports.PeriodSummaryView, []string, error)
}

// SummaryWarmupJob pre-computes report views for the trailing window so they
// land in the cache before anyone asks.
type SummaryWarmupJob struct {
	Pool    *pgxpool.Pool
	Builder ReportBuilder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewSummaryWarmupJob initialises the warmup handler.
func NewSummaryWarmupJob(pool *pgxpool.Pool, builder ReportBuilder, logger *slog.Logger, metrics *jobmetrics.Metrics) *SummaryWarmupJob {
	return &SummaryWarmupJob{
		Pool:    pool,
		Builder: builder,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the warmup.
func (j *SummaryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Builder == nil {
		return errors.New("summary warmup: handler not configured")
	}
	var payload SummaryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Months <= 0 {
		payload.Months = 12
	}

	tracker := j.metrics().Track(TaskSummaryWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	companies, err := j.companies(ctx, payload.CompanyID)
	if err != nil {
		resultErr = err
		return resultErr
	}

	now := j.clock()
	to := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(payload.Months - 1), 0)

	logger := j.logger().With(
		slog.Int("months", payload.Months),
		slog.Int("companies", len(companies)),
	)
	logger.Info("starting report warmup")

	for _, companyID := range companies {
		filters := reports.Filters{CompanyID: companyID, From: &from, To: &to}
		if _, _, err := j.Builder.MonthlyDetail(ctx, filters); err != nil {
			logger.Warn("warm monthly detail", slog.Int64("company_id", companyID), slog.Any("error", err))
			resultErr = err
			continue
		}
		if _, _, err := j.Builder.PeriodSummary(ctx, filters); err != nil {
			logger.Warn("warm period summary", slog.Int64("company_id", companyID), slog.Any("error", err))
			resultErr = err
		}
	}

	logger.Info("report warmup finished")
	return resultErr
}

func (j *SummaryWarmupJob) companies(ctx context.Context, companyID int64) ([]int64, error) {
	if companyID > 0 {
		return []int64{companyID}, nil
	}
	if j.Pool == nil {
		return nil, nil
	}
	const query = `
		SELECT DISTINCT company_id FROM productivity_reports
		WHERE status = 'SUBMITTED'
		ORDER BY company_id`
	rows, err := j.Pool.Query(ctx, query)
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

func (j *SummaryWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *SummaryWarmupJob) metrics() *jobmetrics.Metrics {
	return j.Metrics
}
