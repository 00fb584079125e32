package jobs

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/reports"
)

type stubBuilder struct {
	filters []reports.Filters
}

func (s *stubBuilder) MonthlyDetail(ctx context.Context, f reports.Filters) (reports.MonthlyDetailView, []string, error) {
	return reports.MonthlyDetailView{}, nil, nil
}

func (s *stubBuilder) PeriodSummary(ctx context.Context, f reports.Filters) (reports.PeriodSummaryView, []string, error) {
	s.filters = append(s.filters, f)
	return reports.PeriodSummaryView{}, nil, nil
}

func TestSummaryWarmupScopedToCompany(t *testing.T) {
	builder := &stubBuilder{}
	job := NewSummaryWarmupJob(nil, builder, nil, nil)

	payload, err := json.Marshal(SummaryWarmupPayload{CompanyID: 3, Months: 6})
	require.NoError(t, err)

	err = job.Handle(context.Background(), asynq.NewTask(TaskSummaryWarmup, payload))
	require.NoError(t, err)

	require.Len(t, builder.filters, 1)
	f := builder.filters[0]
	assert.Equal(t, int64(3), f.CompanyID)
	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	months := (f.To.Year()-f.From.Year())*12 + int(f.To.Month()-f.From.Month()) + 1
	assert.Equal(t, 6, months, "trailing window covers the requested months")
}

func TestSummaryWarmupRejectsBadPayload(t *testing.T) {
	job := NewSummaryWarmupJob(nil, &stubBuilder{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskSummaryWarmup, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
