package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSummaryWarmup pre-builds productivity report views so the first
	// dashboard hit of the day is served from cache.
	TaskSummaryWarmup = "reports:summary:warmup"
)

// SummaryWarmupPayload scopes a warmup run.
type SummaryWarmupPayload struct {
	// CompanyID limits the run to one company; zero warms every company
	// with submitted reports.
	CompanyID int64 `json:"company_id"`
	// Months is the trailing window to warm, defaulting to 12.
	Months int `json:"months"`
}

// NewSummaryWarmupTask constructs an Asynq task.
func NewSummaryWarmupTask(payload SummaryWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSummaryWarmup, data), nil
}
