package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTargetsRefresh recomputes derived target state across the
	// whole table.
	TaskTargetsRefresh = "targets:refresh"
)

// TargetsRefreshPayload parametrizes a refresh run. PageSize bounds the
// ID pages pulled per store round trip.
type TargetsRefreshPayload struct {
	PageSize int `json:"page_size"`
}

// NewTargetsRefreshTask constructs the refresh task.
func NewTargetsRefreshTask(payload TargetsRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTargetsRefresh, data), nil
}
