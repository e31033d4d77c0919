package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskForecastRefresh recomputes and warms the forecast cache.
	TaskForecastRefresh = "forecast:refresh"
)

// ForecastRefreshPayload carries the run parameters for a refresh task.
type ForecastRefreshPayload struct {
	Scenario        string `json:"scenario,omitempty"`
	ForecastMonths  int    `json:"forecast_months"`
	RunRateMonths   int    `json:"run_rate_months"`
	Entity          string `json:"entity,omitempty"`
	FiscalYearStart string `json:"fiscal_year_start,omitempty"`
}

// NewForecastRefreshTask constructs an Asynq task.
func NewForecastRefreshTask(payload ForecastRefreshPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskForecastRefresh, data), nil
}
