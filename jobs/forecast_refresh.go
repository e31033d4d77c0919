package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ledgercast/ledgercast/internal/forecast"
	jobmetrics "github.com/ledgercast/ledgercast/internal/jobs"
	"github.com/ledgercast/ledgercast/internal/shared"
)

// ForecastRefresher executes forecast runs ahead of demand.
type ForecastRefresher interface {
	Refresh(ctx context.Context, params forecast.Params) error
}

// NewForecastRefreshHandler builds the asynq handler for forecast refresh
// tasks. Malformed payloads skip retry: re-running them cannot succeed.
func NewForecastRefreshHandler(svc ForecastRefresher, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track("forecast_refresh")

		var payload ForecastRefreshPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		params, err := payload.toParams()
		if err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}

		err = svc.Refresh(ctx, params)
		if logger != nil {
			if err != nil {
				logger.Error("forecast refresh failed",
					slog.String("scenario", payload.Scenario), slog.Any("error", err))
			} else {
				logger.Info("forecast refreshed",
					slog.String("scenario", payload.Scenario),
					slog.Int("forecast_months", params.ForecastMonths))
			}
		}
		return tracker.End(err)
	}
}

func (p ForecastRefreshPayload) toParams() (forecast.Params, error) {
	params := forecast.Params{
		Scenario:       p.Scenario,
		ForecastMonths: p.ForecastMonths,
		RunRateMonths:  p.RunRateMonths,
		Entity:         p.Entity,
	}
	if p.FiscalYearStart != "" {
		start, err := shared.ParsePeriod(p.FiscalYearStart)
		if err != nil {
			return forecast.Params{}, err
		}
		params.FiscalYearStart = &start
	}
	if err := params.Validate(); err != nil {
		return forecast.Params{}, err
	}
	return params, nil
}
