package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercast/ledgercast/internal/forecast"
)

type stubRefresher struct {
	params []forecast.Params
	err    error
}

func (s *stubRefresher) Refresh(ctx context.Context, params forecast.Params) error {
	s.params = append(s.params, params)
	return s.err
}

func TestForecastRefreshHandler(t *testing.T) {
	svc := &stubRefresher{}
	handler := NewForecastRefreshHandler(svc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	task, err := NewForecastRefreshTask(ForecastRefreshPayload{
		Scenario:        "Win",
		ForecastMonths:  6,
		RunRateMonths:   3,
		FiscalYearStart: "2025-01",
	})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Len(t, svc.params, 1)
	assert.Equal(t, "Win", svc.params[0].Scenario)
	assert.Equal(t, 6, svc.params[0].ForecastMonths)
	require.NotNil(t, svc.params[0].FiscalYearStart)
}

func TestForecastRefreshHandlerSkipsBadPayload(t *testing.T) {
	svc := &stubRefresher{}
	handler := NewForecastRefreshHandler(svc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := handler(context.Background(), asynq.NewTask(TaskForecastRefresh, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.Empty(t, svc.params)

	task, err := NewForecastRefreshTask(ForecastRefreshPayload{ForecastMonths: 0, RunRateMonths: 3})
	require.NoError(t, err)
	err = handler(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestForecastRefreshHandlerPropagatesFailure(t *testing.T) {
	svc := &stubRefresher{err: errors.New("db down")}
	handler := NewForecastRefreshHandler(svc, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	task, err := NewForecastRefreshTask(ForecastRefreshPayload{ForecastMonths: 3, RunRateMonths: 3})
	require.NoError(t, err)
	assert.Error(t, handler(context.Background(), task))
}
