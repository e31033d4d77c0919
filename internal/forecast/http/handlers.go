package forecasthttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ledgercast/ledgercast/internal/forecast"
	"github.com/ledgercast/ledgercast/internal/platform/httpx"
)

const (
	requestTimeout = 30 * time.Second
	maxImportBytes = 32 << 20
)

// ForecastService defines the forecast operations the handler depends on.
type ForecastService interface {
	Run(ctx context.Context, params forecast.Params) ([]forecast.ForecastResult, error)
	Scenarios(ctx context.Context) ([]string, error)
	Import(ctx context.Context, table forecast.RawTable) (forecast.ImportSummary, error)
	History(ctx context.Context, limit int) ([]forecast.RunRecord, error)
	Lookup(ctx context.Context, id uuid.UUID) (forecast.RunRecord, error)
}

// RunObserver receives pipeline timing and import volume measurements.
type RunObserver interface {
	ObserveRun(outcome string, elapsed time.Duration)
	ObserveImport(table string, rows int64)
}

// Handler coordinates HTTP requests for forecast runs and imports.
type Handler struct {
	logger    *slog.Logger
	service   ForecastService
	validator *validator.Validate
	metrics   RunObserver
	now       func() time.Time
}

// NewHandler constructs the forecast HTTP handler.
func NewHandler(logger *slog.Logger, service ForecastService) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		now:       time.Now,
	}
}

// WithMetrics attaches a run observer. A nil observer disables recording.
func (h *Handler) WithMetrics(m RunObserver) {
	h.metrics = m
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	params, err := req.toParams()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	started := h.now()
	results, err := h.service.Run(ctx, params)
	if h.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		h.metrics.ObserveRun(outcome, time.Since(started))
	}
	if err != nil {
		h.respondRunError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, runResponse{Results: results})
}

func (h *Handler) handleScenarios(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	scenarios, err := h.service.Scenarios(ctx)
	if err != nil {
		h.respondRunError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, scenariosResponse{Scenarios: scenarios})
}

func (h *Handler) handleRatesCSV(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseRateQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	results, err := h.service.Run(ctx, params)
	if err != nil {
		h.respondRunError(w, err)
		return
	}

	filename := fmt.Sprintf("indirect-rates-%s.csv", h.now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := writeRatesCSV(w, results); err != nil {
		h.logError("stream rates csv", err)
	}
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	name, ok := forecast.ResolveTableName(chi.URLParam(r, "table"))
	if !ok {
		httpx.Problem(w, http.StatusNotFound, "Not Found",
			"unknown table, expected one of: "+strings.Join(forecast.ImportTableNames(), ", "))
		return
	}

	body := http.MaxBytesReader(w, r.Body, maxImportBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()
	table, err := forecast.ReadTable(body, name)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid CSV", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	summary, err := h.service.Import(ctx, table)
	if err != nil {
		h.respondImportError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveImport(name, summary.Imported)
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 1 || value > 500 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "limit must be between 1 and 500")
			return
		}
		limit = value
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	runs, err := h.service.History(ctx, limit)
	if err != nil {
		h.respondRunError(w, err)
		return
	}
	if runs == nil {
		runs = []forecast.RunRecord{}
	}
	httpx.JSON(w, http.StatusOK, historyResponse{Runs: runs})
}

func (h *Handler) handleRunByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "run id must be a UUID")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	run, err := h.service.Lookup(ctx, id)
	if errors.Is(err, forecast.ErrRunNotFound) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "run not found")
		return
	}
	if err != nil {
		h.respondRunError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, run)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, healthResponse{Status: "ok", Time: h.now().UTC()})
}

func (h *Handler) parseRateQuery(r *http.Request) (forecast.Params, error) {
	query := r.URL.Query()
	req := runRequest{
		Scenario:        strings.TrimSpace(query.Get("scenario")),
		ForecastMonths:  12,
		RunRateMonths:   3,
		Entity:          strings.TrimSpace(query.Get("entity")),
		FiscalYearStart: strings.TrimSpace(query.Get("fiscal_year_start")),
	}
	if raw := strings.TrimSpace(query.Get("forecast_months")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return forecast.Params{}, fmt.Errorf("forecast_months must be an integer")
		}
		req.ForecastMonths = value
	}
	if raw := strings.TrimSpace(query.Get("run_rate_months")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil {
			return forecast.Params{}, fmt.Errorf("run_rate_months must be an integer")
		}
		req.RunRateMonths = value
	}
	if err := h.validator.Struct(req); err != nil {
		return forecast.Params{}, err
	}
	return req.toParams()
}

func (h *Handler) respondRunError(w http.ResponseWriter, err error) {
	var schemaErr *forecast.SchemaError
	switch {
	case errors.Is(err, forecast.ErrInsufficientData):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Data",
			"no actual periods are staged, import GL actuals first")
	case errors.As(err, &schemaErr):
		httpx.Problem(w, http.StatusBadRequest, "Schema Error", schemaErr.Error())
	case errors.Is(err, forecast.ErrDuplicateCascadeOrder), errors.Is(err, forecast.ErrUnknownBase):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Pool Configuration Invalid", err.Error())
	default:
		h.logError("forecast run", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func (h *Handler) respondImportError(w http.ResponseWriter, err error) {
	var schemaErr *forecast.SchemaError
	if errors.As(err, &schemaErr) {
		httpx.Problem(w, http.StatusBadRequest, "Schema Error", schemaErr.Error())
		return
	}
	h.logError("import table", err)
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
