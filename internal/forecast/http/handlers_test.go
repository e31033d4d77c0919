package forecasthttp

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercast/ledgercast/internal/forecast"
	"github.com/ledgercast/ledgercast/internal/shared"
)

type stubService struct {
	results    []forecast.ForecastResult
	runErr     error
	lastParams forecast.Params
	scenarios  []string
	imported   []forecast.RawTable
	importSum  forecast.ImportSummary
	importErr  error
	runs       []forecast.RunRecord
}

func (s *stubService) Run(ctx context.Context, params forecast.Params) ([]forecast.ForecastResult, error) {
	s.lastParams = params
	return s.results, s.runErr
}

func (s *stubService) Scenarios(ctx context.Context) ([]string, error) {
	return s.scenarios, nil
}

func (s *stubService) Import(ctx context.Context, table forecast.RawTable) (forecast.ImportSummary, error) {
	if s.importErr != nil {
		return forecast.ImportSummary{}, s.importErr
	}
	s.imported = append(s.imported, table)
	return s.importSum, nil
}

func (s *stubService) History(ctx context.Context, limit int) ([]forecast.RunRecord, error) {
	return s.runs, nil
}

func (s *stubService) Lookup(ctx context.Context, id uuid.UUID) (forecast.RunRecord, error) {
	for _, run := range s.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return forecast.RunRecord{}, forecast.ErrRunNotFound
}

func newTestRouter(svc ForecastService) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func sampleResult() forecast.ForecastResult {
	jan := shared.MustPeriod("2025-01")
	return forecast.ForecastResult{
		Scenario: "Base",
		Periods:  []shared.Period{jan},
		Pools:    forecast.PoolTable{jan: {"Fringe": 25_000}},
		Rates:    forecast.RateTable{jan: {"Fringe": 0.25}},
	}
}

func TestHandleRun(t *testing.T) {
	svc := &stubService{results: []forecast.ForecastResult{sampleResult()}}
	router := newTestRouter(svc)

	body := `{"scenario":"Base","forecast_months":6,"run_rate_months":3,"fiscal_year_start":"2025-01"}`
	req := httptest.NewRequest(http.MethodPost, "/forecast/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"scenario":"Base"`)
	assert.Equal(t, 6, svc.lastParams.ForecastMonths)
	require.NotNil(t, svc.lastParams.FiscalYearStart)
	assert.Equal(t, shared.MustPeriod("2025-01"), *svc.lastParams.FiscalYearStart)
}

func TestHandleRunRejectsBadBody(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/forecast/run", strings.NewReader(`{"forecast_months":0}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
}

func TestHandleRunInsufficientData(t *testing.T) {
	router := newTestRouter(&stubService{runErr: forecast.ErrInsufficientData})

	body := `{"forecast_months":6,"run_rate_months":3}`
	req := httptest.NewRequest(http.MethodPost, "/forecast/run", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandleScenarios(t *testing.T) {
	router := newTestRouter(&stubService{scenarios: []string{"Base", "Win"}})

	req := httptest.NewRequest(http.MethodGet, "/forecast/scenarios", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"scenarios":["Base","Win"]}`, rec.Body.String())
}

func TestHandleRatesCSV(t *testing.T) {
	svc := &stubService{results: []forecast.ForecastResult{sampleResult()}}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/forecast/rates.csv?scenario=Base&forecast_months=6", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "Base,2025-01,Fringe")
	assert.Contains(t, rec.Body.String(), "0.250000")
	assert.Equal(t, "Base", svc.lastParams.Scenario)
	assert.Equal(t, 6, svc.lastParams.ForecastMonths)
}

func TestHandleImport(t *testing.T) {
	svc := &stubService{importSum: forecast.ImportSummary{Table: forecast.TableLedger, Imported: 2}}
	router := newTestRouter(svc)

	csvBody := "Period,Account,Amount\n2025-01,6000,100\n2025-02,6000,200\n"
	req := httptest.NewRequest(http.MethodPost, "/imports/gl_actuals", strings.NewReader(csvBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"table":"GL_Actuals","imported":2,"rejected":0}`, rec.Body.String())
	require.Len(t, svc.imported, 1)
	assert.Equal(t, forecast.TableLedger, svc.imported[0].Name)
	assert.Len(t, svc.imported[0].Rows, 2)
}

func TestHandleImportUnknownTable(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodPost, "/imports/nope", strings.NewReader("a,b\n"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRunByID(t *testing.T) {
	id := uuid.New()
	router := newTestRouter(&stubService{runs: []forecast.RunRecord{{ID: id, Scenario: "Base"}}})

	req := httptest.NewRequest(http.MethodGet, "/forecast/runs/"+id.String(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/forecast/runs/"+uuid.NewString(), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}
