package forecasthttp

import (
	"time"

	"github.com/ledgercast/ledgercast/internal/forecast"
	"github.com/ledgercast/ledgercast/internal/shared"
)

type runRequest struct {
	Scenario        string `json:"scenario"`
	ForecastMonths  int    `json:"forecast_months" validate:"required,min=1,max=120"`
	RunRateMonths   int    `json:"run_rate_months" validate:"required,min=1,max=24"`
	Entity          string `json:"entity" validate:"omitempty,max=64"`
	FiscalYearStart string `json:"fiscal_year_start" validate:"omitempty,len=7"`
}

func (req runRequest) toParams() (forecast.Params, error) {
	params := forecast.Params{
		Scenario:       req.Scenario,
		ForecastMonths: req.ForecastMonths,
		RunRateMonths:  req.RunRateMonths,
		Entity:         req.Entity,
	}
	if req.FiscalYearStart != "" {
		start, err := shared.ParsePeriod(req.FiscalYearStart)
		if err != nil {
			return forecast.Params{}, err
		}
		params.FiscalYearStart = &start
	}
	return params, nil
}

type runResponse struct {
	Results []forecast.ForecastResult `json:"results"`
}

type scenariosResponse struct {
	Scenarios []string `json:"scenarios"`
}

type historyResponse struct {
	Runs []forecast.RunRecord `json:"runs"`
}

type healthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
