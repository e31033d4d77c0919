package forecast

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Runner executes the full pipeline: mapping, aggregation, baseline
// projection, scenario application, and rate/impact computation. Every stage
// is a pure function of its inputs, so identical inputs and parameters
// produce bit-identical results.
type Runner struct {
	groups []PoolGroup
}

// NewRunner constructs a Runner for a validated pool group configuration.
func NewRunner(groups []PoolGroup) (*Runner, error) {
	if err := ValidatePoolGroups(groups); err != nil {
		return nil, err
	}
	return &Runner{groups: SortPoolGroups(groups)}, nil
}

// Groups returns the pool group configuration in cascade order.
func (r *Runner) Groups() []PoolGroup {
	groups := make([]PoolGroup, len(r.groups))
	copy(groups, r.groups)
	return groups
}

// Run evaluates one scenario when params.Scenario is set, otherwise every
// scenario discovered in the event table. The baseline is projected once;
// each scenario works on its own deep copy, so scenarios evaluate
// concurrently without coordination.
func (r *Runner) Run(ctx context.Context, inputs Inputs, params Params) ([]ForecastResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	mapped, mapWarnings := MapAccounts(inputs.Ledger, inputs.Mappings)
	agg, aggWarnings := Aggregate(mapped, inputs.DirectCosts, params.Entity)
	baseline, err := BuildBaseline(agg, params)
	if err != nil {
		return nil, err
	}

	runWarnings := append(append([]Warning{}, mapWarnings...), aggWarnings...)

	scenarios := []string{params.Scenario}
	if params.Scenario == "" {
		scenarios = inputs.Scenarios()
	}

	results := make([]ForecastResult, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	for i, scenario := range scenarios {
		i, scenario := i, scenario
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			result, err := r.runScenario(baseline, inputs.Events, scenario, params, runWarnings)
			if err != nil {
				return fmt.Errorf("forecast: scenario %s: %w", scenario, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) runScenario(baseline Projection, events []ScenarioEvent, scenario string, params Params, sharedWarnings []Warning) (ForecastResult, error) {
	adjusted := ApplyScenario(baseline, events, scenario)
	if params.FiscalYearStart != nil {
		adjusted.Assumptions.FiscalYearStart = params.FiscalYearStart.String()
	}

	rates, impacts, rateWarnings, err := ComputeRates(adjusted, r.groups)
	if err != nil {
		return ForecastResult{}, err
	}

	result := ForecastResult{
		Scenario:       scenario,
		Periods:        adjusted.Periods(),
		Pools:          adjusted.Pools,
		Bases:          adjusted.Bases,
		Rates:          rates,
		ProjectImpacts: impacts,
		Assumptions:    adjusted.Assumptions,
		Warnings:       append(append([]Warning{}, sharedWarnings...), rateWarnings...),
	}
	if params.FiscalYearStart != nil {
		result.YTDRates = ComputeYTDRates(adjusted, r.groups, *params.FiscalYearStart)
	}
	return result, nil
}
