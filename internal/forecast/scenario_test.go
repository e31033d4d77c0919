package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercast/ledgercast/internal/shared"
)

func scenarioBaseline(t *testing.T) Projection {
	t.Helper()
	agg := actualAggregates(map[string]float64{
		"2025-01": 10, "2025-02": 12, "2025-03": 14,
	})
	proj, err := BuildBaseline(agg, Params{ForecastMonths: 3, RunRateMonths: 3})
	require.NoError(t, err)
	return proj
}

func TestApplyScenarioForwardOnly(t *testing.T) {
	baseline := scenarioBaseline(t)
	effective := shared.MustPeriod("2025-04")
	events := []ScenarioEvent{{
		Scenario:  "Win",
		Effective: effective,
		Project:   "P-1",
		Deltas: EventDeltas{
			Direct: DirectCost{Labor: 1_000},
			Pools:  map[string]float64{"Fringe": 500},
		},
	}}

	adjusted := ApplyScenario(baseline, events, "Win")

	for _, period := range adjusted.Periods() {
		if period.Before(effective) {
			assert.Equal(t, baseline.Pools[period], adjusted.Pools[period], "history must not change: %s", period)
			assert.Equal(t, baseline.DirectByProject[period], adjusted.DirectByProject[period])
			continue
		}
		assert.InDelta(t, baseline.Pools[period]["Fringe"]+500, adjusted.Pools[period]["Fringe"], 1e-9)
		assert.InDelta(t, baseline.DirectByProject[period]["P-1"].Labor+1_000,
			adjusted.DirectByProject[period]["P-1"].Labor, 1e-9)
	}
	assert.Equal(t, 1, adjusted.Assumptions.EventsApplied)
}

func TestApplyScenarioReconcilesBases(t *testing.T) {
	baseline := scenarioBaseline(t)
	events := []ScenarioEvent{{
		Scenario:  "Win",
		Effective: shared.MustPeriod("2025-02"),
		Project:   "P-NEW",
		Deltas:    EventDeltas{Direct: DirectCost{Labor: 2_000, Subcontract: 700, Travel: 50}},
	}}

	adjusted := ApplyScenario(baseline, events, "Win")

	for _, period := range adjusted.Periods() {
		var tci, labor, hours float64
		for _, project := range sortedProjects(adjusted.DirectByProject[period]) {
			costs := adjusted.DirectByProject[period][project]
			tci += costs.TCI()
			labor += costs.Labor
			hours += costs.LaborHours
		}
		bases := adjusted.Bases[period]
		assert.InDelta(t, tci, bases[BaseTCI], 1e-6, "TCI reconciliation at %s", period)
		assert.InDelta(t, labor, bases[BaseDL], 1e-6)
		assert.InDelta(t, labor, bases[BaseTL], 1e-6)
		assert.InDelta(t, hours, bases[BaseDLH], 1e-6)
	}
}

func TestApplyScenarioCreatesMissingProjectRow(t *testing.T) {
	baseline := scenarioBaseline(t)
	effective := shared.MustPeriod("2025-05")
	events := []ScenarioEvent{{
		Scenario:  "Win",
		Effective: effective,
		Project:   "P-NEW",
		Deltas:    EventDeltas{Direct: DirectCost{Labor: 3_000}},
	}}

	adjusted := ApplyScenario(baseline, events, "Win")
	assert.InDelta(t, 3_000, adjusted.DirectByProject[effective]["P-NEW"].Labor, 1e-9)
	_, before := adjusted.DirectByProject[shared.MustPeriod("2025-04")]["P-NEW"]
	assert.False(t, before)
}

func TestApplyScenarioIsolation(t *testing.T) {
	baseline := scenarioBaseline(t)
	events := []ScenarioEvent{
		{Scenario: "Win", Effective: shared.MustPeriod("2025-04"),
			Deltas: EventDeltas{Pools: map[string]float64{"Fringe": 10_000}}},
	}

	base := ApplyScenario(baseline, events, "Base")
	win := ApplyScenario(baseline, events, "Win")

	apr := shared.MustPeriod("2025-04")
	assert.Equal(t, baseline.Pools[apr]["Fringe"], base.Pools[apr]["Fringe"],
		"events for Win must not leak into Base")
	assert.InDelta(t, baseline.Pools[apr]["Fringe"]+10_000, win.Pools[apr]["Fringe"], 1e-9)
	assert.Equal(t, 0, base.Assumptions.EventsApplied)
}

func TestApplyScenarioNeverMutatesBaseline(t *testing.T) {
	baseline := scenarioBaseline(t)
	apr := shared.MustPeriod("2025-04")
	before := baseline.Pools[apr]["Fringe"]

	_ = ApplyScenario(baseline, []ScenarioEvent{
		{Scenario: "Win", Effective: apr, Project: "P-1",
			Deltas: EventDeltas{Direct: DirectCost{Labor: 999}, Pools: map[string]float64{"Fringe": 999}}},
	}, "Win")

	assert.Equal(t, before, baseline.Pools[apr]["Fringe"])
}

func TestInputsScenarioDiscovery(t *testing.T) {
	inputs := Inputs{Events: []ScenarioEvent{
		{Scenario: "Win"}, {Scenario: "Lose"}, {Scenario: ""}, {Scenario: "Win"},
	}}
	assert.Equal(t, []string{"Base", "Lose", "Win"}, inputs.Scenarios())

	assert.Equal(t, []string{"Base"}, Inputs{}.Scenarios())
}
