package forecast

import (
	"sort"

	"github.com/ledgercast/ledgercast/internal/shared"
)

// ApplyScenario produces an adjusted projection for one scenario. The
// baseline is cloned, never mutated, so independent scenarios can run in
// parallel from the same baseline. Deltas are additive and apply from each
// event's effective period forward; periods before it are never touched.
// Bases are recomputed from the adjusted project table afterwards, so
// bases[period][TCI] always reconciles with the summed project costs.
func ApplyScenario(baseline Projection, events []ScenarioEvent, scenario string) Projection {
	adjusted := baseline.Clone()
	adjusted.Assumptions.Scenario = scenario

	matched := make([]ScenarioEvent, 0, len(events))
	for _, ev := range events {
		name := ev.Scenario
		if name == "" {
			name = DefaultScenario
		}
		if name == scenario {
			matched = append(matched, ev)
		}
	}
	adjusted.Assumptions.EventsApplied = len(matched)
	if len(matched) == 0 {
		return adjusted
	}
	// Deterministic application order: effective period, then source row.
	sort.SliceStable(matched, func(i, j int) bool {
		if c := matched[i].Effective.Compare(matched[j].Effective); c != 0 {
			return c < 0
		}
		return matched[i].SourceRow < matched[j].SourceRow
	})

	periods := adjusted.Periods()
	for _, ev := range matched {
		applyEvent(&adjusted, ev, periods)
	}

	adjusted.Bases = recomputeBases(adjusted.DirectByProject)
	return adjusted
}

func applyEvent(proj *Projection, ev ScenarioEvent, periods []shared.Period) {
	poolNames := make([]string, 0, len(ev.Deltas.Pools))
	for name := range ev.Deltas.Pools {
		poolNames = append(poolNames, name)
	}
	sort.Strings(poolNames)

	for _, period := range periods {
		if period.Before(ev.Effective) {
			continue
		}
		for _, name := range poolNames {
			pools := proj.Pools[period]
			if pools == nil {
				pools = make(map[string]float64)
				proj.Pools[period] = pools
			}
			pools[name] += ev.Deltas.Pools[name]
		}
		if ev.Project != "" && ev.Deltas.Direct != (DirectCost{}) {
			projects := proj.DirectByProject[period]
			if projects == nil {
				projects = make(map[string]DirectCost)
				proj.DirectByProject[period] = projects
			}
			projects[ev.Project] = projects[ev.Project].Add(ev.Deltas.Direct)
		}
	}
}
