package forecast

import (
	"sort"

	"github.com/ledgercast/ledgercast/internal/shared"
)

// MethodRunRate names the projection method recorded in assumptions.
const MethodRunRate = "rolling_run_rate"

// BuildBaseline extends the actual aggregates forward by ForecastMonths
// using a trailing simple average over RunRateMonths periods. Projected
// periods feed forward into subsequent windows. With fewer actual periods
// than the window, the average runs over whatever is available; zero actual
// periods is fatal.
func BuildBaseline(agg Aggregates, params Params) (Projection, error) {
	if err := params.Validate(); err != nil {
		return Projection{}, err
	}
	actuals := sortedPeriods(agg.Pools)
	if len(actuals) == 0 {
		return Projection{}, ErrInsufficientData
	}
	first := actuals[0]
	lastActual := actuals[len(actuals)-1]
	horizon := lastActual.AddMonths(params.ForecastMonths)

	proj := Projection{
		Pools:           make(PoolTable),
		Bases:           make(BaseTable),
		DirectByProject: make(ProjectTable),
		Assumptions: Assumptions{
			Method:         MethodRunRate,
			RunRateMonths:  params.RunRateMonths,
			ForecastMonths: params.ForecastMonths,
			LastActual:     lastActual,
			Entity:         params.Entity,
		},
	}

	// Materialize the actual span on a contiguous month axis; months with no
	// postings become explicit zero periods rather than being skipped.
	for _, period := range shared.PeriodRange(first, lastActual) {
		pools := make(map[string]float64)
		for name, amount := range agg.Pools[period] {
			pools[name] = amount
		}
		projects := make(map[string]DirectCost)
		for name, costs := range agg.DirectByProject[period] {
			projects[name] = costs
		}
		proj.Pools[period] = pools
		proj.DirectByProject[period] = projects
		proj.Bases[period] = basesForPeriod(projects)
	}

	poolNames := collectPoolNames(proj.Pools)
	projectNames := collectProjectNames(proj.DirectByProject)

	for p := lastActual.Next(); !p.After(horizon); p = p.Next() {
		windowStart := p.AddMonths(-params.RunRateMonths)
		if windowStart.Before(first) {
			windowStart = first
		}
		window := shared.PeriodRange(windowStart, p.AddMonths(-1))

		pools := make(map[string]float64, len(poolNames))
		for _, name := range poolNames {
			var sum float64
			for _, q := range window {
				sum += proj.Pools[q][name]
			}
			pools[name] = sum / float64(len(window))
		}
		proj.Pools[p] = pools

		projects := make(map[string]DirectCost, len(projectNames))
		for _, name := range projectNames {
			var sum DirectCost
			for _, q := range window {
				sum = sum.Add(proj.DirectByProject[q][name])
			}
			n := float64(len(window))
			mean := DirectCost{
				Labor:       sum.Labor / n,
				LaborHours:  sum.LaborHours / n,
				Subcontract: sum.Subcontract / n,
				ODC:         sum.ODC / n,
				Travel:      sum.Travel / n,
			}
			// A project with no history in the window contributes nothing;
			// its row is not invented.
			if mean != (DirectCost{}) {
				projects[name] = mean
			}
		}
		proj.DirectByProject[p] = projects
		proj.Bases[p] = basesForPeriod(projects)
	}

	return proj, nil
}

func collectPoolNames(pools PoolTable) []string {
	seen := make(map[string]struct{})
	for _, row := range pools {
		for name := range row {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func collectProjectNames(direct ProjectTable) []string {
	seen := make(map[string]struct{})
	for _, row := range direct {
		for name := range row {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
