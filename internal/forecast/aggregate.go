package forecast

import (
	"fmt"
	"sort"

	"github.com/ledgercast/ledgercast/internal/shared"
)

// Aggregate reduces mapped ledger rows and direct cost rows into period-level
// pool totals, base totals, and the per-project direct cost table. Every
// period present on either side appears in all three tables; the missing
// side defaults to zero. An optional entity filter scopes both inputs.
func Aggregate(mapped []MappedLedgerRow, directCosts []DirectCostRow, entity string) (Aggregates, []Warning) {
	var warnings []Warning

	agg := Aggregates{
		Pools:           make(PoolTable),
		Bases:           make(BaseTable),
		DirectByProject: make(ProjectTable),
	}

	ledgerMatched := 0
	for _, row := range mapped {
		if entity != "" && row.Entity != entity {
			continue
		}
		ledgerMatched++
		if !row.Mapped || row.IsUnallowable || row.PoolName == "" {
			continue
		}
		pools := agg.Pools[row.Period]
		if pools == nil {
			pools = make(map[string]float64)
			agg.Pools[row.Period] = pools
		}
		pools[row.PoolName] += row.Amount
	}
	if entity != "" && len(mapped) > 0 && ledgerMatched == 0 {
		warnings = append(warnings, Warning{
			Kind:   WarnEntityFilter,
			Table:  TableLedger,
			Detail: fmt.Sprintf("no ledger rows for entity %q", entity),
		})
	}

	directMatched := 0
	for _, row := range directCosts {
		if entity != "" && row.Entity != "" && row.Entity != entity {
			continue
		}
		directMatched++
		projects := agg.DirectByProject[row.Period]
		if projects == nil {
			projects = make(map[string]DirectCost)
			agg.DirectByProject[row.Period] = projects
		}
		projects[row.Project] = projects[row.Project].Add(row.Costs)
	}
	if entity != "" && len(directCosts) > 0 && directMatched == 0 {
		warnings = append(warnings, Warning{
			Kind:   WarnEntityFilter,
			Table:  TableDirectCosts,
			Detail: fmt.Sprintf("no direct cost rows for entity %q", entity),
		})
	}

	// Union of periods: the aggregator never drops a period.
	for period := range agg.Pools {
		if agg.DirectByProject[period] == nil {
			agg.DirectByProject[period] = make(map[string]DirectCost)
		}
	}
	for period := range agg.DirectByProject {
		if agg.Pools[period] == nil {
			agg.Pools[period] = make(map[string]float64)
		}
	}
	for period, projects := range agg.DirectByProject {
		agg.Bases[period] = basesForPeriod(projects)
	}

	return agg, warnings
}

// basesForPeriod derives the base table row from a period's project costs:
// DL and TL are direct labor dollars, DLH is labor hours, TCI is total cost
// input. Bases are always a derived view of the project table. Projects are
// summed in name order so identical inputs produce bit-identical totals.
func basesForPeriod(projects map[string]DirectCost) map[BaseCategory]float64 {
	var total DirectCost
	for _, project := range sortedProjects(projects) {
		total = total.Add(projects[project])
	}
	return map[BaseCategory]float64{
		BaseDL:  total.Labor,
		BaseTL:  total.Labor,
		BaseTCI: total.TCI(),
		BaseDLH: total.LaborHours,
	}
}

// recomputeBases rebuilds the full base table from a project table. Used
// after scenario application so bases reconcile with adjusted project costs.
func recomputeBases(direct ProjectTable) BaseTable {
	bases := make(BaseTable, len(direct))
	for period, projects := range direct {
		bases[period] = basesForPeriod(projects)
	}
	return bases
}

// sortedPeriods returns the table's periods in ascending order.
func sortedPeriods[V any](table map[shared.Period]V) []shared.Period {
	periods := make([]shared.Period, 0, len(table))
	for period := range table {
		periods = append(periods, period)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods
}

// sortedProjects returns the project names of a period row in name order.
func sortedProjects(projects map[string]DirectCost) []string {
	names := make([]string, 0, len(projects))
	for name := range projects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
