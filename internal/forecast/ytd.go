package forecast

import (
	"github.com/ledgercast/ledgercast/internal/shared"
)

// ComputeYTDRates computes cumulative fiscal year-to-date rates for every
// period of a projection. The cumulative window resets at the start of each
// fiscal year (derived from fyStart's month) and runs through the current
// period. Denominators cascade the same way monthly rates do, over the
// cumulative pool dollars of earlier tiers.
func ComputeYTDRates(proj Projection, groups []PoolGroup, fyStart shared.Period) RateTable {
	ordered := SortPoolGroups(groups)
	periods := proj.Periods()
	startMonth := fyStart.Month

	ytd := make(RateTable, len(periods))
	for _, period := range periods {
		fyBegin := shared.Period{Year: period.Year, Month: startMonth}
		if period.Month < startMonth {
			fyBegin.Year--
		}

		cumPools := make(map[string]float64, len(ordered))
		cumBases := make(map[BaseCategory]float64)
		for _, q := range periods {
			if q.Before(fyBegin) || q.After(period) {
				continue
			}
			for _, group := range ordered {
				cumPools[group.Name] += proj.Pools[q][group.Name]
			}
			for base, amount := range proj.Bases[q] {
				cumBases[base] += amount
			}
		}

		rates := make(map[string]float64, len(ordered))
		priorDollars := 0.0
		for _, group := range ordered {
			base := cumBases[group.Base] + priorDollars
			if base == 0 {
				rates[group.Name] = 0
			} else {
				rates[group.Name] = cumPools[group.Name] / base
			}
			priorDollars += cumPools[group.Name]
		}
		ytd[period] = rates
	}
	return ytd
}
