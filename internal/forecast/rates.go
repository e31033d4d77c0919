package forecast

// ComputeRates evaluates pool rates and per-project loaded cost impacts for
// every period of a projection, strictly in ascending cascade order.
//
// The cascade folds the dollar amount (not the rate) of every earlier pool
// into the base of each later pool: Fringe divides by raw labor, Overhead by
// labor plus Fringe dollars, G&A by total cost input plus Fringe and
// Overhead dollars. A zero or missing base yields a rate of 0 and, when the
// pool carries dollars, a degenerate-base warning so callers can tell "0%"
// apart from "undefined".
func ComputeRates(proj Projection, groups []PoolGroup) (RateTable, ImpactTable, []Warning, error) {
	if err := ValidatePoolGroups(groups); err != nil {
		return nil, nil, nil, err
	}
	ordered := SortPoolGroups(groups)
	periods := proj.Periods()

	rates := make(RateTable, len(periods))
	var warnings []Warning
	for _, period := range periods {
		periodRates := make(map[string]float64, len(ordered))
		priorDollars := 0.0
		for _, group := range ordered {
			poolDollars := proj.Pools[period][group.Name]
			base := proj.Bases[period][group.Base] + priorDollars
			if base == 0 {
				periodRates[group.Name] = 0
				if poolDollars != 0 {
					warnings = append(warnings, Warning{
						Kind:   WarnDegenerateBase,
						Period: period,
						Detail: "pool " + group.Name + " has dollars but a zero base; rate reported as 0",
					})
				}
			} else {
				periodRates[group.Name] = poolDollars / base
			}
			priorDollars += poolDollars
		}
		rates[period] = periodRates
	}

	impacts := make(ImpactTable, len(periods))
	for _, period := range periods {
		projects := proj.DirectByProject[period]
		periodImpacts := make(map[string]LoadedCost, len(projects))
		for _, project := range sortedProjects(projects) {
			costs := projects[project]
			indirect := make(map[string]float64, len(ordered))
			priorIndirect := 0.0
			for _, group := range ordered {
				applyTo := costs.Driver(group.Base) + priorIndirect
				dollars := rates[period][group.Name] * applyTo
				indirect[group.Name] = dollars
				priorIndirect += dollars
			}
			periodImpacts[project] = LoadedCost{
				Direct:   costs,
				TCI:      costs.TCI(),
				Indirect: indirect,
				Total:    costs.TCI() + priorIndirect,
			}
		}
		impacts[period] = periodImpacts
	}

	return rates, impacts, warnings, nil
}
