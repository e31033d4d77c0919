package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"

	"github.com/ledgercast/ledgercast/internal/shared"
)

// SynthSpec parameterizes the synthetic dataset generator.
type SynthSpec struct {
	Start    shared.Period
	Months   int
	Projects int
	Seed     int64
}

// GenerateDataset produces a deterministic synthetic set of raw input tables
// for demos and tests: seasonal per-project direct costs, GL pool postings
// tracking plausible fringe/overhead/G&A ratios, a standard account map, and
// Win/Lose scenario events effective 60% of the way into the actuals.
func GenerateDataset(spec SynthSpec) RawInputs {
	rng := rand.New(rand.NewSource(spec.Seed))
	periods := make([]shared.Period, 0, spec.Months)
	for i := 0; i < spec.Months; i++ {
		periods = append(periods, spec.Start.AddMonths(i))
	}
	projects := make([]string, 0, spec.Projects)
	for i := 1; i <= spec.Projects; i++ {
		projects = append(projects, fmt.Sprintf("P%03d", i))
	}

	direct := RawTable{
		Name:   TableDirectCosts,
		Header: []string{"Period", "Project", "DirectLabor$", "DirectLaborHrs", "Subk", "ODC", "Travel"},
	}
	type periodTotals struct {
		labor, subk, odc, travel float64
	}
	totals := make(map[shared.Period]*periodTotals, len(periods))
	for _, period := range periods {
		season := 1.0 + 0.08*math.Sin(float64(int(period.Month)-1)/12*2*math.Pi)
		totals[period] = &periodTotals{}
		for _, project := range projects {
			labor := math.Max((rng.NormFloat64()*35_000+250_000)*season, 50_000)
			hours := labor / (rng.NormFloat64()*10 + 110)
			subk := math.Max(rng.NormFloat64()*15_000+60_000, 0)
			odc := math.Max(rng.NormFloat64()*5_000+20_000, 0)
			travel := math.Max(rng.NormFloat64()*4_000+10_000, 0)
			direct.Rows = append(direct.Rows, []string{
				period.String(), project,
				formatAmount(labor), formatAmount(hours),
				formatAmount(subk), formatAmount(odc), formatAmount(travel),
			})
			t := totals[period]
			t.labor += labor
			t.subk += subk
			t.odc += odc
			t.travel += travel
		}
	}

	accountMap := RawTable{
		Name:   TableAccountMap,
		Header: []string{"Account", "Pool", "BaseCategory", "IsUnallowable", "Notes"},
		Rows: [][]string{
			{"6000", "Fringe", "TL", "false", "Benefits/Fringe"},
			{"6100", "Overhead", "DL", "false", "Indirect ops"},
			{"6200", "G&A", "TCI", "false", "Admin"},
			{"6999", "Unallowable", "", "true", "Unallowables"},
		},
	}

	ledger := RawTable{
		Name:   TableLedger,
		Header: []string{"Period", "Account", "Amount"},
	}
	for _, period := range periods {
		t := totals[period]
		tci := t.labor + t.subk + t.odc + t.travel
		fringe := t.labor*0.28 + rng.NormFloat64()*12_000
		overhead := t.labor*0.55 + rng.NormFloat64()*18_000
		ga := tci*0.12 + rng.NormFloat64()*10_000
		unallowable := rng.NormFloat64()*1_000 + 4_000
		ledger.Rows = append(ledger.Rows,
			[]string{period.String(), "6000", formatAmount(fringe)},
			[]string{period.String(), "6100", formatAmount(overhead)},
			[]string{period.String(), "6200", formatAmount(ga)},
			[]string{period.String(), "6999", formatAmount(unallowable)},
		)
	}

	effective := periods[len(periods)*6/10].String()
	events := RawTable{
		Name: TableEvents,
		Header: []string{
			"Scenario", "EffectivePeriod", "Type", "Project",
			"DeltaDirectLabor$", "DeltaDirectLaborHrs", "DeltaSubk", "DeltaODC", "DeltaTravel",
			"DeltaPoolFringe", "DeltaPoolOverhead", "DeltaPoolGA", "Notes",
		},
		Rows: [][]string{
			{"Base", effective, "ADJUST", "", "0", "0", "0", "0", "0", "0", "0", "0", "No changes"},
			{"Win", effective, "WIN", projects[0],
				"90000", "800", "25000", "8000", "3000", "4000", "6000", "2000",
				"New award adds base with small pool lift"},
			{"Lose", effective, "LOSE", projects[len(projects)-1],
				"-110000", "-900", "-30000", "-10000", "-4000", "0", "0", "0",
				"Loss reduces base while pools stay sticky"},
		},
	}

	return RawInputs{
		Ledger:      ledger,
		AccountMap:  accountMap,
		DirectCosts: direct,
		Events:      events,
	}
}

// DefaultPoolGroups returns the standard Fringe / Overhead / G&A cascade.
func DefaultPoolGroups() []PoolGroup {
	return []PoolGroup{
		{Name: "Fringe", Base: BaseTL, CascadeOrder: 0},
		{Name: "Overhead", Base: BaseDL, CascadeOrder: 1},
		{Name: "G&A", Base: BaseTCI, CascadeOrder: 2},
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
