// Package forecast implements the indirect rate forecasting pipeline:
// input normalization, account-to-pool mapping, actual aggregation,
// run-rate baseline projection, scenario event application, and cascading
// rate and per-project impact computation.
package forecast

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledgercast/ledgercast/internal/shared"
)

// BaseCategory enumerates the allocation base drivers.
type BaseCategory string

const (
	// BaseDL is direct labor dollars.
	BaseDL BaseCategory = "DL"
	// BaseTL is total labor dollars (identical to DL in this model).
	BaseTL BaseCategory = "TL"
	// BaseTCI is total cost input: direct labor + subcontract + ODC + travel.
	BaseTCI BaseCategory = "TCI"
	// BaseDLH is direct labor hours.
	BaseDLH BaseCategory = "DLH"
)

// ParseBaseCategory validates a base category value.
func ParseBaseCategory(value string) (BaseCategory, error) {
	switch BaseCategory(strings.ToUpper(strings.TrimSpace(value))) {
	case BaseDL:
		return BaseDL, nil
	case BaseTL:
		return BaseTL, nil
	case BaseTCI:
		return BaseTCI, nil
	case BaseDLH:
		return BaseDLH, nil
	}
	return "", fmt.Errorf("forecast: %w: %q", ErrUnknownBase, value)
}

// LedgerRow is one normalized GL posting. Amount sign matters: credits and
// reversals are negative.
type LedgerRow struct {
	Period    shared.Period
	Account   string
	Entity    string
	Amount    float64
	SourceRow int
}

// AccountMapping classifies one GL account into a pool. An account maps to
// at most one pool.
type AccountMapping struct {
	Account       string
	PoolName      string
	Base          BaseCategory
	IsUnallowable bool
	Notes         string
}

// MappedLedgerRow is a ledger row joined to its pool classification. Rows
// with Mapped=false carry no pool and contribute nothing to pool dollars,
// but keep their original identity for drill-down and raw exports.
type MappedLedgerRow struct {
	LedgerRow
	PoolName      string
	IsUnallowable bool
	Mapped        bool
}

// DirectCost holds the per-project direct cost drivers for one period.
type DirectCost struct {
	Labor       float64 `json:"direct_labor"`
	LaborHours  float64 `json:"direct_labor_hrs"`
	Subcontract float64 `json:"subcontract"`
	ODC         float64 `json:"odc"`
	Travel      float64 `json:"travel"`
}

// Add returns the element-wise sum of two direct cost records.
func (d DirectCost) Add(other DirectCost) DirectCost {
	return DirectCost{
		Labor:       d.Labor + other.Labor,
		LaborHours:  d.LaborHours + other.LaborHours,
		Subcontract: d.Subcontract + other.Subcontract,
		ODC:         d.ODC + other.ODC,
		Travel:      d.Travel + other.Travel,
	}
}

// TCI returns total cost input for the record: labor + subcontract + ODC + travel.
func (d DirectCost) TCI() float64 {
	return d.Labor + d.Subcontract + d.ODC + d.Travel
}

// Driver returns the record's value for an allocation base category.
func (d DirectCost) Driver(base BaseCategory) float64 {
	switch base {
	case BaseDL, BaseTL:
		return d.Labor
	case BaseDLH:
		return d.LaborHours
	case BaseTCI:
		return d.TCI()
	}
	return 0
}

// DirectCostRow is one normalized project direct cost record.
type DirectCostRow struct {
	Period    shared.Period
	Project   string
	Entity    string
	Costs     DirectCost
	SourceRow int
}

// EventDeltas carries the additive adjustments of a scenario event.
type EventDeltas struct {
	Direct DirectCost
	Pools  map[string]float64
}

// ScenarioEvent is a named what-if delta applied from its effective period
// forward, inclusive, to every subsequent period in the projection horizon.
type ScenarioEvent struct {
	Scenario  string
	Effective shared.Period
	Type      string
	Project   string
	Deltas    EventDeltas
	Notes     string
	SourceRow int
}

// PoolGroup defines a rate: a pool's dollars divided by a base, evaluated
// in ascending cascade order so earlier pools' dollars enter later bases.
type PoolGroup struct {
	Name         string
	Base         BaseCategory
	CascadeOrder int
}

// ValidatePoolGroups rejects configurations that would break the cascade:
// duplicate names, duplicate cascade orders, unknown bases.
func ValidatePoolGroups(groups []PoolGroup) error {
	if len(groups) == 0 {
		return errors.New("forecast: at least one pool group required")
	}
	names := make(map[string]struct{}, len(groups))
	orders := make(map[int]string, len(groups))
	for _, g := range groups {
		if strings.TrimSpace(g.Name) == "" {
			return errors.New("forecast: pool group name required")
		}
		if _, err := ParseBaseCategory(string(g.Base)); err != nil {
			return fmt.Errorf("forecast: pool group %q: %w", g.Name, ErrUnknownBase)
		}
		if _, dup := names[g.Name]; dup {
			return fmt.Errorf("forecast: duplicate pool group %q", g.Name)
		}
		names[g.Name] = struct{}{}
		if prior, dup := orders[g.CascadeOrder]; dup {
			return fmt.Errorf("forecast: %w: %q and %q share order %d",
				ErrDuplicateCascadeOrder, prior, g.Name, g.CascadeOrder)
		}
		orders[g.CascadeOrder] = g.Name
	}
	return nil
}

// SortPoolGroups returns the groups ordered by ascending cascade order.
func SortPoolGroups(groups []PoolGroup) []PoolGroup {
	sorted := make([]PoolGroup, len(groups))
	copy(sorted, groups)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].CascadeOrder < sorted[j].CascadeOrder })
	return sorted
}

// Inputs bundles the canonical tables consumed by the pipeline.
type Inputs struct {
	Ledger      []LedgerRow
	Mappings    []AccountMapping
	DirectCosts []DirectCostRow
	Events      []ScenarioEvent
}

// Scenarios returns the distinct scenario names present in the event table,
// sorted. Falls back to a single "Base" scenario when no events carry one.
func (in Inputs) Scenarios() []string {
	seen := make(map[string]struct{})
	for _, ev := range in.Events {
		name := ev.Scenario
		if name == "" {
			name = DefaultScenario
		}
		seen[name] = struct{}{}
	}
	if len(seen) == 0 {
		return []string{DefaultScenario}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultScenario names the scenario used when events carry no name.
const DefaultScenario = "Base"

// PoolTable maps period -> pool name -> dollars.
type PoolTable map[shared.Period]map[string]float64

// BaseTable maps period -> base category -> dollars (hours for DLH).
type BaseTable map[shared.Period]map[BaseCategory]float64

// ProjectTable maps period -> project -> direct cost record.
type ProjectTable map[shared.Period]map[string]DirectCost

// Aggregates is the Aggregator output: period-level pool totals, base
// totals, and the per-project direct cost table.
type Aggregates struct {
	Pools           PoolTable
	Bases           BaseTable
	DirectByProject ProjectTable
}

// Assumptions records how a projection was produced, for auditability.
type Assumptions struct {
	Method          string        `json:"method"`
	RunRateMonths   int           `json:"run_rate_months"`
	ForecastMonths  int           `json:"forecast_months"`
	LastActual      shared.Period `json:"last_actual_period"`
	Entity          string        `json:"entity,omitempty"`
	Scenario        string        `json:"scenario,omitempty"`
	EventsApplied   int           `json:"events_applied"`
	FiscalYearStart string        `json:"fiscal_year_start,omitempty"`
}

// Projection is the working state threaded from the baseline projector into
// the scenario engine. The engine never mutates a shared baseline: it clones.
type Projection struct {
	Pools           PoolTable
	Bases           BaseTable
	DirectByProject ProjectTable
	Assumptions     Assumptions
}

// Clone returns a deep copy so scenario adjustments never leak into the
// baseline or into sibling scenarios.
func (p Projection) Clone() Projection {
	clone := Projection{
		Pools:           make(PoolTable, len(p.Pools)),
		Bases:           make(BaseTable, len(p.Bases)),
		DirectByProject: make(ProjectTable, len(p.DirectByProject)),
		Assumptions:     p.Assumptions,
	}
	for period, pools := range p.Pools {
		inner := make(map[string]float64, len(pools))
		for name, amount := range pools {
			inner[name] = amount
		}
		clone.Pools[period] = inner
	}
	for period, bases := range p.Bases {
		inner := make(map[BaseCategory]float64, len(bases))
		for base, amount := range bases {
			inner[base] = amount
		}
		clone.Bases[period] = inner
	}
	for period, projects := range p.DirectByProject {
		inner := make(map[string]DirectCost, len(projects))
		for project, costs := range projects {
			inner[project] = costs
		}
		clone.DirectByProject[period] = inner
	}
	return clone
}

// Periods returns every period in the projection, sorted ascending.
func (p Projection) Periods() []shared.Period {
	seen := make(map[shared.Period]struct{}, len(p.Pools))
	for period := range p.Pools {
		seen[period] = struct{}{}
	}
	for period := range p.Bases {
		seen[period] = struct{}{}
	}
	for period := range p.DirectByProject {
		seen[period] = struct{}{}
	}
	periods := make([]shared.Period, 0, len(seen))
	for period := range seen {
		periods = append(periods, period)
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })
	return periods
}

// LoadedCost breaks down a project's fully burdened cost for one period.
type LoadedCost struct {
	Direct   DirectCost         `json:"direct"`
	TCI      float64            `json:"tci"`
	Indirect map[string]float64 `json:"indirect"`
	Total    float64            `json:"total"`
}

// RateTable maps period -> pool name -> rate (ratio, not percent).
type RateTable map[shared.Period]map[string]float64

// ImpactTable maps period -> project -> loaded cost breakdown.
type ImpactTable map[shared.Period]map[string]LoadedCost

// ForecastResult is the terminal, immutable output artifact per scenario.
type ForecastResult struct {
	Scenario       string          `json:"scenario"`
	Periods        []shared.Period `json:"periods"`
	Pools          PoolTable       `json:"pools"`
	Bases          BaseTable       `json:"bases"`
	Rates          RateTable       `json:"rates"`
	ProjectImpacts ImpactTable     `json:"project_impacts"`
	YTDRates       RateTable       `json:"ytd_rates,omitempty"`
	Assumptions    Assumptions     `json:"assumptions"`
	Warnings       []Warning       `json:"warnings"`
}

// Params are the scalar knobs of a pipeline run.
type Params struct {
	Scenario        string
	ForecastMonths  int
	RunRateMonths   int
	Entity          string
	FiscalYearStart *shared.Period
}

// Validate ensures the run parameters are usable.
func (p Params) Validate() error {
	if p.ForecastMonths < 1 {
		return errors.New("forecast: forecast months must be >= 1")
	}
	if p.RunRateMonths < 1 {
		return errors.New("forecast: run rate months must be >= 1")
	}
	return nil
}

var (
	// ErrInsufficientData occurs when no actual periods exist to project from.
	ErrInsufficientData = errors.New("forecast: no actual periods available")
	// ErrDuplicateCascadeOrder occurs when two pool groups share a cascade order.
	ErrDuplicateCascadeOrder = errors.New("forecast: duplicate cascade order")
	// ErrUnknownBase occurs when a base category is not DL, TL, TCI, or DLH.
	ErrUnknownBase = errors.New("forecast: unknown base category")
)

// SchemaError indicates a required input column is absent. It is fatal: the
// pipeline halts before any row-level processing.
type SchemaError struct {
	Table  string
	Column string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("forecast: table %s missing required column %s", e.Table, e.Column)
}
