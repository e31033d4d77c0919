package forecast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ledgercast/ledgercast/internal/shared"
)

// Canonical input table names, matching the CSV file names accepted on import.
const (
	TableLedger      = "GL_Actuals"
	TableAccountMap  = "Account_Map"
	TableDirectCosts = "Direct_Costs_By_Project"
	TableEvents      = "Scenario_Events"
)

// RawTable is a CSV-shaped table: a header and string cells. The normalizer
// turns raw tables into canonical typed rows.
type RawTable struct {
	Name   string
	Header []string
	Rows   [][]string
}

// IsEmpty reports whether the table carries neither header nor rows.
func (t RawTable) IsEmpty() bool {
	return len(t.Header) == 0 && len(t.Rows) == 0
}

func (t RawTable) column(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func (t RawTable) cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func (t RawTable) requireColumns(names ...string) error {
	for _, name := range names {
		if t.column(name) < 0 {
			return &SchemaError{Table: t.Name, Column: name}
		}
	}
	return nil
}

// RawInputs bundles the four raw tables the pipeline accepts.
type RawInputs struct {
	Ledger      RawTable
	AccountMap  RawTable
	DirectCosts RawTable
	Events      RawTable
}

// NormalizeInputs validates and standardizes the raw tables into canonical
// typed rows. Missing required columns fail hard before any row parsing;
// malformed rows are excluded and reported in warnings, never silently
// dropped.
func NormalizeInputs(raw RawInputs) (Inputs, []Warning, error) {
	var inputs Inputs
	var warnings []Warning

	ledger, ws, err := NormalizeLedger(raw.Ledger)
	if err != nil {
		return Inputs{}, nil, err
	}
	warnings = append(warnings, ws...)

	mappings, ws, err := NormalizeAccountMap(raw.AccountMap)
	if err != nil {
		return Inputs{}, nil, err
	}
	warnings = append(warnings, ws...)

	direct, ws, err := NormalizeDirectCosts(raw.DirectCosts)
	if err != nil {
		return Inputs{}, nil, err
	}
	warnings = append(warnings, ws...)

	events, ws, err := NormalizeEvents(raw.Events)
	if err != nil {
		return Inputs{}, nil, err
	}
	warnings = append(warnings, ws...)

	inputs.Ledger = ledger
	inputs.Mappings = mappings
	inputs.DirectCosts = direct
	inputs.Events = events
	return inputs, warnings, nil
}

// NormalizeLedger standardizes GL actual rows.
func NormalizeLedger(t RawTable) ([]LedgerRow, []Warning, error) {
	t.Name = TableLedger
	if err := t.requireColumns("Period", "Account", "Amount"); err != nil {
		return nil, nil, err
	}
	periodCol := t.column("Period")
	accountCol := t.column("Account")
	amountCol := t.column("Amount")
	entityCol := t.column("Entity")

	rows := make([]LedgerRow, 0, len(t.Rows))
	var warnings []Warning
	for i, raw := range t.Rows {
		rowNum := i + 1
		period, ok := parsePeriodCell(t, raw, periodCol, rowNum, "Period", &warnings)
		if !ok {
			continue
		}
		amount, ok := parseAmountCell(t, raw, amountCol, rowNum, "Amount", &warnings)
		if !ok {
			continue
		}
		account := t.cell(raw, accountCol)
		if account == "" {
			warnings = append(warnings, Warning{
				Kind: WarnValidation, Table: t.Name, Row: rowNum, Column: "Account",
				Detail: "empty account; row excluded",
			})
			continue
		}
		rows = append(rows, LedgerRow{
			Period:    period,
			Account:   account,
			Entity:    t.cell(raw, entityCol),
			Amount:    amount,
			SourceRow: rowNum,
		})
	}
	return rows, warnings, nil
}

// NormalizeAccountMap standardizes account-to-pool mapping rows.
func NormalizeAccountMap(t RawTable) ([]AccountMapping, []Warning, error) {
	t.Name = TableAccountMap
	if err := t.requireColumns("Account", "Pool"); err != nil {
		return nil, nil, err
	}
	accountCol := t.column("Account")
	poolCol := t.column("Pool")
	baseCol := t.column("BaseCategory")
	unallowableCol := t.column("IsUnallowable")
	notesCol := t.column("Notes")

	rows := make([]AccountMapping, 0, len(t.Rows))
	var warnings []Warning
	for i, raw := range t.Rows {
		rowNum := i + 1
		account := t.cell(raw, accountCol)
		if account == "" {
			warnings = append(warnings, Warning{
				Kind: WarnValidation, Table: t.Name, Row: rowNum, Column: "Account",
				Detail: "empty account; row excluded",
			})
			continue
		}
		base := BaseCategory("")
		if value := t.cell(raw, baseCol); value != "" {
			parsed, err := ParseBaseCategory(value)
			if err != nil {
				warnings = append(warnings, Warning{
					Kind: WarnValidation, Table: t.Name, Row: rowNum, Column: "BaseCategory",
					Detail: fmt.Sprintf("unknown base category %q; row excluded", value),
				})
				continue
			}
			base = parsed
		}
		unallowable, ok := parseBoolCell(t, raw, unallowableCol, rowNum, "IsUnallowable", &warnings)
		if !ok {
			continue
		}
		rows = append(rows, AccountMapping{
			Account:       account,
			PoolName:      t.cell(raw, poolCol),
			Base:          base,
			IsUnallowable: unallowable,
			Notes:         t.cell(raw, notesCol),
		})
	}
	return rows, warnings, nil
}

// NormalizeDirectCosts standardizes per-project direct cost rows. Missing
// numeric columns are synthesized as zero.
func NormalizeDirectCosts(t RawTable) ([]DirectCostRow, []Warning, error) {
	t.Name = TableDirectCosts
	if err := t.requireColumns("Period", "Project"); err != nil {
		return nil, nil, err
	}
	periodCol := t.column("Period")
	projectCol := t.column("Project")
	entityCol := t.column("Entity")
	laborCol := t.column("DirectLabor$")
	hoursCol := t.column("DirectLaborHrs")
	subkCol := t.column("Subk")
	odcCol := t.column("ODC")
	travelCol := t.column("Travel")

	rows := make([]DirectCostRow, 0, len(t.Rows))
	var warnings []Warning
	for i, raw := range t.Rows {
		rowNum := i + 1
		period, ok := parsePeriodCell(t, raw, periodCol, rowNum, "Period", &warnings)
		if !ok {
			continue
		}
		project := t.cell(raw, projectCol)
		if project == "" {
			warnings = append(warnings, Warning{
				Kind: WarnValidation, Table: t.Name, Row: rowNum, Column: "Project",
				Detail: "empty project; row excluded",
			})
			continue
		}
		var costs DirectCost
		fields := []struct {
			col    int
			name   string
			target *float64
		}{
			{laborCol, "DirectLabor$", &costs.Labor},
			{hoursCol, "DirectLaborHrs", &costs.LaborHours},
			{subkCol, "Subk", &costs.Subcontract},
			{odcCol, "ODC", &costs.ODC},
			{travelCol, "Travel", &costs.Travel},
		}
		valid := true
		for _, f := range fields {
			value, ok := parseOptionalNumberCell(t, raw, f.col, rowNum, f.name, &warnings)
			if !ok {
				valid = false
				break
			}
			*f.target = value
		}
		if !valid {
			continue
		}
		rows = append(rows, DirectCostRow{
			Period:    period,
			Project:   project,
			Entity:    t.cell(raw, entityCol),
			Costs:     costs,
			SourceRow: rowNum,
		})
	}
	return rows, warnings, nil
}

// poolDeltaPrefix marks event columns carrying per-pool dollar deltas, e.g.
// DeltaPoolFringe applies to the Fringe pool.
const poolDeltaPrefix = "DeltaPool"

// NormalizeEvents standardizes scenario event rows. An entirely absent table
// means no events; a present table must carry EffectivePeriod.
func NormalizeEvents(t RawTable) ([]ScenarioEvent, []Warning, error) {
	t.Name = TableEvents
	if t.IsEmpty() {
		return nil, nil, nil
	}
	if err := t.requireColumns("EffectivePeriod"); err != nil {
		return nil, nil, err
	}
	effectiveCol := t.column("EffectivePeriod")
	scenarioCol := t.column("Scenario")
	typeCol := t.column("Type")
	projectCol := t.column("Project")
	notesCol := t.column("Notes")
	laborCol := t.column("DeltaDirectLabor$")
	hoursCol := t.column("DeltaDirectLaborHrs")
	subkCol := t.column("DeltaSubk")
	odcCol := t.column("DeltaODC")
	travelCol := t.column("DeltaTravel")

	type poolColumn struct {
		col  int
		pool string
	}
	var poolCols []poolColumn
	for i, h := range t.Header {
		name := strings.TrimSpace(h)
		if !strings.HasPrefix(name, poolDeltaPrefix) {
			continue
		}
		pool := name[len(poolDeltaPrefix):]
		if pool == "GA" {
			// Legacy column alias kept for older event exports.
			pool = "G&A"
		}
		if pool != "" {
			poolCols = append(poolCols, poolColumn{col: i, pool: pool})
		}
	}

	events := make([]ScenarioEvent, 0, len(t.Rows))
	var warnings []Warning
	for i, raw := range t.Rows {
		rowNum := i + 1
		effective, ok := parsePeriodCell(t, raw, effectiveCol, rowNum, "EffectivePeriod", &warnings)
		if !ok {
			continue
		}
		scenario := t.cell(raw, scenarioCol)
		if scenario == "" {
			scenario = DefaultScenario
		}
		var deltas EventDeltas
		fields := []struct {
			col    int
			name   string
			target *float64
		}{
			{laborCol, "DeltaDirectLabor$", &deltas.Direct.Labor},
			{hoursCol, "DeltaDirectLaborHrs", &deltas.Direct.LaborHours},
			{subkCol, "DeltaSubk", &deltas.Direct.Subcontract},
			{odcCol, "DeltaODC", &deltas.Direct.ODC},
			{travelCol, "DeltaTravel", &deltas.Direct.Travel},
		}
		valid := true
		for _, f := range fields {
			value, ok := parseOptionalNumberCell(t, raw, f.col, rowNum, f.name, &warnings)
			if !ok {
				valid = false
				break
			}
			*f.target = value
		}
		if !valid {
			continue
		}
		for _, pc := range poolCols {
			value, ok := parseOptionalNumberCell(t, raw, pc.col, rowNum, t.Header[pc.col], &warnings)
			if !ok {
				valid = false
				break
			}
			if value != 0 {
				if deltas.Pools == nil {
					deltas.Pools = make(map[string]float64)
				}
				deltas.Pools[pc.pool] += value
			}
		}
		if !valid {
			continue
		}
		events = append(events, ScenarioEvent{
			Scenario:  scenario,
			Effective: effective,
			Type:      t.cell(raw, typeCol),
			Project:   t.cell(raw, projectCol),
			Deltas:    deltas,
			Notes:     t.cell(raw, notesCol),
			SourceRow: rowNum,
		})
	}
	return events, warnings, nil
}

func parsePeriodCell(t RawTable, raw []string, col, rowNum int, column string, warnings *[]Warning) (shared.Period, bool) {
	value := t.cell(raw, col)
	period, err := shared.ParsePeriod(value)
	if err != nil {
		*warnings = append(*warnings, Warning{
			Kind: WarnValidation, Table: t.Name, Row: rowNum, Column: column,
			Detail: fmt.Sprintf("invalid period %q; row excluded", value),
		})
		return shared.Period{}, false
	}
	return period, true
}

func parseAmountCell(t RawTable, raw []string, col, rowNum int, column string, warnings *[]Warning) (float64, bool) {
	value := t.cell(raw, col)
	amount, err := parseNumber(value)
	if err != nil {
		*warnings = append(*warnings, Warning{
			Kind: WarnValidation, Table: t.Name, Row: rowNum, Column: column,
			Detail: fmt.Sprintf("non-numeric amount %q; row excluded", value),
		})
		return 0, false
	}
	return amount, true
}

// parseOptionalNumberCell treats absent columns and empty cells as zero but
// reports malformed values.
func parseOptionalNumberCell(t RawTable, raw []string, col, rowNum int, column string, warnings *[]Warning) (float64, bool) {
	if col < 0 {
		return 0, true
	}
	value := t.cell(raw, col)
	if value == "" {
		return 0, true
	}
	number, err := parseNumber(value)
	if err != nil {
		*warnings = append(*warnings, Warning{
			Kind: WarnValidation, Table: t.Name, Row: rowNum, Column: column,
			Detail: fmt.Sprintf("non-numeric value %q; row excluded", value),
		})
		return 0, false
	}
	return number, true
}

func parseBoolCell(t RawTable, raw []string, col, rowNum int, column string, warnings *[]Warning) (bool, bool) {
	if col < 0 {
		return false, true
	}
	value := strings.ToLower(t.cell(raw, col))
	switch value {
	case "", "0", "false", "no", "n":
		return false, true
	case "1", "true", "yes", "y":
		return true, true
	}
	*warnings = append(*warnings, Warning{
		Kind: WarnValidation, Table: t.Name, Row: rowNum, Column: column,
		Detail: fmt.Sprintf("unrecognized boolean %q; row excluded", t.cell(raw, col)),
	})
	return false, false
}

// parseNumber accepts plain decimals plus the thousands separators and
// currency prefix that show up in exported spreadsheets.
func parseNumber(value string) (float64, error) {
	cleaned := strings.ReplaceAll(value, ",", "")
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, strconv.ErrSyntax
	}
	return strconv.ParseFloat(cleaned, 64)
}
