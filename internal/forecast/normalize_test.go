package forecast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercast/ledgercast/internal/shared"
)

func TestNormalizeLedgerMissingColumnIsFatal(t *testing.T) {
	table := RawTable{
		Header: []string{"Period", "Account"},
		Rows:   [][]string{{"2025-01", "6000"}},
	}
	_, _, err := NormalizeLedger(table)
	require.Error(t, err)

	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, TableLedger, schemaErr.Table)
	assert.Equal(t, "Amount", schemaErr.Column)
}

func TestNormalizeLedgerRowLevelFailuresAreWarnings(t *testing.T) {
	table := RawTable{
		Header: []string{"Period", "Account", "Amount"},
		Rows: [][]string{
			{"2025-01", "6000", "1500.25"},
			{"Jan 2025", "6000", "100"},     // bad period
			{"2025-02", "6100", "abc"},      // bad amount
			{"2025-02", "", "50"},           // empty account
			{"2025-03", "6200", "-2,500.00"}, // negative with separator
		},
	}
	rows, warnings, err := NormalizeLedger(table)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Len(t, warnings, 3)

	assert.Equal(t, "6000", rows[0].Account)
	assert.InDelta(t, 1500.25, rows[0].Amount, 1e-9)
	assert.InDelta(t, -2500, rows[1].Amount, 1e-9)

	for _, w := range warnings {
		assert.Equal(t, WarnValidation, w.Kind)
		assert.Equal(t, TableLedger, w.Table)
	}
	assert.Equal(t, 2, warnings[0].Row)
	assert.Equal(t, "Period", warnings[0].Column)
	assert.Equal(t, "Amount", warnings[1].Column)
}

func TestNormalizeAccountMapDefaults(t *testing.T) {
	table := RawTable{
		Header: []string{"Account", "Pool"},
		Rows:   [][]string{{"6000", "Fringe"}},
	}
	rows, warnings, err := NormalizeAccountMap(table)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].IsUnallowable)
	assert.Empty(t, rows[0].Base)
}

func TestNormalizeDirectCostsSynthesizesMissingNumericColumns(t *testing.T) {
	table := RawTable{
		Header: []string{"Period", "Project", "DirectLabor$"},
		Rows: [][]string{
			{"2025-01", "P-1", "120000"},
			{"2025-01", "P-2", ""},
		},
	}
	rows, warnings, err := NormalizeDirectCosts(table)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, rows, 2)
	assert.InDelta(t, 120_000, rows[0].Costs.Labor, 1e-9)
	assert.Zero(t, rows[0].Costs.Subcontract)
	assert.Zero(t, rows[1].Costs.Labor)
}

func TestNormalizeEventsPoolDeltaColumns(t *testing.T) {
	table := RawTable{
		Header: []string{"Scenario", "EffectivePeriod", "Project", "DeltaDirectLabor$", "DeltaPoolFringe", "DeltaPoolGA"},
		Rows: [][]string{
			{"Win", "2025-06", "P-1", "90000", "4000", "2000"},
			{"", "2025-07", "", "", "", "1000"},
		},
	}
	events, warnings, err := NormalizeEvents(table)
	require.NoError(t, err)
	require.Empty(t, warnings)
	require.Len(t, events, 2)

	assert.Equal(t, "Win", events[0].Scenario)
	assert.InDelta(t, 90_000, events[0].Deltas.Direct.Labor, 1e-9)
	assert.InDelta(t, 4_000, events[0].Deltas.Pools["Fringe"], 1e-9)
	// DeltaPoolGA is the legacy alias for the G&A pool.
	assert.InDelta(t, 2_000, events[0].Deltas.Pools["G&A"], 1e-9)

	assert.Equal(t, DefaultScenario, events[1].Scenario)
}

func TestNormalizeEventsAbsentTableMeansNoEvents(t *testing.T) {
	events, warnings, err := NormalizeEvents(RawTable{})
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Empty(t, warnings)
}

func TestNormalizeEventsMissingEffectivePeriodIsFatal(t *testing.T) {
	table := RawTable{
		Header: []string{"Scenario", "Project"},
		Rows:   [][]string{{"Win", "P-1"}},
	}
	_, _, err := NormalizeEvents(table)
	var schemaErr *SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "EffectivePeriod", schemaErr.Column)
}

func TestNormalizeInputsAggregatesWarnings(t *testing.T) {
	raw := GenerateDataset(SynthSpec{Start: shared.MustPeriod("2025-01"), Months: 6, Projects: 2, Seed: 7})
	raw.Ledger.Rows = append(raw.Ledger.Rows, []string{"bad-period", "6000", "10"})

	inputs, warnings, err := NormalizeInputs(raw)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnValidation, warnings[0].Kind)
	assert.Len(t, inputs.Ledger, 6*4)
	assert.Len(t, inputs.DirectCosts, 6*2)
	assert.Len(t, inputs.Events, 3)
}
