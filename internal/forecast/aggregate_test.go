package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgercast/ledgercast/internal/shared"
)

func TestAggregatePoolsExcludeUnmappedAndUnallowable(t *testing.T) {
	jan := shared.MustPeriod("2025-01")
	mapped := []MappedLedgerRow{
		{LedgerRow: LedgerRow{Period: jan, Account: "6000", Amount: 100}, PoolName: "Fringe", Mapped: true},
		{LedgerRow: LedgerRow{Period: jan, Account: "6000", Amount: -20}, PoolName: "Fringe", Mapped: true},
		{LedgerRow: LedgerRow{Period: jan, Account: "6999", Amount: 40}, PoolName: "Unallowable", Mapped: true, IsUnallowable: true},
		{LedgerRow: LedgerRow{Period: jan, Account: "9999", Amount: 999}},
	}
	agg, warnings := Aggregate(mapped, nil, "")
	require.Empty(t, warnings)

	assert.InDelta(t, 80, agg.Pools[jan]["Fringe"], 1e-9)
	_, hasUnallowable := agg.Pools[jan]["Unallowable"]
	assert.False(t, hasUnallowable, "unallowable dollars must not reach pools")
	assert.Len(t, agg.Pools[jan], 1)
}

func TestAggregateBaseFormulas(t *testing.T) {
	jan := shared.MustPeriod("2025-01")
	direct := []DirectCostRow{
		{Period: jan, Project: "P-1", Costs: DirectCost{Labor: 100, LaborHours: 10, Subcontract: 50, ODC: 20, Travel: 5}},
		{Period: jan, Project: "P-1", Costs: DirectCost{Labor: 25}},
		{Period: jan, Project: "P-2", Costs: DirectCost{Labor: 75, LaborHours: 8}},
	}
	agg, _ := Aggregate(nil, direct, "")

	// Duplicate project/period rows sum.
	assert.InDelta(t, 125, agg.DirectByProject[jan]["P-1"].Labor, 1e-9)

	bases := agg.Bases[jan]
	assert.InDelta(t, 200, bases[BaseDL], 1e-9)
	assert.InDelta(t, 200, bases[BaseTL], 1e-9)
	assert.InDelta(t, 18, bases[BaseDLH], 1e-9)
	assert.InDelta(t, 275, bases[BaseTCI], 1e-9)
}

func TestAggregateNeverDropsAPeriod(t *testing.T) {
	jan := shared.MustPeriod("2025-01")
	feb := shared.MustPeriod("2025-02")
	mapped := []MappedLedgerRow{
		{LedgerRow: LedgerRow{Period: jan, Account: "6000", Amount: 10}, PoolName: "Fringe", Mapped: true},
	}
	direct := []DirectCostRow{
		{Period: feb, Project: "P-1", Costs: DirectCost{Labor: 100}},
	}
	agg, _ := Aggregate(mapped, direct, "")

	// Ledger-only period appears with zero direct costs, and vice versa.
	require.Contains(t, agg.Bases, jan)
	assert.Zero(t, agg.Bases[jan][BaseTCI])
	require.Contains(t, agg.Pools, feb)
	assert.Empty(t, agg.Pools[feb])
}

func TestAggregateEntityFilter(t *testing.T) {
	jan := shared.MustPeriod("2025-01")
	mapped := []MappedLedgerRow{
		{LedgerRow: LedgerRow{Period: jan, Account: "6000", Amount: 10, Entity: "ACME"}, PoolName: "Fringe", Mapped: true},
		{LedgerRow: LedgerRow{Period: jan, Account: "6000", Amount: 99, Entity: "OTHER"}, PoolName: "Fringe", Mapped: true},
	}
	agg, warnings := Aggregate(mapped, nil, "ACME")
	require.Empty(t, warnings)
	assert.InDelta(t, 10, agg.Pools[jan]["Fringe"], 1e-9)

	_, warnings = Aggregate(mapped, nil, "NOBODY")
	require.Len(t, warnings, 1)
	assert.Equal(t, WarnEntityFilter, warnings[0].Kind)
}
