package forecast

import "fmt"

// MapAccounts joins each ledger row to its pool classification. Rows whose
// account has no mapping are kept for drill-down but contribute nothing to
// any pool; each distinct unmapped account is reported once.
func MapAccounts(ledger []LedgerRow, mappings []AccountMapping) ([]MappedLedgerRow, []Warning) {
	byAccount := make(map[string]AccountMapping, len(mappings))
	for _, m := range mappings {
		byAccount[m.Account] = m
	}

	mapped := make([]MappedLedgerRow, 0, len(ledger))
	unmappedCounts := make(map[string]int)
	var unmappedOrder []string
	for _, row := range ledger {
		m, ok := byAccount[row.Account]
		if !ok {
			if unmappedCounts[row.Account] == 0 {
				unmappedOrder = append(unmappedOrder, row.Account)
			}
			unmappedCounts[row.Account]++
			mapped = append(mapped, MappedLedgerRow{LedgerRow: row})
			continue
		}
		mapped = append(mapped, MappedLedgerRow{
			LedgerRow:     row,
			PoolName:      m.PoolName,
			IsUnallowable: m.IsUnallowable,
			Mapped:        true,
		})
	}

	warnings := make([]Warning, 0, len(unmappedOrder))
	for _, account := range unmappedOrder {
		warnings = append(warnings, Warning{
			Kind:  WarnUnmappedAccount,
			Table: TableLedger,
			Detail: fmt.Sprintf("account %s has no mapping; %d row(s) excluded from pools",
				account, unmappedCounts[account]),
		})
	}
	return mapped, warnings
}
