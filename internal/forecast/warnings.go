package forecast

import (
	"fmt"

	"github.com/ledgercast/ledgercast/internal/shared"
)

// WarningKind enumerates the non-fatal conditions a run can accumulate.
type WarningKind string

const (
	// WarnValidation flags a malformed row excluded during normalization.
	WarnValidation WarningKind = "validation"
	// WarnUnmappedAccount flags a ledger row whose account has no mapping.
	WarnUnmappedAccount WarningKind = "unmapped_account"
	// WarnDegenerateBase flags a period whose base is zero while the pool
	// carries nonzero dollars; the rate is reported as 0.
	WarnDegenerateBase WarningKind = "degenerate_base"
	// WarnEntityFilter flags an entity filter that matched no rows.
	WarnEntityFilter WarningKind = "entity_filter"
)

// Warning is a non-fatal condition with enough identity for the caller to
// show an actionable message ("N imported, M errors").
type Warning struct {
	Kind   WarningKind   `json:"kind"`
	Table  string        `json:"table,omitempty"`
	Row    int           `json:"row,omitempty"`
	Column string        `json:"column,omitempty"`
	Period shared.Period `json:"period,omitzero"`
	Detail string        `json:"detail"`
}

// String renders the warning for logs.
func (w Warning) String() string {
	switch {
	case w.Table != "" && w.Row > 0:
		return fmt.Sprintf("%s: %s row %d: %s", w.Kind, w.Table, w.Row, w.Detail)
	case !w.Period.IsZero():
		return fmt.Sprintf("%s: %s: %s", w.Kind, w.Period, w.Detail)
	default:
		return fmt.Sprintf("%s: %s", w.Kind, w.Detail)
	}
}
