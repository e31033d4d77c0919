package forecast

import (
	"encoding/csv"
	"fmt"
	"io"
)

// ReadTable parses CSV content into a raw table. The first record is the
// header; ragged rows are tolerated (the normalizer treats short rows as
// empty cells). An empty reader yields an empty table.
func ReadTable(r io.Reader, name string) (RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table := RawTable{Name: name}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return RawTable{}, fmt.Errorf("forecast: read %s csv: %w", name, err)
		}
		if table.Header == nil {
			table.Header = record
			continue
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// WriteTable renders a raw table as CSV.
func WriteTable(w io.Writer, table RawTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Header); err != nil {
		return fmt.Errorf("forecast: write %s csv: %w", table.Name, err)
	}
	for _, row := range table.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("forecast: write %s csv: %w", table.Name, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// TableByName resolves a canonical table name to the matching raw table slot.
func (raw *RawInputs) TableByName(name string) (*RawTable, bool) {
	switch name {
	case TableLedger:
		return &raw.Ledger, true
	case TableAccountMap:
		return &raw.AccountMap, true
	case TableDirectCosts:
		return &raw.DirectCosts, true
	case TableEvents:
		return &raw.Events, true
	}
	return nil, false
}
