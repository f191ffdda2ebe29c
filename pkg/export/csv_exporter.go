package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is ordered tabular content for warehouse-facing exports. Column
// order is the render order; every row must match the column count.
type Table struct {
	Columns []string
	Rows    [][]string
}

// AddRow appends one row. Callers pass values in column order.
func (t *Table) AddRow(values ...string) {
	t.Rows = append(t.Rows, values)
}

// CSVExporter renders a Table as CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the table.
func (e *CSVExporter) Render(t Table) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("csv requires at least one column")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(t.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("csv row %d has %d values, want %d", i, len(row), len(t.Columns))
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
