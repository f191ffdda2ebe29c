package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// SheetHeader captions a printed sheet. The subtitle typically carries the
// packet id and round so the floor can match paper to bundle.
type SheetHeader struct {
	Title    string
	Subtitle string
}

// SheetExporter renders tables as printable A4 sheets.
type SheetExporter struct{}

// NewSheetExporter constructs a sheet exporter.
func NewSheetExporter() *SheetExporter {
	return &SheetExporter{}
}

const sheetWidth = 190.0

// Render creates a one-table PDF sheet. Column widths follow the relative
// weights when given, otherwise columns share the width evenly.
func (e *SheetExporter) Render(t Table, header SheetHeader, weights []float64) ([]byte, error) {
	if len(t.Columns) == 0 {
		return nil, fmt.Errorf("sheet requires at least one column")
	}
	widths, err := columnWidths(len(t.Columns), weights)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if header.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 9, header.Title, "", 1, "C", false, 0, "")
	}
	if header.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, header.Subtitle, "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, column := range t.Columns {
		pdf.CellFormat(widths[i], 8, column, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for n, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("sheet row %d has %d values, want %d", n, len(row), len(t.Columns))
		}
		for i, value := range row {
			pdf.CellFormat(widths[i], 7, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render sheet: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(columns int, weights []float64) ([]float64, error) {
	widths := make([]float64, columns)
	if len(weights) == 0 {
		for i := range widths {
			widths[i] = sheetWidth / float64(columns)
		}
		return widths, nil
	}
	if len(weights) != columns {
		return nil, fmt.Errorf("sheet has %d columns but %d width weights", columns, len(weights))
	}
	var total float64
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return nil, fmt.Errorf("sheet width weights must be positive")
	}
	for i, w := range weights {
		widths[i] = sheetWidth * w / total
	}
	return widths, nil
}
