package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a timetable grid into a landscape PDF table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderGrid creates a PDF document with the grid as a bordered table, one
// column per day plus a leading time-window column.
func (e *PDFExporter) RenderGrid(grid Grid) ([]byte, error) {
	if len(grid.Days) == 0 || len(grid.Windows) == 0 {
		return nil, fmt.Errorf("pdf grid requires days and windows")
	}
	if len(grid.Cells) != len(grid.Windows) {
		return nil, fmt.Errorf("pdf grid has %d cell rows for %d windows", len(grid.Cells), len(grid.Windows))
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.AddPage()

	if grid.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, grid.Title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	timeColWidth := 32.0
	dayColWidth := (277.0 - timeColWidth) / float64(len(grid.Days))

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(timeColWidth, 9, "Time", "1", 0, "C", false, 0, "")
	for _, day := range grid.Days {
		pdf.CellFormat(dayColWidth, 9, day, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for i, window := range grid.Windows {
		pdf.CellFormat(timeColWidth, 16, window, "1", 0, "C", false, 0, "")
		for j := range grid.Days {
			var cell string
			if j < len(grid.Cells[i]) {
				cell = grid.Cells[i][j]
			}
			x, y := pdf.GetXY()
			pdf.MultiCell(dayColWidth, 5.33, cell, "1", "C", false)
			pdf.SetXY(x+dayColWidth, y)
		}
		pdf.Ln(16)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
