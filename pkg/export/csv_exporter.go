package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Grid describes a weekly timetable laid out as time windows by days.
// Cells is indexed [window][day] and holds pre-formatted cell text.
type Grid struct {
	Title   string
	Days    []string
	Windows []string
	Cells   [][]string
}

// CSVExporter renders a timetable grid into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// RenderGrid produces CSV encoded bytes, one row per time window with the
// window label in the first column.
func (e *CSVExporter) RenderGrid(grid Grid) ([]byte, error) {
	if len(grid.Days) == 0 || len(grid.Windows) == 0 {
		return nil, fmt.Errorf("csv grid requires days and windows")
	}
	if len(grid.Cells) != len(grid.Windows) {
		return nil, fmt.Errorf("csv grid has %d cell rows for %d windows", len(grid.Cells), len(grid.Windows))
	}

	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	header := append([]string{"Time"}, grid.Days...)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for i, window := range grid.Windows {
		record := make([]string, 0, len(grid.Days)+1)
		record = append(record, window)
		for j := range grid.Days {
			var cell string
			if j < len(grid.Cells[i]) {
				cell = grid.Cells[i][j]
			}
			record = append(record, cell)
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
