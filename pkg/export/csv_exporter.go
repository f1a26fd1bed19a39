package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Sheet is the tabular form of a weekly timetable: one row per slot label,
// one column per working day.
type Sheet struct {
	Days   []string
	Slots  []string
	Cells  map[string]map[string]string // day -> slot label -> rendered text
	Titled string
}

// CSVExporter renders a Sheet into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes, slots as rows and days as columns.
func (e *CSVExporter) Render(sheet Sheet) ([]byte, error) {
	if len(sheet.Days) == 0 {
		return nil, fmt.Errorf("csv export requires at least one day")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	header := append([]string{"Time"}, sheet.Days...)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, slot := range sheet.Slots {
		record := make([]string, 0, len(sheet.Days)+1)
		record = append(record, slot)
		for _, day := range sheet.Days {
			record = append(record, sheet.Cells[day][slot])
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
