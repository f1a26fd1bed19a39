package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a Sheet into a landscape weekly-grid PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with the timetable grid.
func (e *PDFExporter) Render(sheet Sheet) ([]byte, error) {
	if len(sheet.Days) == 0 {
		return nil, fmt.Errorf("pdf export requires at least one day")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if sheet.Titled != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(sheet.Titled), "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	timeColWidth := 30.0
	colWidth := (277.0 - timeColWidth) / float64(len(sheet.Days))

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(timeColWidth, 8, "Time", "1", 0, "C", false, 0, "")
	for _, day := range sheet.Days {
		pdf.CellFormat(colWidth, 8, day, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, slot := range sheet.Slots {
		pdf.CellFormat(timeColWidth, 7, slot, "1", 0, "C", false, 0, "")
		for _, day := range sheet.Days {
			pdf.CellFormat(colWidth, 7, sheet.Cells[day][slot], "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
