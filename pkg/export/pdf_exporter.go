package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders a Document into a simple A4 PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF with the title, the preamble fields and one table per
// section.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 16)
		pdf.CellFormat(0, 10, doc.Title, "", 1, "C", false, 0, "")
		pdf.Ln(3)
	}

	pdf.SetFont("Arial", "", 11)
	for _, field := range doc.Preamble {
		pdf.CellFormat(0, 6, fmt.Sprintf("%s: %s", field.Label, field.Value), "", 1, "", false, 0, "")
	}

	for _, section := range doc.Sections {
		pdf.Ln(5)
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 8, section.Heading, "", 1, "", false, 0, "")

		if len(section.Headers) == 0 {
			continue
		}
		colWidth := 190.0 / float64(len(section.Headers))

		pdf.SetFont("Arial", "B", 10)
		for _, header := range section.Headers {
			pdf.CellFormat(colWidth, 7, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, row := range section.Rows {
			for i := range section.Headers {
				value := ""
				if i < len(row) {
					value = row[i]
				}
				pdf.CellFormat(colWidth, 6, value, "1", 0, "", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
