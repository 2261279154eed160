package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders a Document into CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes: preamble label/value lines first, then
// each section as a heading row, a header row and its data rows.
func (e *CSVExporter) Render(doc Document) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)

	for _, field := range doc.Preamble {
		if err := writer.Write([]string{field.Label, field.Value}); err != nil {
			return nil, fmt.Errorf("write csv preamble: %w", err)
		}
	}

	for _, section := range doc.Sections {
		if err := writer.Write([]string{section.Heading}); err != nil {
			return nil, fmt.Errorf("write csv section heading: %w", err)
		}
		if len(section.Headers) > 0 {
			if err := writer.Write(section.Headers); err != nil {
				return nil, fmt.Errorf("write csv headers: %w", err)
			}
		}
		for _, row := range section.Rows {
			if err := writer.Write(row); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
