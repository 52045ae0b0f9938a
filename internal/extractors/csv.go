package extractors

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
)

// Ensure CSV implements the interface.
var _ driven.Extractor = (*CSV)(nil)

// CSV handles CSV files. Rows are rewritten as labelled key/value
// blocks so column meaning survives chunking and embedding:
//
//	Headers: name, role
//
//	Row 1:
//	  name: Ada
//	  role: engineer
type CSV struct{}

// NewCSV creates a new CSV extractor.
func NewCSV() *CSV {
	return &CSV{}
}

// Format returns the format this extractor handles.
func (e *CSV) Format() domain.Format {
	return domain.FormatCSV
}

// Extract converts a CSV file to labelled row text. The first record
// is treated as the header row.
func (e *CSV) Extract(_ context.Context, data []byte) (string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: parsing csv header: %v", domain.ErrExtraction, err)
	}

	var b strings.Builder
	b.WriteString("Headers: ")
	b.WriteString(strings.Join(header, ", "))
	b.WriteString("\n")

	rowNum := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: parsing csv row %d: %v", domain.ErrExtraction, rowNum+1, err)
		}

		rowNum++
		b.WriteString(fmt.Sprintf("\nRow %d:\n", rowNum))
		for i, value := range record {
			key := fmt.Sprintf("column_%d", i+1)
			if i < len(header) {
				key = header[i]
			}
			b.WriteString(fmt.Sprintf("  %s: %s\n", key, value))
		}
	}

	return strings.TrimSpace(b.String()), nil
}
