package extractors

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
)

// Ensure DOCX implements the interface.
var _ driven.Extractor = (*DOCX)(nil)

// DOCX handles Word documents. Raw paragraph text is extracted;
// formatting, tables and embedded objects are dropped.
type DOCX struct{}

// NewDOCX creates a new DOCX extractor.
func NewDOCX() *DOCX {
	return &DOCX{}
}

// Format returns the format this extractor handles.
func (e *DOCX) Format() domain.Format {
	return domain.FormatDOCX
}

// Extract converts a DOCX file to plain text.
func (e *DOCX) Extract(_ context.Context, data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: opening docx: %v", domain.ErrExtraction, err)
	}
	defer doc.Close()

	text, err := wordMLText(doc.Editable().GetContent())
	if err != nil {
		return "", fmt.Errorf("%w: parsing docx body: %v", domain.ErrExtraction, err)
	}
	return strings.TrimSpace(text), nil
}

// wordMLText pulls run text out of raw WordprocessingML. Only the
// contents of w:t elements count as text; paragraph ends, explicit
// breaks and tabs map to their plain-text equivalents.
func wordMLText(content string) (string, error) {
	dec := xml.NewDecoder(strings.NewReader(content))

	var b strings.Builder
	var inText bool
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}
