package domain

import (
	"path/filepath"
	"strings"
)

// Format is the closed set of file formats the extractors handle.
// It is resolved once at the intake boundary; the pipeline never
// re-inspects MIME strings.
type Format int

const (
	// FormatUnknown is an unrecognised file type.
	FormatUnknown Format = iota

	// FormatText is plain UTF-8 text.
	FormatText

	// FormatMarkdown is Markdown, stripped to plain text on extraction.
	FormatMarkdown

	// FormatPDF is extracted page by page in page order.
	FormatPDF

	// FormatDOCX is a Word document; raw paragraph text is extracted.
	FormatDOCX

	// FormatCSV is reformatted as labelled rows for embedding readability.
	FormatCSV
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatMarkdown:
		return "markdown"
	case FormatPDF:
		return "pdf"
	case FormatDOCX:
		return "docx"
	case FormatCSV:
		return "csv"
	default:
		return "unknown"
	}
}

// DetectFormat resolves a file name and optional declared MIME type to
// a Format. The MIME type wins when recognised; the extension is the
// fallback.
func DetectFormat(fileName, mimeType string) Format {
	switch strings.ToLower(strings.TrimSpace(mimeType)) {
	case "text/plain":
		return FormatText
	case "text/markdown", "text/x-markdown":
		return FormatMarkdown
	case "application/pdf":
		return FormatPDF
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "application/msword":
		return FormatDOCX
	case "text/csv":
		return FormatCSV
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".txt", ".text", ".log":
		return FormatText
	case ".md", ".markdown":
		return FormatMarkdown
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatDOCX
	case ".csv":
		return FormatCSV
	default:
		return FormatUnknown
	}
}
