// Package export renders report Markdown into downloadable documents.
package export

import (
	"fmt"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

var contentTypes = map[domain.Format]string{
	domain.FormatTXT:  "text/plain; charset=utf-8",
	domain.FormatMD:   "text/markdown; charset=utf-8",
	domain.FormatHTML: "text/html; charset=utf-8",
	domain.FormatDOCX: "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	domain.FormatPDF:  "application/pdf",
}

// ContentType returns the media type served for f.
func ContentType(f domain.Format) string { return contentTypes[f] }

// Exporter implements analysis.Exporter. Rendering is a pure function of
// the report text and format.
type Exporter struct {
	// Title heads the html, docx and pdf documents.
	Title string
}

func New(title string) *Exporter {
	if title == "" {
		title = "Analysis Report"
	}
	return &Exporter{Title: title}
}

func (e *Exporter) Export(report string, f domain.Format) (*domain.Export, error) {
	var (
		body []byte
		err  error
	)
	switch f {
	case domain.FormatTXT, domain.FormatMD:
		body = []byte(report)
	case domain.FormatHTML:
		body, err = renderHTML(e.Title, report)
	case domain.FormatDOCX:
		body, err = renderDOCX(e.Title, report)
	case domain.FormatPDF:
		body, err = renderPDF(e.Title, report)
	default:
		return nil, domain.NewError(domain.KindInvalidParameter, fmt.Sprintf("unsupported export format %q", f), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", f, err)
	}
	return &domain.Export{
		Body:        body,
		ContentType: contentTypes[f],
		Filename:    domain.ExportFilename(f),
	}, nil
}
