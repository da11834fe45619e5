// Package extract turns uploaded documents into analysable content.
package extract

import (
	"context"
	"fmt"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// Parser extracts content from the raw bytes of one document kind.
type Parser interface {
	Extract(data []byte) (domain.Content, error)
}

// Extractor dispatches on document kind.
type Extractor struct {
	parsers map[domain.DocumentKind]Parser
}

// New returns an Extractor for spreadsheets and PDFs.
func New() *Extractor {
	return NewWith(map[domain.DocumentKind]Parser{
		domain.DocumentSpreadsheet: Spreadsheet{},
		domain.DocumentPDF:         PDF{},
	})
}

func NewWith(parsers map[domain.DocumentKind]Parser) *Extractor {
	return &Extractor{parsers: parsers}
}

// Extract implements analysis.Extractor.
func (e *Extractor) Extract(ctx context.Context, kind domain.DocumentKind, d domain.Document) (domain.Content, error) {
	if err := ctx.Err(); err != nil {
		return domain.Content{}, err
	}
	p, ok := e.parsers[kind]
	if !ok {
		return domain.Content{}, domain.NewError(domain.KindUnsupportedFileType,
			fmt.Sprintf("no extractor for %q", d.MIMEType), nil)
	}
	return p.Extract(d.Data)
}
