package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// PDF extracts the plain text of every page, pages joined by a newline.
type PDF struct{}

func (PDF) Extract(data []byte) (c domain.Content, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			c, err = domain.Content{}, corruptPDF("parser panic", fmt.Errorf("%v", r))
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return domain.Content{}, corruptPDF("open pdf", err)
	}

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return domain.Content{}, corruptPDF(fmt.Sprintf("read page %d", i), err)
		}
		pages = append(pages, text)
	}

	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return domain.Content{}, corruptPDF("pdf contains no extractable text", nil)
	}
	return domain.TextContent(text), nil
}

func corruptPDF(msg string, err error) error {
	return domain.NewError(domain.KindCorruptPdf, msg, err)
}
