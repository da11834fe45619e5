package export

import (
	"bytes"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

// pdfDate is stamped as the creation date in place of the wall clock.
var pdfDate = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Embedded UTF-8 fonts; the core PDF fonts are cp1252 only and would drop
// Greek letters such as χ, α and σ.
const (
	sansFont = "GoSans"
	monoFont = "GoMono"
)

var headingSizes = map[int]float64{1: 18, 2: 15, 3: 13, 4: 12, 5: 11, 6: 10}

// renderPDF lays the report out on A4 pages.
func renderPDF(title, report string) ([]byte, error) {
	pdf := layoutPDF(title, report)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func layoutPDF(title, report string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreationDate(pdfDate)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddUTF8FontFromBytes(sansFont, "", goregular.TTF)
	pdf.AddUTF8FontFromBytes(sansFont, "B", gobold.TTF)
	pdf.AddUTF8FontFromBytes(monoFont, "", gomono.TTF)
	pdf.AddPage()

	pdf.SetFont(sansFont, "B", 20)
	pdf.MultiCell(0, 10, title, "", "L", false)
	pdf.Ln(4)

	for _, b := range splitBlocks(report) {
		switch b.kind {
		case blockBlank:
			pdf.Ln(3)
		case blockHeading:
			size, ok := headingSizes[b.level]
			if !ok {
				size = 10
			}
			pdf.Ln(4)
			pdf.SetFont(sansFont, "B", size)
			pdf.MultiCell(0, size*0.6, b.text, "", "L", false)
			pdf.Ln(2)
		case blockBullet:
			pdf.SetFont(sansFont, "", 10)
			pdf.MultiCell(0, 5, "• "+b.text, "", "L", false)
		case blockCode:
			pdf.SetFont(monoFont, "", 9)
			pdf.SetFillColor(245, 245, 245)
			pdf.MultiCell(0, 4.5, b.text, "", "L", true)
		default:
			pdf.SetFont(sansFont, "", 10)
			pdf.MultiCell(0, 5, b.text, "", "L", false)
		}
	}
	return pdf
}
