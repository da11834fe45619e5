package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"strconv"
	"strings"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>
</Types>`

	relsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>
</Relationships>`

	documentHead = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
	documentTail = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="708" w:footer="708" w:gutter="0"/></w:sectPr></w:body></w:document>`
)

// half-point font sizes per heading level
var docxHeadingSizes = map[int]int{1: 36, 2: 30, 3: 26, 4: 24, 5: 22, 6: 20}

// renderDOCX writes a minimal WordprocessingML package: one paragraph per
// Markdown line, headings as large bold runs.
func renderDOCX(title, report string) ([]byte, error) {
	var doc strings.Builder
	doc.WriteString(documentHead)
	writeParagraph(&doc, title, 40, true, "")
	for _, b := range splitBlocks(report) {
		switch b.kind {
		case blockBlank:
			doc.WriteString("<w:p/>")
		case blockHeading:
			size, ok := docxHeadingSizes[b.level]
			if !ok {
				size = 20
			}
			writeParagraph(&doc, b.text, size, true, "")
		case blockBullet:
			writeParagraph(&doc, "• "+b.text, 0, false, "")
		case blockCode:
			writeParagraph(&doc, b.text, 18, false, "Courier New")
		default:
			writeParagraph(&doc, b.text, 0, false, "")
		}
	}
	doc.WriteString(documentTail)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypesXML},
		{"_rels/.rels", relsXML},
		{"docProps/core.xml", coreXML(title)},
		{"word/document.xml", doc.String()},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeParagraph emits one <w:p>. size is in half-points; 0 keeps the default.
func writeParagraph(b *strings.Builder, text string, size int, bold bool, font string) {
	b.WriteString("<w:p><w:r>")
	if size > 0 || bold || font != "" {
		b.WriteString("<w:rPr>")
		if font != "" {
			b.WriteString(`<w:rFonts w:ascii="` + escapeXML(font) + `" w:hAnsi="` + escapeXML(font) + `"/>`)
		}
		if bold {
			b.WriteString("<w:b/>")
		}
		if size > 0 {
			b.WriteString(`<w:sz w:val="` + strconv.Itoa(size) + `"/>`)
		}
		b.WriteString("</w:rPr>")
	}
	b.WriteString(`<w:t xml:space="preserve">`)
	b.WriteString(escapeXML(text))
	b.WriteString("</w:t></w:r></w:p>")
}

func coreXML(title string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>` +
		escapeXML(title) + `</dc:title></cp:coreProperties>`
}

func escapeXML(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
