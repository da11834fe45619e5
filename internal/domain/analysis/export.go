package analysis

import "strings"

// Format is a download format for a report.
type Format string

const (
	FormatTXT  Format = "txt"
	FormatMD   Format = "md"
	FormatHTML Format = "html"
	FormatDOCX Format = "docx"
	FormatPDF  Format = "pdf"
)

var formats = []Format{FormatTXT, FormatMD, FormatHTML, FormatDOCX, FormatPDF}

// Formats lists every supported export format.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// ParseFormat normalises s. An empty value means txt.
func ParseFormat(s string) (Format, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatTXT, true
	}
	for _, f := range formats {
		if string(f) == s {
			return f, true
		}
	}
	return Format(s), false
}

// Export is a rendered report ready for download.
type Export struct {
	Body        []byte
	ContentType string
	Filename    string
}

// ExportFilename is the download name for a report in format f.
func ExportFilename(f Format) string { return "analysis_report." + string(f) }
