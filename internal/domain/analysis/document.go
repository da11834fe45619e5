package analysis

import (
	"fmt"
	"mime"
	"strings"
)

// DocumentKind is the extraction family of an upload.
type DocumentKind string

const (
	DocumentSpreadsheet DocumentKind = "spreadsheet"
	DocumentPDF         DocumentKind = "pdf"
)

// Document is an uploaded file as received from the client.
type Document struct {
	Data     []byte
	MIMEType string
	Filename string
}

// ClassifyMIME maps a declared media type onto a document kind.
// Anything mentioning "excel" or "spreadsheetml" is a spreadsheet.
func ClassifyMIME(mimeType string) (DocumentKind, bool) {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mimeType))
	}
	switch {
	case mt == "application/pdf":
		return DocumentPDF, true
	case strings.Contains(mt, "excel"), strings.Contains(mt, "spreadsheetml"):
		return DocumentSpreadsheet, true
	}
	return "", false
}

// ValidateDocument checks an upload before any extraction work happens.
// maxBytes <= 0 disables the size check.
func ValidateDocument(d Document, maxBytes int64) (DocumentKind, error) {
	if len(d.Data) == 0 {
		return "", NewError(KindMissingRequiredField, "no file uploaded", nil)
	}
	if maxBytes > 0 && int64(len(d.Data)) > maxBytes {
		return "", NewError(KindPayloadTooLarge, fmt.Sprintf("file exceeds the %d byte limit", maxBytes), nil)
	}
	kind, ok := ClassifyMIME(d.MIMEType)
	if !ok {
		return "", NewError(KindUnsupportedFileType, "Unsupported file type", nil)
	}
	return kind, nil
}
