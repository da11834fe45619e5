package analysis

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures. The HTTP layer maps kinds to status codes.
type Kind string

const (
	KindUnsupportedFileType  Kind = "UnsupportedFileType"
	KindCorruptSpreadsheet   Kind = "CorruptSpreadsheet"
	KindCorruptPdf           Kind = "CorruptPdf"
	KindMissingRequiredField Kind = "MissingRequiredField"
	KindUnknownAnalysisType  Kind = "UnknownAnalysisType"
	KindInvalidParameter     Kind = "InvalidParameter"
	KindPayloadTooLarge      Kind = "PayloadTooLarge"
	KindTransport            Kind = "TransportError"
	KindService              Kind = "ServiceError"
	KindNotFound             Kind = "NotFound"
	KindAlreadyExists        Kind = "AlreadyExists"
	KindStorage              Kind = "StorageError"
)

// Error is the single error type of the pipeline.
// Message is safe to show to end users for validation kinds.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrNotFound) works
// regardless of message or cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrUnsupportedFileType  = &Error{Kind: KindUnsupportedFileType, Message: "unsupported file type"}
	ErrCorruptSpreadsheet   = &Error{Kind: KindCorruptSpreadsheet, Message: "spreadsheet could not be read"}
	ErrCorruptPdf           = &Error{Kind: KindCorruptPdf, Message: "pdf could not be read"}
	ErrMissingRequiredField = &Error{Kind: KindMissingRequiredField, Message: "missing required field"}
	ErrUnknownAnalysisType  = &Error{Kind: KindUnknownAnalysisType, Message: "unknown analysis type"}
	ErrInvalidParameter     = &Error{Kind: KindInvalidParameter, Message: "invalid parameter"}
	ErrPayloadTooLarge      = &Error{Kind: KindPayloadTooLarge, Message: "file too large"}
	ErrTransport            = &Error{Kind: KindTransport, Message: "report service unreachable"}
	ErrService              = &Error{Kind: KindService, Message: "report service failed"}
	ErrNotFound             = &Error{Kind: KindNotFound, Message: "analysis not found"}
	ErrAlreadyExists        = &Error{Kind: KindAlreadyExists, Message: "analysis id already exists"}
	ErrStorage              = &Error{Kind: KindStorage, Message: "storage failure"}
)

// NewError builds an *Error of the given kind.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsValidation reports whether err is a caller mistake that should be
// reported back verbatim.
func IsValidation(err error) bool {
	switch KindOf(err) {
	case KindUnsupportedFileType, KindMissingRequiredField, KindUnknownAnalysisType, KindInvalidParameter, KindPayloadTooLarge:
		return true
	}
	return false
}

// UserMessage returns the message that may be shown to the end user.
// Anything that is not a validation error collapses to a generic text.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch {
		case IsValidation(err):
			return e.Message
		case e.Kind == KindNotFound:
			return "analysis not found"
		}
	}
	return GenericFailureMessage
}

// GenericFailureMessage is shown for extraction, service and storage failures.
const GenericFailureMessage = "An error occurred while processing your request"
