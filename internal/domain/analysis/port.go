package analysis

import (
	"context"
	"time"
)

// Extractor turns an uploaded document into analysable content.
type Extractor interface {
	Extract(ctx context.Context, kind DocumentKind, d Document) (Content, error)
}

// Composer builds the full prompt for the report service.
type Composer interface {
	Compose(t Type, c Content, p Params) (string, error)
}

// ReportClient sends a composed prompt and returns the generated report.
type ReportClient interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Store persists analyses. Create must fail with ErrAlreadyExists instead of
// overwriting; Load and Update return ErrNotFound for unknown ids.
type Store interface {
	Create(ctx context.Context, a *Analysis) error
	Update(ctx context.Context, id ID, report string, at time.Time) error
	Load(ctx context.Context, id ID) (*Analysis, error)
}

// Exporter renders report text into a downloadable document.
type Exporter interface {
	Export(report string, format Format) (*Export, error)
}
