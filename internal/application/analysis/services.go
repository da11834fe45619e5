package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/statreport/statreport/internal/application"
	domain "github.com/statreport/statreport/internal/domain/analysis"
)

// maxIDAttempts bounds create-if-absent retries on id collision.
const maxIDAttempts = 3

// Service runs the analysis pipeline. It holds no per-request state and is
// safe for concurrent use.
type Service struct {
	Extractor domain.Extractor
	Composer  domain.Composer
	Client    domain.ReportClient
	Store     domain.Store
	Exporter  domain.Exporter

	Clock   application.Clock
	NewID   IDGenerator
	Logger  *slog.Logger
	Metrics *Metrics

	// MaxUploadBytes rejects larger documents; <= 0 disables the check.
	MaxUploadBytes int64
	// GenerateTimeout is the overall deadline of the report service call,
	// retries included; <= 0 means no deadline.
	GenerateTimeout time.Duration
	// CheckSections returns the report sections missing from a generated
	// report. Optional.
	CheckSections func(report string) []string
}

// SubmitCommand is one analysis request as received from a client.
type SubmitCommand struct {
	Document     domain.Document
	AnalysisType string
	Params       map[string]string
}

// Submit validates and extracts the document, generates the report and
// persists it. It returns the id of the stored analysis.
func (s *Service) Submit(ctx context.Context, cmd SubmitCommand) (domain.ID, error) {
	start := time.Now()
	log := s.logger().With("analysis_type", cmd.AnalysisType, "filename", cmd.Document.Filename)
	log.InfoContext(ctx, "analysis.submit.start",
		"mime_type", cmd.Document.MIMEType,
		"size_bytes", len(cmd.Document.Data),
	)

	label := typeLabel(cmd.AnalysisType)
	id, err := s.submit(ctx, log, cmd)
	if err != nil {
		kind := domain.KindOf(err)
		s.Metrics.submission(label, string(kind))
		if domain.IsValidation(err) {
			log.InfoContext(ctx, "analysis.submit.rejected", "kind", kind, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
		} else {
			log.ErrorContext(ctx, "analysis.submit.failed", "kind", kind, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
		}
		return "", err
	}

	s.Metrics.submission(label, "ok")
	log.InfoContext(ctx, "analysis.submit.ok", "analysis_id", id,
		"elapsed_ms", time.Since(start).Milliseconds())
	return id, nil
}

func (s *Service) submit(ctx context.Context, log *slog.Logger, cmd SubmitCommand) (domain.ID, error) {
	kind, err := domain.ValidateDocument(cmd.Document, s.MaxUploadBytes)
	if err != nil {
		return "", err
	}
	t, ok := domain.ParseType(cmd.AnalysisType)
	if !ok {
		return "", domain.NewError(domain.KindUnknownAnalysisType,
			fmt.Sprintf("unknown analysis type %q", cmd.AnalysisType), nil)
	}
	params, err := domain.BindParams(t, cmd.Params)
	if err != nil {
		return "", err
	}

	content, err := s.Extractor.Extract(ctx, kind, cmd.Document)
	if err != nil {
		return "", err
	}
	log.DebugContext(ctx, "analysis.extract.ok", "content_kind", content.Kind,
		"rows", len(content.Table.Rows), "text_len", len(content.Text))

	prompt, err := s.Composer.Compose(t, content, params)
	if err != nil {
		return "", err
	}

	report, err := s.generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	if s.CheckSections != nil {
		if missing := s.CheckSections(report); len(missing) > 0 {
			log.WarnContext(ctx, "analysis.report.missing_sections", "missing", missing)
		}
	}

	return s.persist(ctx, t, report)
}

// generate calls the report service on a context that survives client
// disconnects but still honours the overall deadline.
func (s *Service) generate(ctx context.Context, prompt string) (string, error) {
	callCtx := context.WithoutCancel(ctx)
	if s.GenerateTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(callCtx, s.GenerateTimeout)
		defer cancel()
	}

	start := time.Now()
	report, err := s.Client.Generate(callCtx, prompt)
	s.Metrics.generation(time.Since(start).Seconds())
	if err != nil {
		if domain.KindOf(err) == "" {
			err = domain.NewError(domain.KindTransport, "report service call failed", err)
		}
		return "", err
	}
	return report, nil
}

func (s *Service) persist(ctx context.Context, t domain.Type, report string) (domain.ID, error) {
	now := s.clock().Now()
	var err error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		a := &domain.Analysis{
			ID:        s.newID(now),
			Type:      t,
			Report:    report,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = s.Store.Create(ctx, a)
		if err == nil {
			return a.ID, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return "", storageError(err)
		}
		s.logger().WarnContext(ctx, "analysis.store.id_collision", "analysis_id", a.ID, "attempt", attempt+1)
	}
	return "", domain.NewError(domain.KindStorage, "could not allocate a unique analysis id", err)
}

// Get loads a stored analysis. Malformed ids are reported as not found.
func (s *Service) Get(ctx context.Context, id domain.ID) (*domain.Analysis, error) {
	if !id.Valid() {
		return nil, domain.NewError(domain.KindNotFound, "analysis not found", nil)
	}
	a, err := s.Store.Load(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger().DebugContext(ctx, "analysis.get.not_found", "analysis_id", id)
			return nil, err
		}
		err = storageError(err)
		s.logger().ErrorContext(ctx, "analysis.get.failed", "analysis_id", id, "error", err)
		return nil, err
	}
	return a, nil
}

// UpdateReport replaces the report text of an existing analysis with a
// user edit.
func (s *Service) UpdateReport(ctx context.Context, id domain.ID, report string) error {
	if !id.Valid() {
		return domain.NewError(domain.KindNotFound, "analysis not found", nil)
	}
	if err := s.Store.Update(ctx, id, report, s.clock().Now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger().DebugContext(ctx, "analysis.update.not_found", "analysis_id", id)
			return err
		}
		err = storageError(err)
		s.logger().ErrorContext(ctx, "analysis.update.failed", "analysis_id", id, "error", err)
		return err
	}
	s.logger().InfoContext(ctx, "analysis.update.ok", "analysis_id", id, "report_len", len(report))
	return nil
}

// Export renders the stored report of id.
func (s *Service) Export(ctx context.Context, id domain.ID, format string) (*domain.Export, error) {
	f, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, a.Report, f)
}

// ExportText renders report text that has not been saved.
func (s *Service) ExportText(ctx context.Context, report string, format string) (*domain.Export, error) {
	f, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, report, f)
}

func (s *Service) render(ctx context.Context, report string, f domain.Format) (*domain.Export, error) {
	out, err := s.Exporter.Export(report, f)
	if err != nil {
		s.logger().ErrorContext(ctx, "analysis.export.failed", "format", f, "error", err)
		return nil, err
	}
	s.Metrics.export(string(f))
	return out, nil
}

// typeLabel is the metrics label of a requested type. Unregistered names
// share one label so clients cannot mint series.
func typeLabel(raw string) string {
	if t, ok := domain.ParseType(raw); ok {
		return string(t)
	}
	return "unknown"
}

func parseFormat(format string) (domain.Format, error) {
	f, ok := domain.ParseFormat(format)
	if !ok {
		return "", domain.NewError(domain.KindInvalidParameter,
			fmt.Sprintf("unsupported export format %q", format), nil)
	}
	return f, nil
}

func storageError(err error) error {
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.NewError(domain.KindStorage, "storage operation failed", err)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) newID(now time.Time) domain.ID {
	if s.NewID == nil {
		return NewID(now)
	}
	return s.NewID(now)
}
