package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"

	appanalysis "github.com/statreport/statreport/internal/application/analysis"
	domain "github.com/statreport/statreport/internal/domain/analysis"
	"github.com/statreport/statreport/internal/middleware"
)

// multipartOverhead is allowed on top of the file size limit for the other
// form fields and part headers.
const multipartOverhead = 1 << 20

// Options configures the HTTP surface. Zero values disable the optional parts.
type Options struct {
	Logger         *slog.Logger
	MaxUploadBytes int64
	CORSOrigins    []string
	Checkers       map[string]middleware.HealthChecker
	Registry       *prometheus.Registry
	HTTPMetrics    *middleware.HTTPMetrics
	RateLimiter    *middleware.RateLimiter
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that overwrites those headers.
	TrustProxy     bool
}

type Router struct {
	svc       *appanalysis.Service
	log       *slog.Logger
	maxUpload int64
}

func NewRouter(svc *appanalysis.Service, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	r := &Router{svc: svc, log: log, maxUpload: opts.MaxUploadBytes}
	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	if opts.TrustProxy {
		mux.Use(chimw.RealIP)
	}
	mux.Use(middleware.RequestLogger(log), chimw.Recoverer)
	if opts.HTTPMetrics != nil {
		mux.Use(opts.HTTPMetrics.Middleware)
	}
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}
	if opts.RateLimiter != nil {
		mux.Use(opts.RateLimiter.Middleware)
	}

	mux.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		render.Status(req, http.StatusMethodNotAllowed)
		render.JSON(w, req, errorResponse{Error: "Method Not Allowed"})
	})
	mux.NotFound(func(w http.ResponseWriter, req *http.Request) {
		render.Status(req, http.StatusNotFound)
		render.JSON(w, req, errorResponse{Error: "Not Found"})
	})

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/health/ready", middleware.ReadinessHandler)
	mux.Get("/health/live", middleware.LivenessHandler)
	if opts.Registry != nil {
		mux.Method(http.MethodGet, "/metrics", middleware.MetricsHandler(opts.Registry))
	}

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/analyze", r.wrap(r.handleAnalyze))
		rt.Get("/analysis-types", r.wrap(r.handleTypes))
		rt.Get("/analysis-types/{type}/schema", r.wrap(r.handleSchema))
		rt.Get("/analyses/{id}", r.wrap(r.handleGet))
		rt.Put("/analyses/{id}", r.wrap(r.handleUpdate))
		rt.Get("/analyses/{id}/export", r.wrap(r.handleExportStored))
		rt.Post("/analyses/{id}/export", r.wrap(r.handleExportEdited))
	})

	return mux
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap maps pipeline errors onto status codes. Only validation and
// not-found messages reach the client; everything else is generic.
func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			r.log.ErrorContext(req.Context(), "http.handler.error",
				"path", req.URL.Path, "kind", domain.KindOf(err), "error", err)
		}
		render.Status(req, status)
		render.JSON(w, req, errorResponse{Error: domain.UserMessage(err)})
	}
}

func statusFor(err error) int {
	switch kind := domain.KindOf(err); {
	case kind == domain.KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case kind == domain.KindNotFound:
		return http.StatusNotFound
	case domain.IsValidation(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// POST /api/analyze
// multipart: file, analysisType, additionalParams (JSON object)
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	if r.maxUpload > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload+multipartOverhead)
	}
	if err := req.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return domain.NewError(domain.KindPayloadTooLarge, "file too large", err)
		}
		return domain.NewError(domain.KindMissingRequiredField, "expected a multipart form with a file", err)
	}
	defer req.MultipartForm.RemoveAll()

	file, header, err := req.FormFile("file")
	if err != nil {
		return domain.NewError(domain.KindMissingRequiredField, "no file uploaded", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return domain.NewError(domain.KindMissingRequiredField, "could not read uploaded file", err)
	}

	analysisType := middleware.SanitizeString(req.FormValue("analysisType"))
	if analysisType == "" {
		return domain.NewError(domain.KindMissingRequiredField, "analysisType is required", nil)
	}
	params, err := domain.DecodeRawParams(req.FormValue("additionalParams"))
	if err != nil {
		return err
	}

	id, err := r.svc.Submit(req.Context(), appanalysis.SubmitCommand{
		Document: domain.Document{
			Data:     data,
			MIMEType: header.Header.Get("Content-Type"),
			Filename: middleware.SanitizeFilename(header.Filename),
		},
		AnalysisType: analysisType,
		Params:       params,
	})
	if err != nil {
		return err
	}
	render.JSON(w, req, map[string]domain.ID{"analysisId": id})
	return nil
}

// GET /api/analysis-types
func (r *Router) handleTypes(w http.ResponseWriter, req *http.Request) error {
	render.JSON(w, req, domain.Catalogue())
	return nil
}

// GET /api/analysis-types/{type}/schema
func (r *Router) handleSchema(w http.ResponseWriter, req *http.Request) error {
	t, _ := domain.ParseType(chi.URLParam(req, "type"))
	render.JSON(w, req, map[string]any{
		"analysisType": t,
		"fields":       domain.SchemaFor(t),
	})
	return nil
}

// GET /api/analyses/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	a, err := r.svc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	render.JSON(w, req, a)
	return nil
}

type reportBody struct {
	Analysis *string `json:"analysis"`
}

// decodeReport reads an {"analysis": ...} body no larger than the upload limit.
func (r *Router) decodeReport(w http.ResponseWriter, req *http.Request) (string, error) {
	if r.maxUpload > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	}
	var body reportBody
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", domain.NewError(domain.KindPayloadTooLarge, "report too large", err)
		}
		return "", domain.NewError(domain.KindInvalidParameter, "request body must be a JSON object", err)
	}
	if body.Analysis == nil {
		return "", domain.NewError(domain.KindMissingRequiredField, `"analysis" is required`, nil)
	}
	return *body.Analysis, nil
}

// PUT /api/analyses/{id}
// Body: {"analysis": "<markdown>"}
func (r *Router) handleUpdate(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	report, err := r.decodeReport(w, req)
	if err != nil {
		return err
	}
	if err := r.svc.UpdateReport(req.Context(), id, report); err != nil {
		return err
	}
	render.JSON(w, req, map[string]domain.ID{"analysisId": id})
	return nil
}

// GET /api/analyses/{id}/export?format=
func (r *Router) handleExportStored(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	out, err := r.svc.Export(req.Context(), id, req.URL.Query().Get("format"))
	if err != nil {
		return err
	}
	return writeExport(w, out)
}

// POST /api/analyses/{id}/export?format=
// Body: {"analysis": "<markdown>"}; exports unsaved edits.
func (r *Router) handleExportEdited(w http.ResponseWriter, req *http.Request) error {
	id, err := analysisID(req)
	if err != nil {
		return err
	}
	if _, err := r.svc.Get(req.Context(), id); err != nil {
		return err
	}
	report, err := r.decodeReport(w, req)
	if err != nil {
		return err
	}
	out, err := r.svc.ExportText(req.Context(), report, req.URL.Query().Get("format"))
	if err != nil {
		return err
	}
	return writeExport(w, out)
}

func writeExport(w http.ResponseWriter, out *domain.Export) error {
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.WriteHeader(http.StatusOK)
	// headers are gone at this point; a failed write is a client disconnect
	_, _ = w.Write(out.Body)
	return nil
}

func analysisID(req *http.Request) (domain.ID, error) {
	raw := chi.URLParam(req, "id")
	if err := middleware.ValidateAnalysisID(raw); err != nil {
		return "", domain.NewError(domain.KindNotFound, "analysis not found", err)
	}
	return domain.ID(raw), nil
}
