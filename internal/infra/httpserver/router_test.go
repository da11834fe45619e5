package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	appanalysis "github.com/statreport/statreport/internal/application/analysis"
	domain "github.com/statreport/statreport/internal/domain/analysis"
	"github.com/statreport/statreport/internal/infra/ai/prompt"
	"github.com/statreport/statreport/internal/infra/export"
	"github.com/statreport/statreport/internal/infra/extract"
	"github.com/statreport/statreport/internal/infra/storage"
	"github.com/statreport/statreport/internal/middleware"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type stubClient struct {
	report string
	err    error
	prompt string
}

func (c *stubClient) Generate(_ context.Context, p string) (string, error) {
	c.prompt = p
	return c.report, c.err
}

type testServer struct {
	handler http.Handler
	client  *stubClient
	store   *storage.FileStore
}

func newTestServer(t *testing.T, mutate func(*Options)) *testServer {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	require.NoError(t, err)
	client := &stubClient{report: "# Introduction\nHello"}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := middleware.NewRegistry()

	svc := &appanalysis.Service{
		Extractor:      extract.New(),
		Composer:       prompt.NewComposer(0),
		Client:         client,
		Store:          store,
		Exporter:       export.New(""),
		Logger:         log,
		Metrics:        appanalysis.NewMetrics(reg),
		MaxUploadBytes: 1 << 20,
	}
	opts := Options{
		Logger:         log,
		MaxUploadBytes: 1 << 20,
		Checkers: map[string]middleware.HealthChecker{
			"store": middleware.CheckerFunc(store.Ping),
		},
		Registry:    reg,
		HTTPMetrics: middleware.NewHTTPMetrics(reg),
	}
	if mutate != nil {
		mutate(&opts)
	}
	return &testServer{handler: NewRouter(svc, opts), client: client, store: store}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func workbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"group", "score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"a", 3}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{"b", 5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// uploadRequest builds a multipart POST /api/analyze. An empty contentType
// omits the file part.
func uploadRequest(t *testing.T, data []byte, contentType, analysisType, params string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if contentType != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="file"; filename="data.bin"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	if analysisType != "" {
		require.NoError(t, mw.WriteField("analysisType", analysisType))
	}
	if params != "" {
		require.NoError(t, mw.WriteField("additionalParams", params))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func submit(t *testing.T, s *testServer) string {
	t.Helper()
	rec := s.do(uploadRequest(t, workbook(t), xlsxMIME, "one-way-anova", `{"factor":"group"}`))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := decode[map[string]string](t, rec)["analysisId"]
	require.NotEmpty(t, id)
	return id
}

func TestAnalyze_Success(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	assert.Contains(t, s.client.prompt, `"factor":"group"`)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/analyses/"+id, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]any](t, rec)
	assert.Equal(t, id, got["id"])
	assert.Equal(t, "one-way-anova", got["analysisType"])
	assert.Equal(t, "# Introduction\nHello", got["analysis"])
}

func TestAnalyze_Rejections(t *testing.T) {
	s := newTestServer(t, nil)
	tests := []struct {
		name   string
		req    *http.Request
		status int
		msg    string
	}{
		{
			name:   "unsupported type",
			req:    uploadRequest(t, []byte("PK"), "application/msword", "descriptive", ""),
			status: http.StatusBadRequest,
			msg:    "Unsupported file type",
		},
		{
			name:   "no file",
			req:    uploadRequest(t, nil, "", "descriptive", ""),
			status: http.StatusBadRequest,
			msg:    "no file uploaded",
		},
		{
			name:   "missing factor",
			req:    uploadRequest(t, workbook(t), xlsxMIME, "one-way-anova", ""),
			status: http.StatusBadRequest,
			msg:    `parameter "factor" is required`,
		},
		{
			name:   "bad params json",
			req:    uploadRequest(t, workbook(t), xlsxMIME, "descriptive", "[1,2]"),
			status: http.StatusBadRequest,
			msg:    "additionalParams must be a JSON object",
		},
		{
			name:   "corrupt spreadsheet",
			req:    uploadRequest(t, []byte("nope"), xlsxMIME, "descriptive", ""),
			status: http.StatusInternalServerError,
			msg:    domain.GenericFailureMessage,
		},
		{
			name:   "too large",
			req:    uploadRequest(t, make([]byte, 3<<20), "application/pdf", "descriptive", ""),
			status: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.req)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.msg != "" {
				assert.Equal(t, tt.msg, decode[map[string]string](t, rec)["error"])
			}
		})
	}
}

func TestAnalyze_ReportServiceFailureIsGeneric(t *testing.T) {
	s := newTestServer(t, nil)
	s.client.err = domain.NewError(domain.KindService, "upstream said 500: secret detail", nil)

	rec := s.do(uploadRequest(t, workbook(t), xlsxMIME, "descriptive", ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, domain.GenericFailureMessage, decode[map[string]string](t, rec)["error"])
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestGet_NotFound(t *testing.T) {
	s := newTestServer(t, nil)
	for _, path := range []string{"/api/analyses/unknown-id", "/api/analyses/bad.id"} {
		rec := s.do(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.Equal(t, "analysis not found", decode[map[string]string](t, rec)["error"])
	}
}

func TestUpdate(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	req := httptest.NewRequest(http.MethodPut, "/api/analyses/"+id, strings.NewReader(`{"analysis":"# Edited"}`))
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/analyses/"+id, nil))
	assert.Equal(t, "# Edited", decode[map[string]any](t, rec)["analysis"])

	rec = s.do(httptest.NewRequest(http.MethodPut, "/api/analyses/"+id, strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodPut, "/api/analyses/ghost", strings.NewReader(`{"analysis":"x"}`)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport_Stored(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/analyses/"+id+"/export?format=md", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="analysis_report.md"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "# Introduction\nHello", rec.Body.String())

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/analyses/"+id+"/export?format=docx", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/analyses/"+id+"/export?format=rtf", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport_Edited(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	req := httptest.NewRequest(http.MethodPost, "/api/analyses/"+id+"/export?format=txt",
		strings.NewReader(`{"analysis":"unsaved edit"}`))
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unsaved edit", rec.Body.String())
	assert.Equal(t, `attachment; filename="analysis_report.txt"`, rec.Header().Get("Content-Disposition"))

	req = httptest.NewRequest(http.MethodPost, "/api/analyses/ghost/export?format=txt",
		strings.NewReader(`{"analysis":"x"}`))
	assert.Equal(t, http.StatusNotFound, s.do(req).Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/analyze", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method Not Allowed", decode[map[string]string](t, rec)["error"])
}

func TestAnalysisTypes(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/analysis-types", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	types := decode[[]domain.TypeInfo](t, rec)
	assert.Len(t, types, len(domain.Catalogue()))
	assert.Equal(t, domain.TypeDescriptive, types[0].ID)
}

func TestSchema(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/api/analysis-types/t-test/schema", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		AnalysisType string         `json:"analysisType"`
		Fields       []domain.Field `json:"fields"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "t-test", got.AnalysisType)
	assert.Equal(t, domain.SchemaFor(domain.TypeTTest), got.Fields)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	rec := s.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy"`)

	submit(t, s)
	rec = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "statreport_submissions_total")
	assert.Contains(t, rec.Body.String(), "statreport_http_requests_total")
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.RateLimiter = middleware.NewRateLimiter(0.001, 1)
	})
	first := s.do(httptest.NewRequest(http.MethodGet, "/api/analysis-types", nil))
	assert.Equal(t, http.StatusOK, first.Code)
	second := s.do(httptest.NewRequest(http.MethodGet, "/api/analysis-types", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)

	health := s.do(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestUpdate_BodyOverLimit(t *testing.T) {
	s := newTestServer(t, nil)
	id := submit(t, s)

	big := `{"analysis":"` + strings.Repeat("x", 2<<20) + `"}`
	rec := s.do(httptest.NewRequest(http.MethodPut, "/api/analyses/"+id, strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodPost, "/api/analyses/"+id+"/export?format=txt", strings.NewReader(big)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/analyses/"+id, nil))
	assert.Equal(t, "# Introduction\nHello", decode[map[string]any](t, rec)["analysis"])
}

func TestRateLimit_IgnoresForwardedForByDefault(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.RateLimiter = middleware.NewRateLimiter(0.001, 1)
	})
	codes := make([]int, 0, 3)
	for _, ip := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/analysis-types", nil)
		req.Header.Set("X-Forwarded-For", ip)
		codes = append(codes, s.do(req).Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimit_TrustProxyKeysByForwardedFor(t *testing.T) {
	s := newTestServer(t, func(o *Options) {
		o.RateLimiter = middleware.NewRateLimiter(0.001, 1)
		o.TrustProxy = true
	})
	for _, ip := range []string{"203.0.113.1", "203.0.113.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/analysis-types", nil)
		req.Header.Set("X-Forwarded-For", ip)
		assert.Equal(t, http.StatusOK, s.do(req).Code, ip)
	}
}
