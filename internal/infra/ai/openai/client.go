package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	domain "github.com/statreport/statreport/internal/domain/analysis"
)

const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 2000
)

// Config of the report service client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	// MaxTokens is the output ceiling of one report.
	MaxTokens int
	// MaxInputTokens rejects prompts whose estimate exceeds it; 0 disables the check.
	MaxInputTokens int
	// AttemptTimeout bounds a single HTTP round trip; 0 means no per-attempt limit.
	AttemptTimeout time.Duration
	Retry          RetryConfig
	HTTPClient     *http.Client
}

// Client generates reports through an OpenAI-compatible chat completions API.
type Client struct {
	api *openai.Client
	cfg Config
	log *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if log == nil {
		log = slog.Default()
	}
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}
	return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg, log: log}
}

// EstimateTokens is a rough count of four characters per token.
func EstimateTokens(s string) int {
	return (utf8.RuneCountInString(s) + 3) / 4
}

// Generate implements analysis.ReportClient. Transport failures are retried
// per the retry policy; service failures are returned at once.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()
	est := EstimateTokens(prompt)

	c.log.InfoContext(ctx, "llm.report.start",
		"llm_req_id", rid,
		"model", c.cfg.Model,
		"prompt_len", len(prompt),
		"est_tokens", est,
	)

	if c.cfg.MaxInputTokens > 0 && est > c.cfg.MaxInputTokens {
		c.log.ErrorContext(ctx, "llm.report.prompt_too_large",
			"llm_req_id", rid, "est_tokens", est, "limit", c.cfg.MaxInputTokens)
		return "", domain.NewError(domain.KindService,
			fmt.Sprintf("prompt of ~%d tokens exceeds the %d token input limit", est, c.cfg.MaxInputTokens), nil)
	}

	req := c.request(prompt)
	attempts := c.cfg.Retry.attempts()
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		report, err := c.once(ctx, req)
		if err == nil {
			c.log.InfoContext(ctx, "llm.report.ok",
				"llm_req_id", rid,
				"attempt", attempt+1,
				"report_len", len(report),
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return report, nil
		}
		lastErr = err

		if domain.KindOf(err) != domain.KindTransport {
			c.log.ErrorContext(ctx, "llm.report.service_error",
				"llm_req_id", rid, "attempt", attempt+1, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds())
			return "", err
		}
		c.log.WarnContext(ctx, "llm.report.transport_error",
			"llm_req_id", rid, "attempt", attempt+1, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())

		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return "", domain.NewError(domain.KindTransport, "report service deadline exceeded", ctx.Err())
		case <-time.After(c.cfg.Retry.delay(attempt)):
		}
	}

	c.log.ErrorContext(ctx, "llm.report.gave_up",
		"llm_req_id", rid, "attempts", attempts, "error", lastErr,
		"elapsed_ms", time.Since(start).Milliseconds())
	return "", lastErr
}

func (c *Client) request(prompt string) openai.ChatCompletionRequest {
	req := openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	// reasoning models (o1/o3/o4/gpt-5*) only accept max_completion_tokens
	if isReasoningModel(c.cfg.Model) {
		req.MaxCompletionTokens = c.cfg.MaxTokens
	} else {
		req.MaxTokens = c.cfg.MaxTokens
	}
	return req
}

func isReasoningModel(model string) bool {
	for _, p := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}

func (c *Client) once(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.cfg.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.AttemptTimeout)
		defer cancel()
	}
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewError(domain.KindService, "no choices in completion response", nil)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", domain.NewError(domain.KindService, "empty completion content", nil)
	}
	return content, nil
}

// classify splits client errors into service failures (the API answered
// with something unusable) and transport failures (everything else).
func classify(err error) error {
	var (
		apiErr  *openai.APIError
		reqErr  *openai.RequestError
		synErr  *json.SyntaxError
		typeErr *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &apiErr):
		return domain.NewError(domain.KindService,
			fmt.Sprintf("report service returned status %d", apiErr.HTTPStatusCode), err)
	case errors.As(err, &reqErr):
		return domain.NewError(domain.KindService,
			fmt.Sprintf("report service returned status %d", reqErr.HTTPStatusCode), err)
	case errors.As(err, &synErr), errors.As(err, &typeErr):
		return domain.NewError(domain.KindService, "malformed completion response", err)
	}
	return domain.NewError(domain.KindTransport, "report service unreachable", err)
}
