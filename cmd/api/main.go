package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/statreport/statreport/internal/application"
	appanalysis "github.com/statreport/statreport/internal/application/analysis"
	"github.com/statreport/statreport/internal/config"
	domain "github.com/statreport/statreport/internal/domain/analysis"
	"github.com/statreport/statreport/internal/infra/ai/openai"
	"github.com/statreport/statreport/internal/infra/ai/prompt"
	mysqlp "github.com/statreport/statreport/internal/infra/db/mysql"
	postgresp "github.com/statreport/statreport/internal/infra/db/postgres"
	"github.com/statreport/statreport/internal/infra/export"
	"github.com/statreport/statreport/internal/infra/extract"
	"github.com/statreport/statreport/internal/infra/httpserver"
	"github.com/statreport/statreport/internal/infra/storage"
	"github.com/statreport/statreport/internal/middleware"
)

// pingStore is a result store that can report its health.
type pingStore interface {
	domain.Store
	Ping(ctx context.Context) error
}

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logging)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server.exit", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Storage.Driver, err)
	}
	defer closeStore()
	log.Info("store.ready", "driver", cfg.Storage.Driver)

	client := openai.NewClient(openai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		Model:          cfg.LLM.Model,
		MaxTokens:      cfg.LLM.MaxTokens,
		MaxInputTokens: cfg.LLM.MaxInputTokens,
		AttemptTimeout: cfg.LLM.AttemptTimeout,
		Retry: openai.RetryConfig{
			MaxAttempts:   cfg.LLM.Retry.MaxAttempts,
			BaseDelay:     cfg.LLM.Retry.BaseDelay,
			MaxDelay:      cfg.LLM.Retry.MaxDelay,
			BackoffFactor: cfg.LLM.Retry.BackoffFactor,
			EnableJitter:  cfg.LLM.Retry.Jitter,
		},
	}, log)

	reg := middleware.NewRegistry()
	svc := &appanalysis.Service{
		Extractor:       extract.New(),
		Composer:        prompt.NewComposer(cfg.LLM.MaxDataChars),
		Client:          client,
		Store:           store,
		Exporter:        export.New("Analysis Report"),
		Clock:           application.SystemClock{},
		NewID:           appanalysis.NewID,
		Logger:          log,
		Metrics:         appanalysis.NewMetrics(reg),
		MaxUploadBytes:  cfg.Upload.MaxBytes,
		GenerateTimeout: cfg.LLM.Timeout,
		CheckSections:   export.MissingSections,
	}

	opts := httpserver.Options{
		Logger:         log,
		MaxUploadBytes: cfg.Upload.MaxBytes,
		CORSOrigins:    cfg.Server.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
		Checkers: map[string]middleware.HealthChecker{
			"store": middleware.CheckerFunc(store.Ping),
		},
		Registry:    reg,
		HTTPMetrics: middleware.NewHTTPMetrics(reg),
	}
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go rl.Cleanup(ctx, 5*time.Minute, 10*time.Minute)
		opts.RateLimiter = rl
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpserver.NewRouter(svc, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server.listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server.shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.Config) (pingStore, func(), error) {
	noop := func() {}
	switch strings.ToLower(cfg.Storage.Driver) {
	case config.DriverMinio:
		m := cfg.Storage.Minio
		s, err := storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  m.Endpoint,
			Region:    m.Region,
			Bucket:    m.BucketName,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			UseSSL:    m.UseSSL,
			Prefix:    m.Prefix,
		})
		return s, noop, err
	case config.DriverMySQL:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, noop, err
		}
		repo := mysqlp.NewAnalysisRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		return repo, func() { db.Close() }, nil
	case config.DriverPostgres:
		db, err := postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, noop, err
		}
		repo := postgresp.NewAnalysisRepository(db)
		if err := repo.Migrate(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		return repo, func() { db.Close() }, nil
	default:
		s, err := storage.NewFileStore(cfg.Storage.Dir)
		return s, noop, err
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "text") {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(middleware.NewContextHandler(h))
}
