// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/golocal/internal/api"
	"github.com/onnwee/golocal/internal/assistant"
	"github.com/onnwee/golocal/internal/auth"
	"github.com/onnwee/golocal/internal/bookmark"
	"github.com/onnwee/golocal/internal/config"
	"github.com/onnwee/golocal/internal/health"
	"github.com/onnwee/golocal/internal/middleware"
	"github.com/onnwee/golocal/internal/place"
	"github.com/onnwee/golocal/internal/prefs"
	"github.com/onnwee/golocal/internal/profile"
	"github.com/onnwee/golocal/internal/tracing"
	"github.com/onnwee/golocal/internal/viewport"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	serviceName       = "golocal-api"
	defaultOpenAIBase = "https://api.openai.com/v1"
)

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	help := flag.Bool("help", false, "display help message")
	flag.Parse()

	if *help {
		fmt.Println("GoLocal API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// A .env file is a development convenience; real environments set variables directly.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
		os.Exit(1)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		fmt.Fprintln(os.Stderr, "invalid configuration:")
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "  - %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summary := cfg.LogSummary()
	attrs := make([]any, 0, len(summary)*2)
	for k, v := range summary {
		attrs = append(attrs, k, v)
	}
	logger.Info("configuration loaded", attrs...)

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// backend is the preference store plus what readiness and shutdown need.
type backend struct {
	store prefs.Store
	deps  []health.Dependency
	close func()
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	catalog, err := loadCatalog(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("catalog loaded", "places", catalog.Len(), "located", len(catalog.WithLocation()))

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Enabled:        cfg.TracingEnabled,
		Environment:    cfg.Env,
		ExporterType:   cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
		InsecureMode:   cfg.Env == "development",
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := middleware.NewMetrics()
	bookmarkMetrics := bookmark.NewMetrics()
	assistantMetrics := assistant.NewMetrics()
	for _, register := range []func(prometheus.Registerer) error{
		httpMetrics.Register, bookmarkMetrics.Register, assistantMetrics.Register,
	} {
		if err := register(reg); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}

	be, err := openBackend(ctx, cfg, redisClient, logger)
	if err != nil {
		return err
	}
	defer be.close()

	// Rate limit counters live in Redis when available so every replica
	// shares them; otherwise each process counts on its own.
	var limitStore middleware.RateLimitStore
	if redisClient != nil {
		limitStore = middleware.NewRedisRateLimitStore(redisClient)
		if cfg.PrefsBackend != config.PrefsBackendRedis {
			be.deps = append(be.deps, health.Dependency{Name: "redis", Checker: health.NewRedisChecker(redisClient)})
		}
	} else {
		mem := middleware.NewInMemoryRateLimitStore()
		mem.StartCleanup(ctx, time.Minute)
		limitStore = mem
	}

	assistantCfg := assistant.Config{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.AssistantTimeout,
	}
	assistantService := assistant.NewService(assistant.NewClient(assistantCfg), assistantCfg, logger, assistantMetrics)
	if assistantService.Configured() {
		base := cfg.OpenAIBaseURL
		if base == "" {
			base = defaultOpenAIBase
		}
		be.deps = append(be.deps, health.Dependency{Name: "assistant", Checker: health.NewEndpointChecker(base, cfg.OpenAIAPIKey)})
	} else {
		logger.Warn("OPENAI_API_KEY not set; questions will get the fallback answer")
	}

	// The validator must stay a nil interface in header mode.
	var tokens *auth.TokenService
	var validator middleware.TokenValidator
	if cfg.DeviceTokenSecret != "" {
		tokens = auth.NewTokenService(cfg.DeviceTokenSecret, cfg.DeviceTokenPreviousSecret)
		validator = tokens
	} else {
		logger.Warn("DEVICE_TOKEN_SECRET not set; trusting the X-Device-ID header")
	}

	// Both limiters share limitStore; their scopes keep the budgets apart.
	globalLimit := middleware.DefaultGlobalLimit()
	globalLimit.RequestsPerWindow = cfg.RateLimitPerMinute
	askLimit := middleware.DefaultAskLimit()
	askLimit.RequestsPerWindow = cfg.AskRateLimitPerMinute

	toggler := bookmark.NewToggler(be.store, logger, bookmarkMetrics)
	mux := api.NewRouter(api.Handlers{
		Places:    api.NewPlaceHandlers(catalog, toggler),
		Ask:       api.NewAskHandlers(catalog, assistant.NewCoordinator(assistantService, assistantMetrics), logger),
		Bookmarks: api.NewBookmarkHandlers(catalog, toggler),
		Profile:   api.NewProfileHandlers(profile.NewService(be.store, logger)),
		Map:       api.NewMapHandlers(catalog, viewport.NewCalculator(viewport.DefaultConfig())),
		Devices:   api.NewDeviceHandlers(tokens, logger),
		Health:    api.NewHealthHandlers(be.deps, api.DefaultReadyTimeout, logger),
	}, api.RouterOptions{
		AskLimiter: middleware.RateLimiter(limitStore, askLimit, middleware.DeviceKeyFunc(), httpMetrics, logger),
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Version: version,
	})

	// Outermost first: Recover -> RequestID -> Tracing -> Logging -> HTTPMetrics
	// -> CORS -> DeviceIdentity -> RateLimiter -> mux.
	var handler http.Handler = mux
	handler = middleware.RateLimiter(limitStore, globalLimit, middleware.DeviceKeyFunc(), httpMetrics, logger)(handler)
	handler = middleware.DeviceIdentity(validator, logger)(handler)
	handler = middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins, MaxAge: 600})(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recover(logger)(handler)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Ask waits on the AI endpoint; leave room past its timeout.
		WriteTimeout: cfg.AssistantTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "port", cfg.Port, "prefs_backend", cfg.PrefsBackend, "version", version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to flush traces", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

func loadCatalog(cfg *config.Config, logger *slog.Logger) (*place.Catalog, error) {
	if cfg.DatasetPath == "" {
		return place.LoadDefault(logger)
	}
	return place.LoadFile(cfg.DatasetPath, logger)
}

// openBackend builds the configured preference store. Redis and Postgres
// stores are critical readiness dependencies.
func openBackend(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *slog.Logger) (*backend, error) {
	noop := func() {}

	switch cfg.PrefsBackend {
	case config.PrefsBackendFile:
		store := prefs.NewFileStore(cfg.PrefsFile, logger)
		logger.Info("preferences stored on disk", "path", store.Path())
		return &backend{store: store, close: noop}, nil

	case config.PrefsBackendRedis:
		return &backend{
			store: prefs.NewRedisStore(redisClient, prefs.DefaultRedisKeyPrefix),
			deps:  []health.Dependency{{Name: "redis", Checker: health.NewRedisChecker(redisClient), Critical: true}},
			close: noop,
		}, nil

	case config.PrefsBackendPostgres:
		db, err := sqlx.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			// Readiness reports it; toggles answer 503 until the database is back.
			logger.Warn("database not reachable at startup", "error", err)
		}
		return &backend{
			store: prefs.NewPostgresStore(db, logger),
			deps:  []health.Dependency{{Name: "database", Checker: health.NewDBChecker(db), Critical: true}},
			close: func() { _ = db.Close() },
		}, nil

	default:
		logger.Warn("using in-memory preferences; bookmarks are lost on restart")
		return &backend{store: prefs.NewInMemoryStore(), close: noop}, nil
	}
}
