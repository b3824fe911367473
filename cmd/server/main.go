package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/myeongseok-gwon/coex-search-temp/internal/catalog"
	"github.com/myeongseok-gwon/coex-search-temp/internal/config"
	"github.com/myeongseok-gwon/coex-search-temp/internal/database"
	"github.com/myeongseok-gwon/coex-search-temp/internal/handlers"
	"github.com/myeongseok-gwon/coex-search-temp/internal/logger"
	"github.com/myeongseok-gwon/coex-search-temp/internal/middleware"
	"github.com/myeongseok-gwon/coex-search-temp/internal/onboarding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/queue"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/ai"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/embedding"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/evaluation"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/recommend"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/session"
	"github.com/myeongseok-gwon/coex-search-temp/internal/services/vectorsearch"
	"github.com/myeongseok-gwon/coex-search-temp/internal/telemetry"
	"github.com/myeongseok-gwon/coex-search-temp/internal/tracking"
)

const serviceName = "booth-recommender-api"

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.RequireServer(); err != nil {
		log.Fatalf("Invalid server configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(cfg.LogLevel, debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(zapLogger)
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("embedding_model", cfg.EmbeddingModel),
		zap.String("llm_model", cfg.LLMModel),
		zap.String("catalog_source", cfg.CatalogSource),
		zap.Bool("sector_balanced", cfg.RetrievalSectorBalanced),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider *sdktrace.TracerProvider
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else if tp, err := telemetry.InitTracer(context.Background(), serviceName, cfg.OTELEndpoint,
			telemetry.WithSampleRatio(cfg.OTELSampleRatio),
		); err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			tracerProvider = tp
			zapLogger.Info("otel_tracer_initialized", zap.String("endpoint", cfg.OTELEndpoint))
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := telemetry.Shutdown(shutdownCtx, tracerProvider); err != nil {
					zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
				}
			}()
		}
	}

	// Connect to database
	db, err := database.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_database")

	// Redis backs both the rate limiter and the query embedding cache
	redisClient, err := middleware.NewRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	zapLogger.Info("connected_to_redis")

	rateLimiter, err := middleware.NewLimiter(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// RabbitMQ is optional for the API: it only feeds health checks and DLQ cleanup
	var jobQueue *queue.RabbitMQQueue
	if cfg.RabbitMQURL != "" {
		jobQueue = connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
		if jobQueue != nil {
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
		}
	}

	// Repositories
	userRepo := database.NewUserRepository(db, zapLogger)
	evaluationRepo := database.NewEvaluationRepository(db)
	positionRepo := database.NewBoothPositionRepository(db)
	gpsRepo := database.NewGPSRepository(db)
	embeddingRepo := database.NewBoothEmbeddingRepository(db)

	// Services
	embedder := newEmbedder(cfg, redisClient, zapLogger)
	searcher := vectorsearch.NewService(embeddingRepo, embedder, zapLogger,
		vectorsearch.WithCandidateCount(cfg.CandidateCount),
		vectorsearch.WithSectorBalanced(cfg.RetrievalSectorBalanced),
	)
	catalogLoader := catalog.NewLoader(cfg.CatalogSource, zapLogger)
	llm := ai.NewOpenAIProvider(cfg.GeminiAPIKey, cfg.LLMBaseURL, cfg.LLMModel, zapLogger, debugMode)
	recommender := recommend.NewService(searcher, catalogLoader, llm, zapLogger,
		recommend.WithMatchThreshold(cfg.MatchThreshold),
	)
	tracker := tracking.NewRegistry(gpsRepo, zapLogger)
	flow := onboarding.NewService(userRepo, recommender, tracker, cfg.AdminSentinel, zapLogger)
	evaluations := evaluation.NewService(evaluationRepo, userRepo, zapLogger)

	sessions, err := session.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		zapLogger.Fatal("failed_to_create_session_manager", zap.Error(err))
	}

	// Warm the catalog so a bad source fails at startup rather than on the first request
	if _, err := catalogLoader.Load(context.Background()); err != nil {
		zapLogger.Fatal("failed_to_load_catalog", zap.Error(err))
	}
	zapLogger.Info("catalog_loaded",
		zap.Int("booths", catalogLoader.Stats().Kept),
		zap.Int("dropped_lines", catalogLoader.Stats().Dropped),
	)

	// Handlers
	sessionHandler := handlers.NewSessionHandler(flow, sessions, zapLogger)
	visitorHandler := handlers.NewVisitorHandler(flow, userRepo, tracker, zapLogger)
	evaluationHandler := handlers.NewEvaluationHandler(evaluations, zapLogger)
	boothHandler := handlers.NewBoothHandler(catalogLoader, searcher, userRepo, cfg.MatchThreshold, zapLogger)
	positionHandler := handlers.NewPositionHandler(positionRepo, zapLogger)
	healthChecker := handlers.NewHealthChecker(healthChecks(db, redisClient, jobQueue))

	// Setup router
	r := mux.NewRouter()

	// Middleware executes in registration order: the first registered is the outermost wrapper
	if tracerProvider != nil {
		r.Use(otelmux.Middleware(serviceName))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins, zapLogger))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(middleware.DefaultRequestTimeout))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW := middleware.RateLimit(rateLimiter, zapLogger)
	authMW := middleware.Auth(sessions, zapLogger)

	// Operational routes (no rate limiting)
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")

	openAPIHandler := handlers.NewOpenAPIHandler(filepath.Join("api", "openapi", "openapi.yaml"))
	openAPIHandler.RegisterRoutes(apiRouter)

	// Login is public but rate limited
	publicRouter := apiRouter.PathPrefix("").Subrouter()
	publicRouter.Use(rateLimitMW)
	sessionHandler.RegisterRoutes(publicRouter)

	// Visitor routes (protected)
	meRouter := apiRouter.PathPrefix("/me").Subrouter()
	meRouter.Use(authMW)
	meRouter.Use(rateLimitMW)
	visitorHandler.RegisterRoutes(meRouter)
	evaluationHandler.RegisterRoutes(meRouter)

	// Booth catalog routes (protected)
	boothRouter := apiRouter.PathPrefix("/booths").Subrouter()
	boothRouter.Use(authMW)
	boothRouter.Use(rateLimitMW)
	boothHandler.RegisterRoutes(boothRouter)

	// Floor plan positions (protected, writes admin only)
	positionRouter := apiRouter.PathPrefix("/booth-positions").Subrouter()
	positionRouter.Use(authMW)
	positionRouter.Use(rateLimitMW)
	positionHandler.RegisterRoutes(positionRouter)

	// Preflight requests are answered by the CORS middleware before reaching this
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      middleware.DefaultRequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// DLQ garbage collector
	if jobQueue != nil {
		dlqGC := queue.NewGarbageCollector(jobQueue, queue.DefaultGCInterval, cfg.DLQRetention, zapLogger)
		go func() {
			if err := dlqGC.Start(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", queue.DefaultGCInterval),
			zap.Duration("retention", cfg.DLQRetention),
		)
	}

	go func() {
		zapLogger.Info("server_starting", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down", zap.Int("open_tracking_sessions", tracker.Active()))
	bgCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// newEmbedder builds the Gemini embedding client behind the Redis query cache.
func newEmbedder(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) embedding.Embedder {
	client := embedding.NewClient(cfg.GeminiBaseURL, cfg.EmbeddingModel, cfg.GeminiAPIKey, logger)
	if cfg.EmbeddingCacheTTL <= 0 {
		return client
	}
	return embedding.NewCachedEmbedder(client, embedding.NewRedisStore(redisClient), cfg.EmbeddingModel, cfg.EmbeddingCacheTTL, logger)
}

// connectRabbitMQ retries with exponential backoff to ride out broker startup.
// It returns nil when the broker stays unreachable.
func connectRabbitMQ(url string, logger *zap.Logger) *queue.RabbitMQQueue {
	const maxRetries = 5
	const initialDelay = 2 * time.Second

	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err := queue.NewRabbitMQQueue(url, logger)
		if err == nil {
			logger.Info("connected_to_rabbitmq")
			return q
		}
		delay := min(initialDelay*time.Duration(1<<uint(attempt)), 30*time.Second)
		logger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Duration("retry_delay", delay),
			zap.Error(err),
		)
		time.Sleep(delay)
	}
	logger.Error("rabbitmq_unavailable_continuing_without_queue")
	return nil
}

func healthChecks(db *database.DB, redisClient *redis.Client, jobQueue *queue.RabbitMQQueue) map[string]handlers.CheckFunc {
	checks := map[string]handlers.CheckFunc{
		"database": db.HealthCheck,
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
	}
	if jobQueue != nil {
		checks["rabbitmq"] = jobQueue.HealthCheck
	}
	return checks
}
