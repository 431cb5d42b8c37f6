package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/maeum-coach/coaching-server-go/internal/config"
	"github.com/maeum-coach/coaching-server-go/internal/database"
	apperrors "github.com/maeum-coach/coaching-server-go/internal/errors"
	"github.com/maeum-coach/coaching-server-go/internal/handler"
	"github.com/maeum-coach/coaching-server-go/internal/jobs"
	"github.com/maeum-coach/coaching-server-go/internal/llm"
	"github.com/maeum-coach/coaching-server-go/internal/middleware"
	"github.com/maeum-coach/coaching-server-go/internal/model"
	"github.com/maeum-coach/coaching-server-go/internal/redis"
	"github.com/maeum-coach/coaching-server-go/internal/repository"
	"github.com/maeum-coach/coaching-server-go/internal/retry"
	"github.com/maeum-coach/coaching-server-go/internal/service"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.DefaultContextLogger = &log.Logger

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("database connected")

	if err := database.Migrate(db.DB.DB); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient, err := redis.NewClient(context.Background(), cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	sessionRepo := repository.NewSessionRepository(redisClient.Client)
	completedRepo := repository.NewCompletedSessionRepository(db.DB)

	var userLock repository.UserLock
	if cfg.UserLockEnabled {
		userLock = repository.NewUserLock(redisClient.Client)
	}

	llmClient := llm.NewClient(llm.Config{
		APIURL:      cfg.UpstageAPIURL,
		APIKey:      cfg.UpstageAPIKey,
		Model:       cfg.UpstageModel,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout(),
		Retry: retry.Policy{
			Name:       "upstage",
			MaxRetries: cfg.LLMMaxRetries,
			Backoff:    cfg.LLMRetryBackoff(),
			Retryable:  apperrors.IsTransient,
		},
	})

	defaultTrack := model.TrackName(cfg.DefaultTrack)
	store := service.NewSessionStore(sessionRepo, completedRepo, service.SessionStoreConfig{
		TTL:           cfg.SessionTTL(),
		CacheTTL:      cfg.CacheTTL(),
		DefaultTrack:  defaultTrack,
		EncryptionKey: cfg.EncryptionKey,
		Retry: retry.Policy{
			Name:       "session-store",
			MaxRetries: config.StoreMaxRetries,
			Backoff:    config.StoreRetryBackoff,
		},
	})
	summarizer := service.NewSummarizer(llmClient)
	engine := service.NewStageEngine(service.PolicyFor(cfg.StagePolicy))
	coachingService := service.NewCoachingService(store, llmClient, summarizer, engine, userLock, service.CoachingConfig{
		ResponseMode: cfg.LLMResponseMode,
		DefaultTrack: defaultTrack,
		ResumeAfter:  cfg.ResumeCheckAfter(),
		TimeLimit:    cfg.TimeLimit(),
	})
	rateLimiter := service.NewRateLimiter(redisClient.Client, cfg.UserRateLimitPerMin)
	callbackClient := service.NewCallbackClient(retry.Policy{
		Name:       "kakao-callback",
		MaxRetries: config.CallbackMaxRetries,
		Backoff:    config.CallbackRetryBackoff,
		Retryable:  apperrors.IsTransient,
	})

	stats := handler.NewStats()
	kakaoHandler := handler.NewKakaoHandler(coachingService, callbackClient, rateLimiter, stats, handler.KakaoHandlerConfig{
		CallbackEnabled: cfg.CallbackEnabled,
		CallbackTTL:     cfg.CallbackTTL(),
	})
	statsHandler := handler.NewStatsHandler(stats, store, completedRepo)

	statsAuthMiddleware := middleware.NewBasicAuthMiddleware(cfg.StatsPasswordHash)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(middleware.BodyLimit(middleware.DefaultMaxBodySize))

	r.Get("/health", handler.Health)

	r.Route("/kakao", func(r chi.Router) {
		r.Use(middleware.KakaoSignature(cfg.KakaoSignatureSecret))
		r.Post("/webhook", kakaoHandler.Webhook)
	})

	r.Route("/stats", func(r chi.Router) {
		r.Use(statsAuthMiddleware.Handler)
		r.Get("/", statsHandler.Stats)
	})

	cleanupJob := jobs.NewCleanupJob(store, completedRepo, cfg.ArchiveRetention(), config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().
			Str("addr", cfg.Addr()).
			Str("responseMode", cfg.LLMResponseMode).
			Str("stagePolicy", cfg.StagePolicy).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	drainStart := time.Now()
	if err := kakaoHandler.Drain(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("pending kakao callbacks abandoned")
	} else {
		log.Info().Dur("waited", time.Since(drainStart)).Msg("pending kakao callbacks delivered")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
