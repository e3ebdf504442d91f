package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-interview/internal/client"
	"github.com/stemsi/exstem-interview/internal/config"
	"github.com/stemsi/exstem-interview/internal/database"
	"github.com/stemsi/exstem-interview/internal/event"
	"github.com/stemsi/exstem-interview/internal/handler"
	"github.com/stemsi/exstem-interview/internal/logger"
	"github.com/stemsi/exstem-interview/internal/middleware"
	"github.com/stemsi/exstem-interview/internal/proctor"
	"github.com/stemsi/exstem-interview/internal/render"
	"github.com/stemsi/exstem-interview/internal/report"
	"github.com/stemsi/exstem-interview/internal/repository"
	"github.com/stemsi/exstem-interview/internal/router"
	"github.com/stemsi/exstem-interview/internal/service"
	"github.com/stemsi/exstem-interview/internal/validator"
	"github.com/stemsi/exstem-interview/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "interview")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Bool("vision", cfg.VisionEnabled).
		Msg("Starting interview service")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Event Publisher (RabbitMQ, optional) ──────────────────────────
	publisher, err := event.NewAMQPPublisher(cfg.RabbitMQURI, cfg.EventExchange, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer publisher.Close()

	// ─── Collaborators ─────────────────────────────────────────────────
	questionBank := client.NewQuestionBankClient(cfg.QuestionBankURL, cfg.QuestionBankTimeout)
	scorer := client.NewScoringClient(cfg.ScoringURL, cfg.ScoringTimeout)
	speech := client.NewSpeechClient(client.SpeechConfig{
		BaseURL:       cfg.SpeechURL,
		RatePerSecond: cfg.SpeechRatePerSecond,
		Burst:         cfg.SpeechBurst,
	}, log)

	proctorSettings := service.ProctorSettings{
		Policy: proctor.RiskPolicy{
			WarningAt:  cfg.RiskWarningThreshold,
			CriticalAt: cfg.RiskCriticalThreshold,
		},
		VisionEnabled:  cfg.VisionEnabled,
		SampleInterval: cfg.VisionSampleInterval,
		AcquireTimeout: cfg.VisionAcquireTimeout,
	}
	if cfg.VisionEnabled {
		vision, err := client.NewVisionClient(ctx, client.CredentialOptions(cfg.GoogleCredentials)...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Vision client")
		}
		defer vision.Close()
		proctorSettings.Classifier = proctor.NewFaceClassifier(vision)
	}

	var transcriber service.Transcriber
	if cfg.STTEnabled {
		stt, err := client.NewTranscriberClient(ctx, cfg.STTLanguage, cfg.STTTimeout, client.CredentialOptions(cfg.GoogleCredentials)...)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create Speech-to-Text client")
		}
		defer stt.Close()
		transcriber = stt
	}

	renderer, err := render.NewPDFRenderer(cfg.ArtifactDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to prepare artifact directory")
	}

	// ─── Initialize Repositories ───────────────────────────────────────
	sessionRepo := repository.NewInterviewSessionRepository(pool)
	reportRepo := repository.NewReportRepository(pool)
	violationRepo := repository.NewViolationRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	bus := service.NewRedisBus(rdb, cfg.ReportCacheTTL)
	registry := service.NewRegistry()
	tokens := service.NewTokenService(cfg.JWTSecret)

	interviewService := service.NewInterviewService(
		registry,
		sessionRepo,
		violationRepo,
		questionBank,
		bus,
		publisher,
		speech,
		transcriber,
		proctorSettings,
		log,
	)
	pipeline := report.NewPipeline(scorer, renderer, cfg.ScoringTimeout)
	reportService := service.NewReportService(
		interviewService,
		pipeline,
		reportRepo,
		sessionRepo,
		bus,
		publisher,
		renderer,
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Interview: handler.NewInterviewHandler(interviewService, cfg.MaxAudioBytes),
		Report:    handler.NewReportHandler(reportService),
		WS:        handler.NewWSHandler(interviewService, bus, log, cfg.AllowedOrigins),
		Monitor:   handler.NewMonitorHandler(interviewService, bus, log),
		System: handler.NewSystemHandler(
			func(ctx context.Context) (map[string]string, bool) { return database.Health(ctx, pool, rdb) },
			func(ctx context.Context) (map[string]int64, error) { return worker.QueueDepths(ctx, rdb) },
			registry.Len,
			log,
		),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	answerWorker := worker.NewAnswerWorker(pool, rdb, log)
	violationWorker := worker.NewViolationWorker(pool, rdb, log)

	workers.Add(3)
	go func() {
		defer workers.Done()
		answerWorker.Start(workerCtx)
	}()
	go func() {
		defer workers.Done()
		interviewService.RunReaper(workerCtx, cfg.SessionReapInterval, cfg.SessionIdleTimeout)
	}()
	go func() {
		defer workers.Done()
		violationWorker.Start(workerCtx)
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	stopLimiter := make(chan struct{})
	go limiter.Run(stopLimiter)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokens, limiter, handlers, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Int("live_sessions", registry.Len()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	close(stopLimiter)

	// 2. End the sessions this process still holds so none stay IN_PROGRESS.
	if n := interviewService.Shutdown(shutdownCtx); n > 0 {
		log.Info().Int("sessions", n).Msg("Ended live sessions")
	}

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	workers.Wait()

	// 4. Let in-flight speech requests finish.
	speech.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
