package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Arpan7125/procto-3.0/internal/ai"
	"github.com/Arpan7125/procto-3.0/internal/config"
	"github.com/Arpan7125/procto-3.0/internal/database"
	"github.com/Arpan7125/procto-3.0/internal/events"
	"github.com/Arpan7125/procto-3.0/internal/handler"
	"github.com/Arpan7125/procto-3.0/internal/logger"
	"github.com/Arpan7125/procto-3.0/internal/repository"
	"github.com/Arpan7125/procto-3.0/internal/router"
	"github.com/Arpan7125/procto-3.0/internal/service"
	"github.com/Arpan7125/procto-3.0/internal/validator"
	"github.com/Arpan7125/procto-3.0/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Procto Backend")

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

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	courseRepo := repository.NewCourseRepository(pool)
	enrollmentRepo := repository.NewEnrollmentRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	sessionRepo := repository.NewExamSessionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	publisher := events.NewRedisPublisher(rdb, log)
	gradingQueue := worker.NewRedisGradingQueue(rdb)

	authService := service.NewAuthService(cfg, userRepo)
	courseService := service.NewCourseService(courseRepo, enrollmentRepo, log)
	questionService := service.NewQuestionService(questionRepo, courseRepo, enrollmentRepo)
	examService := service.NewExamService(examRepo, questionRepo, courseRepo, sessionRepo, rdb, log)
	sessionService := service.NewExamSessionService(
		sessionRepo, examRepo, enrollmentRepo, answerRepo,
		examService, publisher, gradingQueue, log,
	)

	// ─── Initialize AI Generator ──────────────────────────────────────
	var generator ai.Generator
	if cfg.OpenAIAPIKey != "" {
		generator, err = ai.NewOpenAIGenerator(ai.OpenAIConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize OpenAI generator")
		}
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set; using mock question generator")
		generator = ai.NewMockGenerator()
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := router.Handlers{
		Auth:        handler.NewAuthHandler(authService, userRepo),
		Course:      handler.NewCourseHandler(courseService),
		Question:    handler.NewQuestionHandler(questionService),
		Exam:        handler.NewExamHandler(examService),
		ExamSession: handler.NewExamSessionHandler(sessionService),
		AI:          handler.NewAIHandler(generator),
		Monitor:     handler.NewMonitorHandler(examService, courseService, publisher, cfg.AllowedOrigins, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	gradingWorker := worker.NewGradingWorker(rdb, sessionRepo, worker.NoopGrader{}, log)
	deadlineWorker := worker.NewDeadlineWorker(sessionRepo, examRepo, publisher, gradingQueue, cfg.DeadlineSweepInterval, log)

	go gradingWorker.Start(workerCtx)
	go deadlineWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.Setup(cfg, authService, handlers)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
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

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
