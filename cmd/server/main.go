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
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/database"
	"github.com/stemsi/exstem-taker/internal/handler"
	"github.com/stemsi/exstem-taker/internal/logger"
	"github.com/stemsi/exstem-taker/internal/repository"
	"github.com/stemsi/exstem-taker/internal/router"
	"github.com/stemsi/exstem-taker/internal/service"
	"github.com/stemsi/exstem-taker/internal/validator"
	"github.com/stemsi/exstem-taker/internal/worker"
)

const (
	examCacheTTL      = 6 * time.Hour
	submissionLockTTL = 7 * 24 * time.Hour
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
		Msg("Starting ExStem exam backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL / Redis ─────────────────────────────────
	backends, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to storage backends")
	}
	defer backends.Close()

	// ─── Load Question Bank ────────────────────────────────────────────
	exams, err := repository.LoadExamFile(cfg.QuestionBankFile)
	if err != nil {
		log.Warn().Err(err).Str("file", cfg.QuestionBankFile).Msg("Question bank file not loaded")
	}

	var examStore service.ExamStore
	if backends.Pool != nil {
		examRepo := repository.NewExamRepository(backends.Pool)
		if len(exams) > 0 {
			if err := examRepo.Import(ctx, exams); err != nil {
				log.Fatal().Err(err).Msg("Failed to import question bank")
			}
			log.Info().Int("exams", len(exams)).Msg("Question bank imported into PostgreSQL")
		}
		examStore = examRepo
	} else {
		examStore = repository.NewMemoryExamStore(exams...)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	var (
		examCache service.ExamCache
		guard     service.SubmissionGuard
		answers   service.AnswerStore
		sink      service.ResultSink
	)

	if rdb := backends.Redis; rdb != nil {
		examCache = service.NewRedisExamCache(rdb, examCacheTTL)
		guard = service.NewRedisSubmissionGuard(rdb, submissionLockTTL)
		answers = service.NewRedisAnswerStore(rdb)
	} else {
		guard = service.NewMemorySubmissionGuard()
		answers = service.NewMemoryAnswerStore()
	}

	authService := service.NewAuthService(cfg)
	examService := service.NewExamService(examStore, examCache, cfg.ExamDurationSeconds, log)

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	switch {
	case backends.Pool != nil && backends.Redis != nil:
		sink = service.NewRedisResultQueue(backends.Redis)
		resultWorker := worker.NewResultWorker(repository.NewSubmissionRepository(backends.Pool), backends.Redis, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			resultWorker.Start(workerCtx)
		}()
	case backends.Pool != nil:
		sink = repository.NewSubmissionRepository(backends.Pool)
	default:
		sink = repository.NewMemorySubmissionStore()
	}

	submissionService := service.NewSubmissionService(examService, guard, sink, answers, log)

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Load the bank into the cache before accepting traffic.
	if examCache != nil {
		examService.PrewarmCache(ctx, exams)
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Exam:   handler.NewExamHandler(examService, submissionService, log),
		WS:     handler.NewWSHandler(examService, answers, log, cfg.AllowedOrigins),
		System: handler.NewSystemHandler(backends.Redis, backends.Pool, log),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 2. Stop background workers and wait for the result queue to drain.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
