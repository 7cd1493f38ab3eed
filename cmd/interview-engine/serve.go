package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/interview-engine/internal/api"
	"github.com/terra-clan/interview-engine/internal/catalog"
	"github.com/terra-clan/interview-engine/internal/cleanup"
	"github.com/terra-clan/interview-engine/internal/config"
	"github.com/terra-clan/interview-engine/internal/interview"
	"github.com/terra-clan/interview-engine/internal/llm"
	"github.com/terra-clan/interview-engine/internal/logins"
	"github.com/terra-clan/interview-engine/internal/reporting"
	"github.com/terra-clan/interview-engine/internal/services"
	"github.com/terra-clan/interview-engine/internal/storage"
	"github.com/terra-clan/interview-engine/internal/stt"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logLevel.Set(cfg.Log.Level)

	slog.Info("starting interview-engine",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"llm_provider", cfg.LLM.Provider,
	)

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Run database migrations
	if skip, _ := cmd.Flags().GetBool("skip-migrations"); !skip {
		slog.Info("running database migrations", "dir", cfg.Database.MigrationsDir)
		if err := storage.MigrateFromDSN(initCtx, cfg.Database.DSN, storage.MigrationSource(cfg.Database.MigrationsDir)); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	// Initialize database repository
	repo, err := storage.NewPostgresRepository(initCtx, storage.PostgresConfig{
		DSN:          cfg.Database.DSN,
		MaxOpenConns: int32(cfg.Database.MaxOpenConns),
		MaxIdleConns: int32(cfg.Database.MaxIdleConns),
	})
	if err != nil {
		return fmt.Errorf("failed to create database repository: %w", err)
	}
	defer repo.Close()
	slog.Info("database connected successfully")

	// Reporting queries run on their own pool, possibly against a replica
	reportingDB, err := services.NewPostgresProvider(initCtx, cfg.Reporting.DSN, services.PostgresOptions{
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return fmt.Errorf("failed to create reporting provider: %w", err)
	}
	defer reportingDB.Close()

	registry := services.NewRegistry(2 * time.Second)
	registry.Register("postgres", services.NewCheckFunc("postgres", repo.Ping))
	registry.Register("reporting", reportingDB)

	var cache reporting.Cache
	if cfg.Reporting.CacheEnable {
		redisProvider, err := services.NewRedisProvider(initCtx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB, "interview-engine:")
		if err != nil {
			slog.Warn("leaderboard cache disabled", "address", cfg.Redis.Address, "error", err)
		} else {
			defer redisProvider.Close()
			registry.RegisterOptional("redis", redisProvider)
			cache = redisProvider
		}
	}
	reader := reporting.NewReader(reportingDB.DB(), cache, cfg.Reporting.CacheTTL)
	store := reporting.InvalidateOnSave(repo, reader)

	// Language model
	provider, err := llm.NewProvider(initCtx, cfg.LLM, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create LLM provider: %w", err)
	}
	if !cfg.LLM.Configured() {
		slog.Warn("LLM credential missing; question and scoring requests will fail",
			"provider", cfg.LLM.Provider,
			"credential", cfg.LLM.CredentialName(),
		)
	}
	questions := interview.NewLLMQuestionProvider(provider)
	scorer := interview.NewLLMScorer(provider)

	// Load skills catalog
	skills := catalog.NewLoader()
	if err := skills.LoadFromFile(cfg.Catalog.File); err != nil {
		return fmt.Errorf("failed to load skills catalog: %w", err)
	}
	slog.Info("skills catalog loaded", "skills", skills.Count())

	transcriber := stt.New(cfg.STT.URL, cfg.STT.Timeout)
	registry.RegisterOptional("stt", transcriber)

	tracker := logins.NewTracker(repo, logins.Options{
		DuplicateWindow: cfg.Logins.DuplicateWindow,
		RecentWindow:    cfg.Logins.RecentWindow,
		CacheHorizon:    cfg.Logins.CacheHorizon,
		CacheCapacity:   cfg.Logins.CacheCapacity,
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := interview.NewManager(ctx, questions, scorer, store, interview.Options{
		QuestionCount:  cfg.Interview.QuestionCount,
		FetchAttempts:  cfg.Interview.FetchAttempts,
		FetchBackoff:   cfg.Interview.FetchBackoff,
		PersistTimeout: cfg.Interview.PersistTimeout,
	})

	server := api.NewServer(cfg.Server, cfg.Auth, api.Deps{
		Sessions:  manager,
		Questions: questions,
		Scorer:    scorer,
		Store:     store,
		Logins:    tracker,
		Reports:   reader,
		Catalog:   skills,
		STT:       transcriber,
		Health:    registry,
	})

	// Start cleanup worker
	evicters := cleanup.Evicters{tracker}
	if limiter := server.Limiter(); limiter != nil {
		evicters = append(evicters, limiter)
	}
	cleaner := cleanup.NewCleaner(manager, evicters, cfg.Interview.SessionIdleTTL, cfg.Cleanup.Interval)
	cleaner.Start(ctx)

	// Setup HTTP server. No write timeout: transcript websockets stay open
	// for the whole interview and handlers carry their own deadline.
	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("HTTP server error: %w", err)
	}

	slog.Info("shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Stop background workers and question loads, then let pending
	// interview writes finish
	cancel()
	if err := manager.Wait(shutdownCtx); err != nil {
		slog.Error("pending interview writes did not finish", "error", err)
	}

	slog.Info("interview-engine stopped")
	return nil
}
