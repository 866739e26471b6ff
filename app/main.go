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

	"github.com/lysyi3m/signal-comb/app/api"
	"github.com/lysyi3m/signal-comb/app/cfg"
	"github.com/lysyi3m/signal-comb/app/content"
	"github.com/lysyi3m/signal-comb/app/database"
	"github.com/lysyi3m/signal-comb/app/seed"
	"github.com/lysyi3m/signal-comb/app/sources"
	"github.com/lysyi3m/signal-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("Signal Comb terminated", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Signal Comb", "version", appCfg.Version, "db_path", appCfg.DBPath)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	sourceRepo := database.NewSourceRepository(db)
	contentRepo := database.NewContentRepository(db)
	runRepo := database.NewRunRepository(db)

	loader := seed.NewLoader(appCfg.SourcesDir)
	if err := loader.Run(); err != nil {
		return fmt.Errorf("failed to load source seeds: %w", err)
	}
	synced, err := loader.Sync(context.Background(), sourceRepo)
	if err != nil {
		return fmt.Errorf("failed to sync source seeds: %w", err)
	}
	slog.Info("Source seeds synced", "dir", appCfg.SourcesDir, "count", synced)

	httpClient := &http.Client{Timeout: appCfg.HTTPTimeoutDuration()}
	dispatcher := sources.NewDefaultDispatcher(appCfg, httpClient)
	tracker := tasks.NewRunTracker(runRepo)

	scheduler := tasks.NewScheduler(sourceRepo, dispatcher, content.NewNormalizer(),
		content.NewGate(contentRepo), tracker)
	if err := scheduler.Start(); err != nil {
		return err
	}
	defer scheduler.Stop()

	handler := api.NewHandler(sourceRepo, contentRepo, tracker, scheduler)
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      api.NewServer(handler, appCfg.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: appCfg.RunTimeoutDuration() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port,
			"reddit_oauth", appCfg.RedditAuthAvailable(),
			"youtube_api", appCfg.YouTubeAPIKey != "")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case runErr = <-serverErrChan:
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return runErr
}
