package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"autoforward_bot/internal/config"
	"autoforward_bot/internal/forwarder"
	"autoforward_bot/internal/storage"
	"autoforward_bot/internal/telegram"
	"autoforward_bot/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// .env is optional; real environments set variables directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Error("create data directory", "path", dir, "error", err)
			os.Exit(1)
		}
	}

	// A broken database degrades the process instead of killing it: the
	// dashboard and forwarding still work, only record-keeping is lost.
	var store storage.Storage
	sqlite, err := storage.NewSQLite(cfg.DatabasePath)
	if err != nil {
		log.Error("open database, continuing without persistence",
			"path", cfg.DatabasePath, "error", err)
	} else {
		store = sqlite
		defer func() { _ = sqlite.Close() }()
	}

	mgr := forwarder.NewManager(cfg, store, telegram.Dial, log)

	if missing := cfg.MissingForStart(); len(missing) > 0 {
		log.Warn("bot not auto-started, set required variables and start via the dashboard",
			"missing", strings.Join(missing, ", "))
	} else if err := mgr.Start(); err != nil {
		log.Error("auto-start", "error", err)
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: web.New(mgr, store, cfg, log).Router(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", "addr", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server", "error", err)
			os.Exit(1)
		}
		return
	}

	log.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := mgr.Stop(shutdownCtx); err != nil {
		log.Error("stop forwarder", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown http server", "error", err)
	}

	log.Info("bot stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
