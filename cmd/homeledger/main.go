package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/homeledger/internal/backup"
	"github.com/dukerupert/homeledger/internal/config"
	"github.com/dukerupert/homeledger/internal/database"
	"github.com/dukerupert/homeledger/internal/events"
	"github.com/dukerupert/homeledger/internal/logging"
	"github.com/dukerupert/homeledger/internal/server"
	"github.com/dukerupert/homeledger/internal/store"
)

func main() {
	restoreID := flag.Int64("restore", 0, "download and decrypt backup `id`, then exit")
	restoreTo := flag.String("restore-to", "homeledger.restored.db", "destination `path` for -restore")
	flag.Parse()

	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", "error", err)
		os.Exit(1)
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	if *restoreID != 0 {
		if err := restore(db, cfg.Backup(), *restoreID, *restoreTo, logger); err != nil {
			logger.Error("restore failed", "backup_id", *restoreID, "error", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	docs := store.NewDocumentStore(db, logger)
	srv := server.New(db, docs, cfg.Backup(), server.Options{
		Location:        cfg.Location(),
		RateLimit:       cfg.RateLimit,
		RateLimitWindow: cfg.RateLimitWindow,
		AdminActors:     cfg.AdminActors,
	}, logger)

	if cfg.AMQPURL != "" {
		publisher, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, logger)
		if err != nil {
			logger.Warn("failed to connect to AMQP, continuing without change events", "error", err)
		} else {
			defer publisher.Close()
			docs.OnChange(publisher.Listener())
			go publisher.Run(ctx)
			logger.Info("publishing change events", "exchange", cfg.AMQPExchange)
		}
	} else {
		logger.Info("AMQP disabled - change events are not published")
	}

	go srv.RateLimiter().Run(ctx, 5*time.Minute)

	backupMgr := srv.BackupManager()
	backupMgr.Start(ctx)
	defer backupMgr.Stop()

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("homeledger listening", "port", cfg.Port, "timezone", cfg.Timezone)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	cancel()
}

// restore writes backup id to path without touching the live database.
func restore(db *sql.DB, cfg backup.Config, id int64, path string, logger *slog.Logger) error {
	mgr := backup.NewManager(cfg, db, store.NewBackupStore(db), logger, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := mgr.RestoreTo(ctx, id, path); err != nil {
		return err
	}
	logger.Info("backup restored; stop the server and replace the database file to use it",
		"backup_id", id, "path", path)
	return nil
}
