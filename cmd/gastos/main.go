package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gastos/internal/alert"
	"gastos/internal/amqp"
	"gastos/internal/config"
	apphttp "gastos/internal/http"
	"gastos/internal/services"
	"gastos/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// Seed alert settings from the environment so the trigger has a cap
	if cfg.AlertUserKey != "" && cfg.WeeklyCapCents > 0 {
		err := repo.SaveAlertSettings(context.Background(), storage.AlertSettings{
			UserKey:        cfg.AlertUserKey,
			WeeklyCapCents: cfg.WeeklyCapCents,
			AlertPct:       cfg.AlertPct,
		})
		if err != nil {
			logger.Error("Failed to seed alert settings", "error", err)
			os.Exit(1)
		}
	}

	// AMQP is optional; without it the alert check runs inline
	var publisher services.RecordPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		publisher = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - alert checks run inline")
	}

	var evaluator services.AlertEvaluator
	if cfg.NotifyBaseURL != "" {
		notifyClient := alert.NewNotifyClient(cfg.NotifyBaseURL, cfg.NotifyAppKey)
		evaluator = alert.NewTrigger(repo, notifyClient)
		logger.Info("Alert trigger initialized", "notify_base_url", cfg.NotifyBaseURL)

		// Mirror the cap and threshold so the notifier's own debounce
		// works from the same numbers
		if cfg.AlertUserKey != "" && cfg.WeeklyCapCents > 0 {
			err := notifyClient.SaveSettings(context.Background(),
				cfg.AlertUserKey, cfg.WeeklyCapCents, cfg.AlertPct)
			if err != nil {
				logger.Warn("Failed to mirror alert settings to notifier", "error", err)
			}
		}
	} else {
		logger.Info("Notifications disabled - no NOTIFY_BASE_URL provided")
	}

	service := services.NewExpenseService(repo, publisher, evaluator, cfg.AlertUserKey)
	defer service.Close()

	srv := apphttp.NewServer(":"+cfg.Port, service, repo)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting gastos server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
