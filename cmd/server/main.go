package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/cors"

	"github.com/keeptouch/keeptouch/pkg/config"
	"github.com/keeptouch/keeptouch/pkg/contacts"
	"github.com/keeptouch/keeptouch/pkg/db"
	"github.com/keeptouch/keeptouch/pkg/followup"
	"github.com/keeptouch/keeptouch/pkg/httpapi"
	"github.com/keeptouch/keeptouch/pkg/zoho"
)

func main() {
	logger := log.NewWithOptions(os.Stdout, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		Level:           log.DebugLevel,
		TimeFormat:      time.Kitchen,
	})

	envs, _ := config.LoadConfig(true)
	logger.Info("Using database path", "path", envs.DBPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := db.NewStore(ctx, envs.DBPath)
	if err != nil {
		logger.Error("Unable to create or initialize database", "error", err)
		panic(errors.Wrap(err, "Unable to create or initialize database"))
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Error closing store", "error", err)
		}
	}()
	logger.Info("SQLite database initialized")

	tokens := zoho.NewTokenManager(logger, store, envs.ZohoClientID, envs.ZohoClientSecret)
	mail := zoho.NewMail(logger, tokens)
	calendar := zoho.NewCalendar(logger, tokens)
	miner := contacts.NewMiner(envs.SelfPhoneNumbers)
	syncer := contacts.NewSyncer(logger, mail, store, miner, envs.SyncFetchLimit, envs.SyncEnrichLimit)
	sweeper := followup.NewSweeper(logger, store, mail)

	scheduler := cron.New()
	_, err = scheduler.AddFunc(envs.FollowUpSchedule, func() {
		result, err := sweeper.RunSweep(ctx)
		if err != nil {
			logger.Error("Scheduled follow-up sweep failed", "error", err)
			return
		}
		if result.Failed > 0 {
			logger.Warn("Scheduled follow-up sweep had failures",
				"total", result.Total,
				"failed", result.Failed,
				"errors", result.Errors)
		}
	})
	if err != nil {
		logger.Error("Invalid follow-up schedule", "schedule", envs.FollowUpSchedule, "error", err)
		panic(errors.Wrap(err, "Invalid follow-up schedule"))
	}
	scheduler.Start()
	defer scheduler.Stop()
	logger.Info("Follow-up sweep scheduled", "schedule", envs.FollowUpSchedule)

	api := httpapi.NewServer(logger, store, tokens, mail, calendar, syncer, sweeper, envs.CronSecret)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:    ":" + envs.Port,
		Handler: corsMiddleware.Handler(api.Routes()),
	}

	go func() {
		logger.Info("HTTP server listening", "port", envs.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		logger.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	}
}
