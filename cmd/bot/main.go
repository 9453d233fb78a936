package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"printerbot-backend/internal/bot"
	"printerbot-backend/internal/common/config"
	"printerbot-backend/internal/common/logger"
	authservice "printerbot-backend/internal/features/auth/service"
	printservice "printerbot-backend/internal/features/printing/service"
	opshttp "printerbot-backend/internal/http"
	"printerbot-backend/internal/platform/converter"
	"printerbot-backend/internal/platform/pageinfo"
	"printerbot-backend/internal/platform/spooler"
	"printerbot-backend/internal/platform/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("printerbot-backend", cfg.Debug, cfg.Storage.LogFile)

	secret, err := cfg.AuthSecret()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load auth secret")
	}

	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.Storage.Dir).Msg("Failed to create storage dir")
	}

	guard, err := printservice.NewPathGuard(cfg.Storage.Dir)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize path guard")
	}

	authSvc := authservice.NewAuthService(secret)
	printSvc := printservice.NewPrintService(
		cfg.Storage.Dir,
		guard,
		converter.New(cfg.Limits.ConvertTimeout),
		pageinfo.NewInspector(cfg.Limits.SpoolerTimeout),
		spooler.NewClient(cfg.Limits.SpoolerTimeout),
		cfg.Limits.FileSizeLimit,
		cfg.Limits.PageLimit,
	)

	logger.Info().
		Int64("file_size_limit", cfg.Limits.FileSizeLimit).
		Int("page_limit", cfg.Limits.PageLimit).
		Str("storage_dir", cfg.Storage.Dir).
		Msg("Services initialized")

	tgClient := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.PollTimeout)
	printerBot := bot.New(tgClient, authSvc, printSvc, cfg.Limits.Workers)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      opshttp.NewRouter(printSvc, cfg.Server.Origin, cfg.Debug),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting ops HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start ops HTTP server")
		}
	}()

	go func() {
		if err := printerBot.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("Bot stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
