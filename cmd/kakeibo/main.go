package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"kakeibo/internal/amqp"
	"kakeibo/internal/config"
	internalhttp "kakeibo/internal/http"
	"kakeibo/internal/ledger"
	"kakeibo/internal/ledger/google"
	"kakeibo/internal/ledger/memory"
	"kakeibo/internal/ledger/sqlite"
	"kakeibo/internal/log"
	"kakeibo/internal/notify"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	log.SetDefault(logger)

	logger.Info("Starting kakeibo server")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	store, settings, closeStore, err := openStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize ledger store",
			log.FieldError, err.Error(), "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer closeStore()
	logger.Info("Ledger store initialized", "backend", cfg.DataBackend)

	var replier internalhttp.Replier
	if cfg.LineChannelToken != "" {
		replier = notify.NewLineClient(cfg.LineChannelToken,
			logger.WithComponent(log.ComponentNotify))
	} else {
		logger.Info("LINE replies disabled - no LINE_CHANNEL_TOKEN provided")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
			logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
			os.Exit(1)
		}
		defer amqpClient.Close()
	} else {
		logger.Info("Entry sync disabled - no AMQP_URL provided")
	}

	deps := internalhttp.Deps{
		Store:         store,
		Settings:      settings,
		Replier:       replier,
		ChannelSecret: cfg.LineChannelSecret,
		Logger:        logger.WithComponent(log.ComponentHTTP),
	}
	if amqpClient != nil {
		deps.Publisher = amqpClient
	}

	srv := internalhttp.NewServer(":"+cfg.Port, deps)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

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
			logger.Error("Server shutdown failed", log.FieldError, err.Error())
		}
		cancel()
	}()

	logger.Info("Server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server failed", log.FieldError, err.Error())
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped")
}

// openStore picks the ledger backend from configuration. The returned close
// function is a no-op for backends without resources to release.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (ledger.Store, ledger.SettingsStore, func(), error) {
	switch cfg.DataBackend {
	case "memory":
		s := memory.New()
		return s, s, func() {}, nil
	case "sheets":
		c, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			LedgerSheet:     cfg.GoogleLedgerSheet,
			SettingsSheet:   cfg.GoogleSettingsSheet,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
			CredentialsFile: cfg.GoogleCredentialsFile,
		}, logger.WithComponent(log.ComponentSheets))
		if err != nil {
			return nil, nil, nil, err
		}
		return c, c, func() {}, nil
	case "sqlite":
		r, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, nil, err
		}
		return r, r, func() { r.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}
