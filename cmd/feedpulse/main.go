package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/api"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/bot"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/classifier"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/feedback"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/seed"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/internal/storage"
	"github.com/parvaraval45-arch/feedpulse-cloudfare/pkg/config"
)

func main() {
	opts, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}
	if opts.Version {
		fmt.Println(config.Version)
		return
	}

	// Load configuration
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		logger.Info("Using in-memory storage")
		store = storage.NewMemoryStorage()
	} else {
		logger.Info("Using PostgreSQL storage", zap.String("host", cfg.Database.Host))
		store, err = storage.NewPostgresStorage(ctx, storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
		}, logger)
		if err != nil {
			logger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize classifier
	var clf classifier.Classifier
	if cfg.UseGPT() {
		logger.Info("Using GPT classifier", zap.String("model", cfg.OpenAI.Model))
		clf = classifier.NewGPTClassifier(
			cfg.OpenAI.APIKey,
			cfg.OpenAI.BaseURL,
			cfg.OpenAI.Model,
			cfg.OpenAI.MaxTokens,
			cfg.OpenAI.Temperature,
			cfg.Classifier.MaxThemes,
			logger,
		).WithRateLimit(cfg.OpenAI.MinInterval, cfg.OpenAI.Burst)
	} else {
		logger.Info("Using keyword classifier")
		clf = classifier.NewKeywordClassifier(cfg.Classifier.MaxThemes)
	}

	items, err := seed.LoadFile(cfg.Seed.Path)
	if err != nil {
		logger.Fatal("Failed to load seed dataset", zap.Error(err))
	}

	service := feedback.NewService(store, clf, feedback.Config{
		SeedItems:         items,
		ReseedConcurrency: cfg.Seed.Concurrency,
	}, logger)

	if cfg.Seed.OnStart || opts.Seed {
		seeded, err := service.SeedIfEmpty(ctx)
		if err != nil {
			logger.Error("Failed to seed feedback", zap.Error(err))
		} else if seeded {
			logger.Info("Seeded empty store with demo feedback")
		}
	}

	// Telegram intake is optional
	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, service, logger)
		if err != nil {
			logger.Fatal("Failed to create bot", zap.Error(err))
		}
		go func() {
			if err := b.Start(ctx); err != nil {
				logger.Error("Bot error", zap.Error(err))
			}
		}()
	}

	if cfg.Log.Mode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewServer(api.ServerConfig{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		CORSOrigins:  cfg.Server.CORSOrigins,
	}, api.NewHandler(service, logger), logger)

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
