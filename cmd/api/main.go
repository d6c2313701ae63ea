package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/aws"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/controller"
	"storefront/internal/database"
	"storefront/internal/orchestrator"
	"storefront/internal/rabbitmq"
	"storefront/internal/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := "config/config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.Logging)
	log.Info().Str("app", cfg.AppName).Str("env", cfg.Env).Msg("Starting storefront import API")

	db, err := database.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}

	redisCache, err := cache.NewRedisCache(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Redis cache")
	}
	defer redisCache.Close()

	rabbit, err := rabbitmq.NewClientFromConfig(cfg.Rabbit)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create RabbitMQ client")
	}
	defer rabbit.Close()

	fileService, err := aws.NewFileService(cfg.AWS.AccessKey, cfg.AWS.SecretKey, cfg.AWS.Bucket, cfg.AWS.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create S3 file service")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	worker := orchestrator.NewImportWorker(db, fileService, redisCache, rabbit, cfg.Rabbit, cfg.Imports)
	if err := worker.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start import worker")
	}

	sc := controller.NewServer(db, redisCache, rabbit)
	ic := controller.NewImportController(db, fileService, redisCache, rabbit, cfg.Rabbit)
	tc := controller.NewToken(db)

	srv := server.New(*cfg, sc, ic, tc)

	go func() {
		log.Info().Int("port", cfg.Port).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	worker.Stop()

	log.Info().Msg("Shutdown complete")
}

func setupLogger(config config.LoggingConfig) {
	// Set global log level
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure logger output
	switch config.Format {
	case "json":
		// JSON is the default for zerolog
	case "console", "combined":
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	log.Logger = log.With().Timestamp().Logger()
}
