package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sjsage522/newsworker/config"
	"sjsage522/newsworker/helpers"
	"sjsage522/newsworker/internal/browser"
	"sjsage522/newsworker/internal/crawler"
	"sjsage522/newsworker/internal/report"
	"sjsage522/newsworker/logger"
	"sjsage522/newsworker/services/cache"
	"sjsage522/newsworker/services/publisher"
	"sjsage522/newsworker/services/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	selectors, err := crawler.LoadSelectors(cfg.SelectorsFile)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid selectors")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("site", cfg.SiteURL).
		Str("driver", cfg.BrowserDriver).
		Msg("Starting application")

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Services outlive a cancelled walk so partial results can still be published
	services := initializeServices(context.Background(), cfg)
	defer services.Cleanup()

	errLog := helpers.NewLogger(cfg.ErrorLogFile)
	downloader := crawler.NewImageDownloader(cfg.OutputDir, services.Cache, cfg.ImageCacheTTL, cfg.ImageTimeout, errLog)
	newBrowser := func(ctx context.Context) (browser.Browser, error) {
		return browser.New(ctx, browser.Options{
			Driver:        cfg.BrowserDriver,
			Headless:      cfg.Headless,
			ChromePath:    cfg.ChromePath,
			ActionTimeout: cfg.ActionTimeout,
		})
	}

	w := worker.NewWorker(*cfg, selectors, newBrowser, downloader, report.NewXLSXWriter(), services.Publisher, errLog)

	// Run the worker in a goroutine so a signal can cancel it
	workerDone := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting news worker")
		result, err := w.Run(ctx)
		if err == nil {
			log.Info().
				Str("run_id", result.RunID).
				Int("records", result.Records).
				Str("report", result.ReportPath).
				Msg("Report written")
		}
		workerDone <- err
	}()

	// Wait for shutdown signal or worker completion
	select {
	case sig := <-sigChan:
		log.Info().
			Str("signal", sig.String()).
			Msg("Received shutdown signal")
		cancel()
		// the walk stops at the next step and partial results are still exported
		<-workerDone
	case err := <-workerDone:
		if err != nil {
			services.Cleanup()
			log.Fatal().Err(err).Msg("Worker exited with error")
		}
		log.Info().Msg("Worker exited normally")
	}

	log.Info().Msg("Shutting down gracefully...")
}

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		s.Publisher.Close()
	}
}

// initializeServices connects the optional cache and publisher.
// Unreachable backends are logged and replaced with no-op implementations.
func initializeServices(ctx context.Context, cfg *config.Config) *Services {
	services := &Services{
		Cache:     cache.NoopCache{},
		Publisher: publisher.NoopPublisher{},
	}

	if memcacheService, ok := cache.New(cfg.MemcacheAddr).(*cache.MemcacheService); ok {
		if err := memcacheService.Ping(); err != nil {
			logger.Warn("Memcache at %s unreachable, image cache disabled: %v", cfg.MemcacheAddr, err)
		} else {
			services.Cache = memcacheService
			logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
		}
	}

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamMaxLength,
		)
		if err := redisPublisher.Ping(); err != nil {
			logger.Warn("Redis at %s unreachable, publishing disabled: %v", cfg.RedisAddr, err)
			redisPublisher.Close()
		} else {
			services.Publisher = redisPublisher
			logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
				cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
		}
	}

	return services
}
