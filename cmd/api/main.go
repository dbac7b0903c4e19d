package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shophub/internal/authz"
	"shophub/internal/config"
	"shophub/internal/database"
	"shophub/internal/events"
	"shophub/internal/handler"
	"shophub/internal/notification"
	"shophub/internal/payment"
	"shophub/internal/repository"
	"shophub/internal/router"
	"shophub/internal/service"
	"shophub/internal/shipping"
	"shophub/internal/worker"

	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting shophub API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	customerRepo := repository.NewCustomerRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	couponRepo := repository.NewCouponRepository(pool, logger)
	auditRepo := repository.NewAuditRepository(pool, logger)

	// Load the shipping zone table from S3 or the local file system. Pricing
	// works without it, falling back to the flat weight brackets.
	zones := loadZoneTable(ctx, cfg.Shipping, logger)

	// Initialize payment gateway client
	gateway, err := payment.NewHTTPGateway(cfg.Payment.BaseURL, cfg.Payment.APIKey, cfg.Payment.Timeout, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	// Initialize analytics event publisher
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.Events.URL, cfg.Events.Exchange, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to connect to event broker, events disabled")
		} else {
			publisher = amqpPublisher
			defer amqpPublisher.Close()
		}
	} else {
		logger.Info().Msg("analytics events disabled")
	}

	// Initialize notification sender
	sender := notification.NewMemorySender(cfg.Email.From, logger)

	// Initialize services
	policy := authz.NewPolicy(logger)
	orderService := service.NewOrderService(
		pool,
		customerRepo,
		productRepo,
		orderRepo,
		couponRepo,
		auditRepo,
		gateway,
		sender,
		publisher,
		policy,
		zones,
		logger,
	)

	// Start background workers
	reaper := worker.NewExpirationReaper(
		orderService,
		cfg.Worker.ExpirationInterval,
		cfg.Worker.ExpirationAge,
		cfg.Worker.ExpirationBatch,
		logger,
	)
	reaper.Start(ctx)
	defer reaper.Stop()

	reporter := worker.NewDailyReporter(
		auditRepo,
		sender,
		cfg.Worker.ReportRecipient,
		cfg.Worker.ReportHour,
		logger,
	)
	reporter.Start(ctx)
	defer reporter.Stop()

	// Initialize HTTP handlers
	orderHandler := handler.NewOrderHandler(orderService, logger)

	// Initialize router
	mux := router.New(orderHandler, cfg.Auth.APIKey, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// loadZoneTable loads the shipping zone table from S3 when enabled, otherwise
// from the local file system. A missing table is not fatal: pricing falls back
// to the flat weight brackets.
func loadZoneTable(ctx context.Context, cfg config.ShippingConfig, logger zerolog.Logger) shipping.Table {
	if cfg.S3Enabled {
		loader, err := shipping.NewS3Loader(ctx, cfg.S3Bucket, cfg.S3Region, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to initialise S3 zone loader, trying local file")
		} else {
			table, err := loader.Load(ctx, cfg.S3Key)
			if err == nil {
				return table
			}
			logger.Warn().Err(err).Msg("failed to load zone table from S3, trying local file")
		}
	}

	if cfg.ZoneFile == "" {
		logger.Info().Msg("no shipping zone table configured, using flat weight brackets")
		return nil
	}

	table, err := shipping.NewFileLoader(logger).Load(ctx, cfg.ZoneFile)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to load zone table, using flat weight brackets")
		return nil
	}
	return table
}
