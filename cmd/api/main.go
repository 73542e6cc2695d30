package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paloma-store/internal/address"
	"paloma-store/internal/cart"
	"paloma-store/internal/config"
	"paloma-store/internal/database"
	"paloma-store/internal/generation"
	"paloma-store/internal/handler"
	"paloma-store/internal/migrate"
	"paloma-store/internal/repository"
	"paloma-store/internal/router"
	"paloma-store/internal/service"
	"paloma-store/internal/session"
	"paloma-store/internal/storage"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
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
	logger.Info().Msg("starting paloma-store API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool and bring the schema up to date
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := migrate.Up(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	categoryRepo := repository.NewCategoryRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)

	// Sessions carry the signed-in user and the cart
	sessionStore, err := session.NewStore(cfg.Session)
	if err != nil {
		return fmt.Errorf("failed to initialize session store: %w", err)
	}
	sessions := session.NewManager(sessionStore, cfg.Session.Name, logger)

	// Postal code lookup and freight
	viaCEP := address.NewViaCEPClient(cfg.Postal.BaseURL, cfg.Postal.Timeout, logger)
	resolver := address.NewResolver(viaCEP, address.ShippingTable{
		HomeState:        cfg.Shipping.HomeState,
		HomeRate:         cfg.Shipping.HomeRate,
		HighVolumeStates: cfg.Shipping.HighVolumeStates,
		HighVolumeRate:   cfg.Shipping.HighVolumeRate,
		DefaultRate:      cfg.Shipping.DefaultRate,
	}, cfg.Postal.Timeout, logger)

	// Image storage with S3 and local fallback
	uploader := newUploader(ctx, cfg.Storage, logger)

	// Initialize services
	productService := service.NewProductService(productRepo, logger)
	categoryService := service.NewCategoryService(categoryRepo, productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, resolver, logger)
	authService := service.NewAuthService(userRepo, bcrypt.DefaultCost, logger)
	reconciler := cart.NewReconciler(productService, generation.NewTracker(), cfg.Timeouts.Reconcile, logger)

	// Initialize HTTP handlers
	handlers := router.Handlers{
		Products:   handler.NewProductHandler(productService, logger),
		Categories: handler.NewCategoryHandler(categoryService, logger),
		Cart:       handler.NewCartHandler(sessions, productService, reconciler, logger),
		Orders:     handler.NewOrderHandler(orderService, resolver, sessions, logger),
		Auth:       handler.NewAuthHandler(authService, sessions, logger),
		Uploads:    handler.NewUploadHandler(uploader, logger),
	}

	// Initialize router
	mux := router.New(handlers, sessions, router.Options{
		AllowedOrigin: cfg.Server.AllowedOrigin,
		StoreTimeout:  cfg.Timeouts.Store,
		UploadDir:     cfg.Storage.LocalDir,
		UploadURL:     cfg.Storage.LocalPublicURL,
	}, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.RequestTimeout,
		WriteTimeout: cfg.Server.RequestTimeout,
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
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}

// newUploader prefers S3 and keeps the local directory as fallback. A bucket
// that cannot be configured leaves only the local directory.
func newUploader(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) storage.Uploader {
	fileUploader := storage.NewFileUploader(cfg.LocalDir, cfg.LocalPublicURL, logger)
	if !cfg.S3Enabled {
		logger.Info().Msg("using local file system for images (S3 disabled)")
		return fileUploader
	}

	s3Uploader, err := storage.NewS3Uploader(ctx, storage.S3Options{
		Bucket:          cfg.Bucket,
		Region:          cfg.Region,
		Prefix:          cfg.Prefix,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		PublicBaseURL:   cfg.PublicBaseURL,
	}, logger)
	if err != nil {
		logger.Warn().
			Err(err).
			Msg("failed to initialise S3 uploader, falling back to local file system only")
		return fileUploader
	}
	return storage.NewFallbackUploader(s3Uploader, fileUploader, true, logger)
}
