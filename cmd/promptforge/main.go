// Package main is the entry point for the PromptForge server.
// It loads configuration, connects to services, wires the image generation
// provider chain, and starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"promptforge/internal/cache"
	"promptforge/internal/config"
	"promptforge/internal/database"
	"promptforge/internal/genai"
	"promptforge/internal/handlers"
	"promptforge/internal/middleware"
	"promptforge/internal/router"
	"promptforge/internal/session"
	"promptforge/internal/storage"
	"promptforge/internal/store"
)

func main() {
	// Structured logger — text output, debug level in development.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
	)

	// Connect to PostgreSQL.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Run pending migrations.
	if err := database.Migrate(db); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Valkey (Redis-compatible cache + session store).
	valkeyClient, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		slog.Error("failed to connect to valkey", "error", err)
		os.Exit(1)
	}
	defer valkeyClient.Close()

	// Session cookies are Secure (HTTPS-only) outside development.
	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	// Initialize data stores.
	userStore := store.NewUserStore(db)
	promptStore := store.NewPromptStore(db)
	generationStore := store.NewGenerationStore(db)
	settingStore := store.NewSettingStore(db)

	// Connect to S3-compatible object storage (optional — generated images
	// keep their provider URLs when storage is absent).
	storageClient, err := storage.New(
		cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey,
		cfg.S3Bucket, cfg.S3PublicURL,
	)
	if err != nil {
		slog.Error("failed to initialize S3 storage", "error", err)
		os.Exit(1)
	}
	if storageClient != nil {
		slog.Info("s3 storage connected",
			"endpoint", cfg.S3Endpoint,
			"bucket", cfg.S3Bucket,
		)
	} else {
		slog.Warn("s3 storage not configured — generated images will not be re-hosted")
	}

	// Gallery page cache in Valkey.
	galleryCache := cache.NewGalleryCache(valkeyClient, cache.DefaultGalleryTTL)

	// Image generation provider chain: the hosted function adapter is
	// gated by the availability prober; Nebius and RenderNet form the
	// fallback chain. Nebius resolves its key from the environment first
	// and the settings table second, so admins can rotate it at runtime.
	serviceToken := genai.StaticToken(cfg.FunctionsToken)
	prober := genai.NewProber(serviceToken, genai.DefaultProbeTTL, genai.DefaultProbeTimeout)
	primary := genai.NewOpenAIProvider(cfg.FunctionsURL, cfg.GenerateFunction, serviceToken)
	nebius := genai.NewNebiusProvider(cfg.NebiusAPIKey, settingStore, cfg.NebiusBaseURL, "")
	rendernet := genai.NewRenderNetProvider(cfg.RenderNetAPIKey, cfg.RenderNetURL)
	dispatcher := genai.NewDispatcher(prober, cfg.FunctionsURL, cfg.GenerateFunction, primary, nebius, rendernet)

	slog.Info("image providers initialized",
		"functions_url", cfg.FunctionsURL,
		"function", cfg.GenerateFunction,
	)

	// Create handler groups with their dependencies.
	authHandlers := handlers.NewAuth(sessionStore, userStore)
	promptHandlers := handlers.NewPrompts(promptStore, userStore, galleryCache)
	generateHandlers := handlers.NewGenerate(dispatcher, generationStore, promptStore, galleryCache, storageClient)
	adminHandlers := handlers.NewAdmin(userStore, settingStore, dispatcher, galleryCache)

	// Rate limiters: a broad API limit plus a tight one for generation.
	apiLimiter := middleware.NewRateLimiter(120, time.Minute)
	defer apiLimiter.Stop()
	generateLimiter := middleware.NewRateLimiter(5, time.Minute)
	defer generateLimiter.Stop()

	// Set up the Chi router with all middleware and routes.
	r := router.New(sessionStore, authHandlers, promptHandlers, generateHandlers, adminHandlers, apiLimiter, generateLimiter)

	// Create the HTTP server with sensible timeouts. WriteTimeout must
	// accommodate generation requests that wait on providers (async
	// polling can take tens of seconds).
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start the server in a goroutine so we can listen for shutdown signals.
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown: wait for SIGINT or SIGTERM, then drain connections.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig)

	// Give active requests up to 30 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped gracefully")
}
