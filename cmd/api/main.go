package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/therealutkarshpriyadarshi/autocaptions/internal/cache"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/captions"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/config"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/logging"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/metrics"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/middleware"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/tracing"
	"github.com/therealutkarshpriyadarshi/autocaptions/internal/ytdlp"
)

func main() {
	_ = godotenv.Load() // best-effort: load .env if present

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetGlobal()

	// Initialize tracing
	_, tracerCloser, err := tracing.InitTracer(cfg.Tracing)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize tracing")
	}
	defer tracerCloser.Close()

	// Initialize caption cache
	var captionCache CaptionCache
	if cfg.Cache.Enabled {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			logger.WithError(err).Warn("Caption cache unavailable, continuing without it")
		} else {
			defer c.Close()
			captionCache = c
			logger.Infof("Caption cache enabled (ttl %s)", c.TTL())
		}
	}

	if err := os.MkdirAll(cfg.Extractor.WorkDir, 0o755); err != nil {
		logger.WithError(err).Fatal("Failed to create work dir")
	}

	extractor := captions.NewExtractor(ytdlp.New(cfg.Extractor), captions.Options{
		WorkDir:           cfg.Extractor.WorkDir,
		PreferredLanguage: cfg.Extractor.PreferredLanguage,
		Logger:            logger,
	})

	api := NewAPI(extractor, captionCache, logger)

	gin.SetMode(cfg.Server.Mode)
	router := setupRouter(api, logger)

	// Start metrics server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			logger.Infof("Starting metrics server on port %d", metricsServer.Port())
			if err := metricsServer.Start(); err != nil {
				logger.ErrorWithErr("Metrics server stopped", err)
			}
		}()
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Starting API server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			logger.ErrorWithErr("Metrics server forced to shutdown", err)
		}
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorWithErr("Server forced to shutdown", err)
		return
	}

	logger.Info("Server stopped")
}

func setupRouter(api *API, logger *logging.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Metrics(),
		middleware.Tracing(),
	)

	router.GET("/", api.home)
	router.GET("/about", api.about)
	router.GET("/health", api.healthCheck)

	apiGroup := router.Group("/api")
	{
		apiGroup.GET("/getCaptions", api.getCaptions)
	}

	return router
}
