// Package main provides the docsearch query server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/bull/docsearch/internal/api"
	"github.com/bull/docsearch/internal/config"
	"github.com/bull/docsearch/internal/embedding"
	"github.com/bull/docsearch/internal/logging"
	mcpserver "github.com/bull/docsearch/internal/mcp"
	"github.com/bull/docsearch/internal/search"
)

var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	envErr := godotenv.Load()

	cfg, err := config.Load(os.Getenv("DOCSEARCH_CONFIG"))
	if err != nil {
		logging.New("info", "text", os.Stderr).Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	embedder, err := embedding.New(cfg.Embedder)
	if err != nil {
		logger.Error("failed to create embedder", "error", err)
		os.Exit(1)
	}

	// The index is loaded once; the server does not start without it.
	svc, err := search.Load(ctx, cfg.Index, embedder, logger)
	if err != nil {
		logger.Error("failed to load index", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	mcp := mcpserver.NewServer(svc, version)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(
		api.NewHandler(svc, cfg.Server.DefaultTopK, logger),
		mcpserver.NewHTTPHandler(mcp, nil),
	)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Stdio mode serves MCP over stdin/stdout and keeps HTTP in the background.
	if os.Getenv("MCP_TRANSPORT") == "stdio" {
		go func() {
			logger.Info("Starting HTTP server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "error", err)
			}
		}()
		logger.Info("Starting docsearch MCP server (stdio mode)")
		if err := mcp.Run(ctx); err != nil {
			logger.Error("MCP server error", "error", err)
			os.Exit(1)
		}
		shutdown(srv, shutdownTimeout, logger)
		return
	}

	stopped := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdown(srv, shutdownTimeout, logger)
		close(stopped)
	}()

	logger.Info("Starting HTTP server",
		"addr", srv.Addr,
		"chunks", svc.Len(),
		"build_id", svc.BuildID(),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}

func shutdown(srv *http.Server, timeout time.Duration, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	logger.Info("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
}
