// Command server runs the PR review metrics API server.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/codeGROOVE-dev/prreview/internal/server"
)

const (
	defaultPort       = "8080"
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Minute // Collections can take a while
	idleTimeout       = 120 * time.Second
	maxHeaderBytes    = 1 << 20 // 1MB
)

// Build variables - set by ldflags.
var (
	GitCommit = "unknown"
	GitBranch = "unknown"
	BuildTime = "unknown"
)

func main() {
	// Create root context
	ctx := context.Background()

	// Set up logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Log startup information
	logger.InfoContext(ctx, "starting server",
		"commit", GitCommit,
		"branch", GitBranch,
		"built", BuildTime,
		"go", runtime.Version(),
		"pid", os.Getpid())

	// Parse flags
	var (
		port        = flag.String("port", "", "Port to run the server on")
		version     = flag.Bool("version", false, "Print version and exit")
		reportsDir  = flag.String("reports-dir", "reports", "Directory holding the monthly report files")
		corsOrigins = flag.String("cors-origins",
			"https://github.com,https://api.github.com",
			"Comma-separated list of allowed CORS origins (supports *.domain.com wildcards)")
		allowAllCors = flag.Bool("allow-all-cors", false, "Allow all CORS origins (use only for development)")
		rateLimit    = flag.Int("rate-limit", 100, "Requests per second rate limit")
		rateBurst    = flag.Int("rate-burst", 100, "Rate limit burst size")
	)
	flag.Parse()

	if *version {
		logger.InfoContext(ctx, "prreview-server version",
			"commit", GitCommit,
			"branch", GitBranch,
			"built", BuildTime,
			"go", runtime.Version())
		os.Exit(0)
	}

	// Determine port
	serverPort := *port
	if serverPort == "" {
		serverPort = os.Getenv("PORT")
	}
	if serverPort == "" {
		serverPort = defaultPort
	}

	// Determine reports directory (environment variable overrides flag default)
	reportsDirValue := *reportsDir
	if envDir := os.Getenv("REPORTS_DIR"); envDir != "" {
		reportsDirValue = envDir
	}

	// Create server
	reviewServer := server.New(reportsDirValue)
	reviewServer.SetCommit(GitCommit)
	reviewServer.SetCORSConfig(*corsOrigins, *allowAllCors)
	reviewServer.SetRateLimit(*rateLimit, *rateBurst)

	srv := &http.Server{
		Addr:              ":" + serverPort,
		Handler:           reviewServer,
		ReadTimeout:       readHeaderTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "server listening", "port", serverPort, "reports_dir", reportsDirValue)
		serverErrors <- srv.ListenAndServe()
	}()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorContext(ctx, "server error", "error", err)
			os.Exit(1)
		}
	case sig := <-sigChan:
		logger.InfoContext(ctx, "received signal", "signal", sig)

		// Graceful shutdown
		logger.InfoContext(ctx, "starting graceful shutdown")

		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)

		// Shutdown application components
		reviewServer.Shutdown()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			cancel()
			logger.WarnContext(ctx, "graceful shutdown failed", "error", err)
			// Force close
			if err := srv.Close(); err != nil {
				logger.ErrorContext(ctx, "server close error", "error", err)
				os.Exit(1)
			}
		} else {
			cancel()
		}
	}

	logger.InfoContext(ctx, "server stopped")
}
