// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AtRiskMedia/glimpse-go/internal/application/container"
	"github.com/AtRiskMedia/glimpse-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/glimpse-go/internal/presentation/http/server"
	"github.com/AtRiskMedia/glimpse-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	backgroundCtx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("\033[32m" + `

   ▄████ ██▓     ██▓ ███▄ ▄███▓ ██▓███    ██████ ▓█████
  ██▒ ▀█▒▓██▒    ▓██▒▓██▒▀█▀ ██▒▓██░  ██▒▒██    ▒ ▓█   ▀
 ▒██░▄▄▄░▒██░    ▒██▒▓██    ▓██░▓██░ ██▓▒░ ▓██▄   ▒███
 ░▓█  ██▓▒██░    ░██░▒██    ▒██ ▒██▄█▓▒ ▒  ▒   ██▒▒▓█  ▄
 ░▒▓███▀▒░██████▒░██░▒██▒   ░██▒▒██▒ ░  ░▒██████▒▒░▒████▒
` + "\033[97m" + `
  made by At Risk Media
` + "\033[0m")

	// Step 1: Initialize channeled logging
	log.Println("Initializing...")
	logStart := time.Now()
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.LogStartupPhase("logging", time.Since(logStart), true)

	// Step 2: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	containerStart := time.Now()
	appContainer, err := container.NewContainer(logger, nil)
	if err != nil {
		logger.LogStartupPhase("container", time.Since(containerStart), false)
		return fmt.Errorf("failed to build container: %w", err)
	}
	logger.LogStartupPhase("container", time.Since(containerStart), true)
	logger.Startup().Info("Dependency injection container created with singleton services",
		"storageDriver", config.StorageDriver,
		"snapshotTTL", config.AuthCacheTTL)

	// Step 3: Start the monitor broadcaster and marker cleanup
	logger.Startup().Info("Starting monitor broadcaster...")
	go appContainer.Monitor.Run()

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-backgroundCtx.Done():
				return
			case <-ticker.C:
				appContainer.PerfTracker.Cleanup()
			}
		}
	}()

	// Step 4: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	startServerTime := time.Now()

	port := config.Port
	httpServer := server.New(port, appContainer)
	logger.LogStartupPhase("http_server", time.Since(startServerTime), true)

	// Step 5: Setup graceful shutdown
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	totalStartupTime := time.Since(start)
	logger.Startup().Info("Application startup complete",
		"totalDuration", totalStartupTime,
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Cancel background tasks
	cancelBackgroundTasks()

	// Stop server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Close storage backend
	logger.Shutdown().Info("Closing storage backend...")
	if err := appContainer.Close(); err != nil {
		logger.Shutdown().Error("Error closing storage backend", "error", err.Error())
	} else {
		logger.Shutdown().Info("Storage backend closed successfully")
	}

	appContainer.LogBroadcaster.Shutdown()

	elapsed := time.Since(start)
	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", elapsed,
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
