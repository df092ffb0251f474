// Package app provides application lifecycle management for the catalog sync server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pokemnky/catalog-sync/internal/config"
	"github.com/pokemnky/catalog-sync/internal/sync/coordinator"
)

// CatalogApp encapsulates all components needed to run the catalog sync server.
// It provides lifecycle management and graceful shutdown capabilities.
type CatalogApp struct {
	config      *config.Config
	components  *AppComponents
	coordinator coordinator.Coordinator
	httpServer  *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// Start starts the scheduler in the background and serves HTTP.
// This method blocks until the HTTP server stops or encounters an error.
func (app *CatalogApp) Start() error {
	go func() {
		if err := app.coordinator.Start(app.ctx); err != nil {
			slog.Error("Sync coordinator failed", "error", err)
		}
	}()

	slog.Info("Server listening", "address", app.httpServer.Addr)
	if err := app.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the application with the given timeout.
// It stops the coordinator, shuts down the HTTP server, then releases storage.
func (app *CatalogApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server")

	if err := app.coordinator.Stop(); err != nil {
		slog.Error("Failed to stop sync coordinator", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := app.httpServer.Shutdown(shutdownCtx)

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *CatalogApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server (useful for testing to get the actual port)
func (app *CatalogApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired sync components
func (app *CatalogApp) Components() *AppComponents {
	return app.components
}
