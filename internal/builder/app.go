package builder

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

// App represents the application with all its components
type App struct {
	server     *http.Server
	components *Components
	logger     *zap.Logger
}

// Run starts the application and all its daemons
func (a *App) Run() error {
	a.components.IngestionPool.Start()
	a.components.MonitorPool.Start()

	if a.components.Config.MonitorCfg.Enabled {
		if err := a.components.Monitor.Start(context.Background()); err != nil {
			a.logger.Error("Failed to start monitor", zap.Error(err))
			_ = a.components.Close(context.Background())
			return err
		}
	} else {
		a.logger.Info("Monitor disabled, cycles run only on demand")
	}

	// Start HTTP server in goroutine
	errChan := make(chan error, 1)
	go func() {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case runErr = <-errChan:
		a.logger.Error("Server error", zap.Error(runErr))
	case sig := <-sigChan:
		a.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	if err := a.shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// shutdown stops accepting requests, then lets in-flight runs and
// ingestions drain before closing the stores.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	a.logger.Info("Shutting down server gracefully")

	var firstErr error
	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("Server shutdown error", zap.Error(err))
		firstErr = err
	}

	if err := a.components.Monitor.Stop(ctx); err != nil {
		a.logger.Warn("Monitor stop error", zap.Error(err))
	}

	a.logger.Info("Draining workers and closing connections")
	if err := a.components.Close(ctx); err != nil {
		a.logger.Error("Worker shutdown error", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	if firstErr == nil {
		a.logger.Info("Application stopped gracefully")
	}
	_ = a.logger.Sync()
	return firstErr
}
