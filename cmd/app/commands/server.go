package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/esign/internal/app"
	"github.com/allisson/esign/internal/config"
)

// loadContainer loads and validates the configuration and creates the DI container.
func loadContainer() (*app.Container, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return app.NewContainer(cfg), nil
}

// ignoreCanceled drops the error a loop returns when its context ends.
func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RunServer starts the API server, the metrics server, the outbox relay and the job
// scheduler. The relay runs in the same process so live notification streams receive
// events. Blocks until SIGINT/SIGTERM or a fatal error, then shuts everything down within
// ServerShutdownTimeout.
func RunServer(ctx context.Context, version string) error {
	container, err := loadContainer()
	if err != nil {
		return err
	}
	cfg := container.Config()
	gin.SetMode(cfg.GetGinMode())

	logger := container.Logger()
	logger.Info("starting server", slog.String("version", version))
	defer closeContainer(container, logger)

	server, err := container.HTTPServer()
	if err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}
	metricsServer, err := container.MetricsServer()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics server: %w", err)
	}
	relay, err := container.OutboxUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox relay: %w", err)
	}
	scheduler, err := container.Scheduler()
	if err != nil {
		return fmt.Errorf("failed to initialize job scheduler: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("api server error: %w", err)
		}
		return nil
	})
	if metricsServer != nil {
		g.Go(func() error {
			if err := metricsServer.Start(gctx); err != nil {
				return fmt.Errorf("metrics server error: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error { return ignoreCanceled(relay.Start(gctx)) })
	g.Go(func() error { return scheduler.Run(gctx) })

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
		defer shutdownCancel()

		var shutdownErrors []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("api server shutdown: %w", err))
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
			}
		}
		return errors.Join(shutdownErrors...)
	})

	return g.Wait()
}

// RunWorker runs the outbox relay and the job scheduler without the API. With once set it
// runs every job and one relay batch, then exits.
func RunWorker(ctx context.Context, version string, once bool) error {
	container, err := loadContainer()
	if err != nil {
		return err
	}

	logger := container.Logger()
	logger.Info("starting worker", slog.String("version", version), slog.Bool("once", once))
	defer closeContainer(container, logger)

	relay, err := container.OutboxUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize outbox relay: %w", err)
	}
	scheduler, err := container.Scheduler()
	if err != nil {
		return fmt.Errorf("failed to initialize job scheduler: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if once {
		scheduler.RunOnce(ctx)
		return relay.ProcessEvents(ctx)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ignoreCanceled(relay.Start(gctx)) })
	g.Go(func() error { return scheduler.Run(gctx) })
	return g.Wait()
}
