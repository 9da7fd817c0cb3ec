// Package app provides the dependency injection container that assembles the application.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/esign/internal/config"
	"github.com/allisson/esign/internal/database"
	"github.com/allisson/esign/internal/metrics"
)

// Container holds all application dependencies and provides methods to access them.
// Components are created on first access and cached, including their initialization error.
type Container struct {
	config *config.Config

	// ctx bounds background goroutines owned by components; Shutdown cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	once       map[string]*sync.Once
	components map[string]any
	initErrors map[string]error

	logger     *slog.Logger
	loggerInit sync.Once

	// closers run in reverse order on Shutdown.
	closers []func(ctx context.Context) error
}

// NewContainer creates a new dependency injection container with the provided configuration.
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	return &Container{
		config:     cfg,
		ctx:        ctx,
		cancel:     cancel,
		once:       make(map[string]*sync.Once),
		components: make(map[string]any),
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// resolve returns the component registered under name, creating it with init on first use.
// A failed init is remembered and returned on every later call.
func resolve[T any](c *Container, name string, init func() (T, error)) (T, error) {
	c.mu.Lock()
	once, ok := c.once[name]
	if !ok {
		once = &sync.Once{}
		c.once[name] = once
	}
	c.mu.Unlock()

	once.Do(func() {
		value, err := init()
		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.initErrors[name] = err
			return
		}
		c.components[name] = value
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err, exists := c.initErrors[name]; exists {
		var zero T
		return zero, err
	}
	return c.components[name].(T), nil
}

// onShutdown registers a cleanup step.
func (c *Container) onShutdown(fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closers = append(c.closers, fn)
}

// Logger returns the configured logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
func (c *Container) DB() (*sql.DB, error) {
	return resolve(c, "db", c.initDB)
}

// TxManager returns the transaction manager.
func (c *Container) TxManager() (database.TxManager, error) {
	return resolve(c, "txManager", func() (database.TxManager, error) {
		db, err := c.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
		}
		return database.NewTxManager(db), nil
	})
}

// MetricsProvider returns the metrics provider, or nil when metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	return resolve(c, "metricsProvider", func() (*metrics.Provider, error) {
		if !c.config.MetricsEnabled {
			return nil, nil
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics provider: %w", err)
		}
		c.onShutdown(provider.Shutdown)
		return provider, nil
	})
}

// BusinessMetrics returns the business metrics recorder, a no-op when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	return resolve(c, "businessMetrics", func() (metrics.BusinessMetrics, error) {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, err
		}
		if provider == nil {
			return metrics.NewNoOpBusinessMetrics(), nil
		}
		return metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
	})
}

// Shutdown releases every initialized resource.
func (c *Container) Shutdown(ctx context.Context) error {
	c.cancel()

	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	db, _ := c.components["db"].(*sql.DB)
	c.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database close: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

// initLogger creates a JSON logger at the configured level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// byDriver picks the repository implementation for the configured database driver.
func byDriver[T any](c *Container, postgres, mysql func(db *sql.DB) T) (T, error) {
	var zero T
	db, err := c.DB()
	if err != nil {
		return zero, err
	}
	switch c.config.DBDriver {
	case "postgres":
		return postgres(db), nil
	case "mysql":
		return mysql(db), nil
	default:
		return zero, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}
