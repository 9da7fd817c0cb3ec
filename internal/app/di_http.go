package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/http"
	"github.com/allisson/esign/internal/jobs"
	"github.com/allisson/esign/internal/scratch"
)

// Scheduler returns the background job scheduler with the expiry sweep, reminder delivery
// and scratch cleanup jobs registered.
func (c *Container) Scheduler() (*jobs.Scheduler, error) {
	return resolve(c, "scheduler", c.initScheduler)
}

func (c *Container) initScheduler() (*jobs.Scheduler, error) {
	signing, err := c.SigningUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get signing use case for scheduler: %w", err)
	}

	scheduler := jobs.NewScheduler(c.Logger())
	if err := scheduler.Add("expire_signing_requests", c.config.ExpirySweepSchedule,
		func(ctx context.Context) (int, error) {
			return signing.ExpireStale(ctx, time.Now().UTC())
		},
	); err != nil {
		return nil, err
	}
	if err := scheduler.Add("process_reminders", c.config.ReminderSchedule,
		func(ctx context.Context) (int, error) {
			return signing.ProcessReminders(ctx, time.Now().UTC())
		},
	); err != nil {
		return nil, err
	}
	if err := scheduler.Add("sweep_scratch", c.config.ScratchCleanupSchedule,
		func(ctx context.Context) (int, error) {
			return scratch.Sweep(c.config.PKIWorkDir, c.config.ScratchMaxAge, time.Now())
		},
	); err != nil {
		return nil, err
	}
	return scheduler, nil
}

// AdminUserIDs parses the configured CA operator IDs.
func (c *Container) AdminUserIDs() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, raw := range c.config.AdminUserIDList() {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid admin user id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// HTTPServer returns the API server with every route registered.
func (c *Container) HTTPServer() (*http.Server, error) {
	return resolve(c, "httpServer", c.initHTTPServer)
}

func (c *Container) initHTTPServer() (*http.Server, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for http server: %w", err)
	}
	adminIDs, err := c.AdminUserIDs()
	if err != nil {
		return nil, err
	}
	provider, err := c.MetricsProvider()
	if err != nil {
		return nil, err
	}

	caHandler, err := c.CAHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get ca handler: %w", err)
	}
	requestHandler, err := c.CertificateRequestHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get certificate request handler: %w", err)
	}
	credentialHandler, err := c.CredentialHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential handler: %w", err)
	}
	documentHandler, err := c.DocumentHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get document handler: %w", err)
	}
	signingHandler, err := c.SigningHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get signing handler: %w", err)
	}

	server := http.NewServer(db, c.config.ServerHost, c.config.ServerPort, c.Logger())
	server.SetupRouter(c.ctx, http.RouterConfig{
		CORSEnabled:      c.config.CORSEnabled,
		CORSAllowOrigins: c.config.CORSAllowOrigins,
		RateLimitEnabled: c.config.RateLimitEnabled,
		RateLimitRPS:     c.config.RateLimitRequestsPerSec,
		RateLimitBurst:   c.config.RateLimitBurst,
		AdminUserIDs:     adminIDs,
		MetricsProvider:  provider,
		MetricsNamespace: c.config.MetricsNamespace,
	}, http.Handlers{
		CA:                  caHandler,
		CertificateRequests: requestHandler,
		Credentials:         credentialHandler,
		Documents:           documentHandler,
		Signing:             signingHandler,
		Notifications:       c.StreamHandler(),
	})
	return server, nil
}

// MetricsServer returns the Prometheus metrics server, or nil when metrics are disabled.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	provider, err := c.MetricsProvider()
	if err != nil || provider == nil {
		return nil, err
	}
	return resolve(c, "metricsServer", func() (*http.MetricsServer, error) {
		return http.NewMetricsServer(c.config.ServerHost, c.config.MetricsPort, c.Logger(), provider), nil
	})
}
