package app

import (
	"database/sql"
	"fmt"

	notificationHTTP "github.com/allisson/esign/internal/notification/http"
	notificationService "github.com/allisson/esign/internal/notification/service"
	outboxRepository "github.com/allisson/esign/internal/outbox/repository"
	outboxUsecase "github.com/allisson/esign/internal/outbox/usecase"
)

// OutboxRepository returns the outbox event repository for the configured driver.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxEventRepository, error) {
	return resolve(c, "outboxRepo", func() (outboxUsecase.OutboxEventRepository, error) {
		return byDriver(c,
			func(db *sql.DB) outboxUsecase.OutboxEventRepository {
				return outboxRepository.NewPostgreSQLOutboxEventRepository(db)
			},
			func(db *sql.DB) outboxUsecase.OutboxEventRepository {
				return outboxRepository.NewMySQLOutboxEventRepository(db)
			},
		)
	})
}

// NotificationHub returns the in-process hub feeding live notification streams.
func (c *Container) NotificationHub() *notificationService.Hub {
	hub, _ := resolve(c, "notificationHub", func() (*notificationService.Hub, error) {
		return notificationService.NewHub(0), nil
	})
	return hub
}

// Notifier returns the notifier used by the use cases. Notifications are queued in the
// outbox and delivered by the relay.
func (c *Container) Notifier() (*notificationService.OutboxNotifier, error) {
	return resolve(c, "notifier", func() (*notificationService.OutboxNotifier, error) {
		repo, err := c.OutboxRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get outbox repository for notifier: %w", err)
		}
		return notificationService.NewOutboxNotifier(repo), nil
	})
}

// Mailer returns the SMTP mailer, or nil when email delivery is disabled.
func (c *Container) Mailer() notificationService.Mailer {
	if !c.config.SMTPEnabled {
		return nil
	}
	mailer, _ := resolve(c, "mailer", func() (notificationService.Mailer, error) {
		return notificationService.NewSMTPMailer(notificationService.SMTPConfig{
			Host:     c.config.SMTPHost,
			Port:     c.config.SMTPPort,
			Username: c.config.SMTPUsername,
			Password: c.config.SMTPPassword,
			From:     c.config.SMTPFrom,
			BaseURL:  c.config.AppBaseURL,
		}), nil
	})
	return mailer
}

// Dispatcher returns the outbox event processor delivering notifications.
func (c *Container) Dispatcher() (*notificationService.Dispatcher, error) {
	return resolve(c, "dispatcher", func() (*notificationService.Dispatcher, error) {
		users, err := c.UserRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get user repository for dispatcher: %w", err)
		}
		return notificationService.NewDispatcher(c.NotificationHub(), c.Mailer(), users, c.Logger()), nil
	})
}

// OutboxUseCase returns the outbox relay.
func (c *Container) OutboxUseCase() (*outboxUsecase.OutboxUseCase, error) {
	return resolve(c, "outboxUseCase", func() (*outboxUsecase.OutboxUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for outbox use case: %w", err)
		}
		repo, err := c.OutboxRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get outbox repository: %w", err)
		}
		dispatcher, err := c.Dispatcher()
		if err != nil {
			return nil, err
		}
		return outboxUsecase.NewOutboxUseCase(outboxUsecase.Config{
			Interval:   c.config.OutboxInterval,
			BatchSize:  c.config.OutboxBatchSize,
			MaxRetries: c.config.OutboxMaxRetries,
		}, txManager, repo, dispatcher, c.Logger()), nil
	})
}

// StreamHandler returns the live notification stream handler.
func (c *Container) StreamHandler() *notificationHTTP.StreamHandler {
	handler, _ := resolve(c, "streamHandler", func() (*notificationHTTP.StreamHandler, error) {
		return notificationHTTP.NewStreamHandler(c.NotificationHub(), 0, c.Logger()), nil
	})
	return handler
}
