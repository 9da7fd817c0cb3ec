package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	outboxDomain "github.com/allisson/esign/internal/outbox/domain"
	userDomain "github.com/allisson/esign/internal/user/domain"
)

// UserDirectory resolves the email address of a notification's recipient.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
}

// Dispatcher delivers outbox notifications to the hub and, when a mailer is set, by email.
type Dispatcher struct {
	hub    *Hub
	mailer Mailer
	users  UserDirectory
	logger *slog.Logger
}

// NewDispatcher creates a new Dispatcher. mailer may be nil to disable email.
func NewDispatcher(hub *Hub, mailer Mailer, users UserDirectory, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		hub:    hub,
		mailer: mailer,
		users:  users,
		logger: logger,
	}
}

// Process delivers one outbox event. Live clients only see the first attempt; a failed email
// is returned so the outbox retries it.
func (d *Dispatcher) Process(ctx context.Context, outboxEvent *outboxDomain.OutboxEvent) error {
	event, err := DecodeCloudEvent([]byte(outboxEvent.Payload))
	if err != nil {
		return err
	}

	if outboxEvent.Retries == 0 {
		delivered := d.hub.Publish(event)
		d.logger.Debug("notification published",
			slog.String("event_id", event.ID.String()),
			slog.String("type", string(event.Type)),
			slog.Int("subscribers", delivered),
		)
	}

	if d.mailer == nil {
		return nil
	}

	user, err := d.users.GetByID(ctx, event.UserID)
	if err != nil {
		if errors.Is(err, userDomain.ErrUserNotFound) {
			d.logger.Warn("notification recipient not found",
				slog.String("event_id", event.ID.String()),
				slog.String("user_id", event.UserID.String()),
			)
			return nil
		}
		return err
	}
	return d.mailer.Send(ctx, user.Email, user.Name, event)
}
