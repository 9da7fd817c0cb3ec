package service

import (
	"context"

	"github.com/allisson/esign/internal/notification/domain"
	outboxDomain "github.com/allisson/esign/internal/outbox/domain"
)

// OutboxWriter stores outbox events, inside the transaction carried by ctx when there is one.
type OutboxWriter interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// OutboxNotifier records notifications in the outbox. The outbox relay delivers them later
// through a Dispatcher.
type OutboxNotifier struct {
	outbox OutboxWriter
}

// NewOutboxNotifier creates a new OutboxNotifier.
func NewOutboxNotifier(outbox OutboxWriter) *OutboxNotifier {
	return &OutboxNotifier{outbox: outbox}
}

// Notify encodes event as a CloudEvent and writes it to the outbox.
func (n *OutboxNotifier) Notify(ctx context.Context, event domain.Event) error {
	payload, err := EncodeCloudEvent(event)
	if err != nil {
		return err
	}
	return n.outbox.Create(ctx, outboxDomain.NewOutboxEvent(string(event.Type), payload))
}
