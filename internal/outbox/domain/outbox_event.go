// Package domain defines the transactional outbox entries that carry notifications out of the
// transaction that produced them.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// OutboxEventStatus is the delivery state of an outbox event.
type OutboxEventStatus string

// Outbox event statuses.
const (
	OutboxEventStatusPending   OutboxEventStatus = "pending"
	OutboxEventStatusProcessed OutboxEventStatus = "processed"
	OutboxEventStatusFailed    OutboxEventStatus = "failed"
)

// OutboxEvent is one pending delivery. Payload holds the encoded event, a structured-mode
// CloudEvent for notifications.
type OutboxEvent struct {
	ID          uuid.UUID
	EventType   string
	Payload     string
	Status      OutboxEventStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOutboxEvent creates a pending event.
func NewOutboxEvent(eventType string, payload []byte) *OutboxEvent {
	now := time.Now().UTC()
	return &OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: eventType,
		Payload:   string(payload),
		Status:    OutboxEventStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MarkProcessed records a successful delivery.
func (e *OutboxEvent) MarkProcessed(at time.Time) {
	at = at.UTC()
	e.Status = OutboxEventStatusProcessed
	e.ProcessedAt = &at
	e.UpdatedAt = at
}

// MarkFailed records a failed attempt. The event stays pending until maxRetries attempts
// have failed.
func (e *OutboxEvent) MarkFailed(at time.Time, cause error, maxRetries int) {
	message := cause.Error()
	e.Retries++
	e.LastError = &message
	e.UpdatedAt = at.UTC()
	if e.Retries >= maxRetries {
		e.Status = OutboxEventStatusFailed
	}
}
