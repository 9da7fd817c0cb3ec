// Package domain defines the notifications emitted by the CA and signing workflows.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a notification.
type EventType string

// Notification types.
const (
	EventCertificateIssued          EventType = "certificate.issued"
	EventCertificateRequestRejected EventType = "certificate_request.rejected"
	EventSignatureRequestReceived   EventType = "signature_request.received"
	EventSignatureRequestSigned     EventType = "signature_request.signed"
	EventSignatureRequestRejected   EventType = "signature_request.rejected"
	EventSignatureRequestExpired    EventType = "signature_request.expired"
	EventSignatureRequestReminder   EventType = "signature_request.reminder"
	EventAllSigned                  EventType = "signature_request.all_signed"
)

// Event is one notification addressed to a user.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	UserID     uuid.UUID         `json:"user_id"`
	Type       EventType         `json:"type"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	Data       map[string]string `json:"data,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NewEvent creates an event with a fresh ID and the current time.
func NewEvent(userID uuid.UUID, eventType EventType, title, message string, data map[string]string) Event {
	return Event{
		ID:         uuid.Must(uuid.NewV7()),
		UserID:     userID,
		Type:       eventType,
		Title:      title,
		Message:    message,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}
