package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReminderType identifies why a reminder is sent.
type ReminderType string

// Reminder types.
const (
	ReminderExpirationWarning ReminderType = "expiration_warning"
	ReminderPendingSignature  ReminderType = "pending_signature"
)

// Offsets used when scheduling reminders for a new request.
var (
	expirationWarnings    = []time.Duration{24 * time.Hour, time.Hour}
	pendingSignatureDelay = 72 * time.Hour
)

// Reminder is a notification scheduled for the recipient of a pending request.
type Reminder struct {
	ID           uuid.UUID
	RequestID    uuid.UUID
	UserID       uuid.UUID
	Type         ReminderType
	ScheduledFor time.Time
	SentAt       *time.Time
	CreatedAt    time.Time
}

// ScheduleReminders returns the reminders for a request created at now: expiry warnings
// 24 hours and 1 hour before it expires, and a pending-signature nudge three days after
// sending. Reminders that would fire in the past or after expiry are skipped.
func ScheduleReminders(request *SigningRequest, now time.Time) []*Reminder {
	now = now.UTC()
	var reminders []*Reminder

	add := func(reminderType ReminderType, at time.Time) {
		if !at.After(now) || !at.Before(request.ExpiresAt) {
			return
		}
		reminders = append(reminders, &Reminder{
			ID:           uuid.Must(uuid.NewV7()),
			RequestID:    request.ID,
			UserID:       request.RecipientID,
			Type:         reminderType,
			ScheduledFor: at.UTC(),
			CreatedAt:    now,
		})
	}

	for _, before := range expirationWarnings {
		add(ReminderExpirationWarning, request.ExpiresAt.Add(-before))
	}
	add(ReminderPendingSignature, now.Add(pendingSignatureDelay))

	return reminders
}
