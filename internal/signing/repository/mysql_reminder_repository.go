package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
)

// MySQLReminderRepository persists reminders in MySQL.
type MySQLReminderRepository struct {
	db *sql.DB
}

// NewMySQLReminderRepository creates a new MySQLReminderRepository.
func NewMySQLReminderRepository(db *sql.DB) *MySQLReminderRepository {
	return &MySQLReminderRepository{db: db}
}

// Create inserts a reminder.
func (m *MySQLReminderRepository) Create(ctx context.Context, reminder *signingDomain.Reminder) error {
	ids, err := marshalIDs(reminder.ID, reminder.RequestID, reminder.UserID)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO reminders (` + reminderColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		ids[0],
		ids[1],
		ids[2],
		string(reminder.Type),
		reminder.ScheduledFor,
		reminder.SentAt,
		reminder.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create reminder")
	}
	return nil
}

// ListDue returns up to limit unsent reminders scheduled at or before now. Rows locked by
// another worker are skipped.
func (m *MySQLReminderRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*signingDomain.Reminder, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + reminderColumns + ` FROM reminders
			  WHERE sent_at IS NULL AND scheduled_for <= ?
			  ORDER BY scheduled_for LIMIT ? FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due reminders")
	}
	defer func() {
		_ = rows.Close()
	}()

	reminders := make([]*signingDomain.Reminder, 0)
	for rows.Next() {
		var (
			reminder              signingDomain.Reminder
			id, requestID, userID []byte
			reminderType          string
			sentAt                sql.NullTime
		)
		err := rows.Scan(&id, &requestID, &userID, &reminderType, &reminder.ScheduledFor, &sentAt, &reminder.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan reminder")
		}
		if err := reminder.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal reminder id")
		}
		if err := reminder.RequestID.UnmarshalBinary(requestID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal request id")
		}
		if err := reminder.UserID.UnmarshalBinary(userID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal user id")
		}
		reminder.Type = signingDomain.ReminderType(reminderType)
		if sentAt.Valid {
			at := sentAt.Time
			reminder.SentAt = &at
		}
		reminders = append(reminders, &reminder)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate reminders")
	}
	return reminders, nil
}

// MarkSent stamps the reminder as delivered at at.
func (m *MySQLReminderRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal reminder id")
	}

	querier := database.GetTx(ctx, m.db)

	if _, err := querier.ExecContext(ctx, `UPDATE reminders SET sent_at = ? WHERE id = ?`, at, idBytes); err != nil {
		return apperrors.Wrap(err, "failed to mark reminder sent")
	}
	return nil
}

// DeleteUnsent removes the reminders of a request that have not fired yet.
func (m *MySQLReminderRepository) DeleteUnsent(ctx context.Context, requestID uuid.UUID) error {
	idBytes, err := requestID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal request id")
	}

	querier := database.GetTx(ctx, m.db)

	_, err = querier.ExecContext(ctx, `DELETE FROM reminders WHERE request_id = ? AND sent_at IS NULL`, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete reminders")
	}
	return nil
}
