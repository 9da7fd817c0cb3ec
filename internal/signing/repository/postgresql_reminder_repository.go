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

const reminderColumns = `id, request_id, user_id, type, scheduled_for, sent_at, created_at`

// PostgreSQLReminderRepository persists reminders in PostgreSQL.
type PostgreSQLReminderRepository struct {
	db *sql.DB
}

// NewPostgreSQLReminderRepository creates a new PostgreSQLReminderRepository.
func NewPostgreSQLReminderRepository(db *sql.DB) *PostgreSQLReminderRepository {
	return &PostgreSQLReminderRepository{db: db}
}

// Create inserts a reminder.
func (p *PostgreSQLReminderRepository) Create(ctx context.Context, reminder *signingDomain.Reminder) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO reminders (` + reminderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := querier.ExecContext(
		ctx,
		query,
		reminder.ID,
		reminder.RequestID,
		reminder.UserID,
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
func (p *PostgreSQLReminderRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*signingDomain.Reminder, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + reminderColumns + ` FROM reminders
			  WHERE sent_at IS NULL AND scheduled_for <= $1
			  ORDER BY scheduled_for LIMIT $2 FOR UPDATE SKIP LOCKED`

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
			reminder     signingDomain.Reminder
			reminderType string
			sentAt       sql.NullTime
		)
		err := rows.Scan(
			&reminder.ID,
			&reminder.RequestID,
			&reminder.UserID,
			&reminderType,
			&reminder.ScheduledFor,
			&sentAt,
			&reminder.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan reminder")
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
func (p *PostgreSQLReminderRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	_, err := querier.ExecContext(ctx, `UPDATE reminders SET sent_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark reminder sent")
	}
	return nil
}

// DeleteUnsent removes the reminders of a request that have not fired yet.
func (p *PostgreSQLReminderRepository) DeleteUnsent(ctx context.Context, requestID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	_, err := querier.ExecContext(
		ctx,
		`DELETE FROM reminders WHERE request_id = $1 AND sent_at IS NULL`,
		requestID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete reminders")
	}
	return nil
}
