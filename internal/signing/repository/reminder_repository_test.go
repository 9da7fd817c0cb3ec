package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	signingDomain "github.com/allisson/esign/internal/signing/domain"
	"github.com/allisson/esign/internal/testutil"
)

var reminderRowColumns = []string{"id", "request_id", "user_id", "type", "scheduled_for", "sent_at", "created_at"}

func newReminder() *signingDomain.Reminder {
	now := time.Now().UTC()
	return &signingDomain.Reminder{
		ID:           uuid.Must(uuid.NewV7()),
		RequestID:    uuid.Must(uuid.NewV7()),
		UserID:       uuid.Must(uuid.NewV7()),
		Type:         signingDomain.ReminderExpirationWarning,
		ScheduledFor: now.Add(time.Hour),
		CreatedAt:    now,
	}
}

func TestPostgreSQLReminderRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Create", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLReminderRepository(db)
		reminder := newReminder()

		mock.ExpectExec(`INSERT INTO reminders`).
			WithArgs(
				reminder.ID, reminder.RequestID, reminder.UserID, "expiration_warning",
				reminder.ScheduledFor, sqlmock.AnyArg(), reminder.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, reminder))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_ListDue", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLReminderRepository(db)
		reminder := newReminder()
		now := time.Now().UTC()

		mock.ExpectQuery(`WHERE sent_at IS NULL AND scheduled_for <= \$1\s+ORDER BY scheduled_for LIMIT \$2 FOR UPDATE SKIP LOCKED`).
			WithArgs(now, 100).
			WillReturnRows(sqlmock.NewRows(reminderRowColumns).AddRow(
				reminder.ID.String(), reminder.RequestID.String(), reminder.UserID.String(),
				"pending_signature", reminder.ScheduledFor, nil, reminder.CreatedAt,
			))

		got, err := repo.ListDue(ctx, now, 100)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, reminder.ID, got[0].ID)
		assert.Equal(t, reminder.RequestID, got[0].RequestID)
		assert.Equal(t, signingDomain.ReminderPendingSignature, got[0].Type)
		assert.Nil(t, got[0].SentAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_ListDue", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLReminderRepository(db)

		mock.ExpectQuery(`FROM reminders`).WillReturnError(errors.New("connection reset"))

		_, err := repo.ListDue(ctx, time.Now(), 10)
		assert.ErrorContains(t, err, "failed to list due reminders")
	})

	t.Run("Success_MarkSent", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLReminderRepository(db)
		id := uuid.Must(uuid.NewV7())
		at := time.Now().UTC()

		mock.ExpectExec(`UPDATE reminders SET sent_at = \$1 WHERE id = \$2`).
			WithArgs(at, id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.MarkSent(ctx, id, at))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_DeleteUnsent", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewPostgreSQLReminderRepository(db)
		requestID := uuid.Must(uuid.NewV7())

		mock.ExpectExec(`DELETE FROM reminders WHERE request_id = \$1 AND sent_at IS NULL`).
			WithArgs(requestID).
			WillReturnResult(sqlmock.NewResult(0, 3))

		require.NoError(t, repo.DeleteUnsent(ctx, requestID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMySQLReminderRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Create", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLReminderRepository(db)
		reminder := newReminder()
		idBytes, _ := reminder.ID.MarshalBinary()
		requestBytes, _ := reminder.RequestID.MarshalBinary()
		userBytes, _ := reminder.UserID.MarshalBinary()

		mock.ExpectExec(`INSERT INTO reminders`).
			WithArgs(
				idBytes, requestBytes, userBytes, "expiration_warning",
				reminder.ScheduledFor, sqlmock.AnyArg(), reminder.CreatedAt,
			).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, reminder))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_ListDue", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLReminderRepository(db)
		reminder := newReminder()
		idBytes, _ := reminder.ID.MarshalBinary()
		requestBytes, _ := reminder.RequestID.MarshalBinary()
		userBytes, _ := reminder.UserID.MarshalBinary()

		mock.ExpectQuery(`FOR UPDATE SKIP LOCKED`).
			WillReturnRows(sqlmock.NewRows(reminderRowColumns).AddRow(
				idBytes, requestBytes, userBytes, "expiration_warning", reminder.ScheduledFor, nil, reminder.CreatedAt,
			))

		got, err := repo.ListDue(ctx, time.Now(), 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, reminder.UserID, got[0].UserID)
	})

	t.Run("Error_ListDueCorruptID", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLReminderRepository(db)
		reminder := newReminder()
		idBytes, _ := reminder.ID.MarshalBinary()
		userBytes, _ := reminder.UserID.MarshalBinary()

		mock.ExpectQuery(`FROM reminders`).
			WillReturnRows(sqlmock.NewRows(reminderRowColumns).AddRow(
				idBytes, []byte{1}, userBytes, "expiration_warning", reminder.ScheduledFor, nil, reminder.CreatedAt,
			))

		_, err := repo.ListDue(ctx, time.Now(), 10)
		assert.ErrorContains(t, err, "failed to unmarshal request id")
	})

	t.Run("Error_DeleteUnsent", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLReminderRepository(db)

		mock.ExpectExec(`DELETE FROM reminders`).WillReturnError(errors.New("connection reset"))

		assert.ErrorContains(t, repo.DeleteUnsent(ctx, uuid.Must(uuid.NewV7())), "failed to delete reminders")
	})
}
