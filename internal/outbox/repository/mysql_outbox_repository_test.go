package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/esign/internal/outbox/domain"
	"github.com/allisson/esign/internal/testutil"
)

func TestMySQLOutboxEventRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Create", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLOutboxEventRepository(db)
		event := domain.NewOutboxEvent("signature_request.signed", []byte("{}"))
		idBytes, _ := event.ID.MarshalBinary()

		mock.ExpectExec(`INSERT INTO outbox_events`).
			WithArgs(idBytes, "signature_request.signed", "{}", domain.OutboxEventStatusPending,
				0, sqlmock.AnyArg(), sqlmock.AnyArg(), event.CreatedAt, event.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_GetPendingEvents", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLOutboxEventRepository(db)
		event := domain.NewOutboxEvent("a", []byte("{}"))
		idBytes, _ := event.ID.MarshalBinary()

		mock.ExpectQuery(`WHERE status = \?\s+ORDER BY created_at ASC, id ASC\s+LIMIT \?\s+FOR UPDATE SKIP LOCKED`).
			WithArgs(domain.OutboxEventStatusPending, 5).
			WillReturnRows(sqlmock.NewRows(outboxRowColumns).
				AddRow(idBytes, "a", "{}", "pending", 0, nil, nil, event.CreatedAt, event.UpdatedAt))

		events, err := repo.GetPendingEvents(ctx, 5)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event.ID, events[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_GetPendingEventsCorruptID", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLOutboxEventRepository(db)
		event := domain.NewOutboxEvent("a", []byte("{}"))

		mock.ExpectQuery(`FROM outbox_events`).
			WillReturnRows(sqlmock.NewRows(outboxRowColumns).
				AddRow([]byte{1, 2}, "a", "{}", "pending", 0, nil, nil, event.CreatedAt, event.UpdatedAt))

		_, err := repo.GetPendingEvents(ctx, 5)
		assert.ErrorContains(t, err, "failed to unmarshal outbox event id")
	})

	t.Run("Error_Update", func(t *testing.T) {
		db, mock := testutil.NewMockDB(t)
		repo := NewMySQLOutboxEventRepository(db)

		mock.ExpectExec(`UPDATE outbox_events`).WillReturnError(errors.New("lock wait timeout"))

		err := repo.Update(ctx, domain.NewOutboxEvent("x", nil))
		assert.ErrorContains(t, err, "failed to update outbox event")
	})
}
