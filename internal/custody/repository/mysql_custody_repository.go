package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	custodyDomain "github.com/allisson/esign/internal/custody/domain"
	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
)

// MySQLCustodyRepository implements the custody store for MySQL. UUIDs are stored as BINARY(16).
type MySQLCustodyRepository struct {
	db *sql.DB
}

// NewMySQLCustodyRepository creates a new MySQLCustodyRepository.
func NewMySQLCustodyRepository(db *sql.DB) *MySQLCustodyRepository {
	return &MySQLCustodyRepository{db: db}
}

// Put inserts record and returns its ID. A second singleton fails with ErrSingletonExists.
func (m *MySQLCustodyRepository) Put(ctx context.Context, record *custodyDomain.Record) (uuid.UUID, error) {
	if err := record.Validate(); err != nil {
		return uuid.Nil, err
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.Must(uuid.NewV7())
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to marshal record id")
	}
	ownerID, err := record.OwnerID.MarshalBinary()
	if err != nil {
		return uuid.Nil, apperrors.Wrap(err, "failed to marshal owner id")
	}

	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO custody_records (id, kind, owner_id, singleton_slot, file_name, ciphertext, iv, salt,
			  auth_tag, key_ciphertext, key_iv, key_salt, key_auth_tag, certificate, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	keyCipher, keyIV, keySalt, keyTag := wrappedKeyArgs(record)

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		string(record.Kind),
		ownerID,
		record.SingletonSlot(),
		record.FileName,
		record.Blob.Ciphertext,
		record.Blob.IVHex(),
		record.Blob.SaltHex(),
		record.Blob.AuthTagHex(),
		keyCipher,
		keyIV,
		keySalt,
		keyTag,
		record.Certificate,
		record.CreatedAt,
	)
	if err != nil {
		return uuid.Nil, mapInsertError(record, err)
	}
	return record.ID, nil
}

// Get returns the record of kind with id, scoped to ownerID when it is non-nil.
func (m *MySQLCustodyRepository) Get(
	ctx context.Context,
	kind custodyDomain.Kind,
	id uuid.UUID,
	ownerID *uuid.UUID,
) (*custodyDomain.Record, error) {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal record id")
	}

	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + recordColumns + ` FROM custody_records WHERE id = ? AND kind = ?`
	args := []any{idBytes, string(kind)}
	if ownerID != nil {
		ownerBytes, err := ownerID.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal owner id")
		}
		query += ` AND owner_id = ?`
		args = append(args, ownerBytes)
	}

	return m.scan(querier.QueryRowContext(ctx, query, args...))
}

// GetSingleton returns the only record of a singleton kind.
func (m *MySQLCustodyRepository) GetSingleton(
	ctx context.Context,
	kind custodyDomain.Kind,
) (*custodyDomain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + recordColumns + ` FROM custody_records WHERE singleton_slot = ?`

	return m.scan(querier.QueryRowContext(ctx, query, string(kind)))
}

// ListByOwner returns the owner's records of kind, newest first.
func (m *MySQLCustodyRepository) ListByOwner(
	ctx context.Context,
	kind custodyDomain.Kind,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*custodyDomain.Record, error) {
	ownerBytes, err := ownerID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal owner id")
	}

	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + recordColumns + ` FROM custody_records
			  WHERE kind = ? AND owner_id = ?
			  ORDER BY created_at DESC, id DESC
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, string(kind), ownerBytes, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list custody records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*custodyDomain.Record, 0)
	for rows.Next() {
		record, err := m.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate custody records")
	}
	return records, nil
}

// Delete removes the owner's record, returning ErrRecordNotFound when nothing matched.
func (m *MySQLCustodyRepository) Delete(
	ctx context.Context,
	kind custodyDomain.Kind,
	id uuid.UUID,
	ownerID uuid.UUID,
) error {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}
	ownerBytes, err := ownerID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal owner id")
	}

	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM custody_records WHERE id = ? AND kind = ? AND owner_id = ?`

	result, err := querier.ExecContext(ctx, query, idBytes, string(kind), ownerBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete custody record")
	}
	return checkDeleted(result)
}

func (m *MySQLCustodyRepository) scan(scanner rowScanner) (*custodyDomain.Record, error) {
	var id, ownerID []byte
	return scanRecord(scanner, &id, &ownerID, func(record *custodyDomain.Record) error {
		if err := record.ID.UnmarshalBinary(id); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal record id")
		}
		if err := record.OwnerID.UnmarshalBinary(ownerID); err != nil {
			return apperrors.Wrap(err, "failed to unmarshal owner id")
		}
		return nil
	})
}
