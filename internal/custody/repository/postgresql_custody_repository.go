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

// PostgreSQLCustodyRepository implements the custody store for PostgreSQL.
type PostgreSQLCustodyRepository struct {
	db *sql.DB
}

// NewPostgreSQLCustodyRepository creates a new PostgreSQLCustodyRepository.
func NewPostgreSQLCustodyRepository(db *sql.DB) *PostgreSQLCustodyRepository {
	return &PostgreSQLCustodyRepository{db: db}
}

// Put inserts record and returns its ID. A second singleton fails with ErrSingletonExists.
func (p *PostgreSQLCustodyRepository) Put(ctx context.Context, record *custodyDomain.Record) (uuid.UUID, error) {
	if err := record.Validate(); err != nil {
		return uuid.Nil, err
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.Must(uuid.NewV7())
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO custody_records (id, kind, owner_id, singleton_slot, file_name, ciphertext, iv, salt,
			  auth_tag, key_ciphertext, key_iv, key_salt, key_auth_tag, certificate, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	keyCipher, keyIV, keySalt, keyTag := wrappedKeyArgs(record)

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		string(record.Kind),
		record.OwnerID,
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

// Get returns the record of kind with id. When ownerID is non-nil the record must belong
// to that owner; a foreign record is reported as ErrRecordNotFound.
func (p *PostgreSQLCustodyRepository) Get(
	ctx context.Context,
	kind custodyDomain.Kind,
	id uuid.UUID,
	ownerID *uuid.UUID,
) (*custodyDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + recordColumns + ` FROM custody_records WHERE id = $1 AND kind = $2`
	args := []any{id, string(kind)}
	if ownerID != nil {
		query += ` AND owner_id = $3`
		args = append(args, *ownerID)
	}

	return p.scan(querier.QueryRowContext(ctx, query, args...))
}

// GetSingleton returns the only record of a singleton kind.
func (p *PostgreSQLCustodyRepository) GetSingleton(
	ctx context.Context,
	kind custodyDomain.Kind,
) (*custodyDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + recordColumns + ` FROM custody_records WHERE singleton_slot = $1`

	return p.scan(querier.QueryRowContext(ctx, query, string(kind)))
}

// ListByOwner returns the owner's records of kind, newest first.
func (p *PostgreSQLCustodyRepository) ListByOwner(
	ctx context.Context,
	kind custodyDomain.Kind,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*custodyDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + recordColumns + ` FROM custody_records
			  WHERE kind = $1 AND owner_id = $2
			  ORDER BY created_at DESC, id DESC
			  LIMIT $3 OFFSET $4`

	rows, err := querier.QueryContext(ctx, query, string(kind), ownerID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list custody records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*custodyDomain.Record, 0)
	for rows.Next() {
		record, err := p.scan(rows)
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

// Delete removes the owner's record. Deleting a missing, foreign or already deleted
// record returns ErrRecordNotFound.
func (p *PostgreSQLCustodyRepository) Delete(
	ctx context.Context,
	kind custodyDomain.Kind,
	id uuid.UUID,
	ownerID uuid.UUID,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM custody_records WHERE id = $1 AND kind = $2 AND owner_id = $3`

	result, err := querier.ExecContext(ctx, query, id, string(kind), ownerID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete custody record")
	}
	return checkDeleted(result)
}

func (p *PostgreSQLCustodyRepository) scan(scanner rowScanner) (*custodyDomain.Record, error) {
	var id, ownerID uuid.UUID
	return scanRecord(scanner, &id, &ownerID, func(record *custodyDomain.Record) error {
		record.ID = id
		record.OwnerID = ownerID
		return nil
	})
}
