package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	documentDomain "github.com/allisson/esign/internal/document/domain"
	apperrors "github.com/allisson/esign/internal/errors"
)

// MySQLUnsignedDocumentRepository reads unsigned documents from MySQL. UUIDs are BINARY(16).
type MySQLUnsignedDocumentRepository struct {
	db *sql.DB
}

// NewMySQLUnsignedDocumentRepository creates a new MySQLUnsignedDocumentRepository.
func NewMySQLUnsignedDocumentRepository(db *sql.DB) *MySQLUnsignedDocumentRepository {
	return &MySQLUnsignedDocumentRepository{db: db}
}

// Get returns the unsigned document with id.
func (m *MySQLUnsignedDocumentRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*documentDomain.UnsignedDocument, error) {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal document id")
	}

	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, owner_id, file_name, content, created_at FROM unsigned_documents WHERE id = ?`

	var (
		doc                documentDomain.UnsignedDocument
		rawID, rawOwnerID []byte
	)
	err = querier.QueryRowContext(ctx, query, idBytes).Scan(
		&rawID,
		&rawOwnerID,
		&doc.FileName,
		&doc.Content,
		&doc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, documentDomain.ErrUnsignedDocumentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get unsigned document")
	}

	if err := doc.ID.UnmarshalBinary(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal document id")
	}
	if err := doc.OwnerID.UnmarshalBinary(rawOwnerID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal owner id")
	}
	return &doc, nil
}
