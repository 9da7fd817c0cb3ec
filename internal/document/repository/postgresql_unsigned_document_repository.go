// Package repository provides PostgreSQL and MySQL readers for unsigned documents.
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

// PostgreSQLUnsignedDocumentRepository reads unsigned documents from PostgreSQL.
type PostgreSQLUnsignedDocumentRepository struct {
	db *sql.DB
}

// NewPostgreSQLUnsignedDocumentRepository creates a new PostgreSQLUnsignedDocumentRepository.
func NewPostgreSQLUnsignedDocumentRepository(db *sql.DB) *PostgreSQLUnsignedDocumentRepository {
	return &PostgreSQLUnsignedDocumentRepository{db: db}
}

// Get returns the unsigned document with id.
func (p *PostgreSQLUnsignedDocumentRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*documentDomain.UnsignedDocument, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, owner_id, file_name, content, created_at FROM unsigned_documents WHERE id = $1`

	var doc documentDomain.UnsignedDocument
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.OwnerID,
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
	return &doc, nil
}
