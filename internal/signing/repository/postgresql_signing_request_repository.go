// Package repository provides PostgreSQL and MySQL persistence for signing requests and
// their reminders.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
)

const requestColumns = `id, document_id, document_type, sender_id, recipient_id, status, message,
	rejection_reason, expires_at, signed_at, signed_document_id, version, created_at, updated_at`

// PostgreSQLSigningRequestRepository persists signing requests in PostgreSQL.
type PostgreSQLSigningRequestRepository struct {
	db *sql.DB
}

// NewPostgreSQLSigningRequestRepository creates a new PostgreSQLSigningRequestRepository.
func NewPostgreSQLSigningRequestRepository(db *sql.DB) *PostgreSQLSigningRequestRepository {
	return &PostgreSQLSigningRequestRepository{db: db}
}

// Create inserts a new request.
func (p *PostgreSQLSigningRequestRepository) Create(ctx context.Context, request *signingDomain.SigningRequest) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO signing_requests (` + requestColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := querier.ExecContext(
		ctx,
		query,
		request.ID,
		request.DocumentID,
		string(request.DocumentType),
		request.SenderID,
		request.RecipientID,
		string(request.Status),
		request.Message,
		request.RejectionReason,
		request.ExpiresAt,
		request.SignedAt,
		request.SignedDocumentID,
		request.Version,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create signing request")
	}
	return nil
}

// Get returns the request with id.
func (p *PostgreSQLSigningRequestRepository) Get(
	ctx context.Context,
	id uuid.UUID,
) (*signingDomain.SigningRequest, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + requestColumns + ` FROM signing_requests WHERE id = $1`

	return scanPostgreSQLRequest(querier.QueryRowContext(ctx, query, id))
}

// GetForUpdate returns the request with id and locks its row until the surrounding
// transaction ends. It must be called with a transaction in ctx.
func (p *PostgreSQLSigningRequestRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*signingDomain.SigningRequest, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + requestColumns + ` FROM signing_requests WHERE id = $1 FOR UPDATE`

	request, err := scanPostgreSQLRequest(querier.QueryRowContext(ctx, query, id))
	if err != nil && database.IsLockConflict(err) {
		return nil, signingDomain.ErrConcurrentModification
	}
	return request, err
}

// Update writes the mutable fields when the stored version still matches request.Version,
// then increments request.Version.
func (p *PostgreSQLSigningRequestRepository) Update(ctx context.Context, request *signingDomain.SigningRequest) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE signing_requests
			  SET status = $1, rejection_reason = $2, signed_at = $3, signed_document_id = $4,
			  updated_at = $5, version = version + 1
			  WHERE id = $6 AND version = $7`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(request.Status),
		request.RejectionReason,
		request.SignedAt,
		request.SignedDocumentID,
		request.UpdatedAt,
		request.ID,
		request.Version,
	)
	if err != nil {
		if database.IsLockConflict(err) {
			return signingDomain.ErrConcurrentModification
		}
		return apperrors.Wrap(err, "failed to update signing request")
	}
	return bumpVersion(result, request)
}

// Delete removes the request with id.
func (p *PostgreSQLSigningRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM signing_requests WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete signing request")
	}
	return checkAffected(result)
}

// ListByRecipient returns requests addressed to recipientID, newest first.
func (p *PostgreSQLSigningRequestRepository) ListByRecipient(
	ctx context.Context,
	recipientID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM signing_requests
			  WHERE recipient_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	return p.list(ctx, query, recipientID, limit, offset)
}

// ListBySender returns requests created by senderID, newest first.
func (p *PostgreSQLSigningRequestRepository) ListBySender(
	ctx context.Context,
	senderID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM signing_requests
			  WHERE sender_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	return p.list(ctx, query, senderID, limit, offset)
}

// ListByDocument returns every request the sender created for one document.
func (p *PostgreSQLSigningRequestRepository) ListByDocument(
	ctx context.Context,
	senderID, documentID uuid.UUID,
	documentType signingDomain.DocumentType,
) ([]*signingDomain.SigningRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM signing_requests
			  WHERE sender_id = $1 AND document_id = $2 AND document_type = $3 ORDER BY created_at`
	return p.list(ctx, query, senderID, documentID, string(documentType))
}

// ListOverdue returns up to limit pending requests whose expiry is not after now.
func (p *PostgreSQLSigningRequestRepository) ListOverdue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*signingDomain.SigningRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM signing_requests
			  WHERE status = $1 AND expires_at <= $2 ORDER BY expires_at LIMIT $3`
	return p.list(ctx, query, string(signingDomain.StatusPending), now, limit)
}

func (p *PostgreSQLSigningRequestRepository) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]*signingDomain.SigningRequest, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list signing requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	requests := make([]*signingDomain.SigningRequest, 0)
	for rows.Next() {
		request, err := scanPostgreSQLRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate signing requests")
	}
	return requests, nil
}

func scanPostgreSQLRequest(scanner rowScanner) (*signingDomain.SigningRequest, error) {
	var (
		request          signingDomain.SigningRequest
		documentType     string
		status           string
		signedAt         sql.NullTime
		signedDocumentID uuid.NullUUID
	)

	err := scanner.Scan(
		&request.ID,
		&request.DocumentID,
		&documentType,
		&request.SenderID,
		&request.RecipientID,
		&status,
		&request.Message,
		&request.RejectionReason,
		&request.ExpiresAt,
		&signedAt,
		&signedDocumentID,
		&request.Version,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, signingDomain.ErrRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan signing request")
	}

	request.DocumentType = signingDomain.DocumentType(documentType)
	request.Status = signingDomain.Status(status)
	if signedAt.Valid {
		at := signedAt.Time
		request.SignedAt = &at
	}
	if signedDocumentID.Valid {
		id := signedDocumentID.UUID
		request.SignedDocumentID = &id
	}
	return &request, nil
}
