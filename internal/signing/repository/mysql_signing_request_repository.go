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

// MySQLSigningRequestRepository persists signing requests in MySQL. UUIDs are stored as BINARY(16).
type MySQLSigningRequestRepository struct {
	db *sql.DB
}

// NewMySQLSigningRequestRepository creates a new MySQLSigningRequestRepository.
func NewMySQLSigningRequestRepository(db *sql.DB) *MySQLSigningRequestRepository {
	return &MySQLSigningRequestRepository{db: db}
}

// Create inserts a new request.
func (m *MySQLSigningRequestRepository) Create(ctx context.Context, request *signingDomain.SigningRequest) error {
	ids, err := marshalIDs(request.ID, request.DocumentID, request.SenderID, request.RecipientID)
	if err != nil {
		return err
	}
	signedDocumentID, err := marshalOptionalID(request.SignedDocumentID)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO signing_requests (` + requestColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		ids[0],
		ids[1],
		string(request.DocumentType),
		ids[2],
		ids[3],
		string(request.Status),
		request.Message,
		request.RejectionReason,
		request.ExpiresAt,
		request.SignedAt,
		signedDocumentID,
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
func (m *MySQLSigningRequestRepository) Get(ctx context.Context, id uuid.UUID) (*signingDomain.SigningRequest, error) {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal request id")
	}

	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + requestColumns + ` FROM signing_requests WHERE id = ?`

	return scanMySQLRequest(querier.QueryRowContext(ctx, query, idBytes))
}

// GetForUpdate returns the request with id and locks its row until the surrounding
// transaction ends.
func (m *MySQLSigningRequestRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*signingDomain.SigningRequest, error) {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal request id")
	}

	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + requestColumns + ` FROM signing_requests WHERE id = ? FOR UPDATE`

	request, err := scanMySQLRequest(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil && database.IsLockConflict(err) {
		return nil, signingDomain.ErrConcurrentModification
	}
	return request, err
}

// Update writes the mutable fields when the stored version still matches request.Version,
// then increments request.Version.
func (m *MySQLSigningRequestRepository) Update(ctx context.Context, request *signingDomain.SigningRequest) error {
	idBytes, err := request.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal request id")
	}
	signedDocumentID, err := marshalOptionalID(request.SignedDocumentID)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)

	query := `UPDATE signing_requests
			  SET status = ?, rejection_reason = ?, signed_at = ?, signed_document_id = ?,
			  updated_at = ?, version = version + 1
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(request.Status),
		request.RejectionReason,
		request.SignedAt,
		signedDocumentID,
		request.UpdatedAt,
		idBytes,
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
func (m *MySQLSigningRequestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal request id")
	}

	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM signing_requests WHERE id = ?`, idBytes)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete signing request")
	}
	return checkAffected(result)
}

// ListByRecipient returns requests addressed to recipientID, newest first.
func (m *MySQLSigningRequestRepository) ListByRecipient(
	ctx context.Context,
	recipientID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	idBytes, err := recipientID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal recipient id")
	}
	query := `SELECT ` + requestColumns + ` FROM signing_requests
			  WHERE recipient_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	return m.list(ctx, query, idBytes, limit, offset)
}

// ListBySender returns requests created by senderID, newest first.
func (m *MySQLSigningRequestRepository) ListBySender(
	ctx context.Context,
	senderID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	idBytes, err := senderID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal sender id")
	}
	query := `SELECT ` + requestColumns + ` FROM signing_requests
			  WHERE sender_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	return m.list(ctx, query, idBytes, limit, offset)
}

// ListByDocument returns every request the sender created for one document.
func (m *MySQLSigningRequestRepository) ListByDocument(
	ctx context.Context,
	senderID, documentID uuid.UUID,
	documentType signingDomain.DocumentType,
) ([]*signingDomain.SigningRequest, error) {
	ids, err := marshalIDs(senderID, documentID)
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + requestColumns + ` FROM signing_requests
			  WHERE sender_id = ? AND document_id = ? AND document_type = ? ORDER BY created_at`
	return m.list(ctx, query, ids[0], ids[1], string(documentType))
}

// ListOverdue returns up to limit pending requests whose expiry is not after now.
func (m *MySQLSigningRequestRepository) ListOverdue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*signingDomain.SigningRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM signing_requests
			  WHERE status = ? AND expires_at <= ? ORDER BY expires_at LIMIT ?`
	return m.list(ctx, query, string(signingDomain.StatusPending), now, limit)
}

func (m *MySQLSigningRequestRepository) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]*signingDomain.SigningRequest, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list signing requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	requests := make([]*signingDomain.SigningRequest, 0)
	for rows.Next() {
		request, err := scanMySQLRequest(rows)
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

func scanMySQLRequest(scanner rowScanner) (*signingDomain.SigningRequest, error) {
	var (
		request                               signingDomain.SigningRequest
		id, documentID, senderID, recipientID []byte
		signedDocumentID                      []byte
		documentType, status                  string
		signedAt                              sql.NullTime
	)

	err := scanner.Scan(
		&id,
		&documentID,
		&documentType,
		&senderID,
		&recipientID,
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

	targets := []struct {
		src  []byte
		dest *uuid.UUID
		name string
	}{
		{id, &request.ID, "request id"},
		{documentID, &request.DocumentID, "document id"},
		{senderID, &request.SenderID, "sender id"},
		{recipientID, &request.RecipientID, "recipient id"},
	}
	for _, target := range targets {
		if err := target.dest.UnmarshalBinary(target.src); err != nil {
			return nil, apperrors.Wrapf(err, "failed to unmarshal %s", target.name)
		}
	}

	if signedDocumentID != nil {
		var docID uuid.UUID
		if err := docID.UnmarshalBinary(signedDocumentID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal signed document id")
		}
		request.SignedDocumentID = &docID
	}
	if signedAt.Valid {
		at := signedAt.Time
		request.SignedAt = &at
	}
	request.DocumentType = signingDomain.DocumentType(documentType)
	request.Status = signingDomain.Status(status)
	return &request, nil
}

// marshalIDs converts UUIDs to their BINARY(16) form, in order.
func marshalIDs(ids ...uuid.UUID) ([][]byte, error) {
	out := make([][]byte, len(ids))
	for i, id := range ids {
		b, err := id.MarshalBinary()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to marshal id")
		}
		out[i] = b
	}
	return out, nil
}

// marshalOptionalID returns nil for a nil pointer so the column is stored as NULL.
func marshalOptionalID(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal id")
	}
	return b, nil
}
