package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
)

// MySQLCertificateRequestRepository persists certificate requests in MySQL. UUIDs are stored
// as BINARY(16). MySQL has no partial unique index, so the one-pending-request rule rests on
// HasPending.
type MySQLCertificateRequestRepository struct {
	db *sql.DB
}

// NewMySQLCertificateRequestRepository creates a new MySQLCertificateRequestRepository.
func NewMySQLCertificateRequestRepository(db *sql.DB) *MySQLCertificateRequestRepository {
	return &MySQLCertificateRequestRepository{db: db}
}

// Create inserts a new request.
func (m *MySQLCertificateRequestRepository) Create(ctx context.Context, request *caDomain.CertificateRequest) error {
	id, err := request.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal request id")
	}
	userID, err := request.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}
	reviewedBy, err := marshalOptionalUUID(request.ReviewedBy)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO certificate_requests (` + certificateRequestColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		userID,
		request.Username,
		request.Subject.Email,
		request.Subject.Country,
		request.Subject.State,
		request.Subject.Locality,
		request.Subject.OrganizationalUnit,
		string(request.Status),
		request.AdminComment,
		reviewedBy,
		request.ReviewedAt,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return caDomain.ErrCertificateRequestPending
		}
		return apperrors.Wrap(err, "failed to create certificate request")
	}
	return nil
}

// GetForUpdate returns the request with id and locks its row until the surrounding
// transaction ends.
func (m *MySQLCertificateRequestRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*caDomain.CertificateRequest, error) {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal request id")
	}

	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + certificateRequestColumns + ` FROM certificate_requests WHERE id = ? FOR UPDATE`

	request, err := scanMySQLCertificateRequest(querier.QueryRowContext(ctx, query, idBytes))
	if err != nil && database.IsLockConflict(err) {
		return nil, caDomain.ErrCertificateRequestNotPending
	}
	return request, err
}

// Update stores the review of a request that is still pending.
func (m *MySQLCertificateRequestRepository) Update(ctx context.Context, request *caDomain.CertificateRequest) error {
	idBytes, err := request.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal request id")
	}
	reviewedBy, err := marshalOptionalUUID(request.ReviewedBy)
	if err != nil {
		return err
	}

	querier := database.GetTx(ctx, m.db)

	query := `UPDATE certificate_requests
			  SET status = ?, admin_comment = ?, reviewed_by = ?, reviewed_at = ?, updated_at = ?
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(request.Status),
		request.AdminComment,
		reviewedBy,
		request.ReviewedAt,
		request.UpdatedAt,
		idBytes,
		string(caDomain.RequestPending),
	)
	if err != nil {
		if database.IsLockConflict(err) {
			return caDomain.ErrCertificateRequestNotPending
		}
		return apperrors.Wrap(err, "failed to update certificate request")
	}
	return checkReviewed(result)
}

// HasPending reports whether userID has a request awaiting review.
func (m *MySQLCertificateRequestRepository) HasPending(ctx context.Context, userID uuid.UUID) (bool, error) {
	idBytes, err := userID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal user id")
	}

	querier := database.GetTx(ctx, m.db)

	var exists bool
	err = querier.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM certificate_requests WHERE user_id = ? AND status = ?)`,
		idBytes,
		string(caDomain.RequestPending),
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check pending certificate requests")
	}
	return exists, nil
}

// ListByUser returns the requests of userID, newest first.
func (m *MySQLCertificateRequestRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	idBytes, err := userID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}
	query := `SELECT ` + certificateRequestColumns + ` FROM certificate_requests
			  WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	return m.list(ctx, query, idBytes, limit, offset)
}

// ListByStatus returns requests in status, oldest first so the review queue is FIFO.
func (m *MySQLCertificateRequestRepository) ListByStatus(
	ctx context.Context,
	status caDomain.RequestStatus,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	query := `SELECT ` + certificateRequestColumns + ` FROM certificate_requests
			  WHERE status = ? ORDER BY created_at, id LIMIT ? OFFSET ?`
	return m.list(ctx, query, string(status), limit, offset)
}

func (m *MySQLCertificateRequestRepository) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]*caDomain.CertificateRequest, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list certificate requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	requests := make([]*caDomain.CertificateRequest, 0)
	for rows.Next() {
		request, err := scanMySQLCertificateRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate certificate requests")
	}
	return requests, nil
}

func scanMySQLCertificateRequest(scanner rowScanner) (*caDomain.CertificateRequest, error) {
	var (
		request    caDomain.CertificateRequest
		id, userID []byte
		reviewedBy []byte
		status     string
		reviewedAt sql.NullTime
	)

	err := scanner.Scan(
		&id,
		&userID,
		&request.Username,
		&request.Subject.Email,
		&request.Subject.Country,
		&request.Subject.State,
		&request.Subject.Locality,
		&request.Subject.OrganizationalUnit,
		&status,
		&request.AdminComment,
		&reviewedBy,
		&reviewedAt,
		&request.CreatedAt,
		&request.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, caDomain.ErrCertificateRequestNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan certificate request")
	}

	if err := request.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal request id")
	}
	if err := request.UserID.UnmarshalBinary(userID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal user id")
	}
	if reviewedBy != nil {
		var adminID uuid.UUID
		if err := adminID.UnmarshalBinary(reviewedBy); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal reviewer id")
		}
		request.ReviewedBy = &adminID
	}
	if reviewedAt.Valid {
		at := reviewedAt.Time
		request.ReviewedAt = &at
	}
	request.Status = caDomain.RequestStatus(status)
	request.Subject.CommonName = request.Username
	return &request, nil
}

// marshalOptionalUUID returns nil for a nil pointer so the column is stored as NULL.
func marshalOptionalUUID(id *uuid.UUID) (any, error) {
	if id == nil {
		return nil, nil
	}
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal id")
	}
	return b, nil
}
