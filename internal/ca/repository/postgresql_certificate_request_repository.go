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

const certificateRequestColumns = `id, user_id, username, email, country, state, locality,
	organizational_unit, status, admin_comment, reviewed_by, reviewed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// PostgreSQLCertificateRequestRepository persists certificate requests in PostgreSQL.
type PostgreSQLCertificateRequestRepository struct {
	db *sql.DB
}

// NewPostgreSQLCertificateRequestRepository creates a new PostgreSQLCertificateRequestRepository.
func NewPostgreSQLCertificateRequestRepository(db *sql.DB) *PostgreSQLCertificateRequestRepository {
	return &PostgreSQLCertificateRequestRepository{db: db}
}

// Create inserts a new request. A second pending request for the same user violates the
// partial unique index and yields ErrCertificateRequestPending.
func (p *PostgreSQLCertificateRequestRepository) Create(
	ctx context.Context,
	request *caDomain.CertificateRequest,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO certificate_requests (` + certificateRequestColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := querier.ExecContext(
		ctx,
		query,
		request.ID,
		request.UserID,
		request.Username,
		request.Subject.Email,
		request.Subject.Country,
		request.Subject.State,
		request.Subject.Locality,
		request.Subject.OrganizationalUnit,
		string(request.Status),
		request.AdminComment,
		request.ReviewedBy,
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
func (p *PostgreSQLCertificateRequestRepository) GetForUpdate(
	ctx context.Context,
	id uuid.UUID,
) (*caDomain.CertificateRequest, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + certificateRequestColumns + ` FROM certificate_requests WHERE id = $1 FOR UPDATE`

	request, err := scanPostgreSQLCertificateRequest(querier.QueryRowContext(ctx, query, id))
	if err != nil && database.IsLockConflict(err) {
		return nil, caDomain.ErrCertificateRequestNotPending
	}
	return request, err
}

// Update stores the review of a request that is still pending.
func (p *PostgreSQLCertificateRequestRepository) Update(
	ctx context.Context,
	request *caDomain.CertificateRequest,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE certificate_requests
			  SET status = $1, admin_comment = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $5
			  WHERE id = $6 AND status = $7`

	result, err := querier.ExecContext(
		ctx,
		query,
		string(request.Status),
		request.AdminComment,
		request.ReviewedBy,
		request.ReviewedAt,
		request.UpdatedAt,
		request.ID,
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
func (p *PostgreSQLCertificateRequestRepository) HasPending(ctx context.Context, userID uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	var exists bool
	err := querier.QueryRowContext(
		ctx,
		`SELECT EXISTS (SELECT 1 FROM certificate_requests WHERE user_id = $1 AND status = $2)`,
		userID,
		string(caDomain.RequestPending),
	).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check pending certificate requests")
	}
	return exists, nil
}

// ListByUser returns the requests of userID, newest first.
func (p *PostgreSQLCertificateRequestRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	query := `SELECT ` + certificateRequestColumns + ` FROM certificate_requests
			  WHERE user_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	return p.list(ctx, query, userID, limit, offset)
}

// ListByStatus returns requests in status, oldest first so the review queue is FIFO.
func (p *PostgreSQLCertificateRequestRepository) ListByStatus(
	ctx context.Context,
	status caDomain.RequestStatus,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	query := `SELECT ` + certificateRequestColumns + ` FROM certificate_requests
			  WHERE status = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`
	return p.list(ctx, query, string(status), limit, offset)
}

func (p *PostgreSQLCertificateRequestRepository) list(
	ctx context.Context,
	query string,
	args ...any,
) ([]*caDomain.CertificateRequest, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list certificate requests")
	}
	defer func() {
		_ = rows.Close()
	}()

	requests := make([]*caDomain.CertificateRequest, 0)
	for rows.Next() {
		request, err := scanPostgreSQLCertificateRequest(rows)
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

func scanPostgreSQLCertificateRequest(scanner rowScanner) (*caDomain.CertificateRequest, error) {
	var (
		request    caDomain.CertificateRequest
		status     string
		reviewedBy uuid.NullUUID
		reviewedAt sql.NullTime
	)

	err := scanner.Scan(
		&request.ID,
		&request.UserID,
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

	request.Status = caDomain.RequestStatus(status)
	request.Subject.CommonName = request.Username
	if reviewedBy.Valid {
		id := reviewedBy.UUID
		request.ReviewedBy = &id
	}
	if reviewedAt.Valid {
		at := reviewedAt.Time
		request.ReviewedAt = &at
	}
	return &request, nil
}

// checkReviewed maps zero affected rows to a request that left the pending state first.
func checkReviewed(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read updated rows")
	}
	if affected == 0 {
		return caDomain.ErrCertificateRequestNotPending
	}
	return nil
}
