package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/database"
	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/user/domain"
)

// MySQLUserRepository reads users from MySQL.
type MySQLUserRepository struct {
	db *sql.DB
}

// NewMySQLUserRepository creates a new MySQLUserRepository.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

// GetByID retrieves a user by ID.
func (r *MySQLUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	idBytes, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := r.scan(database.GetTx(ctx, r.db).QueryRowContext(ctx, query, idBytes))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to get user by id")
	}
	return user, nil
}

// GetByEmail retrieves a user by email, ignoring case.
func (r *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = ?`

	user, err := r.scan(database.GetTx(ctx, r.db).QueryRowContext(ctx, query, normalizeEmail(email)))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, apperrors.Wrap(err, "failed to get user by email")
	}
	return user, nil
}

func (r *MySQLUserRepository) scan(row *sql.Row) (*domain.User, error) {
	var (
		user    domain.User
		idBytes []byte
	)
	if err := row.Scan(&idBytes, &user.Name, &user.Email, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	if err := user.ID.UnmarshalBinary(idBytes); err != nil {
		return nil, err
	}
	return &user, nil
}
