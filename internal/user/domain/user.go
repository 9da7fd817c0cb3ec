// Package domain defines the read-only view of the users that send and sign documents.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/errors"
)

// User is a registered person. Accounts are managed outside this service.
type User struct {
	ID        uuid.UUID
	Name      string
	Email     string
	CreatedAt time.Time
}

// ErrUserNotFound indicates the requested user does not exist.
var ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")
