// Package domain defines user signing credentials: PKCS#12 bundles held in custody sealed
// under the owner's password.
package domain

import (
	"time"

	"github.com/google/uuid"

	custodyDomain "github.com/allisson/esign/internal/custody/domain"
	"github.com/allisson/esign/internal/errors"
)

// DefaultFileName names uploads that arrive without a file name.
const DefaultFileName = "credential.p12"

// Credential is the public view of a stored credential. The bundle itself is never part of it.
type Credential struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	FileName    string
	Certificate []byte
	CreatedAt   time.Time
}

// FromRecord builds the public view of a custody record.
func FromRecord(record *custodyDomain.Record) *Credential {
	return &Credential{
		ID:          record.ID,
		OwnerID:     record.OwnerID,
		FileName:    record.FileName,
		Certificate: record.Certificate,
		CreatedAt:   record.CreatedAt,
	}
}

// UploadInput carries a PKCS#12 bundle and the password that opens it.
type UploadInput struct {
	OwnerID  uuid.UUID
	FileName string
	Bundle   []byte
	Password string
}

// Bundle is a decrypted credential ready for download.
type Bundle struct {
	FileName string
	Content  []byte
}

var (
	// ErrInvalidCredential covers every reason an uploaded bundle is refused: it cannot be
	// opened with the password, holds no certificate, or was not issued by the CA.
	ErrInvalidCredential = errors.Wrap(errors.ErrInvalidInput, "invalid signing credential")

	// ErrCredentialNotFound indicates the credential does not exist or belongs to another user.
	ErrCredentialNotFound = errors.Wrap(errors.ErrNotFound, "credential not found")
)
