// Package domain defines signed documents held in custody and the unsigned documents they
// are produced from.
package domain

import (
	"time"

	"github.com/google/uuid"

	custodyDomain "github.com/allisson/esign/internal/custody/domain"
	"github.com/allisson/esign/internal/errors"
)

// Document is the public view of a signed document record.
type Document struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	FileName  string
	CreatedAt time.Time
}

// FromRecord builds the public view of a custody record.
func FromRecord(record *custodyDomain.Record) *Document {
	return &Document{
		ID:        record.ID,
		OwnerID:   record.OwnerID,
		FileName:  record.FileName,
		CreatedAt: record.CreatedAt,
	}
}

// Content is a decrypted document.
type Content struct {
	FileName string
	Data     []byte
}

// UnsignedDocument is an uploaded PDF awaiting signature. Uploads are managed elsewhere;
// this module only reads them.
type UnsignedDocument struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	FileName  string
	Content   []byte
	CreatedAt time.Time
}

var (
	// ErrDocumentNotFound indicates the signed document does not exist or is not visible to the caller.
	ErrDocumentNotFound = errors.Wrap(errors.ErrNotFound, "document not found")

	// ErrUnsignedDocumentNotFound indicates the referenced unsigned document does not exist.
	ErrUnsignedDocumentNotFound = errors.Wrap(errors.ErrNotFound, "unsigned document not found")

	// ErrEmptyDocument indicates an empty payload was offered for storage.
	ErrEmptyDocument = errors.Wrap(errors.ErrInvalidInput, "document is empty")
)
