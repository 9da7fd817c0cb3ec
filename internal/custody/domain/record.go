// Package domain defines the records held by the key custody store.
//
// The store only moves opaque bytes. Every record embeds one EncryptedBlob (and, for signed
// documents, a second one holding the wrapped document key); nothing in this package or
// its repositories encrypts or decrypts.
package domain

import (
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	"github.com/allisson/esign/internal/errors"
)

// Kind discriminates the records sharing the custody table.
type Kind string

const (
	// KindCARootKey is the CA private key sealed under the CA master secret. At most one exists.
	KindCARootKey Kind = "ca_root_key"
	// KindUserCredential is a user's PKCS#12 bundle sealed under the user's password.
	KindUserCredential Kind = "user_credential"
	// KindSignedDocument is a signed PDF sealed under a per-document key.
	KindSignedDocument Kind = "signed_document"
)

// SystemOwnerID owns records that belong to no user (the CA root key).
var SystemOwnerID = uuid.Nil

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCARootKey, KindUserCredential, KindSignedDocument:
		return true
	}
	return false
}

// Singleton reports whether at most one record of this kind may exist.
func (k Kind) Singleton() bool {
	return k == KindCARootKey
}

// Record is one entry of the custody store.
type Record struct {
	ID      uuid.UUID
	Kind    Kind
	OwnerID uuid.UUID
	// FileName is the display name supplied on upload or generated on signing.
	FileName string
	// Blob is the sealed payload.
	Blob *cryptoDomain.EncryptedBlob
	// WrappedKey is the sealed document key; set only for KindSignedDocument.
	WrappedKey *cryptoDomain.EncryptedBlob
	// Certificate is public PEM stored in clear: the CA root certificate or the
	// certificate extracted from an uploaded credential.
	Certificate []byte
	CreatedAt   time.Time
}

// Validate checks the record shape before it reaches the database.
func (r *Record) Validate() error {
	if !r.Kind.Valid() {
		return errors.Wrapf(ErrInvalidRecord, "unknown kind %q", r.Kind)
	}
	if r.Blob == nil {
		return errors.Wrap(ErrInvalidRecord, "blob is required")
	}
	if r.Kind == KindSignedDocument && r.WrappedKey == nil {
		return errors.Wrap(ErrInvalidRecord, "signed document requires a wrapped key")
	}
	if r.Kind != KindSignedDocument && r.WrappedKey != nil {
		return errors.Wrap(ErrInvalidRecord, "wrapped key is only valid for signed documents")
	}
	if r.Kind.Singleton() && r.OwnerID != SystemOwnerID {
		return errors.Wrap(ErrInvalidRecord, "singleton records belong to the system owner")
	}
	return nil
}

// SingletonSlot is the value stored in the unique singleton column, or nil for kinds that
// allow many records.
func (r *Record) SingletonSlot() *string {
	if !r.Kind.Singleton() {
		return nil
	}
	slot := string(r.Kind)
	return &slot
}

// SealedDocument returns the two-layer envelope of a signed document record.
func (r *Record) SealedDocument() *cryptoDomain.SealedDocument {
	return &cryptoDomain.SealedDocument{
		Payload: r.Blob,
		Key:     r.WrappedKey,
	}
}

// Domain-specific errors for custody operations.
var (
	// ErrRecordNotFound indicates the record does not exist or belongs to another owner.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "record not found")

	// ErrSingletonExists indicates a second record of a singleton kind.
	ErrSingletonExists = errors.Wrap(errors.ErrConflict, "singleton record already exists")

	// ErrInvalidRecord indicates a malformed record.
	ErrInvalidRecord = errors.Wrap(errors.ErrInvalidInput, "invalid custody record")
)
