// Package usecase implements upload, listing, unlocking and download of user signing credentials.
package usecase

import (
	"context"

	"github.com/google/uuid"

	credentialDomain "github.com/allisson/esign/internal/credential/domain"
	custodyDomain "github.com/allisson/esign/internal/custody/domain"
)

// CustodyRepository is the subset of the custody store used for credentials.
type CustodyRepository interface {
	Put(ctx context.Context, record *custodyDomain.Record) (uuid.UUID, error)
	Get(ctx context.Context, kind custodyDomain.Kind, id uuid.UUID, ownerID *uuid.UUID) (*custodyDomain.Record, error)
	ListByOwner(
		ctx context.Context,
		kind custodyDomain.Kind,
		ownerID uuid.UUID,
		offset, limit int,
	) ([]*custodyDomain.Record, error)
	Delete(ctx context.Context, kind custodyDomain.Kind, id uuid.UUID, ownerID uuid.UUID) error
}

// CertificateVerifier checks that a certificate chains to the CA.
type CertificateVerifier interface {
	VerifyAgainstCA(ctx context.Context, cert []byte) error
}

// CredentialUseCase manages user signing credentials.
type CredentialUseCase interface {
	// Upload validates the bundle against the CA and stores it sealed under the password.
	Upload(ctx context.Context, input *credentialDomain.UploadInput) (*credentialDomain.Credential, error)

	// List returns the owner's credentials without their bundles.
	List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*credentialDomain.Credential, error)

	// Unlock checks the password. A wrong password yields cryptoDomain.ErrAuthenticationFailed.
	Unlock(ctx context.Context, ownerID, id uuid.UUID, password string) error

	// Download returns the decrypted bundle and its file name.
	Download(ctx context.Context, ownerID, id uuid.UUID, password string) (*credentialDomain.Bundle, error)

	// Delete removes the credential.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// Open returns the decrypted bundle. The caller zeroes it when done.
	Open(ctx context.Context, ownerID, id uuid.UUID, password string) ([]byte, error)
}
