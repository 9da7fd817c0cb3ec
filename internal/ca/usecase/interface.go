// Package usecase implements the certificate authority lifecycle: bootstrap, user
// credential issuance, CSR signing, credential bundle export and certificate verification,
// plus the queue through which users request certificates and administrators review them.
package usecase

import (
	"context"

	"github.com/google/uuid"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	custodyDomain "github.com/allisson/esign/internal/custody/domain"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
)

// CustodyRepository is the part of the key custody store used by the CA.
type CustodyRepository interface {
	Put(ctx context.Context, record *custodyDomain.Record) (uuid.UUID, error)
	GetSingleton(ctx context.Context, kind custodyDomain.Kind) (*custodyDomain.Record, error)
}

// IdentityStore keeps user identities between issuance and export.
type IdentityStore interface {
	Reserve(ctx context.Context, username string) error
	Save(ctx context.Context, identity *caDomain.Identity) error
	Load(ctx context.Context, username string) (*caDomain.Identity, error)
	SaveCertificate(ctx context.Context, username string, cert []byte) error
	Delete(ctx context.Context, username string) error
	List(ctx context.Context) ([]*caDomain.Identity, error)
}

// Notifier delivers notifications to users.
type Notifier interface {
	Notify(ctx context.Context, event notificationDomain.Event) error
}

// CAUseCase defines the certificate authority operations. Operations touching private keys
// take the CA master secret explicitly; it is never stored by the use case.
type CAUseCase interface {
	// BootstrapCA creates the CA root key and certificate. Fails with ErrCAAlreadyExists when a
	// CA exists, including when a concurrent bootstrap won.
	BootstrapCA(ctx context.Context, master *cryptoDomain.MasterSecret) (*caDomain.CertificateAuthority, error)

	// IssueUserCredential creates a user key pair and CSR. The key is kept sealed under master.
	IssueUserCredential(
		ctx context.Context,
		input *caDomain.IssueInput,
		master *cryptoDomain.MasterSecret,
	) (*caDomain.Identity, error)

	// SignUserCSR signs the identity's CSR with the CA key and returns the certificate PEM.
	SignUserCSR(ctx context.Context, username string, master *cryptoDomain.MasterSecret) ([]byte, error)

	// ExportCredentialBundle returns the identity as a PKCS#12 bundle protected by
	// exportPassword and removes the identity.
	ExportCredentialBundle(
		ctx context.Context,
		username, exportPassword string,
		master *cryptoDomain.MasterSecret,
	) ([]byte, error)

	// VerifyAgainstCA returns ErrNotTrusted unless cert chains to the CA certificate.
	VerifyAgainstCA(ctx context.Context, cert []byte) error

	// GetCAInfo describes the CA certificate.
	GetCAInfo(ctx context.Context) (*caDomain.CAInfo, error)

	// ListIdentities returns pending and issued identities awaiting export.
	ListIdentities(ctx context.Context) ([]*caDomain.Identity, error)
}

// CertificateRequestRepository persists certificate requests.
type CertificateRequestRepository interface {
	Create(ctx context.Context, request *caDomain.CertificateRequest) error
	GetForUpdate(ctx context.Context, id uuid.UUID) (*caDomain.CertificateRequest, error)
	Update(ctx context.Context, request *caDomain.CertificateRequest) error
	HasPending(ctx context.Context, userID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*caDomain.CertificateRequest, error)
	ListByStatus(
		ctx context.Context,
		status caDomain.RequestStatus,
		offset, limit int,
	) ([]*caDomain.CertificateRequest, error)
}

// CertificateRequestUseCase defines the certificate request queue.
type CertificateRequestUseCase interface {
	// Submit creates the user's key pair and CSR and queues the request for review. A user has
	// at most one pending request.
	Submit(
		ctx context.Context,
		input *caDomain.SubmitInput,
		master *cryptoDomain.MasterSecret,
	) (*caDomain.CertificateRequest, error)

	// Approve signs the request's CSR and marks it approved. The requester is notified of the
	// issued certificate.
	Approve(
		ctx context.Context,
		input *caDomain.ReviewInput,
		master *cryptoDomain.MasterSecret,
	) (*caDomain.CertificateRequest, error)

	// Reject marks the request rejected, discards its pending identity and notifies the
	// requester with the comment.
	Reject(ctx context.Context, input *caDomain.ReviewInput) (*caDomain.CertificateRequest, error)

	// ListByStatus returns the review queue, oldest first.
	ListByStatus(
		ctx context.Context,
		status caDomain.RequestStatus,
		offset, limit int,
	) ([]*caDomain.CertificateRequest, error)

	// ListMine returns the caller's requests, newest first.
	ListMine(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*caDomain.CertificateRequest, error)
}
