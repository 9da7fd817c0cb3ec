// Package usecase implements the signing request workflow: sending, signing, rejecting and
// expiring requests, and delivering their reminders.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	documentDomain "github.com/allisson/esign/internal/document/domain"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
	userDomain "github.com/allisson/esign/internal/user/domain"
)

// SigningRequestRepository persists signing requests.
type SigningRequestRepository interface {
	Create(ctx context.Context, request *signingDomain.SigningRequest) error
	Get(ctx context.Context, id uuid.UUID) (*signingDomain.SigningRequest, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (*signingDomain.SigningRequest, error)
	Update(ctx context.Context, request *signingDomain.SigningRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, offset, limit int) ([]*signingDomain.SigningRequest, error)
	ListBySender(ctx context.Context, senderID uuid.UUID, offset, limit int) ([]*signingDomain.SigningRequest, error)
	ListByDocument(
		ctx context.Context,
		senderID, documentID uuid.UUID,
		documentType signingDomain.DocumentType,
	) ([]*signingDomain.SigningRequest, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*signingDomain.SigningRequest, error)
}

// ReminderRepository persists reminders.
type ReminderRepository interface {
	Create(ctx context.Context, reminder *signingDomain.Reminder) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*signingDomain.Reminder, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	DeleteUnsent(ctx context.Context, requestID uuid.UUID) error
}

// UserDirectory resolves users for recipient lookup and notification text.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*userDomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userDomain.User, error)
}

// CredentialOpener unseals a user's signing credential.
type CredentialOpener interface {
	Open(ctx context.Context, ownerID, id uuid.UUID, password string) ([]byte, error)
}

// DocumentStore seals and opens signed documents.
type DocumentStore interface {
	Store(ctx context.Context, ownerID uuid.UUID, fileName string, pdf []byte) (*documentDomain.Document, error)
	Open(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID) (*documentDomain.Content, error)
}

// UnsignedDocumentReader loads uploaded documents awaiting signature.
type UnsignedDocumentReader interface {
	Get(ctx context.Context, id uuid.UUID) (*documentDomain.UnsignedDocument, error)
}

// PDFSigner applies a digital signature to a PDF.
type PDFSigner interface {
	Sign(ctx context.Context, pdf, p12 []byte, password string) ([]byte, error)
}

// Notifier delivers notifications to users.
type Notifier interface {
	Notify(ctx context.Context, event notificationDomain.Event) error
}

// SendInput creates a signing request. The recipient is given by ID or by email.
type SendInput struct {
	SenderID       uuid.UUID
	RecipientID    uuid.UUID
	RecipientEmail string
	DocumentID     uuid.UUID
	DocumentType   signingDomain.DocumentType
	Message        string
	// ExpiresAt defaults to now plus the configured time to live when zero.
	ExpiresAt time.Time
}

// SignInput signs a request. PDF, when set, replaces the source document (for example a
// copy carrying a visible signature stamp).
type SignInput struct {
	RequestID    uuid.UUID
	SignerID     uuid.UUID
	CredentialID uuid.UUID
	Password     string
	PDF          []byte
}

// SignResult reports the signed request and the progress of its document.
type SignResult struct {
	Request          *signingDomain.SigningRequest
	SignedDocumentID uuid.UUID
	AllSigned        bool
	SignedCount      int
	TotalSigners     int
}

// RejectInput rejects a request.
type RejectInput struct {
	RequestID uuid.UUID
	SignerID  uuid.UUID
	Reason    string
}

// SigningUseCase defines the signing request workflow.
type SigningUseCase interface {
	// Send creates a pending request, schedules its reminders and notifies the recipient.
	Send(ctx context.Context, input SendInput) (*signingDomain.SigningRequest, error)

	// Get returns a request visible to userID, expiring it first when overdue.
	Get(ctx context.Context, id, userID uuid.UUID) (*signingDomain.SigningRequest, error)

	// ListReceived returns requests addressed to recipientID.
	ListReceived(ctx context.Context, recipientID uuid.UUID, offset, limit int) ([]*signingDomain.SigningRequest, error)

	// ListSent returns requests created by senderID.
	ListSent(ctx context.Context, senderID uuid.UUID, offset, limit int) ([]*signingDomain.SigningRequest, error)

	// SourceDocument returns the PDF the recipient is asked to sign.
	SourceDocument(ctx context.Context, id, recipientID uuid.UUID) (*documentDomain.Content, error)

	// Sign signs the document with the recipient's credential and stores the result.
	Sign(ctx context.Context, input SignInput) (*SignResult, error)

	// Reject closes a pending request without signing.
	Reject(ctx context.Context, input RejectInput) (*signingDomain.SigningRequest, error)

	// Delete removes a pending request. Only its sender may delete it.
	Delete(ctx context.Context, id, senderID uuid.UUID) error

	// DownloadSigned returns the signed PDF of a signed request to its sender or recipient.
	DownloadSigned(ctx context.Context, id, userID uuid.UUID) (*documentDomain.Content, error)

	// ExpireStale expires every pending request past its expiry and returns how many changed.
	ExpireStale(ctx context.Context, now time.Time) (int, error)

	// ProcessReminders delivers due reminders and returns how many were sent.
	ProcessReminders(ctx context.Context, now time.Time) (int, error)
}
