// Package domain defines signing requests, their state machine and the reminders scheduled
// for pending requests.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/errors"
)

// maxMessageLength bounds the free text a sender attaches to a request.
const maxMessageLength = 2000

// Status is the lifecycle state of a signing request.
type Status string

// Request states. Everything except StatusPending is terminal.
const (
	StatusPending  Status = "pending"
	StatusSigned   Status = "signed"
	StatusRejected Status = "rejected"
	StatusExpired  Status = "expired"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s != StatusPending
}

// DocumentType tells where the document to sign comes from.
type DocumentType string

// Document sources.
const (
	DocumentTypeSigned   DocumentType = "signed"
	DocumentTypeUnsigned DocumentType = "unsigned"
)

// Valid reports whether t is a known document source.
func (t DocumentType) Valid() bool {
	return t == DocumentTypeSigned || t == DocumentTypeUnsigned
}

// SigningRequest asks one recipient to sign one document on behalf of a sender.
type SigningRequest struct {
	ID               uuid.UUID
	DocumentID       uuid.UUID
	DocumentType     DocumentType
	SenderID         uuid.UUID
	RecipientID      uuid.UUID
	Status           Status
	Message          string
	RejectionReason  string
	ExpiresAt        time.Time
	SignedAt         *time.Time
	SignedDocumentID *uuid.UUID
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewSigningRequest validates the parameters and returns a pending request created at now.
func NewSigningRequest(
	documentID uuid.UUID,
	documentType DocumentType,
	senderID, recipientID uuid.UUID,
	message string,
	expiresAt, now time.Time,
) (*SigningRequest, error) {
	if documentID == uuid.Nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "document id is required")
	}
	if !documentType.Valid() {
		return nil, ErrInvalidDocumentType
	}
	if senderID == recipientID {
		return nil, ErrSelfRequest
	}
	if !expiresAt.After(now) {
		return nil, ErrInvalidExpiry
	}

	message = strings.TrimSpace(message)
	if len(message) > maxMessageLength {
		return nil, errors.Wrap(errors.ErrInvalidInput, "message is too long")
	}

	now = now.UTC()
	return &SigningRequest{
		ID:           uuid.Must(uuid.NewV7()),
		DocumentID:   documentID,
		DocumentType: documentType,
		SenderID:     senderID,
		RecipientID:  recipientID,
		Status:       StatusPending,
		Message:      message,
		ExpiresAt:    expiresAt.UTC(),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Participant reports whether userID is the sender or the recipient.
func (r *SigningRequest) Participant(userID uuid.UUID) bool {
	return userID == r.SenderID || userID == r.RecipientID
}

// Overdue reports whether a pending request has passed its expiry at now.
func (r *SigningRequest) Overdue(now time.Time) bool {
	return r.Status == StatusPending && !now.Before(r.ExpiresAt)
}

// RefreshExpiry moves an overdue pending request to expired and reports whether it changed.
func (r *SigningRequest) RefreshExpiry(now time.Time) bool {
	if !r.Overdue(now) {
		return false
	}
	r.Status = StatusExpired
	r.UpdatedAt = now.UTC()
	return true
}

// Sign records the signature. An overdue request is expired instead and ErrRequestExpired
// is returned; the caller persists the new status either way.
func (r *SigningRequest) Sign(at time.Time, signedDocumentID uuid.UUID) error {
	if err := r.guard(at); err != nil {
		return err
	}
	at = at.UTC()
	r.Status = StatusSigned
	r.SignedAt = &at
	r.SignedDocumentID = &signedDocumentID
	r.UpdatedAt = at
	return nil
}

// Reject closes the request with reason.
func (r *SigningRequest) Reject(at time.Time, reason string) error {
	reason = strings.TrimSpace(reason)
	if len(reason) > maxMessageLength {
		return errors.Wrap(errors.ErrInvalidInput, "rejection reason is too long")
	}
	if err := r.guard(at); err != nil {
		return err
	}
	r.Status = StatusRejected
	r.RejectionReason = reason
	r.UpdatedAt = at.UTC()
	return nil
}

// Expire closes a pending request regardless of its expiry time.
func (r *SigningRequest) Expire(at time.Time) error {
	if r.Status.Terminal() {
		return ErrInvalidState
	}
	r.Status = StatusExpired
	r.UpdatedAt = at.UTC()
	return nil
}

func (r *SigningRequest) guard(at time.Time) error {
	if r.Status.Terminal() {
		return ErrInvalidState
	}
	if r.RefreshExpiry(at) {
		return ErrRequestExpired
	}
	return nil
}

// Domain-specific errors for signing requests.
var (
	// ErrRequestNotFound indicates the request does not exist or the caller is not a participant.
	ErrRequestNotFound = errors.Wrap(errors.ErrNotFound, "signing request not found")

	// ErrInvalidState indicates a transition from a terminal state.
	ErrInvalidState = errors.Wrap(errors.ErrInvalidState, "signing request is no longer pending")

	// ErrRequestExpired indicates the request passed its expiry before the transition.
	ErrRequestExpired = errors.Wrap(errors.ErrInvalidState, "signing request has expired")

	// ErrConcurrentModification indicates another writer changed the request first.
	ErrConcurrentModification = errors.Wrap(errors.ErrInvalidState, "signing request was modified concurrently")

	// ErrSigningFailed indicates the PDF signing service failed or returned something other than a PDF.
	ErrSigningFailed = errors.Wrap(errors.ErrUnavailable, "document signing failed")

	// ErrSelfRequest indicates a sender addressed a request to themselves.
	ErrSelfRequest = errors.Wrap(errors.ErrInvalidInput, "cannot send a signing request to yourself")

	// ErrInvalidExpiry indicates an expiry that is not in the future.
	ErrInvalidExpiry = errors.Wrap(errors.ErrInvalidInput, "expiry must be in the future")

	// ErrInvalidDocumentType indicates an unknown document source.
	ErrInvalidDocumentType = errors.Wrap(errors.ErrInvalidInput, "document type must be signed or unsigned")

	// ErrRecipientNotFound indicates the recipient is not a known user.
	ErrRecipientNotFound = errors.Wrap(errors.ErrNotFound, "recipient not found")

	// ErrSignedDocumentNotReady indicates a signed PDF was requested for a request that is not signed.
	ErrSignedDocumentNotReady = errors.Wrap(errors.ErrInvalidState, "signing request has not been signed")

	// ErrInvalidPDF indicates an uploaded replacement document is not a PDF.
	ErrInvalidPDF = errors.Wrap(errors.ErrInvalidInput, "document is not a PDF")
)
