package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/esign/internal/errors"
	pkiDomain "github.com/allisson/esign/internal/pki/domain"
)

// maxCommentLength bounds the note an administrator attaches to a review.
const maxCommentLength = 1000

// RequestStatus is the review state of a certificate request.
type RequestStatus string

// Review states. Everything except RequestPending is terminal.
const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Valid reports whether s is a known review state.
func (s RequestStatus) Valid() bool {
	return s == RequestPending || s == RequestApproved || s == RequestRejected
}

// CertificateRequest is a user's application for a signing certificate. The key pair and
// CSR exist as an identity from submission on; approval signs the CSR.
type CertificateRequest struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Username     string
	Subject      pkiDomain.SubjectFields
	Status       RequestStatus
	AdminComment string
	ReviewedBy   *uuid.UUID
	ReviewedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SubmitInput is a user's application for a certificate.
type SubmitInput struct {
	UserID   uuid.UUID
	Username string
	Subject  pkiDomain.SubjectFields
}

// ReviewInput is an administrator's decision on a pending request.
type ReviewInput struct {
	RequestID uuid.UUID
	AdminID   uuid.UUID
	Comment   string
}

// NewCertificateRequest returns a pending request for the identity issued to userID.
func NewCertificateRequest(userID uuid.UUID, identity *Identity, now time.Time) (*CertificateRequest, error) {
	if userID == uuid.Nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "user id is required")
	}

	now = now.UTC()
	return &CertificateRequest{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    userID,
		Username:  identity.Username,
		Subject:   identity.Subject,
		Status:    RequestPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Approve records the administrator's approval.
func (r *CertificateRequest) Approve(adminID uuid.UUID, comment string, at time.Time) error {
	return r.review(RequestApproved, adminID, comment, at)
}

// Reject records the administrator's rejection with comment as the reason.
func (r *CertificateRequest) Reject(adminID uuid.UUID, comment string, at time.Time) error {
	return r.review(RequestRejected, adminID, comment, at)
}

func (r *CertificateRequest) review(status RequestStatus, adminID uuid.UUID, comment string, at time.Time) error {
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLength {
		return errors.Wrap(errors.ErrInvalidInput, "comment is too long")
	}
	if r.Status != RequestPending {
		return ErrCertificateRequestNotPending
	}

	at = at.UTC()
	r.Status = status
	r.AdminComment = comment
	r.ReviewedBy = &adminID
	r.ReviewedAt = &at
	r.UpdatedAt = at
	return nil
}
