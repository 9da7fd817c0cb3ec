// Package dto provides data transfer objects for signing request HTTP requests and responses.
package dto

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	signingDomain "github.com/allisson/esign/internal/signing/domain"
	signingUseCase "github.com/allisson/esign/internal/signing/usecase"
	customValidation "github.com/allisson/esign/internal/validation"
)

const maxTextLength = 2000

var uuidRule = validation.By(func(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a valid UUID")
	}
	return nil
})

// SendRequest creates a signing request. Exactly one of RecipientID and RecipientEmail is set.
type SendRequest struct {
	RecipientID    string     `json:"recipient_id"`
	RecipientEmail string     `json:"recipient_email"`
	DocumentID     string     `json:"document_id"`
	DocumentType   string     `json:"document_type"`
	Message        string     `json:"message"`
	ExpiresAt      *time.Time `json:"expires_at"`
}

// Validate checks the request.
func (r *SendRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RecipientID,
			validation.When(r.RecipientEmail == "", validation.Required.Error("recipient_id or recipient_email is required")),
			validation.When(r.RecipientEmail != "", validation.Empty.Error("use either recipient_id or recipient_email")),
			uuidRule,
		),
		validation.Field(&r.RecipientEmail, customValidation.Email),
		validation.Field(&r.DocumentID, validation.Required, uuidRule),
		validation.Field(&r.DocumentType, validation.Required, validation.In(
			string(signingDomain.DocumentTypeSigned),
			string(signingDomain.DocumentTypeUnsigned),
		)),
		validation.Field(&r.Message, validation.RuneLength(0, maxTextLength)),
	)
}

// ToInput converts a validated request into use case input.
func (r *SendRequest) ToInput(senderID uuid.UUID) signingUseCase.SendInput {
	input := signingUseCase.SendInput{
		SenderID:       senderID,
		RecipientEmail: strings.TrimSpace(r.RecipientEmail),
		DocumentID:     uuid.MustParse(r.DocumentID),
		DocumentType:   signingDomain.DocumentType(r.DocumentType),
		Message:        r.Message,
	}
	if r.RecipientID != "" {
		input.RecipientID = uuid.MustParse(r.RecipientID)
	}
	if r.ExpiresAt != nil {
		input.ExpiresAt = *r.ExpiresAt
	}
	return input
}

// RejectRequest rejects a signing request.
type RejectRequest struct {
	Reason string `json:"reason"`
}

// Validate checks the request.
func (r *RejectRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Reason, validation.RuneLength(0, maxTextLength)),
	)
}

// SigningRequestResponse is the public view of a signing request.
type SigningRequestResponse struct {
	ID               string     `json:"id"`
	DocumentID       string     `json:"document_id"`
	DocumentType     string     `json:"document_type"`
	SenderID         string     `json:"sender_id"`
	RecipientID      string     `json:"recipient_id"`
	Status           string     `json:"status"`
	Message          string     `json:"message,omitempty"`
	RejectionReason  string     `json:"rejection_reason,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	SignedAt         *time.Time `json:"signed_at,omitempty"`
	SignedDocumentID *string    `json:"signed_document_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// MapRequestToResponse converts a signing request to an API response.
func MapRequestToResponse(request *signingDomain.SigningRequest) SigningRequestResponse {
	response := SigningRequestResponse{
		ID:              request.ID.String(),
		DocumentID:      request.DocumentID.String(),
		DocumentType:    string(request.DocumentType),
		SenderID:        request.SenderID.String(),
		RecipientID:     request.RecipientID.String(),
		Status:          string(request.Status),
		Message:         request.Message,
		RejectionReason: request.RejectionReason,
		ExpiresAt:       request.ExpiresAt,
		SignedAt:        request.SignedAt,
		CreatedAt:       request.CreatedAt,
		UpdatedAt:       request.UpdatedAt,
	}
	if request.SignedDocumentID != nil {
		id := request.SignedDocumentID.String()
		response.SignedDocumentID = &id
	}
	return response
}

// ListSigningRequestsResponse wraps signing request listings.
type ListSigningRequestsResponse struct {
	Data []SigningRequestResponse `json:"data"`
}

// MapRequestsToListResponse converts signing requests to a list response.
func MapRequestsToListResponse(requests []*signingDomain.SigningRequest) ListSigningRequestsResponse {
	data := make([]SigningRequestResponse, 0, len(requests))
	for _, request := range requests {
		data = append(data, MapRequestToResponse(request))
	}
	return ListSigningRequestsResponse{Data: data}
}

// SignResponse reports the outcome of a signature.
type SignResponse struct {
	Request          SigningRequestResponse `json:"request"`
	SignedDocumentID string                 `json:"signed_document_id"`
	AllSigned        bool                   `json:"all_signed"`
	SignedCount      int                    `json:"signed_count"`
	TotalSigners     int                    `json:"total_signers"`
}

// MapSignResultToResponse converts a sign result to an API response.
func MapSignResultToResponse(result *signingUseCase.SignResult) SignResponse {
	return SignResponse{
		Request:          MapRequestToResponse(result.Request),
		SignedDocumentID: result.SignedDocumentID.String(),
		AllSigned:        result.AllSigned,
		SignedCount:      result.SignedCount,
		TotalSigners:     result.TotalSigners,
	}
}
