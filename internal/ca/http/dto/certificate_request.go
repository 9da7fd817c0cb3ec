package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	customValidation "github.com/allisson/esign/internal/validation"
)

// maxCommentLength matches the limit the domain enforces on review comments.
const maxCommentLength = 1000

// SubmitCertificateRequest is a user's application for a signing certificate.
type SubmitCertificateRequest struct {
	Username           string `json:"username"`
	Email              string `json:"email"`
	Country            string `json:"country"`
	State              string `json:"state"`
	Locality           string `json:"locality"`
	OrganizationalUnit string `json:"organizational_unit"`
}

// Validate checks the request. Subject characters are validated again by the domain.
func (r *SubmitCertificateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64), customValidation.NoWhitespace),
		validation.Field(&r.Email, customValidation.Email),
		validation.Field(&r.Country, customValidation.CountryCode),
		validation.Field(&r.State, customValidation.SubjectText),
		validation.Field(&r.Locality, customValidation.SubjectText),
		validation.Field(&r.OrganizationalUnit, customValidation.SubjectText),
	)
}

// ReviewCertificateRequest carries the administrator's optional comment.
type ReviewCertificateRequest struct {
	Comment string `json:"comment"`
}

// Validate checks the request.
func (r *ReviewCertificateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Comment, validation.RuneLength(0, maxCommentLength)),
	)
}

// CertificateRequestResponse is the public view of a certificate request.
type CertificateRequestResponse struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	Username     string     `json:"username"`
	Subject      string     `json:"subject"`
	Status       string     `json:"status"`
	AdminComment string     `json:"admin_comment,omitempty"`
	ReviewedBy   string     `json:"reviewed_by,omitempty"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// MapCertificateRequestToResponse converts a certificate request to an API response.
func MapCertificateRequestToResponse(request *caDomain.CertificateRequest) CertificateRequestResponse {
	resp := CertificateRequestResponse{
		ID:           request.ID.String(),
		UserID:       request.UserID.String(),
		Username:     request.Username,
		Subject:      request.Subject.Subject(),
		Status:       string(request.Status),
		AdminComment: request.AdminComment,
		ReviewedAt:   request.ReviewedAt,
		CreatedAt:    request.CreatedAt,
		UpdatedAt:    request.UpdatedAt,
	}
	if request.ReviewedBy != nil {
		resp.ReviewedBy = request.ReviewedBy.String()
	}
	return resp
}

// ListCertificateRequestsResponse wraps certificate request listings.
type ListCertificateRequestsResponse struct {
	Data []CertificateRequestResponse `json:"data"`
}

// MapCertificateRequestsToListResponse converts certificate requests to a list response.
func MapCertificateRequestsToListResponse(requests []*caDomain.CertificateRequest) ListCertificateRequestsResponse {
	data := make([]CertificateRequestResponse, 0, len(requests))
	for _, request := range requests {
		data = append(data, MapCertificateRequestToResponse(request))
	}
	return ListCertificateRequestsResponse{Data: data}
}
