// Package dto provides data transfer objects for credential HTTP requests and responses.
package dto

import (
	"time"

	validation "github.com/jellydator/validation"

	credentialDomain "github.com/allisson/esign/internal/credential/domain"
)

// PasswordRequest carries the password that opens a stored credential.
type PasswordRequest struct {
	Password string `json:"password"`
}

// Validate checks the request.
func (r *PasswordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Password, validation.Required),
	)
}

// CredentialResponse is the public view of a credential.
type CredentialResponse struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	Certificate string    `json:"certificate"`
	CreatedAt   time.Time `json:"created_at"`
}

// MapCredentialToResponse converts a credential to an API response.
func MapCredentialToResponse(credential *credentialDomain.Credential) CredentialResponse {
	return CredentialResponse{
		ID:          credential.ID.String(),
		FileName:    credential.FileName,
		Certificate: string(credential.Certificate),
		CreatedAt:   credential.CreatedAt,
	}
}

// ListCredentialsResponse wraps credential listings.
type ListCredentialsResponse struct {
	Data []CredentialResponse `json:"data"`
}

// MapCredentialsToListResponse converts credentials to a list response.
func MapCredentialsToListResponse(credentials []*credentialDomain.Credential) ListCredentialsResponse {
	data := make([]CredentialResponse, 0, len(credentials))
	for _, credential := range credentials {
		data = append(data, MapCredentialToResponse(credential))
	}
	return ListCredentialsResponse{Data: data}
}
