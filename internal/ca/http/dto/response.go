package dto

import (
	"time"

	caDomain "github.com/allisson/esign/internal/ca/domain"
)

// CAResponse is returned after bootstrapping the CA.
type CAResponse struct {
	ID          string    `json:"id"`
	Certificate string    `json:"certificate"`
	CreatedAt   time.Time `json:"created_at"`
}

// MapCAToResponse converts the bootstrapped CA to an API response.
func MapCAToResponse(ca *caDomain.CertificateAuthority) CAResponse {
	return CAResponse{
		ID:          ca.ID.String(),
		Certificate: string(ca.Certificate),
		CreatedAt:   ca.CreatedAt,
	}
}

// CAInfoResponse describes the root certificate.
type CAInfoResponse struct {
	Subject     string    `json:"subject"`
	Issuer      string    `json:"issuer"`
	Serial      string    `json:"serial"`
	NotBefore   time.Time `json:"not_before"`
	NotAfter    time.Time `json:"not_after"`
	Certificate string    `json:"certificate"`
}

// MapCAInfoToResponse converts CA info to an API response.
func MapCAInfoToResponse(info *caDomain.CAInfo) CAInfoResponse {
	return CAInfoResponse{
		Subject:     info.Subject,
		Issuer:      info.Issuer,
		Serial:      info.Serial,
		NotBefore:   info.NotBefore,
		NotAfter:    info.NotAfter,
		Certificate: string(info.Certificate),
	}
}

// IdentityResponse describes a pending or issued identity. The sealed key is never exposed.
type IdentityResponse struct {
	Username    string    `json:"username"`
	Subject     string    `json:"subject"`
	Status      string    `json:"status"`
	Certificate string    `json:"certificate,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// MapIdentityToResponse converts an identity to an API response.
func MapIdentityToResponse(identity *caDomain.Identity) IdentityResponse {
	return IdentityResponse{
		Username:    identity.Username,
		Subject:     identity.Subject.Subject(),
		Status:      identity.Status(),
		Certificate: string(identity.Certificate),
		CreatedAt:   identity.CreatedAt,
	}
}

// ListIdentitiesResponse wraps identity listings.
type ListIdentitiesResponse struct {
	Data []IdentityResponse `json:"data"`
}

// MapIdentitiesToListResponse converts identities to a list response.
func MapIdentitiesToListResponse(identities []*caDomain.Identity) ListIdentitiesResponse {
	data := make([]IdentityResponse, 0, len(identities))
	for _, identity := range identities {
		data = append(data, MapIdentityToResponse(identity))
	}
	return ListIdentitiesResponse{Data: data}
}

// VerifyResponse reports a successful verification.
type VerifyResponse struct {
	Trusted bool `json:"trusted"`
}
