// Package dto provides data transfer objects for CA HTTP requests and responses.
package dto

import (
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	customValidation "github.com/allisson/esign/internal/validation"
)

// exportPasswordStrength is the minimum strength of a PKCS#12 export password.
var exportPasswordStrength = customValidation.PasswordStrength{
	MinLength:     8,
	RequireUpper:  true,
	RequireLower:  true,
	RequireNumber: true,
}

// IssueCredentialRequest requests a key pair and CSR for a user.
type IssueCredentialRequest struct {
	Username           string `json:"username"`
	Email              string `json:"email"`
	Country            string `json:"country"`
	State              string `json:"state"`
	Locality           string `json:"locality"`
	OrganizationalUnit string `json:"organizational_unit"`
	// UserID is notified once the certificate has been issued.
	UserID string `json:"user_id"`
}

// Validate checks the request. Subject characters are validated again by the domain.
func (r *IssueCredentialRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Username, validation.Required, validation.Length(1, 64), customValidation.NoWhitespace),
		validation.Field(&r.Email, customValidation.Email),
		validation.Field(&r.Country, customValidation.CountryCode),
		validation.Field(&r.State, customValidation.SubjectText),
		validation.Field(&r.Locality, customValidation.SubjectText),
		validation.Field(&r.OrganizationalUnit, customValidation.SubjectText),
		validation.Field(&r.UserID, validation.By(optionalUUID)),
	)
}

// RequesterID returns the parsed user ID or uuid.Nil when absent.
func (r *IssueCredentialRequest) RequesterID() uuid.UUID {
	id, err := uuid.Parse(r.UserID)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func optionalUUID(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := uuid.Parse(s); err != nil {
		return validation.NewError("validation_uuid", "must be a valid UUID")
	}
	return nil
}

// ExportCredentialRequest carries the password protecting the exported bundle.
type ExportCredentialRequest struct {
	Password string `json:"password"`
}

// Validate checks the export password strength.
func (r *ExportCredentialRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Password, validation.Required, exportPasswordStrength),
	)
}
