// Package domain defines the certificate subjects, certificate views and errors of the
// external PKI tool integration.
package domain

import (
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/allisson/esign/internal/errors"
	customValidation "github.com/allisson/esign/internal/validation"
)

// SubjectFields is the distinguished name of a certificate or CSR. Build it with
// NewSubjectFields so every attribute is checked before it reaches a tool invocation.
type SubjectFields struct {
	CommonName         string
	Country            string
	State              string
	Locality           string
	Organization       string
	OrganizationalUnit string
	Email              string
}

// NewSubjectFields trims and validates fields.
func NewSubjectFields(fields SubjectFields) (SubjectFields, error) {
	fields = SubjectFields{
		CommonName:         strings.TrimSpace(fields.CommonName),
		Country:            strings.ToUpper(strings.TrimSpace(fields.Country)),
		State:              strings.TrimSpace(fields.State),
		Locality:           strings.TrimSpace(fields.Locality),
		Organization:       strings.TrimSpace(fields.Organization),
		OrganizationalUnit: strings.TrimSpace(fields.OrganizationalUnit),
		Email:              strings.TrimSpace(fields.Email),
	}
	if err := fields.Validate(); err != nil {
		return SubjectFields{}, err
	}
	return fields, nil
}

// Validate checks the attribute character set, the country code and the email format.
func (s SubjectFields) Validate() error {
	err := validation.ValidateStruct(&s,
		validation.Field(&s.CommonName,
			validation.Required,
			validation.Length(1, 64),
			customValidation.SubjectText,
		),
		validation.Field(&s.Country, customValidation.CountryCode),
		validation.Field(&s.State, validation.Length(0, 128), customValidation.SubjectText),
		validation.Field(&s.Locality, validation.Length(0, 128), customValidation.SubjectText),
		validation.Field(&s.Organization, validation.Length(0, 64), customValidation.SubjectText),
		validation.Field(&s.OrganizationalUnit, validation.Length(0, 64), customValidation.SubjectText),
		validation.Field(&s.Email, validation.Length(0, 128), customValidation.Email, customValidation.SubjectText),
	)
	if err != nil {
		return errors.Wrap(ErrInvalidSubject, err.Error())
	}
	return nil
}

// Subject renders the one-line form accepted by "-subj", skipping empty attributes.
func (s SubjectFields) Subject() string {
	parts := []struct {
		key   string
		value string
	}{
		{"C", s.Country},
		{"ST", s.State},
		{"L", s.Locality},
		{"O", s.Organization},
		{"OU", s.OrganizationalUnit},
		{"CN", s.CommonName},
		{"emailAddress", s.Email},
	}

	var b strings.Builder
	for _, part := range parts {
		if part.value == "" {
			continue
		}
		b.WriteString("/")
		b.WriteString(part.key)
		b.WriteString("=")
		b.WriteString(part.value)
	}
	return b.String()
}
