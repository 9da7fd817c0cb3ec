// Package domain defines the certificate authority, pending user identities and CA errors.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	pkiDomain "github.com/allisson/esign/internal/pki/domain"
)

// maxUsernameLength bounds identity directory names.
const maxUsernameLength = 64

// CertificateAuthority is the bootstrapped root: its custody record and public certificate.
type CertificateAuthority struct {
	ID          uuid.UUID
	Certificate []byte
	CreatedAt   time.Time
}

// CAInfo describes the root certificate.
type CAInfo struct {
	Subject     string
	Issuer      string
	Serial      string
	NotBefore   time.Time
	NotAfter    time.Time
	Certificate []byte
}

// IssueInput requests a key pair and CSR for a user.
type IssueInput struct {
	Username string
	Subject  pkiDomain.SubjectFields
	// RequesterID is notified when the certificate is issued; uuid.Nil for none.
	RequesterID uuid.UUID
}

// Identity is a user identity between issuance and export. Its private key is stored
// sealed under the CA master secret; Certificate is nil until the CSR is signed.
type Identity struct {
	Username    string
	Subject     pkiDomain.SubjectFields
	RequesterID uuid.UUID
	SealedKey   *cryptoDomain.EncryptedBlob
	CSR         []byte
	Certificate []byte
	CreatedAt   time.Time
}

// Status returns "pending" before signing and "issued" after.
func (i *Identity) Status() string {
	if len(i.Certificate) == 0 {
		return "pending"
	}
	return "issued"
}

// SanitizeUsername reduces username to [A-Za-z0-9_-] so it is safe as a directory name.
func SanitizeUsername(username string) (string, error) {
	var b strings.Builder
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}

	token := b.String()
	if token == "" || len(token) > maxUsernameLength {
		return "", ErrInvalidUsername
	}
	return token, nil
}
