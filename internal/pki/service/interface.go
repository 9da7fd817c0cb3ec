package service

import (
	"context"

	pkiDomain "github.com/allisson/esign/internal/pki/domain"
)

// Invoker performs PKI operations through an external tool. Every call uses its own
// private scratch directory that is wiped before the call returns.
type Invoker interface {
	// GenerateKeyPair returns a PEM RSA private key of the given modulus size.
	GenerateKeyPair(ctx context.Context, bits int) ([]byte, error)

	// CreateSelfSignedCert returns a PEM root certificate for key.
	CreateSelfSignedCert(ctx context.Context, key []byte, subject pkiDomain.SubjectFields, days int) ([]byte, error)

	// CreateCSR returns a PEM certificate signing request for key.
	CreateCSR(ctx context.Context, key []byte, subject pkiDomain.SubjectFields) ([]byte, error)

	// SignCSR issues a PEM certificate for csr signed by the CA, with a random serial.
	SignCSR(ctx context.Context, csr, caCert, caKey []byte, days int) ([]byte, error)

	// VerifyCert reports whether cert chains to caCert. A certificate the tool rejects is
	// (false, nil); errors are reserved for failures to run the check at all.
	VerifyCert(ctx context.Context, cert, caCert []byte) (bool, error)

	// ExportPKCS12 bundles key, cert and caCert under password.
	ExportPKCS12(ctx context.Context, key, cert, caCert []byte, password string) ([]byte, error)

	// ExtractCertFromPKCS12 returns the client certificate of a bundle.
	ExtractCertFromPKCS12(ctx context.Context, p12 []byte, password string) ([]byte, error)

	// ReadCertFields returns the subject attributes of cert.
	ReadCertFields(ctx context.Context, cert []byte) (*pkiDomain.CertFields, error)

	// ReadCertInfo returns subject, issuer, serial and validity of cert.
	ReadCertInfo(ctx context.Context, cert []byte) (*pkiDomain.CertInfo, error)
}
