package app

import (
	"database/sql"
	"fmt"

	caHTTP "github.com/allisson/esign/internal/ca/http"
	caRepository "github.com/allisson/esign/internal/ca/repository"
	caUseCase "github.com/allisson/esign/internal/ca/usecase"
	credentialHTTP "github.com/allisson/esign/internal/credential/http"
	credentialUseCase "github.com/allisson/esign/internal/credential/usecase"
	custodyRepository "github.com/allisson/esign/internal/custody/repository"
	documentHTTP "github.com/allisson/esign/internal/document/http"
	documentRepository "github.com/allisson/esign/internal/document/repository"
	documentUseCase "github.com/allisson/esign/internal/document/usecase"
	pkiDomain "github.com/allisson/esign/internal/pki/domain"
	signingUseCase "github.com/allisson/esign/internal/signing/usecase"
)

// custodyStore is the full custody store shared by the CA, credential and document modules.
type custodyStore interface {
	caUseCase.CustodyRepository
	credentialUseCase.CustodyRepository
	documentUseCase.CustodyRepository
}

// CustodyRepository returns the encrypted custody store for the configured driver.
func (c *Container) CustodyRepository() (custodyStore, error) {
	return resolve(c, "custodyRepo", func() (custodyStore, error) {
		return byDriver(c,
			func(db *sql.DB) custodyStore { return custodyRepository.NewPostgreSQLCustodyRepository(db) },
			func(db *sql.DB) custodyStore { return custodyRepository.NewMySQLCustodyRepository(db) },
		)
	})
}

// UnsignedDocumentRepository returns the store of uploaded documents awaiting signature.
func (c *Container) UnsignedDocumentRepository() (signingUseCase.UnsignedDocumentReader, error) {
	return resolve(c, "unsignedDocumentRepo", func() (signingUseCase.UnsignedDocumentReader, error) {
		return byDriver(c,
			func(db *sql.DB) signingUseCase.UnsignedDocumentReader {
				return documentRepository.NewPostgreSQLUnsignedDocumentRepository(db)
			},
			func(db *sql.DB) signingUseCase.UnsignedDocumentReader {
				return documentRepository.NewMySQLUnsignedDocumentRepository(db)
			},
		)
	})
}

// CAUseCase returns the certificate authority use case, decorated with metrics.
func (c *Container) CAUseCase() (caUseCase.CAUseCase, error) {
	return resolve(c, "caUseCase", func() (caUseCase.CAUseCase, error) {
		custody, err := c.CustodyRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get custody repository for ca use case: %w", err)
		}
		notifier, err := c.Notifier()
		if err != nil {
			return nil, fmt.Errorf("failed to get notifier for ca use case: %w", err)
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for ca use case: %w", err)
		}

		useCase := caUseCase.NewCAUseCase(
			custody,
			c.IdentityStore(),
			c.PKIInvoker(),
			c.EnvelopeCipher(),
			notifier,
			caUseCase.Config{
				CAKeyBits:            c.config.CAKeyBits,
				UserKeyBits:          c.config.UserKeyBits,
				CAValidityDays:       c.config.CAValidityDays,
				UserCertValidityDays: c.config.UserCertValidityDays,
				Subject: pkiDomain.SubjectFields{
					Country:            c.config.CACountry,
					State:              c.config.CAState,
					Locality:           c.config.CALocality,
					Organization:       c.config.CAOrganization,
					OrganizationalUnit: c.config.CAOrganizationalUnit,
					CommonName:         c.config.CACommonName,
				},
			},
			c.Logger(),
		)
		return caUseCase.NewCAUseCaseWithMetrics(useCase, businessMetrics), nil
	})
}

// CertificateRequestRepository returns the certificate request queue for the configured driver.
func (c *Container) CertificateRequestRepository() (caUseCase.CertificateRequestRepository, error) {
	return resolve(c, "certificateRequestRepo", func() (caUseCase.CertificateRequestRepository, error) {
		return byDriver(c,
			func(db *sql.DB) caUseCase.CertificateRequestRepository {
				return caRepository.NewPostgreSQLCertificateRequestRepository(db)
			},
			func(db *sql.DB) caUseCase.CertificateRequestRepository {
				return caRepository.NewMySQLCertificateRequestRepository(db)
			},
		)
	})
}

// CertificateRequestUseCase returns the certificate request queue use case, decorated with metrics.
func (c *Container) CertificateRequestUseCase() (caUseCase.CertificateRequestUseCase, error) {
	return resolve(c, "certificateRequestUseCase", func() (caUseCase.CertificateRequestUseCase, error) {
		txManager, err := c.TxManager()
		if err != nil {
			return nil, fmt.Errorf("failed to get tx manager for certificate request use case: %w", err)
		}
		requests, err := c.CertificateRequestRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get repository for certificate request use case: %w", err)
		}
		ca, err := c.CAUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get ca use case for certificate request use case: %w", err)
		}
		notifier, err := c.Notifier()
		if err != nil {
			return nil, fmt.Errorf("failed to get notifier for certificate request use case: %w", err)
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for certificate request use case: %w", err)
		}

		useCase := caUseCase.NewCertificateRequestUseCase(
			txManager,
			requests,
			ca,
			c.IdentityStore(),
			notifier,
			c.Logger(),
		)
		return caUseCase.NewCertificateRequestUseCaseWithMetrics(useCase, businessMetrics), nil
	})
}

// CredentialUseCase returns the credential use case, decorated with metrics.
func (c *Container) CredentialUseCase() (credentialUseCase.CredentialUseCase, error) {
	return resolve(c, "credentialUseCase", func() (credentialUseCase.CredentialUseCase, error) {
		custody, err := c.CustodyRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get custody repository for credential use case: %w", err)
		}
		ca, err := c.CAUseCase()
		if err != nil {
			return nil, fmt.Errorf("failed to get ca use case for credential use case: %w", err)
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for credential use case: %w", err)
		}

		useCase := credentialUseCase.NewCredentialUseCase(
			custody,
			ca,
			c.PKIInvoker(),
			c.EnvelopeCipher(),
			c.Logger(),
		)
		return credentialUseCase.NewCredentialUseCaseWithMetrics(useCase, businessMetrics), nil
	})
}

// DocumentUseCase returns the signed document use case, decorated with metrics.
func (c *Container) DocumentUseCase() (documentUseCase.DocumentUseCase, error) {
	return resolve(c, "documentUseCase", func() (documentUseCase.DocumentUseCase, error) {
		custody, err := c.CustodyRepository()
		if err != nil {
			return nil, fmt.Errorf("failed to get custody repository for document use case: %w", err)
		}
		secrets, err := c.MasterSecrets()
		if err != nil {
			return nil, fmt.Errorf("failed to get master secrets for document use case: %w", err)
		}
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for document use case: %w", err)
		}

		useCase := documentUseCase.NewDocumentUseCase(
			custody,
			c.DocumentKeyManager(),
			secrets.Document,
			c.Logger(),
		)
		return documentUseCase.NewDocumentUseCaseWithMetrics(useCase, businessMetrics), nil
	})
}

// CAHandler returns the CA HTTP handler.
func (c *Container) CAHandler() (*caHTTP.CAHandler, error) {
	return resolve(c, "caHandler", func() (*caHTTP.CAHandler, error) {
		useCase, err := c.CAUseCase()
		if err != nil {
			return nil, err
		}
		secrets, err := c.MasterSecrets()
		if err != nil {
			return nil, err
		}
		return caHTTP.NewCAHandler(useCase, secrets.CA, c.Logger()), nil
	})
}

// CertificateRequestHandler returns the certificate request queue HTTP handler.
func (c *Container) CertificateRequestHandler() (*caHTTP.CertificateRequestHandler, error) {
	return resolve(c, "certificateRequestHandler", func() (*caHTTP.CertificateRequestHandler, error) {
		useCase, err := c.CertificateRequestUseCase()
		if err != nil {
			return nil, err
		}
		secrets, err := c.MasterSecrets()
		if err != nil {
			return nil, err
		}
		return caHTTP.NewCertificateRequestHandler(useCase, secrets.CA, c.Logger()), nil
	})
}

// CredentialHandler returns the credential HTTP handler.
func (c *Container) CredentialHandler() (*credentialHTTP.CredentialHandler, error) {
	return resolve(c, "credentialHandler", func() (*credentialHTTP.CredentialHandler, error) {
		useCase, err := c.CredentialUseCase()
		if err != nil {
			return nil, err
		}
		return credentialHTTP.NewCredentialHandler(useCase, c.Logger()), nil
	})
}

// DocumentHandler returns the signed document HTTP handler.
func (c *Container) DocumentHandler() (*documentHTTP.DocumentHandler, error) {
	return resolve(c, "documentHandler", func() (*documentHTTP.DocumentHandler, error) {
		useCase, err := c.DocumentUseCase()
		if err != nil {
			return nil, err
		}
		return documentHTTP.NewDocumentHandler(useCase, c.Logger()), nil
	})
}
