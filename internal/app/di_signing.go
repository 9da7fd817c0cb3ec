package app

import (
	"database/sql"
	"fmt"

	signingHTTP "github.com/allisson/esign/internal/signing/http"
	signingRepository "github.com/allisson/esign/internal/signing/repository"
	signingService "github.com/allisson/esign/internal/signing/service"
	signingUseCase "github.com/allisson/esign/internal/signing/usecase"
	userRepository "github.com/allisson/esign/internal/user/repository"
)

// SigningRequestRepository returns the signing request repository for the configured driver.
func (c *Container) SigningRequestRepository() (signingUseCase.SigningRequestRepository, error) {
	return resolve(c, "signingRequestRepo", func() (signingUseCase.SigningRequestRepository, error) {
		return byDriver(c,
			func(db *sql.DB) signingUseCase.SigningRequestRepository {
				return signingRepository.NewPostgreSQLSigningRequestRepository(db)
			},
			func(db *sql.DB) signingUseCase.SigningRequestRepository {
				return signingRepository.NewMySQLSigningRequestRepository(db)
			},
		)
	})
}

// ReminderRepository returns the reminder repository for the configured driver.
func (c *Container) ReminderRepository() (signingUseCase.ReminderRepository, error) {
	return resolve(c, "reminderRepo", func() (signingUseCase.ReminderRepository, error) {
		return byDriver(c,
			func(db *sql.DB) signingUseCase.ReminderRepository {
				return signingRepository.NewPostgreSQLReminderRepository(db)
			},
			func(db *sql.DB) signingUseCase.ReminderRepository {
				return signingRepository.NewMySQLReminderRepository(db)
			},
		)
	})
}

// UserRepository returns the read-only user directory for the configured driver.
func (c *Container) UserRepository() (signingUseCase.UserDirectory, error) {
	return resolve(c, "userRepo", func() (signingUseCase.UserDirectory, error) {
		return byDriver(c,
			func(db *sql.DB) signingUseCase.UserDirectory { return userRepository.NewPostgreSQLUserRepository(db) },
			func(db *sql.DB) signingUseCase.UserDirectory { return userRepository.NewMySQLUserRepository(db) },
		)
	})
}

// PDFSigner returns the client of the external PDF signing service.
func (c *Container) PDFSigner() signingUseCase.PDFSigner {
	signer, _ := resolve(c, "pdfSigner", func() (signingUseCase.PDFSigner, error) {
		return signingService.NewHTTPPDFSigner(signingService.SignerConfig{
			BaseURL:     c.config.SignerURL,
			Timeout:     c.config.SignerTimeout,
			MaxRetries:  c.config.SignerMaxRetries,
			MaxElapsed:  c.config.SignerMaxElapsed,
			ScratchRoot: c.config.PKIWorkDir,
		}, c.Logger()), nil
	})
	return signer
}

// SigningUseCase returns the signing request workflow, decorated with metrics.
func (c *Container) SigningUseCase() (signingUseCase.SigningUseCase, error) {
	return resolve(c, "signingUseCase", c.initSigningUseCase)
}

func (c *Container) initSigningUseCase() (signingUseCase.SigningUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for signing use case: %w", err)
	}
	requestRepo, err := c.SigningRequestRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get signing request repository: %w", err)
	}
	reminderRepo, err := c.ReminderRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get reminder repository: %w", err)
	}
	users, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository: %w", err)
	}
	credentials, err := c.CredentialUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get credential use case for signing use case: %w", err)
	}
	documents, err := c.DocumentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get document use case for signing use case: %w", err)
	}
	unsigned, err := c.UnsignedDocumentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get unsigned document repository: %w", err)
	}
	notifier, err := c.Notifier()
	if err != nil {
		return nil, fmt.Errorf("failed to get notifier for signing use case: %w", err)
	}
	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for signing use case: %w", err)
	}

	useCase := signingUseCase.NewSigningUseCase(
		signingUseCase.Config{DefaultTTL: c.config.SigningRequestDefaultTTL},
		txManager,
		requestRepo,
		reminderRepo,
		users,
		credentials,
		documents,
		unsigned,
		c.PDFSigner(),
		notifier,
		c.Logger(),
	)
	return signingUseCase.NewSigningUseCaseWithMetrics(useCase, businessMetrics), nil
}

// SigningHandler returns the signing request HTTP handler.
func (c *Container) SigningHandler() (*signingHTTP.SigningHandler, error) {
	return resolve(c, "signingHandler", func() (*signingHTTP.SigningHandler, error) {
		useCase, err := c.SigningUseCase()
		if err != nil {
			return nil, err
		}
		return signingHTTP.NewSigningHandler(useCase, c.Logger()), nil
	})
}
