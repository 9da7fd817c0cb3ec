package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	credentialDomain "github.com/allisson/esign/internal/credential/domain"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	cryptoService "github.com/allisson/esign/internal/crypto/service"
	custodyDomain "github.com/allisson/esign/internal/custody/domain"
	apperrors "github.com/allisson/esign/internal/errors"
	pkiService "github.com/allisson/esign/internal/pki/service"
)

// credentialUseCase implements CredentialUseCase.
type credentialUseCase struct {
	custodyRepo CustodyRepository
	verifier    CertificateVerifier
	invoker     pkiService.Invoker
	cipher      cryptoService.EnvelopeCipher
	logger      *slog.Logger
}

// Upload extracts the certificate with the supplied password, verifies it against the CA and
// seals the bundle. Extraction and verification failures collapse into ErrInvalidCredential
// so the response does not reveal which check failed.
func (c *credentialUseCase) Upload(
	ctx context.Context,
	input *credentialDomain.UploadInput,
) (*credentialDomain.Credential, error) {
	if len(input.Bundle) == 0 || input.Password == "" {
		return nil, credentialDomain.ErrInvalidCredential
	}

	cert, err := c.invoker.ExtractCertFromPKCS12(ctx, input.Bundle, input.Password)
	if err != nil {
		return nil, c.invalidCredential(ctx, "extract", err)
	}
	if err := c.verifier.VerifyAgainstCA(ctx, cert); err != nil {
		return nil, c.invalidCredential(ctx, "verify", err)
	}

	password := []byte(input.Password)
	defer cryptoDomain.Zero(password)

	blob, err := c.cipher.Seal(input.Bundle, password)
	if err != nil {
		return nil, err
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		fileName = credentialDomain.DefaultFileName
	}

	record := &custodyDomain.Record{
		Kind:        custodyDomain.KindUserCredential,
		OwnerID:     input.OwnerID,
		FileName:    fileName,
		Blob:        blob,
		Certificate: cert,
	}
	if _, err := c.custodyRepo.Put(ctx, record); err != nil {
		return nil, err
	}

	c.logger.Info("signing credential uploaded",
		slog.String("credential_id", record.ID.String()),
		slog.String("owner_id", input.OwnerID.String()),
	)
	return credentialDomain.FromRecord(record), nil
}

// invalidCredential maps a validation failure to ErrInvalidCredential. Timeouts and
// cancellation keep their own meaning.
func (c *credentialUseCase) invalidCredential(ctx context.Context, step string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if apperrors.Is(err, apperrors.ErrUnavailable) {
		return err
	}
	c.logger.Debug("credential rejected", slog.String("step", step), slog.Any("error", err))
	return credentialDomain.ErrInvalidCredential
}

func (c *credentialUseCase) List(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*credentialDomain.Credential, error) {
	records, err := c.custodyRepo.ListByOwner(ctx, custodyDomain.KindUserCredential, ownerID, offset, limit)
	if err != nil {
		return nil, err
	}

	credentials := make([]*credentialDomain.Credential, 0, len(records))
	for _, record := range records {
		credentials = append(credentials, credentialDomain.FromRecord(record))
	}
	return credentials, nil
}

func (c *credentialUseCase) Unlock(ctx context.Context, ownerID, id uuid.UUID, password string) error {
	bundle, err := c.Open(ctx, ownerID, id, password)
	if err != nil {
		return err
	}
	cryptoDomain.Zero(bundle)
	return nil
}

func (c *credentialUseCase) Download(
	ctx context.Context,
	ownerID, id uuid.UUID,
	password string,
) (*credentialDomain.Bundle, error) {
	record, bundle, err := c.open(ctx, ownerID, id, password)
	if err != nil {
		return nil, err
	}
	return &credentialDomain.Bundle{FileName: record.FileName, Content: bundle}, nil
}

func (c *credentialUseCase) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	err := c.custodyRepo.Delete(ctx, custodyDomain.KindUserCredential, id, ownerID)
	if errors.Is(err, custodyDomain.ErrRecordNotFound) {
		return credentialDomain.ErrCredentialNotFound
	}
	if err != nil {
		return err
	}

	c.logger.Info("signing credential deleted", slog.String("credential_id", id.String()))
	return nil
}

func (c *credentialUseCase) Open(ctx context.Context, ownerID, id uuid.UUID, password string) ([]byte, error) {
	_, bundle, err := c.open(ctx, ownerID, id, password)
	return bundle, err
}

func (c *credentialUseCase) open(
	ctx context.Context,
	ownerID, id uuid.UUID,
	password string,
) (*custodyDomain.Record, []byte, error) {
	if password == "" {
		return nil, nil, cryptoDomain.ErrAuthenticationFailed
	}

	record, err := c.custodyRepo.Get(ctx, custodyDomain.KindUserCredential, id, &ownerID)
	if err != nil {
		if errors.Is(err, custodyDomain.ErrRecordNotFound) {
			return nil, nil, credentialDomain.ErrCredentialNotFound
		}
		return nil, nil, err
	}

	secret := []byte(password)
	defer cryptoDomain.Zero(secret)

	bundle, err := c.cipher.Unseal(record.Blob, secret)
	if err != nil {
		c.logger.Warn("credential unlock failed", slog.String("credential_id", id.String()))
		return nil, nil, err
	}
	return record, bundle, nil
}

// NewCredentialUseCase creates a new CredentialUseCase.
func NewCredentialUseCase(
	custodyRepo CustodyRepository,
	verifier CertificateVerifier,
	invoker pkiService.Invoker,
	cipher cryptoService.EnvelopeCipher,
	logger *slog.Logger,
) CredentialUseCase {
	return &credentialUseCase{
		custodyRepo: custodyRepo,
		verifier:    verifier,
		invoker:     invoker,
		cipher:      cipher,
		logger:      logger,
	}
}
