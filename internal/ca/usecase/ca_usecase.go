package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	cryptoService "github.com/allisson/esign/internal/crypto/service"
	custodyDomain "github.com/allisson/esign/internal/custody/domain"
	notificationDomain "github.com/allisson/esign/internal/notification/domain"
	pkiDomain "github.com/allisson/esign/internal/pki/domain"
	pkiService "github.com/allisson/esign/internal/pki/service"
)

const caCertificateFileName = "ca.pem"

// Config holds the CA key sizes, validity periods and root subject.
type Config struct {
	CAKeyBits            int
	UserKeyBits          int
	CAValidityDays       int
	UserCertValidityDays int
	Subject              pkiDomain.SubjectFields
}

// caUseCase implements CAUseCase.
type caUseCase struct {
	custodyRepo   CustodyRepository
	identityStore IdentityStore
	invoker       pkiService.Invoker
	cipher        cryptoService.EnvelopeCipher
	notifier      Notifier
	config        Config
	logger        *slog.Logger
	bootstrap     singleflight.Group
}

// bootstrapResult carries the token of the caller whose function ran, so callers that
// merely shared a concurrent bootstrap can be told the CA already exists.
type bootstrapResult struct {
	ca     *caDomain.CertificateAuthority
	leader *byte
}

// BootstrapCA generates the root key pair and self-signed certificate, seals the key and
// stores it as the custody singleton. The plaintext key only ever exists in memory and in
// the invoker's scratch workspace.
func (c *caUseCase) BootstrapCA(
	ctx context.Context,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateAuthority, error) {
	token := new(byte)

	v, err, _ := c.bootstrap.Do("bootstrap", func() (any, error) {
		ca, err := c.bootstrapCA(ctx, master)
		return &bootstrapResult{ca: ca, leader: token}, err
	})
	if err != nil {
		return nil, err
	}

	result := v.(*bootstrapResult)
	if result.leader != token {
		return nil, caDomain.ErrCAAlreadyExists
	}
	return result.ca, nil
}

func (c *caUseCase) bootstrapCA(
	ctx context.Context,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateAuthority, error) {
	if _, err := c.custodyRepo.GetSingleton(ctx, custodyDomain.KindCARootKey); err == nil {
		return nil, caDomain.ErrCAAlreadyExists
	} else if !errors.Is(err, custodyDomain.ErrRecordNotFound) {
		return nil, err
	}

	key, err := c.invoker.GenerateKeyPair(ctx, c.config.CAKeyBits)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	cert, err := c.invoker.CreateSelfSignedCert(ctx, key, c.config.Subject, c.config.CAValidityDays)
	if err != nil {
		return nil, err
	}

	blob, err := c.cipher.SealWithMaster(key, master)
	if err != nil {
		return nil, err
	}

	record := &custodyDomain.Record{
		Kind:        custodyDomain.KindCARootKey,
		OwnerID:     custodyDomain.SystemOwnerID,
		FileName:    caCertificateFileName,
		Blob:        blob,
		Certificate: cert,
	}
	id, err := c.custodyRepo.Put(ctx, record)
	if err != nil {
		if errors.Is(err, custodyDomain.ErrSingletonExists) {
			return nil, caDomain.ErrCAAlreadyExists
		}
		return nil, err
	}

	c.logger.Info("certificate authority bootstrapped", slog.String("record_id", id.String()))

	return &caDomain.CertificateAuthority{
		ID:          id,
		Certificate: cert,
		CreatedAt:   record.CreatedAt,
	}, nil
}

// IssueUserCredential reserves the identity, generates a key pair and CSR and stores the key
// sealed under master. The identity is removed again on any failure after reservation.
func (c *caUseCase) IssueUserCredential(
	ctx context.Context,
	input *caDomain.IssueInput,
	master *cryptoDomain.MasterSecret,
) (identity *caDomain.Identity, err error) {
	username, err := caDomain.SanitizeUsername(input.Username)
	if err != nil {
		return nil, err
	}

	subject := input.Subject
	if subject.CommonName == "" {
		subject.CommonName = username
	}
	if subject.Organization == "" {
		subject.Organization = c.config.Subject.Organization
	}
	if subject.OrganizationalUnit == "" {
		subject.OrganizationalUnit = c.config.Subject.OrganizationalUnit
	}
	subject, err = pkiDomain.NewSubjectFields(subject)
	if err != nil {
		return nil, err
	}

	if err := c.identityStore.Reserve(ctx, username); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if delErr := c.identityStore.Delete(context.WithoutCancel(ctx), username); delErr != nil {
				c.logger.Error("failed to remove incomplete identity",
					slog.String("username", username),
					slog.Any("error", delErr),
				)
			}
		}
	}()

	key, err := c.invoker.GenerateKeyPair(ctx, c.config.UserKeyBits)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	csr, err := c.invoker.CreateCSR(ctx, key, subject)
	if err != nil {
		return nil, err
	}

	sealedKey, err := c.cipher.SealWithMaster(key, master)
	if err != nil {
		return nil, err
	}

	identity = &caDomain.Identity{
		Username:    username,
		Subject:     subject,
		RequesterID: input.RequesterID,
		SealedKey:   sealedKey,
		CSR:         csr,
		CreatedAt:   time.Now().UTC(),
	}
	if err := c.identityStore.Save(ctx, identity); err != nil {
		return nil, err
	}

	c.logger.Info("user credential requested", slog.String("username", username))
	return identity, nil
}

// SignUserCSR signs the pending CSR. The CA key is unsealed into memory for the duration of
// the call and zeroed before returning.
func (c *caUseCase) SignUserCSR(
	ctx context.Context,
	username string,
	master *cryptoDomain.MasterSecret,
) ([]byte, error) {
	username, err := caDomain.SanitizeUsername(username)
	if err != nil {
		return nil, err
	}

	identity, err := c.identityStore.Load(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(identity.CSR) == 0 {
		return nil, caDomain.ErrCSRNotFound
	}
	if len(identity.Certificate) > 0 {
		return nil, caDomain.ErrCertificateAlreadyIssued
	}

	ca, err := c.loadCA(ctx)
	if err != nil {
		return nil, err
	}

	caKey, err := c.cipher.UnsealWithMaster(ca.Blob, master)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(caKey)

	cert, err := c.invoker.SignCSR(ctx, identity.CSR, ca.Certificate, caKey, c.config.UserCertValidityDays)
	if err != nil {
		return nil, err
	}

	if err := c.identityStore.SaveCertificate(ctx, username, cert); err != nil {
		return nil, err
	}

	c.logger.Info("user certificate issued", slog.String("username", username))
	c.notifyIssued(ctx, identity)

	return cert, nil
}

// ExportCredentialBundle bundles the identity's key and certificate with the CA certificate.
// Once the password is acceptable and the key unseals, the identity is removed whether or not
// the export succeeds.
func (c *caUseCase) ExportCredentialBundle(
	ctx context.Context,
	username, exportPassword string,
	master *cryptoDomain.MasterSecret,
) ([]byte, error) {
	username, err := caDomain.SanitizeUsername(username)
	if err != nil {
		return nil, err
	}
	if err := pkiDomain.ValidatePassword(exportPassword); err != nil {
		return nil, err
	}

	identity, err := c.identityStore.Load(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(identity.Certificate) == 0 {
		return nil, caDomain.ErrCertificateNotFound
	}

	ca, err := c.loadCA(ctx)
	if err != nil {
		return nil, err
	}

	key, err := c.cipher.UnsealWithMaster(identity.SealedKey, master)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(key)

	defer func() {
		if delErr := c.identityStore.Delete(context.WithoutCancel(ctx), username); delErr != nil {
			c.logger.Error("failed to remove exported identity",
				slog.String("username", username),
				slog.Any("error", delErr),
			)
		}
	}()

	p12, err := c.invoker.ExportPKCS12(ctx, key, identity.Certificate, ca.Certificate, exportPassword)
	if err != nil {
		return nil, err
	}

	c.logger.Info("user credential exported", slog.String("username", username))
	return p12, nil
}

// VerifyAgainstCA checks cert against the CA certificate.
func (c *caUseCase) VerifyAgainstCA(ctx context.Context, cert []byte) error {
	ca, err := c.loadCA(ctx)
	if err != nil {
		return err
	}

	valid, err := c.invoker.VerifyCert(ctx, cert, ca.Certificate)
	if err != nil {
		return err
	}
	if !valid {
		return caDomain.ErrNotTrusted
	}
	return nil
}

// GetCAInfo reads the CA certificate details.
func (c *caUseCase) GetCAInfo(ctx context.Context) (*caDomain.CAInfo, error) {
	ca, err := c.loadCA(ctx)
	if err != nil {
		return nil, err
	}

	info, err := c.invoker.ReadCertInfo(ctx, ca.Certificate)
	if err != nil {
		return nil, err
	}

	return &caDomain.CAInfo{
		Subject:     info.Subject,
		Issuer:      info.Issuer,
		Serial:      info.Serial,
		NotBefore:   info.NotBefore,
		NotAfter:    info.NotAfter,
		Certificate: ca.Certificate,
	}, nil
}

// ListIdentities lists identities awaiting signing or export.
func (c *caUseCase) ListIdentities(ctx context.Context) ([]*caDomain.Identity, error) {
	return c.identityStore.List(ctx)
}

func (c *caUseCase) loadCA(ctx context.Context) (*custodyDomain.Record, error) {
	record, err := c.custodyRepo.GetSingleton(ctx, custodyDomain.KindCARootKey)
	if err != nil {
		if errors.Is(err, custodyDomain.ErrRecordNotFound) {
			return nil, caDomain.ErrCANotFound
		}
		return nil, err
	}
	return record, nil
}

func (c *caUseCase) notifyIssued(ctx context.Context, identity *caDomain.Identity) {
	if identity.RequesterID == uuid.Nil || c.notifier == nil {
		return
	}

	event := notificationDomain.NewEvent(
		identity.RequesterID,
		notificationDomain.EventCertificateIssued,
		"Certificate issued",
		fmt.Sprintf("The certificate for %s has been issued and is ready for export.", identity.Username),
		map[string]string{"username": identity.Username},
	)
	if err := c.notifier.Notify(ctx, event); err != nil {
		c.logger.Warn("failed to notify certificate issuance",
			slog.String("username", identity.Username),
			slog.Any("error", err),
		)
	}
}

// NewCAUseCase creates a new CAUseCase.
func NewCAUseCase(
	custodyRepo CustodyRepository,
	identityStore IdentityStore,
	invoker pkiService.Invoker,
	cipher cryptoService.EnvelopeCipher,
	notifier Notifier,
	config Config,
	logger *slog.Logger,
) CAUseCase {
	return &caUseCase{
		custodyRepo:   custodyRepo,
		identityStore: identityStore,
		invoker:       invoker,
		cipher:        cipher,
		notifier:      notifier,
		config:        config,
		logger:        logger,
	}
}
