package app

import (
	"context"
	"fmt"

	caRepository "github.com/allisson/esign/internal/ca/repository"
	caUseCase "github.com/allisson/esign/internal/ca/usecase"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	cryptoService "github.com/allisson/esign/internal/crypto/service"
	pkiService "github.com/allisson/esign/internal/pki/service"
)

// KMSService returns the KMS service used to decrypt KMS-wrapped master secrets.
func (c *Container) KMSService() cryptoDomain.KMSService {
	service, _ := resolve(c, "kmsService", func() (cryptoDomain.KMSService, error) {
		return cryptoService.NewKMSService(), nil
	})
	return service
}

// MasterSecrets returns the CA and document master secrets. They are destroyed on Shutdown.
func (c *Container) MasterSecrets() (*cryptoDomain.MasterSecrets, error) {
	return resolve(c, "masterSecrets", func() (*cryptoDomain.MasterSecrets, error) {
		secrets, err := cryptoDomain.LoadMasterSecrets(c.ctx, cryptoDomain.MasterSecretConfig{
			CASecret:       c.config.CAMasterSecret,
			DocumentSecret: c.config.DocumentMasterSecret,
			KMSKeyURI:      c.config.KMSKeyURI,
		}, c.KMSService(), c.Logger())
		if err != nil {
			return nil, fmt.Errorf("failed to load master secrets: %w", err)
		}
		c.onShutdown(func(context.Context) error {
			secrets.Destroy()
			return nil
		})
		return secrets, nil
	})
}

// EnvelopeCipher returns the password-based envelope cipher.
func (c *Container) EnvelopeCipher() cryptoService.EnvelopeCipher {
	cipher, _ := resolve(c, "envelopeCipher", func() (cryptoService.EnvelopeCipher, error) {
		return cryptoService.NewPBKDF2AESGCMCipher(c.config.KDFIterations), nil
	})
	return cipher
}

// DocumentKeyManager returns the manager wrapping per-document keys.
func (c *Container) DocumentKeyManager() cryptoService.DocumentKeyManager {
	manager, _ := resolve(c, "documentKeyManager", func() (cryptoService.DocumentKeyManager, error) {
		return cryptoService.NewDocumentKeyService(c.EnvelopeCipher()), nil
	})
	return manager
}

// PKIInvoker returns the X.509 toolchain invoker.
func (c *Container) PKIInvoker() pkiService.Invoker {
	invoker, _ := resolve(c, "pkiInvoker", func() (pkiService.Invoker, error) {
		return pkiService.NewOpenSSLInvoker(pkiService.Config{
			ToolPath: c.config.PKIToolPath,
			Timeout:  c.config.PKIToolTimeout,
			WorkDir:  c.config.PKIWorkDir,
		}, nil, c.Logger()), nil
	})
	return invoker
}

// IdentityStore returns the filesystem store holding pending user identities.
func (c *Container) IdentityStore() caUseCase.IdentityStore {
	store, _ := resolve(c, "identityStore", func() (caUseCase.IdentityStore, error) {
		return caRepository.NewFilesystemIdentityStore(c.config.CAIdentityDir), nil
	})
	return store
}
