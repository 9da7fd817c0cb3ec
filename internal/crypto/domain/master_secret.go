package domain

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"

	"github.com/awnumar/memguard"
)

// Master secret names.
const (
	// CAMasterSecretName protects the CA root key and pending user keys.
	CAMasterSecretName = "ca"
	// DocumentMasterSecretName protects per-document keys.
	DocumentMasterSecretName = "document"
)

// KMSKeeper decrypts KMS-wrapped master secrets.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// KMSService opens a KMSKeeper for a key URI.
type KMSService interface {
	OpenKeeper(ctx context.Context, keyURI string) (KMSKeeper, error)
}

// MasterSecret is a system-wide secret held in an encrypted memguard enclave.
//
// The plaintext exists only inside a locked buffer for the duration of a Use callback.
// There is no accessor returning the raw bytes, and the value never appears in String or
// log output.
type MasterSecret struct {
	name    string
	mu      sync.RWMutex
	enclave *memguard.Enclave
}

// NewMasterSecret seals secret into an enclave. The secret slice is wiped.
func NewMasterSecret(name string, secret []byte) (*MasterSecret, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrMasterSecretNotSet, name)
	}
	return &MasterSecret{
		name:    name,
		enclave: memguard.NewEnclave(secret),
	}, nil
}

// Name returns the secret's name ("ca" or "document").
func (m *MasterSecret) Name() string {
	return m.name
}

// String never reveals the value.
func (m *MasterSecret) String() string {
	return "MasterSecret(" + m.name + ")"
}

// LogValue implements slog.LogValuer.
func (m *MasterSecret) LogValue() slog.Value {
	return slog.StringValue(m.String())
}

// Use opens the secret for the duration of fn. fn must not retain the slice.
func (m *MasterSecret) Use(fn func(secret []byte) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.enclave == nil {
		return fmt.Errorf("%w: %s", ErrMasterSecretDestroyed, m.name)
	}

	buf, err := m.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open master secret %s: %w", m.name, err)
	}
	defer buf.Destroy()

	return fn(buf.Bytes())
}

// Equal reports whether both secrets hold the same value, in constant time.
func (m *MasterSecret) Equal(other *MasterSecret) (bool, error) {
	var equal bool
	err := m.Use(func(a []byte) error {
		return other.Use(func(b []byte) error {
			equal = subtle.ConstantTimeCompare(a, b) == 1
			return nil
		})
	})
	return equal, err
}

// Destroy drops the enclave. Later calls to Use fail with ErrMasterSecretDestroyed.
func (m *MasterSecret) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enclave = nil
}

// MasterSecrets groups the two independent system-wide secrets.
type MasterSecrets struct {
	CA       *MasterSecret
	Document *MasterSecret
}

// Destroy destroys both secrets.
func (s *MasterSecrets) Destroy() {
	if s == nil {
		return
	}
	if s.CA != nil {
		s.CA.Destroy()
	}
	if s.Document != nil {
		s.Document.Destroy()
	}
}

// MasterSecretConfig carries the encoded secrets as supplied by the environment.
type MasterSecretConfig struct {
	// CASecret is base64 (or base64 KMS ciphertext when KMSKeyURI is set).
	CASecret string
	// DocumentSecret is base64 (or base64 KMS ciphertext when KMSKeyURI is set).
	DocumentSecret string
	// KMSKeyURI selects KMS mode when non-empty.
	KMSKeyURI string
}

// LoadMasterSecrets decodes both master secrets, decrypting them through KMS when a key
// URI is configured, and checks that they are long enough and distinct.
func LoadMasterSecrets(
	ctx context.Context,
	cfg MasterSecretConfig,
	kms KMSService,
	logger *slog.Logger,
) (*MasterSecrets, error) {
	var keeper KMSKeeper
	if cfg.KMSKeyURI != "" {
		if kms == nil {
			return nil, fmt.Errorf("%w: KMS key URI set without a KMS service", ErrInvalidMasterSecret)
		}
		k, err := kms.OpenKeeper(ctx, cfg.KMSKeyURI)
		if err != nil {
			return nil, err
		}
		defer func() {
			if closeErr := k.Close(); closeErr != nil && logger != nil {
				logger.Warn("failed to close kms keeper", slog.Any("error", closeErr))
			}
		}()
		keeper = k
	}

	caSecret, err := decodeMasterSecret(ctx, CAMasterSecretName, cfg.CASecret, keeper)
	if err != nil {
		return nil, err
	}
	documentSecret, err := decodeMasterSecret(ctx, DocumentMasterSecretName, cfg.DocumentSecret, keeper)
	if err != nil {
		caSecret.Destroy()
		return nil, err
	}

	secrets := &MasterSecrets{CA: caSecret, Document: documentSecret}

	equal, err := caSecret.Equal(documentSecret)
	if err != nil {
		secrets.Destroy()
		return nil, err
	}
	if equal {
		secrets.Destroy()
		return nil, ErrMasterSecretsNotDistinct
	}

	if logger != nil {
		logger.Info("master secrets loaded", slog.Bool("kms", keeper != nil))
	}
	return secrets, nil
}

func decodeMasterSecret(ctx context.Context, name, encoded string, keeper KMSKeeper) (*MasterSecret, error) {
	if encoded == "" {
		return nil, fmt.Errorf("%w: %s", ErrMasterSecretNotSet, name)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64", ErrInvalidMasterSecret, name)
	}

	if keeper != nil {
		plaintext, err := keeper.Decrypt(ctx, raw)
		Zero(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt master secret %s with kms: %w", name, err)
		}
		raw = plaintext
	}

	if len(raw) < MinMasterSecretSize {
		Zero(raw)
		return nil, fmt.Errorf(
			"%w: %s must be at least %d bytes, got %d",
			ErrInvalidMasterSecret,
			name,
			MinMasterSecretSize,
			len(raw),
		)
	}

	return NewMasterSecret(name, raw)
}
