package service

import (
	"crypto/rand"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
)

// DocumentKeyService seals documents under random per-document keys that are themselves
// sealed under the document master secret.
type DocumentKeyService struct {
	cipher EnvelopeCipher
	random io.Reader
}

// NewDocumentKeyService creates a DocumentKeyService.
func NewDocumentKeyService(cipher EnvelopeCipher) *DocumentKeyService {
	return &DocumentKeyService{
		cipher: cipher,
		random: rand.Reader,
	}
}

// Wrap implements DocumentKeyManager.
func (s *DocumentKeyService) Wrap(
	payload []byte,
	master *cryptoDomain.MasterSecret,
) (*cryptoDomain.SealedDocument, error) {
	documentKey := make([]byte, cryptoDomain.KeySize)
	defer cryptoDomain.Zero(documentKey)

	if _, err := io.ReadFull(s.random, documentKey); err != nil {
		return nil, fmt.Errorf("failed to generate document key: %w", err)
	}

	payloadBlob, err := s.cipher.Seal(payload, documentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to seal document payload: %w", err)
	}

	keyBlob, err := s.cipher.SealWithMaster(documentKey, master)
	if err != nil {
		return nil, fmt.Errorf("failed to seal document key: %w", err)
	}

	return &cryptoDomain.SealedDocument{
		Payload: payloadBlob,
		Key:     keyBlob,
	}, nil
}

// Unwrap implements DocumentKeyManager.
func (s *DocumentKeyService) Unwrap(
	sealed *cryptoDomain.SealedDocument,
	master *cryptoDomain.MasterSecret,
) ([]byte, error) {
	if sealed == nil || sealed.Key == nil || sealed.Payload == nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	documentKey, err := s.cipher.UnsealWithMaster(sealed.Key, master)
	if err != nil {
		return nil, err
	}
	defer cryptoDomain.Zero(documentKey)

	if len(documentKey) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	return s.cipher.Unseal(sealed.Payload, documentKey)
}
