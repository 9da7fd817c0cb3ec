// Package service implements the envelope cipher, the two-layer document key scheme and
// KMS access used to unwrap master secrets.
package service

import (
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
)

// EnvelopeCipher seals byte payloads under a password or raw secret.
type EnvelopeCipher interface {
	// Seal derives a fresh key from secret and a random salt and encrypts plaintext.
	Seal(plaintext, secret []byte) (*cryptoDomain.EncryptedBlob, error)

	// Unseal reverses Seal. A wrong secret or any modification of the blob returns
	// cryptoDomain.ErrAuthenticationFailed.
	Unseal(blob *cryptoDomain.EncryptedBlob, secret []byte) ([]byte, error)

	// SealWithMaster seals plaintext under a master secret without exposing it.
	SealWithMaster(plaintext []byte, master *cryptoDomain.MasterSecret) (*cryptoDomain.EncryptedBlob, error)

	// UnsealWithMaster reverses SealWithMaster.
	UnsealWithMaster(blob *cryptoDomain.EncryptedBlob, master *cryptoDomain.MasterSecret) ([]byte, error)
}

// DocumentKeyManager implements the two-layer scheme for signed documents.
type DocumentKeyManager interface {
	// Wrap generates a random 256-bit document key, seals payload under it and seals the
	// key under master. The document key is zeroed before returning.
	Wrap(payload []byte, master *cryptoDomain.MasterSecret) (*cryptoDomain.SealedDocument, error)

	// Unwrap recovers the document key with master, then the payload with the key.
	Unwrap(sealed *cryptoDomain.SealedDocument, master *cryptoDomain.MasterSecret) ([]byte, error)
}
