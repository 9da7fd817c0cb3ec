package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha512"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
)

// PBKDF2AESGCMCipher derives a 256-bit key with PBKDF2-HMAC-SHA512 and encrypts with
// AES-256-GCM using a 16-byte nonce. The 16-byte tag is stored apart from the ciphertext.
type PBKDF2AESGCMCipher struct {
	iterations int
	random     io.Reader
}

// NewPBKDF2AESGCMCipher creates a cipher with the given PBKDF2 iteration count. Zero or a
// negative value selects cryptoDomain.DefaultKDFIterations.
func NewPBKDF2AESGCMCipher(iterations int) *PBKDF2AESGCMCipher {
	if iterations <= 0 {
		iterations = cryptoDomain.DefaultKDFIterations
	}
	return &PBKDF2AESGCMCipher{
		iterations: iterations,
		random:     rand.Reader,
	}
}

// Iterations returns the PBKDF2 iteration count.
func (c *PBKDF2AESGCMCipher) Iterations() int {
	return c.iterations
}

// Seal implements EnvelopeCipher.
func (c *PBKDF2AESGCMCipher) Seal(plaintext, secret []byte) (*cryptoDomain.EncryptedBlob, error) {
	if len(secret) == 0 {
		return nil, cryptoDomain.ErrEmptySecret
	}

	salt := make([]byte, cryptoDomain.SaltSize)
	if _, err := io.ReadFull(c.random, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	iv := make([]byte, cryptoDomain.IVSize)
	if _, err := io.ReadFull(c.random, iv); err != nil {
		return nil, fmt.Errorf("failed to generate iv: %w", err)
	}

	aead, err := c.newAEAD(secret, salt)
	if err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, iv, plaintext, nil)
	split := len(sealed) - cryptoDomain.TagSize

	return &cryptoDomain.EncryptedBlob{
		Ciphertext: sealed[:split:split],
		IV:         iv,
		Salt:       salt,
		AuthTag:    sealed[split:],
	}, nil
}

// Unseal implements EnvelopeCipher.
func (c *PBKDF2AESGCMCipher) Unseal(blob *cryptoDomain.EncryptedBlob, secret []byte) ([]byte, error) {
	if len(secret) == 0 {
		return nil, cryptoDomain.ErrEmptySecret
	}
	if blob == nil ||
		len(blob.IV) != cryptoDomain.IVSize ||
		len(blob.Salt) != cryptoDomain.SaltSize ||
		len(blob.AuthTag) != cryptoDomain.TagSize {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}

	aead, err := c.newAEAD(secret, blob.Salt)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(blob.Ciphertext)+cryptoDomain.TagSize)
	sealed = append(sealed, blob.Ciphertext...)
	sealed = append(sealed, blob.AuthTag...)

	plaintext, err := aead.Open(nil, blob.IV, sealed, nil)
	if err != nil {
		return nil, cryptoDomain.ErrAuthenticationFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// SealWithMaster implements EnvelopeCipher.
func (c *PBKDF2AESGCMCipher) SealWithMaster(
	plaintext []byte,
	master *cryptoDomain.MasterSecret,
) (*cryptoDomain.EncryptedBlob, error) {
	var blob *cryptoDomain.EncryptedBlob
	err := master.Use(func(secret []byte) error {
		var sealErr error
		blob, sealErr = c.Seal(plaintext, secret)
		return sealErr
	})
	return blob, err
}

// UnsealWithMaster implements EnvelopeCipher.
func (c *PBKDF2AESGCMCipher) UnsealWithMaster(
	blob *cryptoDomain.EncryptedBlob,
	master *cryptoDomain.MasterSecret,
) ([]byte, error) {
	var plaintext []byte
	err := master.Use(func(secret []byte) error {
		var unsealErr error
		plaintext, unsealErr = c.Unseal(blob, secret)
		return unsealErr
	})
	return plaintext, err
}

func (c *PBKDF2AESGCMCipher) newAEAD(secret, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(secret, salt, c.iterations, cryptoDomain.KeySize, sha512.New)
	defer cryptoDomain.Zero(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	aead, err := cipher.NewGCMWithNonceSize(block, cryptoDomain.IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aead, nil
}
