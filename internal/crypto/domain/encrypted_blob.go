package domain

import (
	"encoding/hex"
	"fmt"
)

// EncryptedBlob is the output of one seal operation.
//
// The four fields are created together by EnvelopeCipher.Seal and must be persisted
// together. IV and salt are fresh random values for every seal and are never reused.
// Persisted form: Ciphertext as raw bytes, IV, Salt and AuthTag as lowercase hex.
type EncryptedBlob struct {
	Ciphertext []byte
	IV         []byte
	Salt       []byte
	AuthTag    []byte
}

// IVHex returns the lowercase hex form of the IV.
func (b *EncryptedBlob) IVHex() string {
	return hex.EncodeToString(b.IV)
}

// SaltHex returns the lowercase hex form of the salt.
func (b *EncryptedBlob) SaltHex() string {
	return hex.EncodeToString(b.Salt)
}

// AuthTagHex returns the lowercase hex form of the authentication tag.
func (b *EncryptedBlob) AuthTagHex() string {
	return hex.EncodeToString(b.AuthTag)
}

// Clone returns a deep copy.
func (b *EncryptedBlob) Clone() *EncryptedBlob {
	if b == nil {
		return nil
	}
	return &EncryptedBlob{
		Ciphertext: append([]byte(nil), b.Ciphertext...),
		IV:         append([]byte(nil), b.IV...),
		Salt:       append([]byte(nil), b.Salt...),
		AuthTag:    append([]byte(nil), b.AuthTag...),
	}
}

// NewEncryptedBlobFromHex rebuilds a blob from its persisted representation.
//
// Lengths are checked so a row with missing or truncated parameters is rejected at load
// time instead of producing a confusing decryption error later.
func NewEncryptedBlobFromHex(ciphertext []byte, ivHex, saltHex, authTagHex string) (*EncryptedBlob, error) {
	iv, err := decodeHexField("iv", ivHex, IVSize)
	if err != nil {
		return nil, err
	}
	salt, err := decodeHexField("salt", saltHex, SaltSize)
	if err != nil {
		return nil, err
	}
	tag, err := decodeHexField("auth_tag", authTagHex, TagSize)
	if err != nil {
		return nil, err
	}

	return &EncryptedBlob{
		Ciphertext: ciphertext,
		IV:         iv,
		Salt:       salt,
		AuthTag:    tag,
	}, nil
}

func decodeHexField(name, value string, size int) ([]byte, error) {
	decoded, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not hex", ErrInvalidBlobEncoding, name)
	}
	if len(decoded) != size {
		return nil, fmt.Errorf("%w: %s must be %d bytes, got %d", ErrInvalidBlobEncoding, name, size, len(decoded))
	}
	return decoded, nil
}
