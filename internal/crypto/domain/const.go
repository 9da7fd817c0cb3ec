package domain

// Envelope format parameters.
//
// These values define the persisted format of every EncryptedBlob. Changing any of them
// makes existing records unreadable.
const (
	// SaltSize is the length of the random PBKDF2 salt generated per seal.
	SaltSize = 16

	// IVSize is the length of the AES-GCM nonce generated per seal. GCM is used with a
	// 16-byte nonce rather than the default 12 bytes so blobs stay compatible with the
	// format already stored in the database.
	IVSize = 16

	// TagSize is the length of the GCM authentication tag (128 bits).
	TagSize = 16

	// KeySize is the length of derived and random symmetric keys (AES-256).
	KeySize = 32

	// DefaultKDFIterations is the PBKDF2-SHA512 iteration count used when none is configured.
	DefaultKDFIterations = 100000

	// MinMasterSecretSize is the minimum accepted length of a decoded master secret.
	MinMasterSecretSize = 32
)
