package domain

// SealedDocument is the two-layer envelope used for signed documents: Payload is sealed
// under a random per-document key, and Key is that document key sealed under the document
// master secret. Unwrapping always decrypts Key first.
type SealedDocument struct {
	Payload *EncryptedBlob
	Key     *EncryptedBlob
}
