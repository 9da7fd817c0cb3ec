package domain

import (
	"github.com/allisson/esign/internal/errors"
)

// Cryptographic operation error definitions.
//
// These domain-specific errors wrap standard errors from internal/errors so the HTTP layer
// can map them without knowing about cryptography.
var (
	// ErrAuthenticationFailed indicates the authentication tag did not verify.
	//
	// This is the only signal that distinguishes a wrong password or secret from other
	// failures: a wrong secret, a tampered ciphertext, tag, IV or salt, and a truncated blob
	// all end here. The specific cause is not disclosed.
	//
	// HTTP Status: 401 Unauthorized
	ErrAuthenticationFailed = errors.Wrap(errors.ErrUnauthorized, "authentication failed")

	// ErrInvalidKeySize indicates a raw key of the wrong length.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrEmptySecret indicates an empty password or secret was supplied to seal or unseal.
	//
	// HTTP Status: 422 Unprocessable Entity
	ErrEmptySecret = errors.Wrap(errors.ErrInvalidInput, "secret must not be empty")

	// ErrInvalidBlobEncoding indicates persisted hex fields could not be decoded.
	ErrInvalidBlobEncoding = errors.Wrap(errors.ErrInvalidInput, "invalid encrypted blob encoding")

	// ErrMasterSecretNotSet indicates a required master secret is missing from the environment.
	ErrMasterSecretNotSet = errors.New("master secret not set")

	// ErrInvalidMasterSecret indicates a master secret that is not valid base64 or too short.
	ErrInvalidMasterSecret = errors.New("invalid master secret")

	// ErrMasterSecretsNotDistinct indicates the CA and document master secrets are equal.
	// Compromise of one must not expose the other.
	ErrMasterSecretsNotDistinct = errors.New("master secrets must be distinct")

	// ErrMasterSecretDestroyed indicates use of a master secret after Destroy.
	ErrMasterSecretDestroyed = errors.New("master secret destroyed")
)
