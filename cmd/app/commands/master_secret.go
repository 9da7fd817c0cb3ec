package commands

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
)

// kmsEncrypter is implemented by keepers able to wrap new secrets.
type kmsEncrypter interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
}

// RunCreateMasterSecret generates the CA and document master secrets and prints them as
// environment variables. With a KMS key URI both secrets are printed as KMS ciphertexts.
// Plaintext secrets are zeroed after encoding.
func RunCreateMasterSecret(
	ctx context.Context,
	kmsService cryptoDomain.KMSService,
	kmsKeyURI string,
	writer io.Writer,
) error {
	caSecret := make([]byte, cryptoDomain.MinMasterSecretSize)
	documentSecret := make([]byte, cryptoDomain.MinMasterSecretSize)
	defer cryptoDomain.ZeroAll(caSecret, documentSecret)

	for _, secret := range [][]byte{caSecret, documentSecret} {
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate master secret: %w", err)
		}
	}

	encode := func(secret []byte) ([]byte, error) { return secret, nil }
	if kmsKeyURI != "" {
		keeper, err := kmsService.OpenKeeper(ctx, kmsKeyURI)
		if err != nil {
			return fmt.Errorf("failed to open KMS keeper: %w", err)
		}
		defer func() {
			if closeErr := keeper.Close(); closeErr != nil {
				_, _ = fmt.Fprintf(writer, "# Warning: failed to close KMS keeper: %v\n", closeErr)
			}
		}()

		encrypter, ok := keeper.(kmsEncrypter)
		if !ok {
			return fmt.Errorf("KMS keeper does not support encryption")
		}
		encode = func(secret []byte) ([]byte, error) {
			ciphertext, err := encrypter.Encrypt(ctx, secret)
			if err != nil {
				return nil, fmt.Errorf("failed to encrypt master secret with KMS: %w", err)
			}
			return ciphertext, nil
		}
	}

	encodedCA, err := encode(caSecret)
	if err != nil {
		return err
	}
	encodedDocument, err := encode(documentSecret)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintln(writer, "# Master secret configuration")
	_, _ = fmt.Fprintln(writer, "# Copy these environment variables to your .env file or secrets manager")
	if kmsKeyURI != "" {
		_, _ = fmt.Fprintf(writer, "KMS_KEY_URI=%q\n", kmsKeyURI)
	}
	_, _ = fmt.Fprintf(writer, "CA_MASTER_SECRET=%q\n", base64.StdEncoding.EncodeToString(encodedCA))
	_, _ = fmt.Fprintf(writer, "DOCUMENT_MASTER_SECRET=%q\n", base64.StdEncoding.EncodeToString(encodedDocument))
	return nil
}
