package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
)

func newTestMaster(t *testing.T, fill byte) *cryptoDomain.MasterSecret {
	t.Helper()
	master, err := cryptoDomain.NewMasterSecret(cryptoDomain.DocumentMasterSecretName, bytes.Repeat([]byte{fill}, 32))
	require.NoError(t, err)
	return master
}

func TestDocumentKeyManager(t *testing.T) {
	cipher := NewPBKDF2AESGCMCipher(testIterations)
	manager := NewDocumentKeyService(cipher)
	signedPDF := []byte("%PDF-1.7\n... signed bytes ...")

	t.Run("Success_TwoLayerRoundTrip", func(t *testing.T) {
		master := newTestMaster(t, 3)

		sealed, err := manager.Wrap(signedPDF, master)
		require.NoError(t, err)
		require.NotNil(t, sealed.Payload)
		require.NotNil(t, sealed.Key)

		documentKey, err := cipher.UnsealWithMaster(sealed.Key, master)
		require.NoError(t, err)
		assert.Len(t, documentKey, cryptoDomain.KeySize)

		payload, err := cipher.Unseal(sealed.Payload, documentKey)
		require.NoError(t, err)
		assert.Equal(t, signedPDF, payload)

		unwrapped, err := manager.Unwrap(sealed, master)
		require.NoError(t, err)
		assert.Equal(t, signedPDF, unwrapped)
	})

	t.Run("Error_WrongMasterSecret", func(t *testing.T) {
		sealed, err := manager.Wrap(signedPDF, newTestMaster(t, 4))
		require.NoError(t, err)

		_, err = cipher.UnsealWithMaster(sealed.Key, newTestMaster(t, 5))
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)

		_, err = manager.Unwrap(sealed, newTestMaster(t, 5))
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})

	t.Run("Success_DistinctKeysPerDocument", func(t *testing.T) {
		master := newTestMaster(t, 6)

		a, err := manager.Wrap(signedPDF, master)
		require.NoError(t, err)
		b, err := manager.Wrap(signedPDF, master)
		require.NoError(t, err)

		keyA, err := cipher.UnsealWithMaster(a.Key, master)
		require.NoError(t, err)
		keyB, err := cipher.UnsealWithMaster(b.Key, master)
		require.NoError(t, err)
		assert.NotEqual(t, keyA, keyB)

		_, err = cipher.Unseal(a.Payload, keyB)
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})

	t.Run("Error_IncompleteEnvelope", func(t *testing.T) {
		_, err := manager.Unwrap(&cryptoDomain.SealedDocument{}, newTestMaster(t, 7))
		assert.ErrorIs(t, err, cryptoDomain.ErrAuthenticationFailed)
	})
}
