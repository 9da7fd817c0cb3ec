package commands

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
)

type MockKMSService struct {
	mock.Mock
}

func (m *MockKMSService) OpenKeeper(ctx context.Context, uri string) (cryptoDomain.KMSKeeper, error) {
	args := m.Called(ctx, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(cryptoDomain.KMSKeeper), args.Error(1)
}

type MockKMSKeeper struct {
	mock.Mock
}

func (m *MockKMSKeeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	args := m.Called(ctx, plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	args := m.Called(ctx, ciphertext)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKMSKeeper) Close() error {
	return m.Called().Error(0)
}

// decryptOnlyKeeper cannot wrap new secrets.
type decryptOnlyKeeper struct{}

func (decryptOnlyKeeper) Decrypt(context.Context, []byte) ([]byte, error) { return nil, nil }
func (decryptOnlyKeeper) Close() error { return nil }

var envLine = regexp.MustCompile(`(?m)^([A-Z_]+)="([^"]*)"$`)

func parseEnv(out string) map[string]string {
	values := map[string]string{}
	for _, match := range envLine.FindAllStringSubmatch(out, -1) {
		values[match[1]] = match[2]
	}
	return values
}

func TestRunCreateMasterSecret(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Plaintext", func(t *testing.T) {
		var out bytes.Buffer
		err := RunCreateMasterSecret(ctx, nil, "", &out)
		require.NoError(t, err)

		env := parseEnv(out.String())
		caSecret, err := base64.StdEncoding.DecodeString(env["CA_MASTER_SECRET"])
		require.NoError(t, err)
		documentSecret, err := base64.StdEncoding.DecodeString(env["DOCUMENT_MASTER_SECRET"])
		require.NoError(t, err)

		assert.Len(t, caSecret, cryptoDomain.MinMasterSecretSize)
		assert.Len(t, documentSecret, cryptoDomain.MinMasterSecretSize)
		assert.NotEqual(t, caSecret, documentSecret)
		assert.NotContains(t, env, "KMS_KEY_URI")
	})

	t.Run("Success_KMS", func(t *testing.T) {
		service := &MockKMSService{}
		keeper := &MockKMSKeeper{}
		service.On("OpenKeeper", ctx, "base64key://test").Return(keeper, nil)
		keeper.On("Encrypt", ctx, mock.AnythingOfType("[]uint8")).Return([]byte("wrapped"), nil).Twice()
		keeper.On("Close").Return(nil)

		var out bytes.Buffer
		err := RunCreateMasterSecret(ctx, service, "base64key://test", &out)
		require.NoError(t, err)

		env := parseEnv(out.String())
		wrapped := base64.StdEncoding.EncodeToString([]byte("wrapped"))
		assert.Equal(t, "base64key://test", env["KMS_KEY_URI"])
		assert.Equal(t, wrapped, env["CA_MASTER_SECRET"])
		assert.Equal(t, wrapped, env["DOCUMENT_MASTER_SECRET"])
		service.AssertExpectations(t)
		keeper.AssertExpectations(t)
	})

	t.Run("Error_OpenKeeper", func(t *testing.T) {
		service := &MockKMSService{}
		service.On("OpenKeeper", ctx, "bad://uri").Return(nil, errors.New("unknown scheme"))

		err := RunCreateMasterSecret(ctx, service, "bad://uri", &bytes.Buffer{})
		assert.ErrorContains(t, err, "failed to open KMS keeper")
	})

	t.Run("Error_Encrypt", func(t *testing.T) {
		service := &MockKMSService{}
		keeper := &MockKMSKeeper{}
		service.On("OpenKeeper", ctx, "base64key://test").Return(keeper, nil)
		keeper.On("Encrypt", ctx, mock.Anything).Return(nil, errors.New("denied"))
		keeper.On("Close").Return(nil)

		var out bytes.Buffer
		err := RunCreateMasterSecret(ctx, service, "base64key://test", &out)
		assert.ErrorContains(t, err, "failed to encrypt master secret with KMS")
		assert.NotContains(t, out.String(), "CA_MASTER_SECRET")
	})

	t.Run("Error_KeeperCannotEncrypt", func(t *testing.T) {
		service := &MockKMSService{}
		service.On("OpenKeeper", ctx, "base64key://test").Return(decryptOnlyKeeper{}, nil)

		err := RunCreateMasterSecret(ctx, service, "base64key://test", &bytes.Buffer{})
		assert.ErrorContains(t, err, "does not support encryption")
	})
}
