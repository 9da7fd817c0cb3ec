package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	caMocks "github.com/allisson/esign/internal/ca/usecase/mocks"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	pkiDomain "github.com/allisson/esign/internal/pki/domain"
)

var testCert = []byte("-----BEGIN CERTIFICATE-----\nMIIB\n-----END CERTIFICATE-----\n")

func newTestMaster(t *testing.T) *cryptoDomain.MasterSecret {
	t.Helper()
	master, err := cryptoDomain.NewMasterSecret(cryptoDomain.CAMasterSecretName, bytes.Repeat([]byte{7}, 32))
	require.NoError(t, err)
	t.Cleanup(master.Destroy)
	return master
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunBootstrapCA(t *testing.T) {
	ctx := context.Background()
	master := newTestMaster(t)
	ca := &caDomain.CertificateAuthority{ID: uuid.New(), Certificate: testCert, CreatedAt: time.Now().UTC()}

	t.Run("Success_Text", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("BootstrapCA", ctx, master).Return(ca, nil)

		var out bytes.Buffer
		require.NoError(t, RunBootstrapCA(ctx, useCase, master, discardLogger(), &out, "text"))
		assert.Contains(t, out.String(), ca.ID.String())
		assert.Contains(t, out.String(), "BEGIN CERTIFICATE")
		useCase.AssertExpectations(t)
	})

	t.Run("Success_JSON", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("BootstrapCA", ctx, master).Return(ca, nil)

		var out bytes.Buffer
		require.NoError(t, RunBootstrapCA(ctx, useCase, master, discardLogger(), &out, "json"))

		var body map[string]any
		require.NoError(t, json.Unmarshal(out.Bytes(), &body))
		assert.Equal(t, ca.ID.String(), body["id"])
	})

	t.Run("Error_AlreadyExists", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("BootstrapCA", ctx, master).Return(nil, caDomain.ErrCAAlreadyExists)

		err := RunBootstrapCA(ctx, useCase, master, discardLogger(), &bytes.Buffer{}, "text")
		assert.ErrorIs(t, err, caDomain.ErrCAAlreadyExists)
	})

	t.Run("Error_InvalidFormat", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		err := RunBootstrapCA(ctx, useCase, master, discardLogger(), &bytes.Buffer{}, "yaml")
		assert.ErrorContains(t, err, "invalid format")
		useCase.AssertNotCalled(t, "BootstrapCA", mock.Anything, mock.Anything)
	})
}

func TestRunIssueCredential(t *testing.T) {
	ctx := context.Background()
	master := newTestMaster(t)
	subject := pkiDomain.SubjectFields{CommonName: "Alice", Country: "EC"}

	t.Run("Success", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("IssueUserCredential", ctx, mock.MatchedBy(func(input *caDomain.IssueInput) bool {
			return input.Username == "alice" && input.Subject == subject
		}), master).Return(&caDomain.Identity{Username: "alice", Subject: subject, CSR: []byte("csr")}, nil)

		var out bytes.Buffer
		require.NoError(t, RunIssueCredential(ctx, useCase, master, discardLogger(), &out, "alice", subject, "text"))
		assert.Contains(t, out.String(), "Identity alice created")
		useCase.AssertExpectations(t)
	})

	t.Run("Error_Duplicate", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("IssueUserCredential", ctx, mock.Anything, master).Return(nil, caDomain.ErrIdentityAlreadyExists)

		err := RunIssueCredential(ctx, useCase, master, discardLogger(), &bytes.Buffer{}, "alice", subject, "json")
		assert.ErrorIs(t, err, caDomain.ErrIdentityAlreadyExists)
	})
}

func TestRunSignCSR(t *testing.T) {
	ctx := context.Background()
	master := newTestMaster(t)

	t.Run("Success", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("SignUserCSR", ctx, "alice", master).Return(testCert, nil)

		var out bytes.Buffer
		require.NoError(t, RunSignCSR(ctx, useCase, master, discardLogger(), &out, "alice"))
		assert.Equal(t, testCert, out.Bytes())
	})

	t.Run("Error_NoCSR", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("SignUserCSR", ctx, "bob", master).Return(nil, caDomain.ErrIdentityNotFound)

		err := RunSignCSR(ctx, useCase, master, discardLogger(), &bytes.Buffer{}, "bob")
		assert.ErrorIs(t, err, caDomain.ErrIdentityNotFound)
	})
}

func TestRunExportCredential(t *testing.T) {
	ctx := context.Background()
	master := newTestMaster(t)

	t.Run("Success_PasswordFlag", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("ExportCredentialBundle", ctx, "alice", "Secret123!", master).Return([]byte("p12"), nil)

		path := filepath.Join(t.TempDir(), "alice.p12")
		var out bytes.Buffer
		err := RunExportCredential(ctx, useCase, master, discardLogger(),
			IOTuple{Reader: strings.NewReader(""), Writer: &out}, "alice", "Secret123!", path)
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("p12"), data)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		assert.Contains(t, out.String(), path)
	})

	t.Run("Success_PromptsForPassword", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("ExportCredentialBundle", ctx, "alice", "typed-pw", master).Return([]byte("p12"), nil)

		path := filepath.Join(t.TempDir(), "out.p12")
		var out bytes.Buffer
		err := RunExportCredential(ctx, useCase, master, discardLogger(),
			IOTuple{Reader: strings.NewReader("typed-pw\n"), Writer: &out}, "alice", "", path)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Export password: ")
		useCase.AssertExpectations(t)
	})

	t.Run("Error_EmptyPassword", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		err := RunExportCredential(ctx, useCase, master, discardLogger(),
			IOTuple{Reader: strings.NewReader("\n"), Writer: &bytes.Buffer{}}, "alice", "", "")
		assert.ErrorContains(t, err, "must not be empty")
		useCase.AssertNotCalled(t, "ExportCredentialBundle", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_NoCertificate", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("ExportCredentialBundle", ctx, "alice", "pw", master).Return(nil, caDomain.ErrCertificateNotFound)

		path := filepath.Join(t.TempDir(), "alice.p12")
		err := RunExportCredential(ctx, useCase, master, discardLogger(),
			IOTuple{Reader: strings.NewReader(""), Writer: &bytes.Buffer{}}, "alice", "pw", path)
		assert.ErrorIs(t, err, caDomain.ErrCertificateNotFound)
		assert.NoFileExists(t, path)
	})
}

func TestRunVerifyCert(t *testing.T) {
	ctx := context.Background()
	certPath := filepath.Join(t.TempDir(), "cert.pem")
	require.NoError(t, os.WriteFile(certPath, testCert, 0o600))

	t.Run("Success_Trusted", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("VerifyAgainstCA", ctx, testCert).Return(nil)

		var out bytes.Buffer
		require.NoError(t, RunVerifyCert(ctx, useCase, &out, certPath, "text"))
		assert.Equal(t, "Certificate is trusted\n", out.String())
	})

	t.Run("Error_NotTrustedReportsJSON", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("VerifyAgainstCA", ctx, testCert).Return(caDomain.ErrNotTrusted)

		var out bytes.Buffer
		err := RunVerifyCert(ctx, useCase, &out, certPath, "json")
		assert.ErrorIs(t, err, caDomain.ErrNotTrusted)
		assert.JSONEq(t, `{"trusted":false}`, out.String())
	})

	t.Run("Error_NoCA", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("VerifyAgainstCA", ctx, testCert).Return(caDomain.ErrCANotFound)

		var out bytes.Buffer
		err := RunVerifyCert(ctx, useCase, &out, certPath, "json")
		assert.ErrorIs(t, err, caDomain.ErrCANotFound)
		assert.Empty(t, out.String())
	})

	t.Run("Error_MissingFile", func(t *testing.T) {
		err := RunVerifyCert(ctx, &caMocks.MockCAUseCase{}, &bytes.Buffer{}, "/nonexistent/cert.pem", "text")
		assert.ErrorContains(t, err, "failed to read certificate")
	})
}

func TestRunCAInfo(t *testing.T) {
	ctx := context.Background()
	info := &caDomain.CAInfo{
		Subject:     "CN=PUCESE",
		Issuer:      "CN=PUCESE",
		Serial:      "01",
		NotBefore:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:    time.Date(2036, 1, 1, 0, 0, 0, 0, time.UTC),
		Certificate: testCert,
	}

	t.Run("Success_Text", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("GetCAInfo", ctx).Return(info, nil)

		var out bytes.Buffer
		require.NoError(t, RunCAInfo(ctx, useCase, &out, "text"))
		assert.Contains(t, out.String(), "Subject:    CN=PUCESE")
		assert.Contains(t, out.String(), "Not after:  2036-01-01 00:00:00")
	})

	t.Run("Error_NotBootstrapped", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("GetCAInfo", ctx).Return(nil, caDomain.ErrCANotFound)

		err := RunCAInfo(ctx, useCase, &bytes.Buffer{}, "json")
		assert.ErrorIs(t, err, caDomain.ErrCANotFound)
	})
}

func TestRunListIdentities(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_JSON", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("ListIdentities", ctx).Return([]*caDomain.Identity{
			{Username: "alice", Subject: pkiDomain.SubjectFields{CommonName: "Alice"}},
		}, nil)

		var out bytes.Buffer
		require.NoError(t, RunListIdentities(ctx, useCase, &out, "json"))

		var body struct {
			Data []map[string]any `json:"data"`
		}
		require.NoError(t, json.Unmarshal(out.Bytes(), &body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, "alice", body.Data[0]["username"])
	})

	t.Run("Error", func(t *testing.T) {
		useCase := &caMocks.MockCAUseCase{}
		useCase.On("ListIdentities", ctx).Return(nil, errors.New("disk"))

		err := RunListIdentities(ctx, useCase, &bytes.Buffer{}, "text")
		assert.ErrorContains(t, err, "failed to list identities")
	})
}
