package service

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkiDomain "github.com/allisson/esign/internal/pki/domain"
)

func newRealInvoker(t *testing.T) (*OpenSSLInvoker, string) {
	t.Helper()
	if _, err := exec.LookPath("openssl"); err != nil {
		t.Skip("openssl not found in PATH")
	}
	workDir := t.TempDir()
	return NewOpenSSLInvoker(Config{WorkDir: workDir, Timeout: time.Minute}, nil, discardLogger()), workDir
}

type testCA struct {
	key  []byte
	cert []byte
}

func newTestCA(t *testing.T, invoker *OpenSSLInvoker, cn string) testCA {
	t.Helper()
	ctx := context.Background()

	key, err := invoker.GenerateKeyPair(ctx, 2048)
	require.NoError(t, err)

	subject, err := pkiDomain.NewSubjectFields(pkiDomain.SubjectFields{
		CommonName:         cn,
		Country:            "EC",
		State:              "Esmeraldas",
		Locality:           "Esmeraldas",
		Organization:       "PUCESE",
		OrganizationalUnit: "IT",
	})
	require.NoError(t, err)

	cert, err := invoker.CreateSelfSignedCert(ctx, key, subject, 30)
	require.NoError(t, err)
	return testCA{key: key, cert: cert}
}

func TestOpenSSLInvoker_IssuanceChain(t *testing.T) {
	invoker, workDir := newRealInvoker(t)
	ctx := context.Background()

	ca := newTestCA(t, invoker, "PUCESE")
	assert.Contains(t, string(ca.key), "PRIVATE KEY")
	assert.Contains(t, string(ca.cert), "BEGIN CERTIFICATE")

	userKey, err := invoker.GenerateKeyPair(ctx, 2048)
	require.NoError(t, err)

	subject, err := pkiDomain.NewSubjectFields(pkiDomain.SubjectFields{
		CommonName:   "ana_perez",
		Country:      "EC",
		State:        "Esmeraldas",
		Locality:     "Esmeraldas",
		Organization: "PUCESE",
		Email:        "ana@pucese.edu.ec",
	})
	require.NoError(t, err)

	csr, err := invoker.CreateCSR(ctx, userKey, subject)
	require.NoError(t, err)
	assert.Contains(t, string(csr), "CERTIFICATE REQUEST")

	userCert, err := invoker.SignCSR(ctx, csr, ca.cert, ca.key, 365)
	require.NoError(t, err)

	valid, err := invoker.VerifyCert(ctx, userCert, ca.cert)
	require.NoError(t, err)
	assert.True(t, valid)

	other := newTestCA(t, invoker, "Other CA")
	valid, err = invoker.VerifyCert(ctx, userCert, other.cert)
	require.NoError(t, err)
	assert.False(t, valid)

	fields, err := invoker.ReadCertFields(ctx, userCert)
	require.NoError(t, err)
	assert.Equal(t, "ana_perez", fields.CommonName)
	assert.Equal(t, "EC", fields.Country)
	assert.Equal(t, "ana@pucese.edu.ec", fields.Email)

	info, err := invoker.ReadCertInfo(ctx, userCert)
	require.NoError(t, err)
	assert.Contains(t, info.Subject, "CN=ana_perez")
	assert.Contains(t, info.Issuer, "CN=PUCESE")
	assert.True(t, info.ValidAt(time.Now()))
	assert.NotEmpty(t, info.Serial)

	p12, err := invoker.ExportPKCS12(ctx, userKey, userCert, ca.cert, "Secret123!")
	require.NoError(t, err)

	extracted, err := invoker.ExtractCertFromPKCS12(ctx, p12, "Secret123!")
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(string(userCert)), extractPEM(string(extracted)))

	_, err = invoker.ExtractCertFromPKCS12(ctx, p12, "wrong")
	assert.ErrorIs(t, err, pkiDomain.ErrToolFailed)

	assertWorkDirEmpty(t, workDir)
}

func TestOpenSSLInvoker_SignCSRWithWrongKey(t *testing.T) {
	invoker, _ := newRealInvoker(t)
	ctx := context.Background()

	ca := newTestCA(t, invoker, "PUCESE")
	other := newTestCA(t, invoker, "Other")

	userKey, err := invoker.GenerateKeyPair(ctx, 2048)
	require.NoError(t, err)
	csr, err := invoker.CreateCSR(ctx, userKey, pkiDomain.SubjectFields{CommonName: "bob"})
	require.NoError(t, err)

	_, err = invoker.SignCSR(ctx, csr, ca.cert, other.key, 365)
	assert.ErrorIs(t, err, pkiDomain.ErrToolFailed)
}

func TestOpenSSLInvoker_VerifyCertIgnoresSystemTrustStore(t *testing.T) {
	invoker, workDir := newRealInvoker(t)
	ctx := context.Background()

	roots, _ := filepath.Glob("/etc/ssl/certs/*.pem")
	if len(roots) == 0 {
		t.Skip("no system roots under /etc/ssl/certs")
	}
	systemRoot, err := os.ReadFile(roots[0])
	require.NoError(t, err)

	ca := newTestCA(t, invoker, "PUCESE")

	t.Run("Error_SystemRootNotIssuedByCA", func(t *testing.T) {
		valid, err := invoker.VerifyCert(ctx, systemRoot, ca.cert)
		require.NoError(t, err)
		assert.False(t, valid)
	})

	t.Run("Success_CASelfVerifies", func(t *testing.T) {
		valid, err := invoker.VerifyCert(ctx, ca.cert, ca.cert)
		require.NoError(t, err)
		assert.True(t, valid)
	})

	assertWorkDirEmpty(t, workDir)
}

// extractPEM strips the bag attributes openssl prints before the certificate block.
func extractPEM(out string) string {
	if i := strings.Index(out, "-----BEGIN CERTIFICATE-----"); i >= 0 {
		out = out[i:]
	}
	return strings.TrimSpace(out)
}
