package service

import (
	"bufio"
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	pkiDomain "github.com/allisson/esign/internal/pki/domain"
	"github.com/allisson/esign/internal/scratch"
)

const (
	defaultToolPath = "openssl"
	defaultTimeout  = 30 * time.Second

	minKeyBits = 2048
	maxKeyBits = 8192

	// certTimeLayout is the notBefore/notAfter format printed by "x509 -dates".
	certTimeLayout = "Jan _2 15:04:05 2006 MST"
)

// Config configures OpenSSLInvoker.
type Config struct {
	// ToolPath is the openssl binary, resolved through PATH when not absolute.
	ToolPath string
	// Timeout bounds every single invocation.
	Timeout time.Duration
	// WorkDir is the root for scratch workspaces (os.TempDir when empty).
	WorkDir string
}

// OpenSSLInvoker implements Invoker with the openssl command line tool.
type OpenSSLInvoker struct {
	runner   Runner
	toolPath string
	timeout  time.Duration
	workDir  string
	logger   *slog.Logger
}

// NewOpenSSLInvoker creates an OpenSSLInvoker. A nil runner uses ExecRunner.
func NewOpenSSLInvoker(cfg Config, runner Runner, logger *slog.Logger) *OpenSSLInvoker {
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.ToolPath == "" {
		cfg.ToolPath = defaultToolPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &OpenSSLInvoker{
		runner:   runner,
		toolPath: cfg.ToolPath,
		timeout:  cfg.Timeout,
		workDir:  cfg.WorkDir,
		logger:   logger,
	}
}

// WorkDir returns the scratch root used by this invoker.
func (o *OpenSSLInvoker) WorkDir() string {
	return o.workDir
}

// GenerateKeyPair runs "genrsa".
func (o *OpenSSLInvoker) GenerateKeyPair(ctx context.Context, bits int) ([]byte, error) {
	if bits < minKeyBits || bits > maxKeyBits || bits%1024 != 0 {
		return nil, fmt.Errorf("%w: %d", pkiDomain.ErrInvalidKeySize, bits)
	}

	var key []byte
	err := o.withWorkspace(ctx, "genrsa", func(ctx context.Context, ws *scratch.Workspace) error {
		if _, err := o.run(ctx, ws, "generate_key", "genrsa", "-out", "key.pem", strconv.Itoa(bits)); err != nil {
			return err
		}
		var err error
		key, err = readOutput(ws, "generate_key", "key.pem")
		return err
	})
	return key, err
}

// CreateSelfSignedCert runs "req -x509 -new".
func (o *OpenSSLInvoker) CreateSelfSignedCert(
	ctx context.Context,
	key []byte,
	subject pkiDomain.SubjectFields,
	days int,
) ([]byte, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}

	var cert []byte
	err := o.withWorkspace(ctx, "rootcert", func(ctx context.Context, ws *scratch.Workspace) error {
		if _, err := ws.WriteFile("key.pem", key); err != nil {
			return err
		}
		_, err := o.run(ctx, ws, "create_root_cert",
			"req", "-x509", "-new",
			"-key", "key.pem",
			"-sha256",
			"-days", strconv.Itoa(days),
			"-out", "cert.pem",
			"-subj", subject.Subject(),
		)
		if err != nil {
			return err
		}
		cert, err = readOutput(ws, "create_root_cert", "cert.pem")
		return err
	})
	return cert, err
}

// CreateCSR runs "req -new".
func (o *OpenSSLInvoker) CreateCSR(ctx context.Context, key []byte, subject pkiDomain.SubjectFields) ([]byte, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}

	var csr []byte
	err := o.withWorkspace(ctx, "csr", func(ctx context.Context, ws *scratch.Workspace) error {
		if _, err := ws.WriteFile("key.pem", key); err != nil {
			return err
		}
		_, err := o.run(ctx, ws, "create_csr",
			"req", "-new",
			"-key", "key.pem",
			"-out", "request.csr",
			"-subj", subject.Subject(),
		)
		if err != nil {
			return err
		}
		csr, err = readOutput(ws, "create_csr", "request.csr")
		return err
	})
	return csr, err
}

// SignCSR runs "x509 -req" with a random 127-bit serial so no serial file is kept.
func (o *OpenSSLInvoker) SignCSR(ctx context.Context, csr, caCert, caKey []byte, days int) ([]byte, error) {
	serial, err := randomSerial()
	if err != nil {
		return nil, err
	}

	var cert []byte
	err = o.withWorkspace(ctx, "signcsr", func(ctx context.Context, ws *scratch.Workspace) error {
		if err := writeInputs(ws, map[string][]byte{
			"request.csr": csr,
			"ca.pem":      caCert,
			"ca.key":      caKey,
		}); err != nil {
			return err
		}
		_, err := o.run(ctx, ws, "sign_csr",
			"x509", "-req",
			"-in", "request.csr",
			"-CA", "ca.pem",
			"-CAkey", "ca.key",
			"-set_serial", serial,
			"-out", "cert.pem",
			"-days", strconv.Itoa(days),
			"-sha256",
		)
		if err != nil {
			return err
		}
		cert, err = readOutput(ws, "sign_csr", "cert.pem")
		return err
	})
	return cert, err
}

// VerifyCert runs "verify -CAfile" with the default trust stores disabled, so caCert is
// the only anchor. The certificate is valid only when the tool exits 0 and prints ": OK".
func (o *OpenSSLInvoker) VerifyCert(ctx context.Context, cert, caCert []byte) (bool, error) {
	var valid bool
	err := o.withWorkspace(ctx, "verify", func(ctx context.Context, ws *scratch.Workspace) error {
		if err := writeInputs(ws, map[string][]byte{"cert.pem": cert, "ca.pem": caCert}); err != nil {
			return err
		}
		result, err := o.runAllowFailure(ctx, ws, "verify", "verify", "-no-CApath", "-no-CAstore", "-CAfile", "ca.pem", "cert.pem")
		if err != nil {
			return err
		}
		valid = result.ExitCode == 0 && bytes.Contains(result.Stdout, []byte(": OK"))
		return nil
	})
	return valid, err
}

// ExportPKCS12 runs "pkcs12 -export". The password is handed over in a file, never on argv.
func (o *OpenSSLInvoker) ExportPKCS12(ctx context.Context, key, cert, caCert []byte, password string) ([]byte, error) {
	if err := pkiDomain.ValidatePassword(password); err != nil {
		return nil, err
	}

	var p12 []byte
	err := o.withWorkspace(ctx, "p12export", func(ctx context.Context, ws *scratch.Workspace) error {
		if err := writeInputs(ws, map[string][]byte{
			"key.pem":  key,
			"cert.pem": cert,
			"ca.pem":   caCert,
			"pass.txt": []byte(password),
		}); err != nil {
			return err
		}
		_, err := o.run(ctx, ws, "export_pkcs12",
			"pkcs12", "-export",
			"-out", "bundle.p12",
			"-inkey", "key.pem",
			"-in", "cert.pem",
			"-certfile", "ca.pem",
			"-passout", "file:pass.txt",
		)
		if err != nil {
			return err
		}
		p12, err = readOutput(ws, "export_pkcs12", "bundle.p12")
		return err
	})
	return p12, err
}

// ExtractCertFromPKCS12 runs "pkcs12 -clcerts -nokeys". A wrong password surfaces as a ToolError.
func (o *OpenSSLInvoker) ExtractCertFromPKCS12(ctx context.Context, p12 []byte, password string) ([]byte, error) {
	if err := pkiDomain.ValidatePassword(password); err != nil {
		return nil, err
	}

	var cert []byte
	err := o.withWorkspace(ctx, "p12extract", func(ctx context.Context, ws *scratch.Workspace) error {
		if err := writeInputs(ws, map[string][]byte{"bundle.p12": p12, "pass.txt": []byte(password)}); err != nil {
			return err
		}
		_, err := o.run(ctx, ws, "extract_cert",
			"pkcs12",
			"-in", "bundle.p12",
			"-clcerts", "-nokeys",
			"-out", "cert.pem",
			"-passin", "file:pass.txt",
		)
		if err != nil {
			return err
		}
		cert, err = readOutput(ws, "extract_cert", "cert.pem")
		if err == nil && !bytes.Contains(cert, []byte("BEGIN CERTIFICATE")) {
			return pkiDomain.NewToolError("extract_cert", 0, []byte("bundle holds no client certificate"))
		}
		return err
	})
	return cert, err
}

// ReadCertFields runs "x509 -subject -nameopt multiline,utf8".
func (o *OpenSSLInvoker) ReadCertFields(ctx context.Context, cert []byte) (*pkiDomain.CertFields, error) {
	var fields *pkiDomain.CertFields
	err := o.withWorkspace(ctx, "certfields", func(ctx context.Context, ws *scratch.Workspace) error {
		if _, err := ws.WriteFile("cert.pem", cert); err != nil {
			return err
		}
		result, err := o.run(ctx, ws, "read_cert_fields",
			"x509", "-in", "cert.pem", "-noout", "-subject", "-nameopt", "multiline,utf8",
		)
		if err != nil {
			return err
		}
		fields = parseCertFields(result.Stdout)
		return nil
	})
	return fields, err
}

// ReadCertInfo runs "x509 -subject -issuer -serial -startdate -enddate".
func (o *OpenSSLInvoker) ReadCertInfo(ctx context.Context, cert []byte) (*pkiDomain.CertInfo, error) {
	var info *pkiDomain.CertInfo
	err := o.withWorkspace(ctx, "certinfo", func(ctx context.Context, ws *scratch.Workspace) error {
		if _, err := ws.WriteFile("cert.pem", cert); err != nil {
			return err
		}
		result, err := o.run(ctx, ws, "read_cert_info",
			"x509", "-in", "cert.pem", "-noout",
			"-subject", "-issuer", "-serial", "-startdate", "-enddate",
			"-nameopt", "RFC2253",
		)
		if err != nil {
			return err
		}
		info, err = parseCertInfo(result.Stdout)
		if err != nil {
			return pkiDomain.NewToolError("read_cert_info", 0, []byte(err.Error()))
		}
		return nil
	})
	return info, err
}

// withWorkspace runs fn inside a fresh workspace bounded by the invocation timeout. The
// workspace is wiped on every return path.
func (o *OpenSSLInvoker) withWorkspace(
	ctx context.Context,
	label string,
	fn func(ctx context.Context, ws *scratch.Workspace) error,
) error {
	ws, err := scratch.New(o.workDir, label)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := ws.Close(); closeErr != nil {
			o.logger.Warn("failed to wipe pki workspace", slog.String("op", label), slog.Any("error", closeErr))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	return fn(ctx, ws)
}

// run executes the tool and turns a non-zero exit into a ToolError.
func (o *OpenSSLInvoker) run(ctx context.Context, ws *scratch.Workspace, op string, args ...string) (*Result, error) {
	result, err := o.runAllowFailure(ctx, ws, op, args...)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, pkiDomain.NewToolError(op, result.ExitCode, result.Stderr)
	}
	return result, nil
}

// runAllowFailure executes the tool, reporting timeouts and start failures as errors and
// leaving exit codes to the caller.
func (o *OpenSSLInvoker) runAllowFailure(
	ctx context.Context,
	ws *scratch.Workspace,
	op string,
	args ...string,
) (*Result, error) {
	start := time.Now()
	result, err := o.runner.Run(ctx, ws.Dir(), o.toolPath, args...)

	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			o.logger.Warn("pki tool timed out", slog.String("op", op), slog.Duration("timeout", o.timeout))
			return nil, fmt.Errorf("%s: %w", op, pkiDomain.ErrToolTimeout)
		}
		return nil, ctxErr
	}
	if err != nil {
		var stderr []byte
		if result != nil {
			stderr = result.Stderr
		}
		return nil, pkiDomain.NewToolError(op, -1, append(stderr, []byte(err.Error())...))
	}

	o.logger.Debug("pki tool finished",
		slog.String("op", op),
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func writeInputs(ws *scratch.Workspace, files map[string][]byte) error {
	for name, data := range files {
		if _, err := ws.WriteFile(name, data); err != nil {
			return err
		}
	}
	return nil
}

func readOutput(ws *scratch.Workspace, op, name string) ([]byte, error) {
	data, err := ws.ReadFile(name)
	if err != nil || len(data) == 0 {
		return nil, pkiDomain.NewToolError(op, 0, []byte("missing output "+name))
	}
	return data, nil
}

// randomSerial returns a positive 127-bit serial as 0x-prefixed hex.
func randomSerial() (string, error) {
	serial := make([]byte, 16)
	if _, err := rand.Read(serial); err != nil {
		return "", fmt.Errorf("failed to generate certificate serial: %w", err)
	}
	serial[0] &= 0x7f
	serial[0] |= 0x01 << 6
	return "0x" + hex.EncodeToString(serial), nil
}

var certFieldKeys = map[string]func(*pkiDomain.CertFields, string){
	"commonName":             func(f *pkiDomain.CertFields, v string) { f.CommonName = v },
	"organizationName":       func(f *pkiDomain.CertFields, v string) { f.Organization = v },
	"organizationalUnitName": func(f *pkiDomain.CertFields, v string) { f.OrganizationalUnit = v },
	"countryName":            func(f *pkiDomain.CertFields, v string) { f.Country = v },
	"stateOrProvinceName":    func(f *pkiDomain.CertFields, v string) { f.State = v },
	"localityName":           func(f *pkiDomain.CertFields, v string) { f.Locality = v },
	"emailAddress":           func(f *pkiDomain.CertFields, v string) { f.Email = v },
}

// parseCertFields reads the "key = value" lines of a multiline subject dump.
func parseCertFields(out []byte) *pkiDomain.CertFields {
	fields := &pkiDomain.CertFields{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		if set, known := certFieldKeys[strings.TrimSpace(key)]; known {
			set(fields, strings.TrimSpace(value))
		}
	}
	return fields
}

// parseCertInfo reads the "name=value" lines printed by x509 -subject -issuer -serial -dates.
func parseCertInfo(out []byte) (*pkiDomain.CertInfo, error) {
	info := &pkiDomain.CertInfo{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		var err error
		switch strings.TrimSpace(key) {
		case "subject":
			info.Subject = value
		case "issuer":
			info.Issuer = value
		case "serial":
			info.Serial = strings.ToLower(value)
		case "notBefore":
			info.NotBefore, err = time.Parse(certTimeLayout, value)
		case "notAfter":
			info.NotAfter, err = time.Parse(certTimeLayout, value)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", key, err)
		}
	}

	if info.Subject == "" || info.NotAfter.IsZero() {
		return nil, errors.New("incomplete certificate information")
	}
	return info, nil
}
