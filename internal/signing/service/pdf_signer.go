// Package service provides the client for the external PDF signing service.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	apperrors "github.com/allisson/esign/internal/errors"
	"github.com/allisson/esign/internal/scratch"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
)

const (
	signPath        = "/sign-pdf"
	pdfMagic        = "%PDF-"
	maxResponseSize = 100 << 20

	defaultMaxElapsed = 90 * time.Second
)

// PDFSigner applies a digital signature to a PDF with a PKCS#12 credential.
type PDFSigner interface {
	Sign(ctx context.Context, pdf, p12 []byte, password string) ([]byte, error)
}

// SignerConfig configures HTTPPDFSigner.
type SignerConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    int
	RetryInterval time.Duration
	// MaxElapsed caps the whole call, including attempts in flight and the waits between them.
	MaxElapsed time.Duration
	// ScratchRoot is where the inputs are staged before upload; os.TempDir when empty.
	ScratchRoot string
}

// HTTPPDFSigner posts documents to the signing service's /sign-pdf endpoint as multipart
// form data with the fields pdf, p12 and password.
type HTTPPDFSigner struct {
	config SignerConfig
	client *http.Client
	logger *slog.Logger
}

// NewHTTPPDFSigner creates a new HTTPPDFSigner.
func NewHTTPPDFSigner(config SignerConfig, logger *slog.Logger) *HTTPPDFSigner {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = 500 * time.Millisecond
	}
	if config.MaxElapsed <= 0 {
		config.MaxElapsed = defaultMaxElapsed
	}
	return &HTTPPDFSigner{
		config: config,
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Sign returns the signed PDF. Transport failures and 5xx responses are retried; any
// other non-2xx status or a body that is not a PDF fails with ErrSigningFailed.
func (s *HTTPPDFSigner) Sign(ctx context.Context, pdf, p12 []byte, password string) ([]byte, error) {
	workspace, err := scratch.New(s.config.ScratchRoot, "sign")
	if err != nil {
		return nil, apperrors.Wrap(signingDomain.ErrSigningFailed, err.Error())
	}
	defer func() {
		if err := workspace.Close(); err != nil {
			s.logger.Error("failed to remove signing workspace", slog.Any("error", err))
		}
	}()

	pdfPath, err := workspace.WriteFile("document.pdf", pdf)
	if err != nil {
		return nil, apperrors.Wrap(signingDomain.ErrSigningFailed, err.Error())
	}
	p12Path, err := workspace.WriteFile("cert.p12", p12)
	if err != nil {
		return nil, apperrors.Wrap(signingDomain.ErrSigningFailed, err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.MaxElapsed)
	defer cancel()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.config.RetryInterval

	attempt := 0
	signed, err := backoff.Retry(ctx, func() ([]byte, error) {
		attempt++
		return s.post(ctx, pdfPath, p12Path, password)
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(s.config.MaxRetries)),
		backoff.WithMaxElapsedTime(s.config.MaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("retrying document signing",
				slog.Int("attempt", attempt),
				slog.Duration("next", next),
				slog.Any("error", err),
			)
		}),
	)
	if err != nil {
		if errors.Is(err, signingDomain.ErrSigningFailed) {
			return nil, err
		}
		return nil, apperrors.Wrap(signingDomain.ErrSigningFailed, err.Error())
	}
	return signed, nil
}

func (s *HTTPPDFSigner) post(ctx context.Context, pdfPath, p12Path, password string) ([]byte, error) {
	body, contentType, err := buildForm(pdfPath, p12Path, password)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	defer cryptoDomain.Zero(body.Bytes())

	url := strings.TrimRight(s.config.BaseURL, "/") + signPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/pdf")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(ctx.Err())
		}
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, apperrors.Wrapf(signingDomain.ErrSigningFailed, "signer responded with status %d", resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, backoff.Permanent(
			apperrors.Wrapf(signingDomain.ErrSigningFailed, "signer responded with status %d", resp.StatusCode),
		)
	case len(data) > maxResponseSize:
		return nil, backoff.Permanent(apperrors.Wrap(signingDomain.ErrSigningFailed, "signed document is too large"))
	case !bytes.HasPrefix(data, []byte(pdfMagic)):
		return nil, backoff.Permanent(apperrors.Wrap(signingDomain.ErrSigningFailed, "signer did not return a PDF"))
	}
	return data, nil
}

// buildForm reads the staged files into a multipart body.
func buildForm(pdfPath, p12Path, password string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	files := []struct {
		field, name, path string
	}{
		{"pdf", "document.pdf", pdfPath},
		{"p12", "cert.p12", p12Path},
	}
	for _, f := range files {
		if err := copyFile(writer, f.field, f.name, f.path); err != nil {
			return nil, "", err
		}
	}
	if err := writer.WriteField("password", password); err != nil {
		return nil, "", fmt.Errorf("failed to write password field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart body: %w", err)
	}
	return body, writer.FormDataContentType(), nil
}

func copyFile(writer *multipart.Writer, field, name, path string) error {
	part, err := writer.CreateFormFile(field, name)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	file, err := os.Open(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to open staged %s: %w", field, err)
	}
	defer func() {
		_ = file.Close()
	}()
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy staged %s: %w", field, err)
	}
	return nil
}
