package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	"github.com/allisson/esign/internal/metrics"
)

// caUseCaseWithMetrics decorates CAUseCase with metrics instrumentation.
type caUseCaseWithMetrics struct {
	next    CAUseCase
	metrics metrics.BusinessMetrics
}

// NewCAUseCaseWithMetrics wraps a CAUseCase with metrics recording.
func NewCAUseCaseWithMetrics(useCase CAUseCase, m metrics.BusinessMetrics) CAUseCase {
	return &caUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *caUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, c.metrics, "ca", operation, start, err)
}

// BootstrapCA records metrics for CA bootstrap.
func (c *caUseCaseWithMetrics) BootstrapCA(
	ctx context.Context,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateAuthority, error) {
	start := time.Now()
	ca, err := c.next.BootstrapCA(ctx, master)
	c.record(ctx, "ca_bootstrap", start, err)
	return ca, err
}

// IssueUserCredential records metrics for key pair and CSR creation.
func (c *caUseCaseWithMetrics) IssueUserCredential(
	ctx context.Context,
	input *caDomain.IssueInput,
	master *cryptoDomain.MasterSecret,
) (*caDomain.Identity, error) {
	start := time.Now()
	identity, err := c.next.IssueUserCredential(ctx, input, master)
	c.record(ctx, "credential_issue", start, err)
	return identity, err
}

// SignUserCSR records metrics for CSR signing.
func (c *caUseCaseWithMetrics) SignUserCSR(
	ctx context.Context,
	username string,
	master *cryptoDomain.MasterSecret,
) ([]byte, error) {
	start := time.Now()
	cert, err := c.next.SignUserCSR(ctx, username, master)
	c.record(ctx, "csr_sign", start, err)
	return cert, err
}

// ExportCredentialBundle records metrics for PKCS#12 export.
func (c *caUseCaseWithMetrics) ExportCredentialBundle(
	ctx context.Context,
	username, exportPassword string,
	master *cryptoDomain.MasterSecret,
) ([]byte, error) {
	start := time.Now()
	p12, err := c.next.ExportCredentialBundle(ctx, username, exportPassword, master)
	c.record(ctx, "credential_export", start, err)
	return p12, err
}

// VerifyAgainstCA records metrics for certificate verification.
func (c *caUseCaseWithMetrics) VerifyAgainstCA(ctx context.Context, cert []byte) error {
	start := time.Now()
	err := c.next.VerifyAgainstCA(ctx, cert)
	c.record(ctx, "cert_verify", start, err)
	return err
}

// GetCAInfo records metrics for CA info reads.
func (c *caUseCaseWithMetrics) GetCAInfo(ctx context.Context) (*caDomain.CAInfo, error) {
	start := time.Now()
	info, err := c.next.GetCAInfo(ctx)
	c.record(ctx, "ca_info", start, err)
	return info, err
}

// ListIdentities records metrics for identity listing.
func (c *caUseCaseWithMetrics) ListIdentities(ctx context.Context) ([]*caDomain.Identity, error) {
	start := time.Now()
	identities, err := c.next.ListIdentities(ctx)
	c.record(ctx, "identity_list", start, err)
	return identities, err
}

// certificateRequestUseCaseWithMetrics decorates CertificateRequestUseCase with metrics
// instrumentation.
type certificateRequestUseCaseWithMetrics struct {
	next    CertificateRequestUseCase
	metrics metrics.BusinessMetrics
}

// NewCertificateRequestUseCaseWithMetrics wraps a CertificateRequestUseCase with metrics recording.
func NewCertificateRequestUseCaseWithMetrics(
	useCase CertificateRequestUseCase,
	m metrics.BusinessMetrics,
) CertificateRequestUseCase {
	return &certificateRequestUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *certificateRequestUseCaseWithMetrics) record(
	ctx context.Context,
	operation string,
	start time.Time,
	err error,
) {
	metrics.Observe(ctx, c.metrics, "ca", operation, start, err)
}

// Submit records metrics for certificate request submission.
func (c *certificateRequestUseCaseWithMetrics) Submit(
	ctx context.Context,
	input *caDomain.SubmitInput,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateRequest, error) {
	start := time.Now()
	request, err := c.next.Submit(ctx, input, master)
	c.record(ctx, "certificate_request_submit", start, err)
	return request, err
}

// Approve records metrics for certificate request approval.
func (c *certificateRequestUseCaseWithMetrics) Approve(
	ctx context.Context,
	input *caDomain.ReviewInput,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateRequest, error) {
	start := time.Now()
	request, err := c.next.Approve(ctx, input, master)
	c.record(ctx, "certificate_request_approve", start, err)
	return request, err
}

// Reject records metrics for certificate request rejection.
func (c *certificateRequestUseCaseWithMetrics) Reject(
	ctx context.Context,
	input *caDomain.ReviewInput,
) (*caDomain.CertificateRequest, error) {
	start := time.Now()
	request, err := c.next.Reject(ctx, input)
	c.record(ctx, "certificate_request_reject", start, err)
	return request, err
}

// ListByStatus records metrics for review queue listing.
func (c *certificateRequestUseCaseWithMetrics) ListByStatus(
	ctx context.Context,
	status caDomain.RequestStatus,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	start := time.Now()
	requests, err := c.next.ListByStatus(ctx, status, offset, limit)
	c.record(ctx, "certificate_request_list", start, err)
	return requests, err
}

// ListMine records metrics for the caller's request listing.
func (c *certificateRequestUseCaseWithMetrics) ListMine(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	start := time.Now()
	requests, err := c.next.ListMine(ctx, userID, offset, limit)
	c.record(ctx, "certificate_request_list_mine", start, err)
	return requests, err
}
