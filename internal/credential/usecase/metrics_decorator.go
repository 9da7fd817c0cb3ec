package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	credentialDomain "github.com/allisson/esign/internal/credential/domain"
	"github.com/allisson/esign/internal/metrics"
)

// credentialUseCaseWithMetrics decorates CredentialUseCase with metrics instrumentation.
type credentialUseCaseWithMetrics struct {
	next    CredentialUseCase
	metrics metrics.BusinessMetrics
}

// NewCredentialUseCaseWithMetrics wraps a CredentialUseCase with metrics recording.
func NewCredentialUseCaseWithMetrics(useCase CredentialUseCase, m metrics.BusinessMetrics) CredentialUseCase {
	return &credentialUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (c *credentialUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, c.metrics, "credentials", operation, start, err)
}

func (c *credentialUseCaseWithMetrics) Upload(
	ctx context.Context,
	input *credentialDomain.UploadInput,
) (*credentialDomain.Credential, error) {
	start := time.Now()
	credential, err := c.next.Upload(ctx, input)
	c.record(ctx, "credential_upload", start, err)
	return credential, err
}

func (c *credentialUseCaseWithMetrics) List(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*credentialDomain.Credential, error) {
	start := time.Now()
	credentials, err := c.next.List(ctx, ownerID, offset, limit)
	c.record(ctx, "credential_list", start, err)
	return credentials, err
}

func (c *credentialUseCaseWithMetrics) Unlock(ctx context.Context, ownerID, id uuid.UUID, password string) error {
	start := time.Now()
	err := c.next.Unlock(ctx, ownerID, id, password)
	c.record(ctx, "credential_unlock", start, err)
	return err
}

func (c *credentialUseCaseWithMetrics) Download(
	ctx context.Context,
	ownerID, id uuid.UUID,
	password string,
) (*credentialDomain.Bundle, error) {
	start := time.Now()
	bundle, err := c.next.Download(ctx, ownerID, id, password)
	c.record(ctx, "credential_download", start, err)
	return bundle, err
}

func (c *credentialUseCaseWithMetrics) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	start := time.Now()
	err := c.next.Delete(ctx, ownerID, id)
	c.record(ctx, "credential_delete", start, err)
	return err
}

func (c *credentialUseCaseWithMetrics) Open(ctx context.Context, ownerID, id uuid.UUID, password string) ([]byte, error) {
	start := time.Now()
	bundle, err := c.next.Open(ctx, ownerID, id, password)
	c.record(ctx, "credential_open", start, err)
	return bundle, err
}
