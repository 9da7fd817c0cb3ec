package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	documentDomain "github.com/allisson/esign/internal/document/domain"
	"github.com/allisson/esign/internal/metrics"
)

// documentUseCaseWithMetrics decorates DocumentUseCase with metrics instrumentation.
type documentUseCaseWithMetrics struct {
	next    DocumentUseCase
	metrics metrics.BusinessMetrics
}

// NewDocumentUseCaseWithMetrics wraps a DocumentUseCase with metrics recording.
func NewDocumentUseCaseWithMetrics(useCase DocumentUseCase, m metrics.BusinessMetrics) DocumentUseCase {
	return &documentUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (d *documentUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, d.metrics, "documents", operation, start, err)
}

func (d *documentUseCaseWithMetrics) Store(
	ctx context.Context,
	ownerID uuid.UUID,
	fileName string,
	pdf []byte,
) (*documentDomain.Document, error) {
	start := time.Now()
	doc, err := d.next.Store(ctx, ownerID, fileName, pdf)
	d.record(ctx, "document_store", start, err)
	return doc, err
}

func (d *documentUseCaseWithMetrics) Open(
	ctx context.Context,
	id uuid.UUID,
	ownerID *uuid.UUID,
) (*documentDomain.Content, error) {
	start := time.Now()
	content, err := d.next.Open(ctx, id, ownerID)
	d.record(ctx, "document_open", start, err)
	return content, err
}

func (d *documentUseCaseWithMetrics) List(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*documentDomain.Document, error) {
	start := time.Now()
	docs, err := d.next.List(ctx, ownerID, offset, limit)
	d.record(ctx, "document_list", start, err)
	return docs, err
}

func (d *documentUseCaseWithMetrics) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	start := time.Now()
	err := d.next.Delete(ctx, ownerID, id)
	d.record(ctx, "document_delete", start, err)
	return err
}
