package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	documentDomain "github.com/allisson/esign/internal/document/domain"
	"github.com/allisson/esign/internal/metrics"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
)

// signingUseCaseWithMetrics decorates SigningUseCase with metrics instrumentation.
type signingUseCaseWithMetrics struct {
	next    SigningUseCase
	metrics metrics.BusinessMetrics
}

// NewSigningUseCaseWithMetrics wraps a SigningUseCase with metrics recording.
func NewSigningUseCaseWithMetrics(useCase SigningUseCase, m metrics.BusinessMetrics) SigningUseCase {
	return &signingUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *signingUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	metrics.Observe(ctx, s.metrics, "signing", operation, start, err)
}

func (s *signingUseCaseWithMetrics) Send(ctx context.Context, input SendInput) (*signingDomain.SigningRequest, error) {
	start := time.Now()
	request, err := s.next.Send(ctx, input)
	s.record(ctx, "signing_send", start, err)
	return request, err
}

func (s *signingUseCaseWithMetrics) Get(ctx context.Context, id, userID uuid.UUID) (*signingDomain.SigningRequest, error) {
	start := time.Now()
	request, err := s.next.Get(ctx, id, userID)
	s.record(ctx, "signing_get", start, err)
	return request, err
}

func (s *signingUseCaseWithMetrics) ListReceived(
	ctx context.Context,
	recipientID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	start := time.Now()
	requests, err := s.next.ListReceived(ctx, recipientID, offset, limit)
	s.record(ctx, "signing_list_received", start, err)
	return requests, err
}

func (s *signingUseCaseWithMetrics) ListSent(
	ctx context.Context,
	senderID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	start := time.Now()
	requests, err := s.next.ListSent(ctx, senderID, offset, limit)
	s.record(ctx, "signing_list_sent", start, err)
	return requests, err
}

func (s *signingUseCaseWithMetrics) SourceDocument(
	ctx context.Context,
	id, recipientID uuid.UUID,
) (*documentDomain.Content, error) {
	start := time.Now()
	content, err := s.next.SourceDocument(ctx, id, recipientID)
	s.record(ctx, "signing_source", start, err)
	return content, err
}

func (s *signingUseCaseWithMetrics) Sign(ctx context.Context, input SignInput) (*SignResult, error) {
	start := time.Now()
	result, err := s.next.Sign(ctx, input)
	s.record(ctx, "signing_sign", start, err)
	return result, err
}

func (s *signingUseCaseWithMetrics) Reject(ctx context.Context, input RejectInput) (*signingDomain.SigningRequest, error) {
	start := time.Now()
	request, err := s.next.Reject(ctx, input)
	s.record(ctx, "signing_reject", start, err)
	return request, err
}

func (s *signingUseCaseWithMetrics) Delete(ctx context.Context, id, senderID uuid.UUID) error {
	start := time.Now()
	err := s.next.Delete(ctx, id, senderID)
	s.record(ctx, "signing_delete", start, err)
	return err
}

func (s *signingUseCaseWithMetrics) DownloadSigned(
	ctx context.Context,
	id, userID uuid.UUID,
) (*documentDomain.Content, error) {
	start := time.Now()
	content, err := s.next.DownloadSigned(ctx, id, userID)
	s.record(ctx, "signing_download", start, err)
	return content, err
}

func (s *signingUseCaseWithMetrics) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	count, err := s.next.ExpireStale(ctx, now)
	s.record(ctx, "signing_expire", start, err)
	return count, err
}

func (s *signingUseCaseWithMetrics) ProcessReminders(ctx context.Context, now time.Time) (int, error) {
	start := time.Now()
	count, err := s.next.ProcessReminders(ctx, now)
	s.record(ctx, "signing_reminders", start, err)
	return count, err
}
