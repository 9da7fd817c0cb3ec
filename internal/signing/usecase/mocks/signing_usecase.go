// Package mocks provides mock implementations of the signing use case for testing.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	documentDomain "github.com/allisson/esign/internal/document/domain"
	signingDomain "github.com/allisson/esign/internal/signing/domain"
	signingUseCase "github.com/allisson/esign/internal/signing/usecase"
)

// MockSigningUseCase is a mock implementation of usecase.SigningUseCase.
type MockSigningUseCase struct {
	mock.Mock
}

func requestOrNil(args mock.Arguments) (*signingDomain.SigningRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signingDomain.SigningRequest), args.Error(1)
}

func requestsOrNil(args mock.Arguments) ([]*signingDomain.SigningRequest, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*signingDomain.SigningRequest), args.Error(1)
}

func contentOrNil(args mock.Arguments) (*documentDomain.Content, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documentDomain.Content), args.Error(1)
}

// Send mocks the Send method.
func (m *MockSigningUseCase) Send(
	ctx context.Context,
	input signingUseCase.SendInput,
) (*signingDomain.SigningRequest, error) {
	return requestOrNil(m.Called(ctx, input))
}

// Get mocks the Get method.
func (m *MockSigningUseCase) Get(ctx context.Context, id, userID uuid.UUID) (*signingDomain.SigningRequest, error) {
	return requestOrNil(m.Called(ctx, id, userID))
}

// ListReceived mocks the ListReceived method.
func (m *MockSigningUseCase) ListReceived(
	ctx context.Context,
	recipientID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	return requestsOrNil(m.Called(ctx, recipientID, offset, limit))
}

// ListSent mocks the ListSent method.
func (m *MockSigningUseCase) ListSent(
	ctx context.Context,
	senderID uuid.UUID,
	offset, limit int,
) ([]*signingDomain.SigningRequest, error) {
	return requestsOrNil(m.Called(ctx, senderID, offset, limit))
}

// SourceDocument mocks the SourceDocument method.
func (m *MockSigningUseCase) SourceDocument(
	ctx context.Context,
	id, recipientID uuid.UUID,
) (*documentDomain.Content, error) {
	return contentOrNil(m.Called(ctx, id, recipientID))
}

// Sign mocks the Sign method.
func (m *MockSigningUseCase) Sign(
	ctx context.Context,
	input signingUseCase.SignInput,
) (*signingUseCase.SignResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*signingUseCase.SignResult), args.Error(1)
}

// Reject mocks the Reject method.
func (m *MockSigningUseCase) Reject(
	ctx context.Context,
	input signingUseCase.RejectInput,
) (*signingDomain.SigningRequest, error) {
	return requestOrNil(m.Called(ctx, input))
}

// Delete mocks the Delete method.
func (m *MockSigningUseCase) Delete(ctx context.Context, id, senderID uuid.UUID) error {
	args := m.Called(ctx, id, senderID)
	return args.Error(0)
}

// DownloadSigned mocks the DownloadSigned method.
func (m *MockSigningUseCase) DownloadSigned(
	ctx context.Context,
	id, userID uuid.UUID,
) (*documentDomain.Content, error) {
	return contentOrNil(m.Called(ctx, id, userID))
}

// ExpireStale mocks the ExpireStale method.
func (m *MockSigningUseCase) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

// ProcessReminders mocks the ProcessReminders method.
func (m *MockSigningUseCase) ProcessReminders(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}
