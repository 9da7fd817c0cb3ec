package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
)

// MockCertificateRequestUseCase is a mock implementation of usecase.CertificateRequestUseCase.
type MockCertificateRequestUseCase struct {
	mock.Mock
}

func requestOrNil(args mock.Arguments) *caDomain.CertificateRequest {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*caDomain.CertificateRequest)
}

func requestsOrNil(args mock.Arguments) []*caDomain.CertificateRequest {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*caDomain.CertificateRequest)
}

// Submit mocks the Submit method.
func (m *MockCertificateRequestUseCase) Submit(
	ctx context.Context,
	input *caDomain.SubmitInput,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateRequest, error) {
	args := m.Called(ctx, input, master)
	return requestOrNil(args), args.Error(1)
}

// Approve mocks the Approve method.
func (m *MockCertificateRequestUseCase) Approve(
	ctx context.Context,
	input *caDomain.ReviewInput,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateRequest, error) {
	args := m.Called(ctx, input, master)
	return requestOrNil(args), args.Error(1)
}

// Reject mocks the Reject method.
func (m *MockCertificateRequestUseCase) Reject(
	ctx context.Context,
	input *caDomain.ReviewInput,
) (*caDomain.CertificateRequest, error) {
	args := m.Called(ctx, input)
	return requestOrNil(args), args.Error(1)
}

// ListByStatus mocks the ListByStatus method.
func (m *MockCertificateRequestUseCase) ListByStatus(
	ctx context.Context,
	status caDomain.RequestStatus,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	args := m.Called(ctx, status, offset, limit)
	return requestsOrNil(args), args.Error(1)
}

// ListMine mocks the ListMine method.
func (m *MockCertificateRequestUseCase) ListMine(
	ctx context.Context,
	userID uuid.UUID,
	offset, limit int,
) ([]*caDomain.CertificateRequest, error) {
	args := m.Called(ctx, userID, offset, limit)
	return requestsOrNil(args), args.Error(1)
}
