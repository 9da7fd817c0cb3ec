// Package mocks provides mock implementations of the credential use case for testing.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	credentialDomain "github.com/allisson/esign/internal/credential/domain"
)

// MockCredentialUseCase is a mock implementation of usecase.CredentialUseCase.
type MockCredentialUseCase struct {
	mock.Mock
}

// Upload mocks the Upload method.
func (m *MockCredentialUseCase) Upload(
	ctx context.Context,
	input *credentialDomain.UploadInput,
) (*credentialDomain.Credential, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.Credential), args.Error(1)
}

// List mocks the List method.
func (m *MockCredentialUseCase) List(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*credentialDomain.Credential, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credentialDomain.Credential), args.Error(1)
}

// Unlock mocks the Unlock method.
func (m *MockCredentialUseCase) Unlock(ctx context.Context, ownerID, id uuid.UUID, password string) error {
	args := m.Called(ctx, ownerID, id, password)
	return args.Error(0)
}

// Download mocks the Download method.
func (m *MockCredentialUseCase) Download(
	ctx context.Context,
	ownerID, id uuid.UUID,
	password string,
) (*credentialDomain.Bundle, error) {
	args := m.Called(ctx, ownerID, id, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*credentialDomain.Bundle), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockCredentialUseCase) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}

// Open mocks the Open method.
func (m *MockCredentialUseCase) Open(ctx context.Context, ownerID, id uuid.UUID, password string) ([]byte, error) {
	args := m.Called(ctx, ownerID, id, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
