// Package mocks provides mock implementations of the document use case for testing.
package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	documentDomain "github.com/allisson/esign/internal/document/domain"
)

// MockDocumentUseCase is a mock implementation of usecase.DocumentUseCase.
type MockDocumentUseCase struct {
	mock.Mock
}

// Store mocks the Store method.
func (m *MockDocumentUseCase) Store(
	ctx context.Context,
	ownerID uuid.UUID,
	fileName string,
	pdf []byte,
) (*documentDomain.Document, error) {
	args := m.Called(ctx, ownerID, fileName, pdf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documentDomain.Document), args.Error(1)
}

// Open mocks the Open method.
func (m *MockDocumentUseCase) Open(
	ctx context.Context,
	id uuid.UUID,
	ownerID *uuid.UUID,
) (*documentDomain.Content, error) {
	args := m.Called(ctx, id, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*documentDomain.Content), args.Error(1)
}

// List mocks the List method.
func (m *MockDocumentUseCase) List(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*documentDomain.Document, error) {
	args := m.Called(ctx, ownerID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*documentDomain.Document), args.Error(1)
}

// Delete mocks the Delete method.
func (m *MockDocumentUseCase) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	args := m.Called(ctx, ownerID, id)
	return args.Error(0)
}
