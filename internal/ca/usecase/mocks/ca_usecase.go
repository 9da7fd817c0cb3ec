// Package mocks provides mock implementations of the CA use case for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	caDomain "github.com/allisson/esign/internal/ca/domain"
	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
)

// MockCAUseCase is a mock implementation of usecase.CAUseCase.
type MockCAUseCase struct {
	mock.Mock
}

func bytesOrNil(args mock.Arguments, i int) []byte {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).([]byte)
}

// BootstrapCA mocks the BootstrapCA method.
func (m *MockCAUseCase) BootstrapCA(
	ctx context.Context,
	master *cryptoDomain.MasterSecret,
) (*caDomain.CertificateAuthority, error) {
	args := m.Called(ctx, master)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*caDomain.CertificateAuthority), args.Error(1)
}

// IssueUserCredential mocks the IssueUserCredential method.
func (m *MockCAUseCase) IssueUserCredential(
	ctx context.Context,
	input *caDomain.IssueInput,
	master *cryptoDomain.MasterSecret,
) (*caDomain.Identity, error) {
	args := m.Called(ctx, input, master)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*caDomain.Identity), args.Error(1)
}

// SignUserCSR mocks the SignUserCSR method.
func (m *MockCAUseCase) SignUserCSR(
	ctx context.Context,
	username string,
	master *cryptoDomain.MasterSecret,
) ([]byte, error) {
	args := m.Called(ctx, username, master)
	return bytesOrNil(args, 0), args.Error(1)
}

// ExportCredentialBundle mocks the ExportCredentialBundle method.
func (m *MockCAUseCase) ExportCredentialBundle(
	ctx context.Context,
	username, exportPassword string,
	master *cryptoDomain.MasterSecret,
) ([]byte, error) {
	args := m.Called(ctx, username, exportPassword, master)
	return bytesOrNil(args, 0), args.Error(1)
}

// VerifyAgainstCA mocks the VerifyAgainstCA method.
func (m *MockCAUseCase) VerifyAgainstCA(ctx context.Context, cert []byte) error {
	args := m.Called(ctx, cert)
	return args.Error(0)
}

// GetCAInfo mocks the GetCAInfo method.
func (m *MockCAUseCase) GetCAInfo(ctx context.Context) (*caDomain.CAInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*caDomain.CAInfo), args.Error(1)
}

// ListIdentities mocks the ListIdentities method.
func (m *MockCAUseCase) ListIdentities(ctx context.Context) ([]*caDomain.Identity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*caDomain.Identity), args.Error(1)
}
