// Package mocks provides mock implementations of the PKI invoker for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	pkiDomain "github.com/allisson/esign/internal/pki/domain"
)

// MockInvoker is a mock implementation of service.Invoker.
type MockInvoker struct {
	mock.Mock
}

func bytesOrNil(args mock.Arguments, i int) []byte {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).([]byte)
}

// GenerateKeyPair mocks the GenerateKeyPair method.
func (m *MockInvoker) GenerateKeyPair(ctx context.Context, bits int) ([]byte, error) {
	args := m.Called(ctx, bits)
	return bytesOrNil(args, 0), args.Error(1)
}

// CreateSelfSignedCert mocks the CreateSelfSignedCert method.
func (m *MockInvoker) CreateSelfSignedCert(
	ctx context.Context,
	key []byte,
	subject pkiDomain.SubjectFields,
	days int,
) ([]byte, error) {
	args := m.Called(ctx, key, subject, days)
	return bytesOrNil(args, 0), args.Error(1)
}

// CreateCSR mocks the CreateCSR method.
func (m *MockInvoker) CreateCSR(ctx context.Context, key []byte, subject pkiDomain.SubjectFields) ([]byte, error) {
	args := m.Called(ctx, key, subject)
	return bytesOrNil(args, 0), args.Error(1)
}

// SignCSR mocks the SignCSR method.
func (m *MockInvoker) SignCSR(ctx context.Context, csr, caCert, caKey []byte, days int) ([]byte, error) {
	args := m.Called(ctx, csr, caCert, caKey, days)
	return bytesOrNil(args, 0), args.Error(1)
}

// VerifyCert mocks the VerifyCert method.
func (m *MockInvoker) VerifyCert(ctx context.Context, cert, caCert []byte) (bool, error) {
	args := m.Called(ctx, cert, caCert)
	return args.Bool(0), args.Error(1)
}

// ExportPKCS12 mocks the ExportPKCS12 method.
func (m *MockInvoker) ExportPKCS12(ctx context.Context, key, cert, caCert []byte, password string) ([]byte, error) {
	args := m.Called(ctx, key, cert, caCert, password)
	return bytesOrNil(args, 0), args.Error(1)
}

// ExtractCertFromPKCS12 mocks the ExtractCertFromPKCS12 method.
func (m *MockInvoker) ExtractCertFromPKCS12(ctx context.Context, p12 []byte, password string) ([]byte, error) {
	args := m.Called(ctx, p12, password)
	return bytesOrNil(args, 0), args.Error(1)
}

// ReadCertFields mocks the ReadCertFields method.
func (m *MockInvoker) ReadCertFields(ctx context.Context, cert []byte) (*pkiDomain.CertFields, error) {
	args := m.Called(ctx, cert)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pkiDomain.CertFields), args.Error(1)
}

// ReadCertInfo mocks the ReadCertInfo method.
func (m *MockInvoker) ReadCertInfo(ctx context.Context, cert []byte) (*pkiDomain.CertInfo, error) {
	args := m.Called(ctx, cert)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pkiDomain.CertInfo), args.Error(1)
}
