package domain

import (
	"github.com/allisson/esign/internal/errors"
)

// Certificate authority error definitions.
var (
	// ErrCAAlreadyExists indicates a bootstrap attempt while a CA root key exists.
	ErrCAAlreadyExists = errors.Wrap(errors.ErrConflict, "certificate authority already exists")

	// ErrCANotFound indicates the CA has not been bootstrapped.
	ErrCANotFound = errors.Wrap(errors.ErrNotFound, "certificate authority not found")

	// ErrIdentityAlreadyExists indicates a pending identity for the same username.
	ErrIdentityAlreadyExists = errors.Wrap(errors.ErrConflict, "identity already exists")

	// ErrIdentityNotFound indicates no pending identity for the username.
	ErrIdentityNotFound = errors.Wrap(errors.ErrNotFound, "identity not found")

	// ErrCSRNotFound indicates the identity has no certificate signing request.
	ErrCSRNotFound = errors.Wrap(errors.ErrNotFound, "certificate signing request not found")

	// ErrCertificateNotFound indicates the identity's CSR has not been signed yet.
	ErrCertificateNotFound = errors.Wrap(errors.ErrNotFound, "certificate not found")

	// ErrCertificateAlreadyIssued indicates the identity's CSR was already signed.
	ErrCertificateAlreadyIssued = errors.Wrap(errors.ErrConflict, "certificate already issued")

	// ErrNotTrusted indicates a certificate that does not chain to the CA.
	ErrNotTrusted = errors.Wrap(errors.ErrInvalidInput, "certificate not issued by this authority")

	// ErrInvalidUsername indicates a username with no usable characters.
	ErrInvalidUsername = errors.Wrap(errors.ErrInvalidInput, "invalid username")
)

// Certificate request error definitions.
var (
	// ErrCertificateRequestNotFound indicates the request does not exist or belongs to another user.
	ErrCertificateRequestNotFound = errors.Wrap(errors.ErrNotFound, "certificate request not found")

	// ErrCertificateRequestNotPending indicates the request was already approved or rejected.
	ErrCertificateRequestNotPending = errors.Wrap(errors.ErrInvalidState, "certificate request is no longer pending")

	// ErrCertificateRequestPending indicates the user already has a request awaiting review.
	ErrCertificateRequestPending = errors.Wrap(errors.ErrConflict, "a certificate request is already pending")

	// ErrInvalidRequestStatus indicates an unknown status filter.
	ErrInvalidRequestStatus = errors.Wrap(errors.ErrInvalidInput, "status must be pending, approved or rejected")
)
