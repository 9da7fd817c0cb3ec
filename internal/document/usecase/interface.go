// Package usecase stores, lists and opens signed documents sealed with the two-layer
// document key scheme.
package usecase

import (
	"context"

	"github.com/google/uuid"

	custodyDomain "github.com/allisson/esign/internal/custody/domain"
	documentDomain "github.com/allisson/esign/internal/document/domain"
)

// CustodyRepository is the subset of the custody store used for signed documents.
type CustodyRepository interface {
	Put(ctx context.Context, record *custodyDomain.Record) (uuid.UUID, error)
	Get(ctx context.Context, kind custodyDomain.Kind, id uuid.UUID, ownerID *uuid.UUID) (*custodyDomain.Record, error)
	ListByOwner(
		ctx context.Context,
		kind custodyDomain.Kind,
		ownerID uuid.UUID,
		offset, limit int,
	) ([]*custodyDomain.Record, error)
	Delete(ctx context.Context, kind custodyDomain.Kind, id uuid.UUID, ownerID uuid.UUID) error
}

// DocumentUseCase manages signed documents.
type DocumentUseCase interface {
	// Store seals pdf under a fresh document key and stores it for ownerID.
	Store(ctx context.Context, ownerID uuid.UUID, fileName string, pdf []byte) (*documentDomain.Document, error)

	// Open decrypts a signed document. A nil ownerID skips the owner check; callers that pass
	// nil must have authorized access themselves.
	Open(ctx context.Context, id uuid.UUID, ownerID *uuid.UUID) (*documentDomain.Content, error)

	// List returns the owner's signed documents.
	List(ctx context.Context, ownerID uuid.UUID, offset, limit int) ([]*documentDomain.Document, error)

	// Delete removes a signed document.
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
}
