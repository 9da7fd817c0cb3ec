package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/esign/internal/crypto/domain"
	cryptoService "github.com/allisson/esign/internal/crypto/service"
	custodyDomain "github.com/allisson/esign/internal/custody/domain"
	documentDomain "github.com/allisson/esign/internal/document/domain"
)

// documentUseCase implements DocumentUseCase.
type documentUseCase struct {
	custodyRepo CustodyRepository
	keyManager  cryptoService.DocumentKeyManager
	master      *cryptoDomain.MasterSecret
	logger      *slog.Logger
}

func (d *documentUseCase) Store(
	ctx context.Context,
	ownerID uuid.UUID,
	fileName string,
	pdf []byte,
) (*documentDomain.Document, error) {
	if len(pdf) == 0 {
		return nil, documentDomain.ErrEmptyDocument
	}

	sealed, err := d.keyManager.Wrap(pdf, d.master)
	if err != nil {
		return nil, err
	}

	record := &custodyDomain.Record{
		Kind:       custodyDomain.KindSignedDocument,
		OwnerID:    ownerID,
		FileName:   fileName,
		Blob:       sealed.Payload,
		WrappedKey: sealed.Key,
	}
	if _, err := d.custodyRepo.Put(ctx, record); err != nil {
		return nil, err
	}

	d.logger.Info("signed document stored",
		slog.String("document_id", record.ID.String()),
		slog.String("owner_id", ownerID.String()),
	)
	return documentDomain.FromRecord(record), nil
}

func (d *documentUseCase) Open(
	ctx context.Context,
	id uuid.UUID,
	ownerID *uuid.UUID,
) (*documentDomain.Content, error) {
	record, err := d.custodyRepo.Get(ctx, custodyDomain.KindSignedDocument, id, ownerID)
	if err != nil {
		if errors.Is(err, custodyDomain.ErrRecordNotFound) {
			return nil, documentDomain.ErrDocumentNotFound
		}
		return nil, err
	}

	pdf, err := d.keyManager.Unwrap(record.SealedDocument(), d.master)
	if err != nil {
		d.logger.Error("failed to open signed document",
			slog.String("document_id", id.String()),
			slog.Any("error", err),
		)
		return nil, err
	}
	return &documentDomain.Content{FileName: record.FileName, Data: pdf}, nil
}

func (d *documentUseCase) List(
	ctx context.Context,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*documentDomain.Document, error) {
	records, err := d.custodyRepo.ListByOwner(ctx, custodyDomain.KindSignedDocument, ownerID, offset, limit)
	if err != nil {
		return nil, err
	}

	documents := make([]*documentDomain.Document, 0, len(records))
	for _, record := range records {
		documents = append(documents, documentDomain.FromRecord(record))
	}
	return documents, nil
}

func (d *documentUseCase) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	err := d.custodyRepo.Delete(ctx, custodyDomain.KindSignedDocument, id, ownerID)
	if errors.Is(err, custodyDomain.ErrRecordNotFound) {
		return documentDomain.ErrDocumentNotFound
	}
	return err
}

// NewDocumentUseCase creates a new DocumentUseCase sealing under the document master secret.
func NewDocumentUseCase(
	custodyRepo CustodyRepository,
	keyManager cryptoService.DocumentKeyManager,
	master *cryptoDomain.MasterSecret,
	logger *slog.Logger,
) DocumentUseCase {
	return &documentUseCase{
		custodyRepo: custodyRepo,
		keyManager:  keyManager,
		master:      master,
		logger:      logger,
	}
}
