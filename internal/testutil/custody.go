package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	custodyDomain "github.com/allisson/esign/internal/custody/domain"
)

// MemoryCustody is an in-memory custody store with the same owner scoping and singleton
// rules as the SQL repositories.
type MemoryCustody struct {
	mu      sync.Mutex
	records map[uuid.UUID]*custodyDomain.Record
}

// NewMemoryCustody creates an empty MemoryCustody.
func NewMemoryCustody() *MemoryCustody {
	return &MemoryCustody{records: make(map[uuid.UUID]*custodyDomain.Record)}
}

// Put stores record, assigning its ID and creation time.
func (m *MemoryCustody) Put(_ context.Context, record *custodyDomain.Record) (uuid.UUID, error) {
	if err := record.Validate(); err != nil {
		return uuid.Nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if record.Kind.Singleton() {
		for _, existing := range m.records {
			if existing.Kind == record.Kind {
				return uuid.Nil, custodyDomain.ErrSingletonExists
			}
		}
	}

	record.ID = uuid.Must(uuid.NewV7())
	record.CreatedAt = time.Now().UTC()
	m.records[record.ID] = record
	return record.ID, nil
}

// Get returns a record, scoped to ownerID when non-nil.
func (m *MemoryCustody) Get(
	_ context.Context,
	kind custodyDomain.Kind,
	id uuid.UUID,
	ownerID *uuid.UUID,
) (*custodyDomain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok || record.Kind != kind || (ownerID != nil && record.OwnerID != *ownerID) {
		return nil, custodyDomain.ErrRecordNotFound
	}
	return record, nil
}

// GetSingleton returns the record of a singleton kind.
func (m *MemoryCustody) GetSingleton(_ context.Context, kind custodyDomain.Kind) (*custodyDomain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, record := range m.records {
		if record.Kind == kind {
			return record, nil
		}
	}
	return nil, custodyDomain.ErrRecordNotFound
}

// ListByOwner returns the owner's records of kind, newest first.
func (m *MemoryCustody) ListByOwner(
	_ context.Context,
	kind custodyDomain.Kind,
	ownerID uuid.UUID,
	offset, limit int,
) ([]*custodyDomain.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var records []*custodyDomain.Record
	for _, record := range m.records {
		if record.Kind == kind && record.OwnerID == ownerID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].ID.String() > records[j].ID.String()
	})

	if offset >= len(records) {
		return []*custodyDomain.Record{}, nil
	}
	records = records[offset:]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// Delete removes the owner's record.
func (m *MemoryCustody) Delete(_ context.Context, kind custodyDomain.Kind, id uuid.UUID, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[id]
	if !ok || record.Kind != kind || record.OwnerID != ownerID {
		return custodyDomain.ErrRecordNotFound
	}
	delete(m.records, id)
	return nil
}

// Len returns the number of stored records.
func (m *MemoryCustody) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}
