package memory

import (
	"context"
	"fmt"
	"sync"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
)

type MemoryLayoutRepository struct {
	records map[domain.EventSessionID][]domain.LayoutIntentRecord
	mu      sync.RWMutex
}

func NewMemoryLayoutRepository() ports.LayoutRepository {
	return &MemoryLayoutRepository{
		records: make(map[domain.EventSessionID][]domain.LayoutIntentRecord),
	}
}

func (r *MemoryLayoutRepository) Create(ctx context.Context, record *domain.LayoutIntentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.records[record.EventSessionID] {
		if existing.ID == record.ID {
			return fmt.Errorf("layout already exists: %s", record.ID)
		}
	}

	r.records[record.EventSessionID] = append(r.records[record.EventSessionID], *record)
	return nil
}

// Latest picks the newest CreatedAt; on a tie the later insert wins.
func (r *MemoryLayoutRepository) Latest(ctx context.Context, eventSessionID domain.EventSessionID) (*domain.LayoutIntentRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.records[eventSessionID]
	if len(records) == 0 {
		return nil, domain.ErrLayoutNotFound
	}

	latest := records[0]
	for _, record := range records[1:] {
		if !record.CreatedAt.Before(latest.CreatedAt) {
			latest = record
		}
	}
	return &latest, nil
}
