package memory

import (
	"context"
	"sync"

	"relaycast/internal/core/domain"
	"relaycast/internal/core/ports"
)

type MemoryChannelStackRepository struct {
	stacks map[domain.EventID]domain.ChannelStack
	mu     sync.RWMutex
}

func NewMemoryChannelStackRepository() ports.ChannelStackRepository {
	return &MemoryChannelStackRepository{
		stacks: make(map[domain.EventID]domain.ChannelStack),
	}
}

func (r *MemoryChannelStackRepository) Save(ctx context.Context, stack *domain.ChannelStack) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stacks[stack.EventID] = *stack
	return nil
}

func (r *MemoryChannelStackRepository) GetByEventID(ctx context.Context, eventID domain.EventID) (*domain.ChannelStack, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stack, exists := r.stacks[eventID]
	if !exists {
		return nil, domain.ErrChannelStackNotFound
	}
	return &stack, nil
}
