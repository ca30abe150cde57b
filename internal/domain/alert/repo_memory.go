package alert

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryRepo struct {
	mu    sync.RWMutex
	items map[string]*Alert
	order []string
}

// NewMemoryRepo returns a Repository that keeps alerts in process memory.
// List returns alerts in insertion order.
func NewMemoryRepo() Repository {
	return &memoryRepo{items: make(map[string]*Alert)}
}

func (r *memoryRepo) Create(_ context.Context, a *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, a.ID)
	}
	r.items[a.ID] = a.Clone()
	r.order = append(r.order, a.ID)
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a.Clone(), nil
}

func (r *memoryRepo) Update(_ context.Context, a *Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[a.ID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, a.ID)
	}
	r.items[a.ID] = a.Clone()
	return nil
}

func (r *memoryRepo) List(_ context.Context) ([]*Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Alert, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id].Clone())
	}
	return out, nil
}

func (r *memoryRepo) MarkAllRead(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.items {
		if !a.IsRead {
			a.IsRead = true
			a.UpdatedAt = now
			n++
		}
	}
	return n, nil
}
