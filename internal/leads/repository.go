package leads

import (
	"context"
	"sync"
	"time"
)

// Repository defines the interface for lead storage. Implementations own id
// and created_at generation.
type Repository interface {
	Insert(ctx context.Context, c Candidate) (*Lead, error)
	Clear(ctx context.Context) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// InMemoryRepository keeps leads in process memory. Ids keep increasing
// across Clear calls.
type InMemoryRepository struct {
	mu     sync.RWMutex
	leads  []*Lead
	lastID int64
	now    func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{now: time.Now}
}

// WithClock replaces the timestamp source.
func (r *InMemoryRepository) WithClock(now func() time.Time) *InMemoryRepository {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
	return r
}

// Insert stores the candidate and returns the populated lead
func (r *InMemoryRepository) Insert(ctx context.Context, c Candidate) (*Lead, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError("insert", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	lead := &Lead{
		ID:        r.lastID,
		Name:      c.Name,
		Email:     c.Email,
		Message:   cloneString(c.Message),
		CreatedAt: r.now().UTC(),
	}
	r.leads = append(r.leads, lead)

	out := *lead
	return &out, nil
}

// Clear removes every lead
func (r *InMemoryRepository) Clear(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageError("clear", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := int64(len(r.leads))
	r.leads = nil
	return n, nil
}

// Count returns the number of stored leads
func (r *InMemoryRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, storageError("count", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.leads)), nil
}

// All returns a copy of the stored leads in insertion order.
func (r *InMemoryRepository) All() []Lead {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		out = append(out, *lead)
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
