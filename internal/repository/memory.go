package repository

import (
	"context"
	"sync"
	"time"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

type InMemoryStateStore struct {
	mu     sync.Mutex
	state  *State
	closed bool
}

func NewInMemoryStateStore(queueTTL time.Duration) *InMemoryStateStore {
	return &InMemoryStateStore{state: NewState(queueTTL)}
}

func (s *InMemoryStateStore) Atomically(ctx context.Context, fn func(st *State) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}
	return fn(s.state)
}

// Close drops all state. Later calls to Atomically fail with ErrStoreClosed.
func (s *InMemoryStateStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.state = nil
	return nil
}

type InMemorySessionLogRepository struct {
	mu      sync.RWMutex
	records map[string]domain.Session
}

func NewInMemorySessionLogRepository() *InMemorySessionLogRepository {
	return &InMemorySessionLogRepository{records: make(map[string]domain.Session)}
}

func (r *InMemorySessionLogRepository) Record(ctx context.Context, s *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[s.ID] = *s
	return nil
}

func (r *InMemorySessionLogRepository) Finish(ctx context.Context, s *domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[s.ID]
	if !ok {
		return ErrRecordMissing
	}
	rec.EndedAt = s.EndedAt
	rec.Reason = s.Reason
	rec.Connected = s.Connected
	r.records[s.ID] = rec
	return nil
}

func (r *InMemorySessionLogRepository) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.records)), nil
}

func (r *InMemorySessionLogRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return nil, ErrRecordMissing
	}
	return &rec, nil
}
