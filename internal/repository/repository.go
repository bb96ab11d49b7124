package repository

import (
	"context"
	"errors"
	"time"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/matchmaking"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/presence"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/session"
)

var (
	ErrStoreClosed   = errors.New("state store closed")
	ErrRecordMissing = errors.New("session record not found")
)

// State is everything the matchmaker mutates. It must only be touched inside StateStore.Atomically.
type State struct {
	Presence *presence.Registry
	Queue    *matchmaking.Queue
	Sessions *session.Registry
}

func NewState(queueTTL time.Duration) *State {
	return &State{
		Presence: presence.New(),
		Queue:    matchmaking.New(queueTTL),
		Sessions: session.New(),
	}
}

// StateStore serializes every mutation of presence, queue and sessions.
// fn runs with exclusive access and must not block on network I/O.
type StateStore interface {
	Atomically(ctx context.Context, fn func(st *State) error) error
	Close() error
}

// SessionLogRepository keeps session metadata after the fact: ids, mode, timestamps and end reason.
type SessionLogRepository interface {
	Record(ctx context.Context, s *domain.Session) error
	Finish(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	Count(ctx context.Context) (int64, error)
}
