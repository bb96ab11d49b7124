package service

import (
	"context"
	"time"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

type MatchInteractor interface {
	Connect(ctx context.Context, peerID string, transport domain.Transport) (*domain.Client, error)
	Disconnect(ctx context.Context, peerID string) error
	Authorize(ctx context.Context, creds domain.Credentials) error
	Enqueue(ctx context.Context, peerID string, criteria domain.Criteria) (domain.MatchResult, error)
	PollMatch(ctx context.Context, peerID string) (domain.MatchResult, error)
	Cancel(ctx context.Context, peerID string) error
	EndSession(ctx context.Context, sessionID string, peerID string) error
	Stats(ctx context.Context) (domain.Stats, error)
	SessionInfo(ctx context.Context, sessionID string) (*domain.Session, error)
}

type RelayInteractor interface {
	Relay(ctx context.Context, senderID string, msg domain.SignalMessage) error
	Events(ctx context.Context, peerID string) (<-chan domain.SignalMessage, error)
	WaitEvents(ctx context.Context, peerID string, wait time.Duration) ([]domain.SignalMessage, error)
}
