// Package session keeps the live pairwise sessions and the client-to-session index.
package session

import (
	"fmt"
	"time"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

type Registry struct {
	sessions map[string]*domain.Session
	byClient map[string]string
}

func New() *Registry {
	return &Registry{
		sessions: make(map[string]*domain.Session),
		byClient: make(map[string]string),
	}
}

// Create opens a session between a and b. Neither may already be in a live session.
func (r *Registry) Create(a, b, initiator string, mode domain.Mode, now time.Time) (*domain.Session, error) {
	if a == "" || b == "" {
		return nil, domain.Invalid("participant", "is required")
	}
	if a == b {
		return nil, domain.Invalid("participant", "cannot pair a client with itself")
	}
	if initiator != a && initiator != b {
		return nil, domain.Invalid("initiator", "must be a participant")
	}
	for _, id := range []string{a, b} {
		if sid, ok := r.byClient[id]; ok {
			return nil, fmt.Errorf("%w: client %q already in session %q", domain.ErrValidation, id, sid)
		}
	}

	s := domain.NewSession(a, b, initiator, mode, now)
	r.sessions[s.ID] = s
	r.byClient[a] = s.ID
	r.byClient[b] = s.ID
	return s, nil
}

// End removes the session. Only the first call for a given id reports true.
func (r *Registry) End(sessionID string, reason domain.EndReason, now time.Time) (*domain.Session, bool) {
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, sessionID)
	for _, id := range []string{s.ParticipantA, s.ParticipantB} {
		if r.byClient[id] == sessionID {
			delete(r.byClient, id)
		}
	}
	s.EndedAt = now.UTC()
	s.Reason = reason
	return s, true
}

// MarkConnected flags the session once negotiation completed. It reports whether this call changed it.
func (r *Registry) MarkConnected(sessionID string) bool {
	s, ok := r.sessions[sessionID]
	if !ok || s.Connected {
		return false
	}
	s.Connected = true
	return true
}

func (r *Registry) Get(sessionID string) (*domain.Session, bool) {
	s, ok := r.sessions[sessionID]
	return s, ok
}

func (r *Registry) Lookup(clientID string) (*domain.Session, bool) {
	sid, ok := r.byClient[clientID]
	if !ok {
		return nil, false
	}
	return r.Get(sid)
}

func (r *Registry) Len() int {
	return len(r.sessions)
}

// Expired lists sessions older than ttl; ttl <= 0 disables session timeouts.
func (r *Registry) Expired(now time.Time, ttl time.Duration) []*domain.Session {
	if ttl <= 0 {
		return nil
	}
	var out []*domain.Session
	for _, s := range r.sessions {
		if now.Sub(s.CreatedAt) >= ttl {
			out = append(out, s)
		}
	}
	return out
}
