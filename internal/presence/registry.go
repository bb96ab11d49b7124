// Package presence tracks connected clients. Not safe for concurrent use; see repository.StateStore.
package presence

import (
	"fmt"
	"time"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

type Registry struct {
	clients map[string]*domain.Client
}

func New() *Registry {
	return &Registry{clients: make(map[string]*domain.Client)}
}

func (r *Registry) Add(c *domain.Client) error {
	if c == nil || c.ID == "" {
		return domain.Invalid("peerId", "is required")
	}
	if _, ok := r.clients[c.ID]; ok {
		return fmt.Errorf("%w: peerId %q already connected", domain.ErrValidation, c.ID)
	}
	r.clients[c.ID] = c
	return nil
}

func (r *Registry) Get(id string) (*domain.Client, bool) {
	c, ok := r.clients[id]
	return c, ok
}

func (r *Registry) Remove(id string) (*domain.Client, bool) {
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	return c, ok
}

// All returns every registered client in no particular order.
func (r *Registry) All() []*domain.Client {
	out := make([]*domain.Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.clients)
}

// Stale lists HTTP clients not seen for ttl. WebSocket clients are bounded by their connection.
func (r *Registry) Stale(now time.Time, ttl time.Duration) []*domain.Client {
	if ttl <= 0 {
		return nil
	}
	var out []*domain.Client
	for _, c := range r.clients {
		if c.Transport != domain.TransportHTTP {
			continue
		}
		if now.Sub(c.LastSeen) >= ttl {
			out = append(out, c)
		}
	}
	return out
}
