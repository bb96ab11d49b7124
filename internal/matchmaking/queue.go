package matchmaking

import (
	"strings"
	"time"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

const DefaultTTL = 120 * time.Second

type Entry struct {
	Client     *domain.Client
	EnqueuedAt time.Time
}

// Outcome is the result of EnqueueOrMatch from the requester's point of view.
// When Matched is true the requester is always the initiator.
type Outcome struct {
	Matched   bool
	Partner   *domain.Client
	Initiator bool
}

type Queue struct {
	ttl     time.Duration
	entries []*Entry
}

func New(ttl time.Duration) *Queue {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Queue{ttl: ttl}
}

func (q *Queue) TTL() time.Duration {
	return q.ttl
}

// Compatible reports whether two criteria may be paired. It is symmetric.
func Compatible(a, b domain.Criteria) bool {
	if a.Mode != b.Mode {
		return false
	}
	if len(a.Interests) == 0 || len(b.Interests) == 0 {
		return true
	}
	tags := make(map[string]struct{}, len(a.Interests))
	for _, t := range a.Interests {
		tags[strings.ToLower(t)] = struct{}{}
	}
	for _, t := range b.Interests {
		if _, ok := tags[strings.ToLower(t)]; ok {
			return true
		}
	}
	return false
}

// EnqueueOrMatch pairs c with the first compatible, unexpired waiting entry or appends it.
// A client already in the queue is re-queued at the tail with its current criteria.
func (q *Queue) EnqueueOrMatch(c *domain.Client, now time.Time) (Outcome, error) {
	if c == nil || c.ID == "" {
		return Outcome{}, domain.Invalid("peerId", "is required")
	}
	q.Remove(c.ID)

	for i, e := range q.entries {
		if q.expired(e, now) {
			continue
		}
		if !Compatible(c.Criteria, e.Client.Criteria) {
			continue
		}
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return Outcome{Matched: true, Partner: e.Client, Initiator: true}, nil
	}

	q.entries = append(q.entries, &Entry{Client: c, EnqueuedAt: now})
	return Outcome{}, nil
}

func (q *Queue) Remove(clientID string) bool {
	for i, e := range q.entries {
		if e.Client.ID == clientID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (q *Queue) Contains(clientID string) bool {
	for _, e := range q.entries {
		if e.Client.ID == clientID {
			return true
		}
	}
	return false
}

// Sweep drops expired entries and returns their clients in queue order.
func (q *Queue) Sweep(now time.Time) []*domain.Client {
	var evicted []*domain.Client
	kept := q.entries[:0]
	for _, e := range q.entries {
		if q.expired(e, now) {
			evicted = append(evicted, e.Client)
			continue
		}
		kept = append(kept, e)
	}
	for i := len(kept); i < len(q.entries); i++ {
		q.entries[i] = nil
	}
	q.entries = kept
	return evicted
}

// Len counts entries still in the queue, including expired ones not yet swept.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Waiting counts entries that can still be matched at now.
func (q *Queue) Waiting(now time.Time) int {
	n := 0
	for _, e := range q.entries {
		if !q.expired(e, now) {
			n++
		}
	}
	return n
}

func (q *Queue) expired(e *Entry, now time.Time) bool {
	return now.Sub(e.EnqueuedAt) >= q.ttl
}
