package domain

import (
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Mode string

const (
	ModeText  Mode = "text"
	ModeAudio Mode = "audio"
	ModeVideo Mode = "video"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeText, ModeAudio, ModeVideo:
		return true
	}
	return false
}

type Gender string

const (
	GenderAny    Gender = "any"
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderAny, GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

type ClientState string

const (
	StateIdle      ClientState = "idle"
	StateQueued    ClientState = "queued"
	StateMatched   ClientState = "matched"
	StateConnected ClientState = "connected"
	StateEnded     ClientState = "ended"
)

type Transport string

const (
	TransportWebSocket Transport = "websocket"
	TransportHTTP      Transport = "http"
)

const eventBufferSize = 16

// Criteria is what a client asks the matchmaker for.
type Criteria struct {
	Mode      Mode
	Interests []string
	Gender    Gender
}

// Client is a connected, anonymous participant.
// All fields except Events are owned by the store and mutated only inside its critical section.
type Client struct {
	ID        string
	Transport Transport
	State     ClientState
	Criteria  Criteria
	QueuedAt  time.Time
	LastSeen  time.Time
	SessionID string
	Events    chan SignalMessage

	// Token authenticates HTTP requests made on behalf of the client. Never sent to the partner.
	Token string

	// pending holds a match result not yet observed by a poll or push.
	pending *MatchResult
}

func NewClient(id string, transport Transport, eventBuffer int) *Client {
	if id == "" {
		id = uuid.New().String()
	}
	if eventBuffer <= 0 {
		eventBuffer = eventBufferSize
	}
	now := time.Now().UTC()
	return &Client{
		ID:        id,
		Transport: transport,
		State:     StateIdle,
		LastSeen:  now,
		Events:    make(chan SignalMessage, eventBuffer),
		Token:     uuid.NewString(),
	}
}

// Credentials identify the caller of an HTTP operation.
type Credentials struct {
	PeerID string
	Token  string
}

// CheckToken compares in constant time.
func (c *Client) CheckToken(token string) bool {
	return token != "" && subtle.ConstantTimeCompare([]byte(c.Token), []byte(token)) == 1
}

func (c *Client) Touch(now time.Time) {
	c.LastSeen = now.UTC()
}

// EnqueueEvent delivers without blocking; it reports false when the mailbox is full.
func (c *Client) EnqueueEvent(event SignalMessage) bool {
	select {
	case c.Events <- event:
		return true
	default:
		return false
	}
}

func (c *Client) SetPendingMatch(res *MatchResult) {
	c.pending = res
}

// TakePendingMatch returns the pending match once and clears it.
func (c *Client) TakePendingMatch() *MatchResult {
	res := c.pending
	c.pending = nil
	return res
}

// DropPendingMatch discards a pending result that points at sessionID.
func (c *Client) DropPendingMatch(sessionID string) bool {
	if c.pending == nil || c.pending.SessionID != sessionID {
		return false
	}
	c.pending = nil
	return true
}

func (c *Client) HasPendingMatch() bool {
	return c.pending != nil
}

// NormalizeInterests lowercases, trims and de-duplicates tags, keeping first-seen order.
func NormalizeInterests(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
