package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/e2ee"
	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/protocol"
	"github.com/VibeKonekPilipinas/vibe-konek-core/lib/logger/sl"
)

var (
	ErrNoSession  = errors.New("not in a session")
	ErrNotSecured = errors.New("session key not established yet")
)

type EventKind string

const (
	EventWaiting EventKind = "waiting"
	EventMatched EventKind = "matched"
	EventSecured EventKind = "secured"
	EventMessage EventKind = "message"
	EventEnded   EventKind = "ended"
	EventError   EventKind = "error"
)

// Event is what a chat front end renders.
type Event struct {
	Kind      EventKind
	SessionID string
	PartnerID string
	Initiator bool
	Message   e2ee.ChatText
	Reason    domain.EndReason
	Err       error
}

type Options struct {
	Mode      domain.Mode
	Interests []string
	Author    string
	Suite     e2ee.Suite
	// DataChannel sends key exchange and chat over WebRTC instead of the server relay.
	DataChannel bool
	// Requeue asks for a new partner automatically when the current one leaves.
	Requeue bool
	Log     *slog.Logger
}

type chatSession struct {
	id        string
	partnerID string
	initiator bool
	handshake *e2ee.Handshake
	peer      *PeerLink
	started   bool
	secured   bool
}

type sayRequest struct {
	text string
	errc chan error
}

// Chat drives one anonymous conversation at a time over a Signaling connection.
// All session state is owned by the Run goroutine.
type Chat struct {
	sig    *Signaling
	opts   Options
	log    *slog.Logger
	events chan Event
	say    chan sayRequest
	next   chan struct{}

	sess *chatSession
}

func NewChat(sig *Signaling, opts Options) *Chat {
	if opts.Mode == "" {
		opts.Mode = domain.ModeText
	}
	if opts.Author == "" {
		opts.Author = "Anonymous"
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	return &Chat{
		sig:    sig,
		opts:   opts,
		log:    log.With("peer_id", sig.PeerID()),
		events: make(chan Event, 32),
		say:    make(chan sayRequest),
		next:   make(chan struct{}, 1),
	}
}

func (c *Chat) Events() <-chan Event {
	return c.events
}

// Say seals text under the session key and sends it to the partner.
func (c *Chat) Say(ctx context.Context, text string) error {
	req := sayRequest{text: text, errc: make(chan error, 1)}
	select {
	case c.say <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next leaves the current partner and asks for a new one.
func (c *Chat) Next() {
	select {
	case c.next <- struct{}{}:
	default:
	}
}

// Run requests a match and serves the conversation until ctx is done or the connection drops.
func (c *Chat) Run(ctx context.Context) error {
	defer c.closeSession()

	if err := c.enqueue(); err != nil {
		return err
	}

	for {
		var (
			peerIn     <-chan domain.SignalMessage
			peerOpened <-chan struct{}
		)
		if c.sess != nil && c.sess.peer != nil {
			peerIn = c.sess.peer.Incoming()
			if c.sess.initiator && !c.sess.started {
				peerOpened = c.sess.peer.Opened()
			}
		}

		select {
		case <-ctx.Done():
			if c.sess != nil {
				_ = c.sig.Send(domain.KindEnd, c.sess.id, nil)
			}
			return ctx.Err()
		case msg, ok := <-c.sig.Incoming():
			if !ok {
				return c.sig.Err()
			}
			c.handleServer(ctx, msg)
		case msg := <-peerIn:
			c.handleApp(ctx, msg)
		case <-peerOpened:
			c.startHandshake(ctx)
		case req := <-c.say:
			req.errc <- c.send(req.text)
		case <-c.next:
			c.closeSession()
			if err := c.enqueue(); err != nil {
				return err
			}
		}
	}
}

func (c *Chat) enqueue() error {
	return c.sig.Send(domain.KindEnqueue, "", domain.EnqueuePayload{
		Mode:      c.opts.Mode,
		Interests: c.opts.Interests,
	})
}

func (c *Chat) handleServer(ctx context.Context, msg domain.SignalMessage) {
	switch msg.Type {
	case domain.KindWaiting:
		c.emit(ctx, Event{Kind: EventWaiting})
	case domain.KindMatched:
		var res domain.MatchResult
		if err := json.Unmarshal(msg.Payload, &res); err != nil {
			c.emit(ctx, Event{Kind: EventError, Err: err})
			return
		}
		c.startSession(ctx, res)
	case domain.KindOffer, domain.KindAnswer, domain.KindCandidate:
		if !c.current(msg.SessionID) || c.sess.peer == nil {
			return
		}
		if err := c.sess.peer.HandleSignal(msg); err != nil {
			c.log.Warn("negotiation failed", slog.String("type", string(msg.Type)), sl.Err(err))
			c.emit(ctx, Event{Kind: EventError, SessionID: msg.SessionID, Err: err})
		}
	case domain.KindPubKey, domain.KindMsg:
		if c.current(msg.SessionID) && c.sess.peer == nil {
			c.handleApp(ctx, msg)
		}
	case domain.KindSessionEnded:
		if !c.current(msg.SessionID) {
			return
		}
		var p domain.SessionEndedPayload
		_ = json.Unmarshal(msg.Payload, &p)
		c.emit(ctx, Event{Kind: EventEnded, SessionID: msg.SessionID, PartnerID: c.sess.partnerID, Reason: p.Reason})
		c.closeSession()
		if c.opts.Requeue {
			if err := c.enqueue(); err != nil {
				c.emit(ctx, Event{Kind: EventError, Err: err})
			}
		}
	case domain.KindError:
		var p domain.ErrorPayload
		_ = json.Unmarshal(msg.Payload, &p)
		c.emit(ctx, Event{Kind: EventError, SessionID: msg.SessionID, Err: fmt.Errorf("server: %s: %s", p.Code, p.Message)})
	}
}

func (c *Chat) startSession(ctx context.Context, res domain.MatchResult) {
	c.closeSession()
	sess := &chatSession{
		id:        res.SessionID,
		partnerID: res.PartnerID,
		initiator: res.Initiator,
		handshake: e2ee.NewHandshake(res.Initiator, c.opts.Suite),
	}
	c.sess = sess
	c.log.Info("matched", "session_id", res.SessionID, "initiator", res.Initiator)
	c.emit(ctx, Event{Kind: EventMatched, SessionID: res.SessionID, PartnerID: res.PartnerID, Initiator: res.Initiator})

	if !c.opts.DataChannel {
		if res.Initiator {
			c.startHandshake(ctx)
		}
		return
	}

	peer, err := NewPeerLink(c.sig.ICEServers(), res.Initiator, func(kind domain.MessageKind, payload any) error {
		return c.sig.Send(kind, res.SessionID, payload)
	})
	if err != nil {
		c.emit(ctx, Event{Kind: EventError, SessionID: res.SessionID, Err: err})
		return
	}
	sess.peer = peer
}

func (c *Chat) startHandshake(ctx context.Context) {
	c.sess.started = true
	kx, err := c.sess.handshake.Start()
	if err != nil {
		c.emit(ctx, Event{Kind: EventError, SessionID: c.sess.id, Err: err})
		return
	}
	if err := c.sendApp(domain.KindPubKey, kx); err != nil {
		c.emit(ctx, Event{Kind: EventError, SessionID: c.sess.id, Err: err})
	}
}

func (c *Chat) handleApp(ctx context.Context, msg domain.SignalMessage) {
	if c.sess == nil {
		return
	}
	switch msg.Type {
	case domain.KindPubKey:
		kx, err := protocol.DecodeKeyExchange(msg.Payload)
		if err != nil {
			c.emit(ctx, Event{Kind: EventError, SessionID: c.sess.id, Err: err})
			return
		}
		reply, err := c.sess.handshake.Receive(kx)
		if err != nil {
			c.emit(ctx, Event{Kind: EventError, SessionID: c.sess.id, Err: err})
			return
		}
		if reply != nil {
			if err := c.sendApp(domain.KindPubKey, *reply); err != nil {
				c.emit(ctx, Event{Kind: EventError, SessionID: c.sess.id, Err: err})
				return
			}
		}
		if _, ok := c.sess.handshake.Key(); ok && !c.sess.secured {
			c.sess.secured = true
			c.emit(ctx, Event{Kind: EventSecured, SessionID: c.sess.id, PartnerID: c.sess.partnerID})
		}
	case domain.KindMsg:
		key, ok := c.sess.handshake.Key()
		if !ok {
			c.emit(ctx, Event{Kind: EventError, SessionID: c.sess.id, Err: ErrNotSecured})
			return
		}
		sealed, err := protocol.DecodeEncrypted(msg.Payload)
		if err != nil {
			c.emit(ctx, Event{Kind: EventError, SessionID: c.sess.id, Err: err})
			return
		}
		text, err := key.OpenChat(sealed)
		if err != nil {
			c.emit(ctx, Event{Kind: EventError, SessionID: c.sess.id, Err: err})
			return
		}
		c.emit(ctx, Event{Kind: EventMessage, SessionID: c.sess.id, PartnerID: c.sess.partnerID, Message: text})
	}
}

func (c *Chat) send(text string) error {
	if c.sess == nil {
		return ErrNoSession
	}
	key, ok := c.sess.handshake.Key()
	if !ok {
		return ErrNotSecured
	}
	sealed, err := key.SealChat(e2ee.ChatText{Author: c.opts.Author, Text: text})
	if err != nil {
		return err
	}
	return c.sendApp(domain.KindMsg, sealed)
}

func (c *Chat) sendApp(kind domain.MessageKind, payload any) error {
	if c.sess.peer != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		return c.sess.peer.Send(domain.SignalMessage{Type: kind, SessionID: c.sess.id, Payload: raw})
	}
	return c.sig.Send(kind, c.sess.id, payload)
}

func (c *Chat) current(sessionID string) bool {
	return c.sess != nil && c.sess.id == sessionID
}

func (c *Chat) closeSession() {
	if c.sess == nil {
		return
	}
	c.sess.handshake.Close()
	if c.sess.peer != nil {
		_ = c.sess.peer.Close()
	}
	c.sess = nil
}

func (c *Chat) emit(ctx context.Context, ev Event) {
	select {
	case c.events <- ev:
	case <-ctx.Done():
	}
}
