package e2ee

import (
	"errors"
	"fmt"
	"sync"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

type HandshakeState int

const (
	HandshakeIdle HandshakeState = iota
	HandshakeAwaitingEcho
	HandshakeEstablished
	HandshakeClosed
)

func (s HandshakeState) String() string {
	switch s {
	case HandshakeIdle:
		return "idle"
	case HandshakeAwaitingEcho:
		return "awaiting-echo"
	case HandshakeEstablished:
		return "established"
	case HandshakeClosed:
		return "closed"
	}
	return fmt.Sprintf("HandshakeState(%d)", int(s))
}

var (
	ErrNotInitiator       = errors.New("only the initiator starts the key exchange")
	ErrUnexpectedEcho     = errors.New("unexpected echo public key")
	ErrUnexpectedOffer    = errors.New("initiator received a non-echo public key")
	ErrAlreadyEstablished = errors.New("session key already established")
	ErrHandshakeClosed    = errors.New("handshake closed")
)

// Handshake drives one side of the two-message key exchange.
type Handshake struct {
	mu        sync.Mutex
	initiator bool
	suite     Suite
	state     HandshakeState
	keys      *KeyPair
	key       *SessionKey
}

// NewHandshake prepares one side. The responder adopts whatever suite the initiator's key uses.
func NewHandshake(initiator bool, suite Suite) *Handshake {
	if suite == "" {
		suite = DefaultSuite
	}
	return &Handshake{initiator: initiator, suite: suite}
}

func (h *Handshake) State() HandshakeState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Start produces the initiator's opening message.
func (h *Handshake) Start() (domain.KeyExchange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.initiator {
		return domain.KeyExchange{}, ErrNotInitiator
	}
	if err := h.checkOpen(); err != nil {
		return domain.KeyExchange{}, err
	}
	if h.state != HandshakeIdle {
		return domain.KeyExchange{}, fmt.Errorf("handshake already started (%s)", h.state)
	}

	keys, err := GenerateKeyPair(h.suite)
	if err != nil {
		return domain.KeyExchange{}, err
	}
	msg, err := outgoing(keys, false)
	if err != nil {
		return domain.KeyExchange{}, err
	}
	h.keys = keys
	h.state = HandshakeAwaitingEcho
	return msg, nil
}

// Receive consumes a peer public key. The responder gets a reply to send back; the
// initiator gets nil, since an echo is never answered.
func (h *Handshake) Receive(msg domain.KeyExchange) (*domain.KeyExchange, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkOpen(); err != nil {
		return nil, err
	}
	if h.state == HandshakeEstablished {
		return nil, ErrAlreadyEstablished
	}

	suite, peer, err := ParsePublicJWK(msg.JWK)
	if err != nil {
		return nil, err
	}

	if msg.Echo {
		if !h.initiator || h.state != HandshakeAwaitingEcho {
			return nil, ErrUnexpectedEcho
		}
		if suite != h.keys.Suite() {
			return nil, fmt.Errorf("%w: peer answered with %s", ErrUnknownSuite, suite)
		}
		key, err := DeriveSessionKey(h.keys, peer)
		if err != nil {
			return nil, err
		}
		h.key = key
		h.state = HandshakeEstablished
		return nil, nil
	}

	if h.initiator {
		return nil, ErrUnexpectedOffer
	}

	keys, err := GenerateKeyPair(suite)
	if err != nil {
		return nil, err
	}
	key, err := DeriveSessionKey(keys, peer)
	if err != nil {
		return nil, err
	}
	reply, err := outgoing(keys, true)
	if err != nil {
		key.Close()
		return nil, err
	}
	h.keys = keys
	h.suite = suite
	h.key = key
	h.state = HandshakeEstablished
	return &reply, nil
}

// Key returns the session key once established.
func (h *Handshake) Key() (*SessionKey, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != HandshakeEstablished {
		return nil, false
	}
	return h.key, true
}

// Close discards the key material. It is safe to call more than once.
func (h *Handshake) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.key != nil {
		h.key.Close()
		h.key = nil
	}
	h.keys = nil
	h.state = HandshakeClosed
}

func (h *Handshake) checkOpen() error {
	if h.state == HandshakeClosed {
		return ErrHandshakeClosed
	}
	return nil
}

func outgoing(keys *KeyPair, echo bool) (domain.KeyExchange, error) {
	jwk, err := keys.PublicJWK()
	if err != nil {
		return domain.KeyExchange{}, err
	}
	return domain.KeyExchange{Suite: string(keys.Suite()), JWK: jwk, Echo: echo}, nil
}
