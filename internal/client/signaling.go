package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v3"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

const writeWait = 10 * time.Second

var ErrClosed = errors.New("signaling connection closed")

// Signaling is one websocket connection to the matchmaking server.
type Signaling struct {
	conn       *websocket.Conn
	peerID     string
	iceServers []webrtc.ICEServer

	mu       sync.Mutex
	incoming chan domain.SignalMessage
	done     chan struct{}
	once     sync.Once
	err      error
}

// Dial connects and waits for the server's welcome.
func Dial(ctx context.Context, url string) (*Signaling, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	var welcome domain.SignalMessage
	if err := conn.ReadJSON(&welcome); err != nil {
		conn.Close()
		return nil, fmt.Errorf("read welcome: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if welcome.Type != domain.KindWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected welcome, got %q", welcome.Type)
	}
	var payload domain.WelcomePayload
	if err := json.Unmarshal(welcome.Payload, &payload); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode welcome: %w", err)
	}

	s := &Signaling{
		conn:       conn,
		peerID:     payload.PeerID,
		iceServers: payload.ICEServers,
		incoming:   make(chan domain.SignalMessage, 32),
		done:       make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

func (s *Signaling) PeerID() string {
	return s.peerID
}

func (s *Signaling) ICEServers() []webrtc.ICEServer {
	return s.iceServers
}

// Incoming is closed once the connection fails or is closed; Err then tells why.
func (s *Signaling) Incoming() <-chan domain.SignalMessage {
	return s.incoming
}

func (s *Signaling) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Signaling) Send(kind domain.MessageKind, sessionID string, payload any) error {
	msg := domain.SignalMessage{Type: kind, SessionID: sessionID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		msg.Payload = raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return ErrClosed
	default:
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(msg)
}

func (s *Signaling) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		close(s.done)
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		s.mu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Signaling) readLoop() {
	defer close(s.incoming)
	for {
		var msg domain.SignalMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			s.mu.Lock()
			select {
			case <-s.done:
				s.err = ErrClosed
			default:
				s.err = err
			}
			s.mu.Unlock()
			return
		}
		select {
		case s.incoming <- msg:
		case <-s.done:
			s.mu.Lock()
			s.err = ErrClosed
			s.mu.Unlock()
			return
		}
	}
}
