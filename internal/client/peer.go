package client

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/pion/webrtc/v3"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

const dataChannelLabel = "chat"

// SignalFunc sends a negotiation message to the partner through the server.
type SignalFunc func(kind domain.MessageKind, payload any) error

// PeerLink carries envelopes over a WebRTC data channel once negotiation completes.
type PeerLink struct {
	pc     *webrtc.PeerConnection
	signal SignalFunc

	mu        sync.Mutex
	dc        *webrtc.DataChannel
	remoteSet bool
	pending   []webrtc.ICECandidateInit

	opened   chan struct{}
	openOnce sync.Once
	incoming chan domain.SignalMessage
	closed   chan struct{}
	once     sync.Once
}

// NewPeerLink prepares a peer connection. The initiator creates the data channel and sends
// the offer right away; the responder waits for HandleSignal to deliver it.
func NewPeerLink(iceServers []webrtc.ICEServer, initiator bool, signal SignalFunc) (*PeerLink, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	p := &PeerLink{
		pc:       pc,
		signal:   signal,
		opened:   make(chan struct{}),
		incoming: make(chan domain.SignalMessage, 32),
		closed:   make(chan struct{}),
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		_ = p.signal(domain.KindCandidate, c.ToJSON())
	})

	if !initiator {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() == dataChannelLabel {
				p.attach(dc)
			}
		})
		return p, nil
	}

	dc, err := pc.CreateDataChannel(dataChannelLabel, nil)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create data channel: %w", err)
	}
	p.attach(dc)

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		_ = pc.Close()
		return nil, fmt.Errorf("set local offer: %w", err)
	}
	if err := signal(domain.KindOffer, offer); err != nil {
		_ = pc.Close()
		return nil, err
	}
	return p, nil
}

// Opened is closed when the data channel is ready for Send.
func (p *PeerLink) Opened() <-chan struct{} {
	return p.opened
}

func (p *PeerLink) Incoming() <-chan domain.SignalMessage {
	return p.incoming
}

// HandleSignal applies a relayed offer, answer or candidate.
func (p *PeerLink) HandleSignal(msg domain.SignalMessage) error {
	switch msg.Type {
	case domain.KindOffer:
		var offer webrtc.SessionDescription
		if err := json.Unmarshal(msg.Payload, &offer); err != nil {
			return fmt.Errorf("%w: offer: %v", domain.ErrValidation, err)
		}
		if err := p.pc.SetRemoteDescription(offer); err != nil {
			return fmt.Errorf("set remote offer: %w", err)
		}
		answer, err := p.pc.CreateAnswer(nil)
		if err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := p.pc.SetLocalDescription(answer); err != nil {
			return fmt.Errorf("set local answer: %w", err)
		}
		if err := p.signal(domain.KindAnswer, answer); err != nil {
			return err
		}
		return p.flushCandidates()
	case domain.KindAnswer:
		var answer webrtc.SessionDescription
		if err := json.Unmarshal(msg.Payload, &answer); err != nil {
			return fmt.Errorf("%w: answer: %v", domain.ErrValidation, err)
		}
		if err := p.pc.SetRemoteDescription(answer); err != nil {
			return fmt.Errorf("set remote answer: %w", err)
		}
		return p.flushCandidates()
	case domain.KindCandidate:
		var cand webrtc.ICECandidateInit
		if err := json.Unmarshal(msg.Payload, &cand); err != nil {
			return fmt.Errorf("%w: candidate: %v", domain.ErrValidation, err)
		}
		p.mu.Lock()
		if !p.remoteSet {
			p.pending = append(p.pending, cand)
			p.mu.Unlock()
			return nil
		}
		p.mu.Unlock()
		return p.pc.AddICECandidate(cand)
	}
	return domain.Invalid("type", fmt.Sprintf("%q is not a negotiation message", msg.Type))
}

// Send writes an envelope to the data channel.
func (p *PeerLink) Send(msg domain.SignalMessage) error {
	p.mu.Lock()
	dc := p.dc
	p.mu.Unlock()

	select {
	case <-p.opened:
	default:
		return fmt.Errorf("data channel not open")
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return dc.SendText(string(raw))
}

func (p *PeerLink) Close() error {
	var err error
	p.once.Do(func() {
		close(p.closed)
		err = p.pc.Close()
	})
	return err
}

func (p *PeerLink) attach(dc *webrtc.DataChannel) {
	p.mu.Lock()
	p.dc = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		p.openOnce.Do(func() { close(p.opened) })
	})
	dc.OnMessage(func(m webrtc.DataChannelMessage) {
		var msg domain.SignalMessage
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			return
		}
		select {
		case p.incoming <- msg:
		case <-p.closed:
		}
	})
}

func (p *PeerLink) flushCandidates() error {
	p.mu.Lock()
	p.remoteSet = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	for _, c := range pending {
		if err := p.pc.AddICECandidate(c); err != nil {
			return fmt.Errorf("add candidate: %w", err)
		}
	}
	return nil
}
