package domain

import "encoding/json"

type MessageKind string

// Client to server.
const (
	KindEnqueue   MessageKind = "enqueue"
	KindCancel    MessageKind = "cancel"
	KindPoll      MessageKind = "poll"
	KindOffer     MessageKind = "offer"
	KindAnswer    MessageKind = "answer"
	KindCandidate MessageKind = "candidate"
	KindPubKey    MessageKind = "pubkey"
	KindMsg       MessageKind = "msg"
	KindEnd       MessageKind = "end"
	KindStats     MessageKind = "stats"
	KindPing      MessageKind = "ping"
)

// Server to client.
const (
	KindWelcome      MessageKind = "welcome"
	KindWaiting      MessageKind = "waiting"
	KindMatched      MessageKind = "matched"
	KindIdle         MessageKind = "idle"
	KindSessionEnded MessageKind = "session-ended"
	KindError        MessageKind = "error"
	KindPong         MessageKind = "pong"
)

// IsSignal reports whether k is a connection-negotiation message.
func (k MessageKind) IsSignal() bool {
	switch k {
	case KindOffer, KindAnswer, KindCandidate:
		return true
	}
	return false
}

// IsApplication reports whether k is an end-to-end message the server routes but never reads.
func (k MessageKind) IsApplication() bool {
	return k == KindPubKey || k == KindMsg
}

// IsRelayed reports whether messages of kind k are forwarded to the session partner.
func (k MessageKind) IsRelayed() bool {
	return k.IsSignal() || k.IsApplication()
}

// SignalMessage is the single envelope for every message on the wire.
type SignalMessage struct {
	Type      MessageKind     `json:"type" validate:"required"`
	SessionID string          `json:"sessionId,omitempty"`
	From      string          `json:"from,omitempty"`
	To        string          `json:"to,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds a server-originated envelope. Payloads are the plain structs of this package.
func NewEvent(kind MessageKind, sessionID string, payload any) SignalMessage {
	msg := SignalMessage{Type: kind, SessionID: sessionID}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			msg.Payload = raw
		}
	}
	return msg
}
