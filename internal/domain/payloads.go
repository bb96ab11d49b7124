package domain

import (
	"encoding/json"

	"github.com/pion/webrtc/v3"
)

type MatchStatus string

const (
	StatusWaiting MatchStatus = "waiting"
	StatusMatched MatchStatus = "matched"
	StatusIdle    MatchStatus = "idle"
)

type MatchResult struct {
	Status    MatchStatus `json:"status"`
	PartnerID string      `json:"partnerId,omitempty"`
	Initiator bool        `json:"initiator"`
	SessionID string      `json:"sessionId,omitempty"`
	Mode      Mode        `json:"mode,omitempty"`
}

func Waiting() MatchResult {
	return MatchResult{Status: StatusWaiting}
}

type EnqueuePayload struct {
	Mode      Mode     `json:"mode" validate:"omitempty,oneof=text audio video"`
	Interests []string `json:"interests" validate:"max=32,dive,max=64"`
	Gender    Gender   `json:"gender" validate:"omitempty,oneof=any male female other"`
}

type WelcomePayload struct {
	PeerID     string             `json:"peerId"`
	ICEServers []webrtc.ICEServer `json:"iceServers,omitempty"`
}

type SessionEndedPayload struct {
	Reason EndReason `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Stats struct {
	Online   int `json:"online"`
	Waiting  int `json:"waiting"`
	Sessions int `json:"sessions"`
}

// KeyExchange carries an ephemeral public key. Echo marks the responder's reply.
type KeyExchange struct {
	Suite string          `json:"suite,omitempty"`
	JWK   json.RawMessage `json:"jwk"`
	Echo  bool            `json:"echo"`
}

// EncryptedPayload is an AEAD-sealed application message.
type EncryptedPayload struct {
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}
