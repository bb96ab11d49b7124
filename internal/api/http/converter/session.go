package converter

import (
	"time"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

type SessionResponse struct {
	ID           string           `json:"id"`
	Participants []string         `json:"participants"`
	Initiator    string           `json:"initiator"`
	Mode         domain.Mode      `json:"mode"`
	Connected    bool             `json:"connected"`
	CreatedAt    time.Time        `json:"createdAt"`
	EndedAt      *time.Time       `json:"endedAt,omitempty"`
	Reason       domain.EndReason `json:"reason,omitempty"`
}

func SessionToApi(s *domain.Session) *SessionResponse {
	resp := &SessionResponse{
		ID:           s.ID,
		Participants: []string{s.ParticipantA, s.ParticipantB},
		Initiator:    s.Initiator,
		Mode:         s.Mode,
		Connected:    s.Connected,
		CreatedAt:    s.CreatedAt,
		Reason:       s.Reason,
	}
	if s.IsEnded() {
		ended := s.EndedAt
		resp.EndedAt = &ended
	}
	return resp
}

type EventsResponse struct {
	Events []domain.SignalMessage `json:"events"`
}

func EventsToApi(events []domain.SignalMessage) *EventsResponse {
	if events == nil {
		events = []domain.SignalMessage{}
	}
	return &EventsResponse{Events: events}
}

// EnqueueResponse carries the credentials of a client registered by this request.
type EnqueueResponse struct {
	domain.MatchResult
	PeerID string `json:"peerId,omitempty"`
	Token  string `json:"token,omitempty"`
}

func EnqueueToApi(res domain.MatchResult, registered *domain.Client) *EnqueueResponse {
	resp := &EnqueueResponse{MatchResult: res}
	if registered != nil {
		resp.PeerID = registered.ID
		resp.Token = registered.Token
	}
	return resp
}
