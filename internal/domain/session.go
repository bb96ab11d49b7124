package domain

import (
	"time"

	"github.com/google/uuid"
)

type EndReason string

const (
	ReasonParticipantLeft EndReason = "participant-left"
	ReasonExplicitEnd     EndReason = "explicit-end"
	ReasonTimeout         EndReason = "timeout"
)

func (r EndReason) Valid() bool {
	switch r {
	case ReasonParticipantLeft, ReasonExplicitEnd, ReasonTimeout:
		return true
	}
	return false
}

// Session pairs exactly two clients. Initiator is one of ParticipantA or ParticipantB.
type Session struct {
	ID           string
	ParticipantA string
	ParticipantB string
	Initiator    string
	Mode         Mode
	Connected    bool
	CreatedAt    time.Time
	EndedAt      time.Time
	Reason       EndReason
}

func NewSession(a, b, initiator string, mode Mode, now time.Time) *Session {
	return &Session{
		ID:           uuid.New().String(),
		ParticipantA: a,
		ParticipantB: b,
		Initiator:    initiator,
		Mode:         mode,
		CreatedAt:    now.UTC(),
	}
}

func (s *Session) Has(clientID string) bool {
	return clientID != "" && (s.ParticipantA == clientID || s.ParticipantB == clientID)
}

// Other returns the partner of clientID, or "" if clientID is not a participant.
func (s *Session) Other(clientID string) string {
	switch clientID {
	case "":
		return ""
	case s.ParticipantA:
		return s.ParticipantB
	case s.ParticipantB:
		return s.ParticipantA
	}
	return ""
}

func (s *Session) IsEnded() bool {
	return !s.EndedAt.IsZero()
}
