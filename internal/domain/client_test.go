package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeInterests(t *testing.T) {
	assert.Equal(t, []string{"gaming", "movies"}, NormalizeInterests([]string{" Gaming", "MOVIES", "gaming", ""}))
	assert.Nil(t, NormalizeInterests(nil))
	assert.Nil(t, NormalizeInterests([]string{" ", ""}))
}

func TestNewClientAssignsID(t *testing.T) {
	c := NewClient("", TransportWebSocket, 0)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, StateIdle, c.State)
	assert.Equal(t, eventBufferSize, cap(c.Events))
}

func TestCheckToken(t *testing.T) {
	a := NewClient("", TransportHTTP, 0)
	b := NewClient("", TransportHTTP, 0)
	require.NotEmpty(t, a.Token)
	assert.NotEqual(t, a.Token, b.Token)

	assert.True(t, a.CheckToken(a.Token))
	assert.False(t, a.CheckToken(b.Token))
	assert.False(t, a.CheckToken(""))
	assert.False(t, a.CheckToken(a.Token[:8]))
}

func TestEnqueueEventDropsWhenFull(t *testing.T) {
	c := NewClient("a", TransportWebSocket, 1)

	assert.True(t, c.EnqueueEvent(SignalMessage{Type: KindPong}))
	assert.False(t, c.EnqueueEvent(SignalMessage{Type: KindPong}))
}

func TestPendingMatchIsReadOnce(t *testing.T) {
	c := NewClient("a", TransportHTTP, 0)
	c.SetPendingMatch(&MatchResult{Status: StatusMatched, PartnerID: "b"})
	require.True(t, c.HasPendingMatch())

	res := c.TakePendingMatch()
	require.NotNil(t, res)
	assert.Equal(t, "b", res.PartnerID)
	assert.Nil(t, c.TakePendingMatch())

	c.SetPendingMatch(&MatchResult{Status: StatusMatched, SessionID: "s1"})
	assert.False(t, c.DropPendingMatch("s2"))
	assert.True(t, c.DropPendingMatch("s1"))
	assert.False(t, c.HasPendingMatch())
}

func TestSessionOther(t *testing.T) {
	s := &Session{ParticipantA: "a", ParticipantB: "b"}
	assert.Equal(t, "b", s.Other("a"))
	assert.Equal(t, "a", s.Other("b"))
	assert.Equal(t, "", s.Other("c"))
	assert.Equal(t, "", s.Other(""))
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has(""))
}

func TestMessageKindClasses(t *testing.T) {
	for _, k := range []MessageKind{KindOffer, KindAnswer, KindCandidate} {
		assert.True(t, k.IsSignal(), k)
		assert.True(t, k.IsRelayed(), k)
	}
	for _, k := range []MessageKind{KindPubKey, KindMsg} {
		assert.True(t, k.IsApplication(), k)
		assert.True(t, k.IsRelayed(), k)
	}
	for _, k := range []MessageKind{KindEnqueue, KindEnd, KindMatched, KindPing} {
		assert.False(t, k.IsRelayed(), k)
	}
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "validation", ErrorCode(Invalid("mode", "is unknown")))
	assert.Equal(t, "not_found", ErrorCode(ErrSessionNotFound))
	assert.Equal(t, "forbidden", ErrorCode(ErrForbidden))
	assert.Equal(t, "crypto", ErrorCode(ErrCrypto))
}

func TestNewEvent(t *testing.T) {
	msg := NewEvent(KindMatched, "s1", MatchResult{Status: StatusMatched, PartnerID: "a"})
	assert.Equal(t, KindMatched, msg.Type)
	assert.Equal(t, "s1", msg.SessionID)
	assert.JSONEq(t, `{"status":"matched","partnerId":"a","initiator":false}`, string(msg.Payload))

	assert.Nil(t, NewEvent(KindPong, "", nil).Payload)
}
