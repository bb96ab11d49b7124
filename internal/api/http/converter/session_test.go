package converter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

func TestSessionToApi(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	s := domain.NewSession("a", "b", "b", domain.ModeAudio, created)

	live := SessionToApi(s)
	assert.Equal(t, []string{"a", "b"}, live.Participants)
	assert.Nil(t, live.EndedAt)

	s.EndedAt = created.Add(time.Minute)
	s.Reason = domain.ReasonTimeout
	ended := SessionToApi(s)
	if assert.NotNil(t, ended.EndedAt) {
		assert.Equal(t, s.EndedAt, *ended.EndedAt)
	}
	assert.Equal(t, domain.ReasonTimeout, ended.Reason)
}

func TestEventsToApiNeverNull(t *testing.T) {
	assert.NotNil(t, EventsToApi(nil).Events)
}

func TestEnqueueToApi(t *testing.T) {
	res := domain.MatchResult{Status: domain.StatusWaiting}

	raw, err := json.Marshal(EnqueueToApi(res, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"waiting","initiator":false}`, string(raw), "credentials are only sent on registration")

	c := domain.NewClient("", domain.TransportHTTP, 0)
	raw, err = json.Marshal(EnqueueToApi(res, c))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, c.ID, got["peerId"])
	assert.Equal(t, c.Token, got["token"])
	assert.Equal(t, "waiting", got["status"])
}
