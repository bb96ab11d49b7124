package presence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

func TestAddGetRemove(t *testing.T) {
	r := New()
	c := domain.NewClient("a", domain.TransportWebSocket, 0)

	require.NoError(t, r.Add(c))
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, c, got)

	err := r.Add(domain.NewClient("a", domain.TransportHTTP, 0))
	assert.True(t, errors.Is(err, domain.ErrValidation))

	removed, ok := r.Remove("a")
	require.True(t, ok)
	assert.Same(t, c, removed)

	_, ok = r.Remove("a")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}

func TestStaleOnlyReportsHTTPClients(t *testing.T) {
	r := New()
	now := time.Now()

	httpOld := domain.NewClient("http-old", domain.TransportHTTP, 0)
	httpOld.Touch(now.Add(-10 * time.Minute))
	httpFresh := domain.NewClient("http-fresh", domain.TransportHTTP, 0)
	httpFresh.Touch(now)
	wsOld := domain.NewClient("ws-old", domain.TransportWebSocket, 0)
	wsOld.Touch(now.Add(-10 * time.Minute))

	for _, c := range []*domain.Client{httpOld, httpFresh, wsOld} {
		require.NoError(t, r.Add(c))
	}

	stale := r.Stale(now, 5*time.Minute)
	require.Len(t, stale, 1)
	assert.Equal(t, "http-old", stale[0].ID)

	assert.Nil(t, r.Stale(now, 0))
}

func TestAll(t *testing.T) {
	r := New()
	require.NoError(t, r.Add(domain.NewClient("a", domain.TransportHTTP, 0)))
	require.NoError(t, r.Add(domain.NewClient("b", domain.TransportWebSocket, 0)))

	ids := make([]string, 0, 2)
	for _, c := range r.All() {
		ids = append(ids, c.ID)
	}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
