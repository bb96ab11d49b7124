package matchmaking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

func newClient(id string, mode domain.Mode, interests ...string) *domain.Client {
	c := domain.NewClient(id, domain.TransportHTTP, 0)
	c.Criteria = domain.Criteria{Mode: mode, Interests: interests, Gender: domain.GenderAny}
	return c
}

func TestCompatible(t *testing.T) {
	tests := []struct {
		name string
		a, b domain.Criteria
		want bool
	}{
		{
			name: "different modes",
			a:    domain.Criteria{Mode: domain.ModeText},
			b:    domain.Criteria{Mode: domain.ModeVideo},
			want: false,
		},
		{
			name: "both without interests",
			a:    domain.Criteria{Mode: domain.ModeText},
			b:    domain.Criteria{Mode: domain.ModeText},
			want: true,
		},
		{
			name: "one side empty matches all",
			a:    domain.Criteria{Mode: domain.ModeAudio, Interests: []string{"music"}},
			b:    domain.Criteria{Mode: domain.ModeAudio},
			want: true,
		},
		{
			name: "case-insensitive overlap",
			a:    domain.Criteria{Mode: domain.ModeText, Interests: []string{"gaming"}},
			b:    domain.Criteria{Mode: domain.ModeText, Interests: []string{"Gaming", "Movies"}},
			want: true,
		},
		{
			name: "disjoint interests",
			a:    domain.Criteria{Mode: domain.ModeText, Interests: []string{"anime"}},
			b:    domain.Criteria{Mode: domain.ModeText, Interests: []string{"sports"}},
			want: false,
		},
		{
			name: "mode mismatch wins over empty interests",
			a:    domain.Criteria{Mode: domain.ModeAudio},
			b:    domain.Criteria{Mode: domain.ModeText},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compatible(tt.a, tt.b))
			assert.Equal(t, tt.want, Compatible(tt.b, tt.a), "compatibility must be symmetric")
		})
	}
}

func TestEnqueueOrMatch_NewerArrivalInitiates(t *testing.T) {
	q := New(DefaultTTL)
	now := time.Now()

	a := newClient("a", domain.ModeText, "gaming")
	out, err := q.EnqueueOrMatch(a, now)
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Equal(t, 1, q.Len())

	b := newClient("b", domain.ModeText, "Gaming", "Movies")
	out, err = q.EnqueueOrMatch(b, now.Add(time.Second))
	require.NoError(t, err)
	require.True(t, out.Matched)
	assert.True(t, out.Initiator)
	assert.Equal(t, "a", out.Partner.ID)
	assert.Equal(t, 0, q.Len())
}

func TestEnqueueOrMatch_FIFO(t *testing.T) {
	q := New(DefaultTTL)
	now := time.Now()

	for i, id := range []string{"first", "second", "third"} {
		_, err := q.EnqueueOrMatch(newClient(id, domain.ModeVideo), now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
	}

	out, err := q.EnqueueOrMatch(newClient("late", domain.ModeVideo), now.Add(5*time.Second))
	require.NoError(t, err)
	require.True(t, out.Matched)
	assert.Equal(t, "first", out.Partner.ID)
	assert.Equal(t, 2, q.Len())
}

func TestEnqueueOrMatch_SkipsIncompatible(t *testing.T) {
	q := New(DefaultTTL)
	now := time.Now()

	_, _ = q.EnqueueOrMatch(newClient("audio", domain.ModeAudio), now)
	_, _ = q.EnqueueOrMatch(newClient("anime", domain.ModeText, "anime"), now)
	_, _ = q.EnqueueOrMatch(newClient("chess", domain.ModeText, "chess"), now)

	out, err := q.EnqueueOrMatch(newClient("x", domain.ModeText, "CHESS"), now)
	require.NoError(t, err)
	require.True(t, out.Matched)
	assert.Equal(t, "chess", out.Partner.ID)
	assert.True(t, q.Contains("audio"))
	assert.True(t, q.Contains("anime"))
}

func TestEnqueueOrMatch_NeverMatchesSelf(t *testing.T) {
	q := New(DefaultTTL)
	now := time.Now()
	a := newClient("a", domain.ModeText)

	_, err := q.EnqueueOrMatch(a, now)
	require.NoError(t, err)

	out, err := q.EnqueueOrMatch(a, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Equal(t, 1, q.Len())
}

func TestEnqueueOrMatch_RequiresIdentity(t *testing.T) {
	q := New(DefaultTTL)
	_, err := q.EnqueueOrMatch(newClient("waiting", domain.ModeText), time.Now())
	require.NoError(t, err)

	c := newClient("x", domain.ModeText)
	c.ID = ""
	before := q.Len()
	_, err = q.EnqueueOrMatch(c, time.Now())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, before, q.Len())

	_, err = q.EnqueueOrMatch(nil, time.Now())
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestExpiredEntriesAreUnmatchable(t *testing.T) {
	q := New(120 * time.Second)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, err := q.EnqueueOrMatch(newClient("a", domain.ModeText), t0)
	require.NoError(t, err)

	out, err := q.EnqueueOrMatch(newClient("b", domain.ModeText), t0.Add(125*time.Second))
	require.NoError(t, err)
	assert.False(t, out.Matched)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, 1, q.Waiting(t0.Add(125*time.Second)), "unswept expired entries are not waiting")
	assert.Equal(t, 0, q.Waiting(t0.Add(250*time.Second)))
}

func TestSweep(t *testing.T) {
	q := New(120 * time.Second)
	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	_, _ = q.EnqueueOrMatch(newClient("old", domain.ModeText, "a"), t0)
	_, _ = q.EnqueueOrMatch(newClient("new", domain.ModeText, "b"), t0.Add(60*time.Second))

	assert.Empty(t, q.Sweep(t0.Add(119*time.Second)))

	evicted := q.Sweep(t0.Add(120 * time.Second))
	require.Len(t, evicted, 1)
	assert.Equal(t, "old", evicted[0].ID)
	assert.Equal(t, 1, q.Len())
	assert.True(t, q.Contains("new"))
}

func TestRemove(t *testing.T) {
	q := New(DefaultTTL)
	_, _ = q.EnqueueOrMatch(newClient("a", domain.ModeText), time.Now())

	assert.True(t, q.Remove("a"))
	assert.False(t, q.Remove("a"))
	assert.Equal(t, 0, q.Len())
}
