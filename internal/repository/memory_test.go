package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

func TestInMemoryStateStore_Atomically(t *testing.T) {
	store := NewInMemoryStateStore(time.Minute)
	ctx := context.Background()

	err := store.Atomically(ctx, func(st *State) error {
		return st.Presence.Add(domain.NewClient("a", domain.TransportHTTP, 0))
	})
	require.NoError(t, err)

	var online int
	require.NoError(t, store.Atomically(ctx, func(st *State) error {
		online = st.Presence.Len()
		assert.Equal(t, time.Minute, st.Queue.TTL())
		return nil
	}))
	assert.Equal(t, 1, online)

	sentinel := errors.New("boom")
	assert.ErrorIs(t, store.Atomically(ctx, func(*State) error { return sentinel }), sentinel)
}

func TestInMemoryStateStore_CanceledContext(t *testing.T) {
	store := NewInMemoryStateStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := store.Atomically(ctx, func(*State) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestInMemoryStateStore_Close(t *testing.T) {
	store := NewInMemoryStateStore(time.Minute)
	require.NoError(t, store.Close())

	err := store.Atomically(context.Background(), func(*State) error { return nil })
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestInMemorySessionLog(t *testing.T) {
	repo := NewInMemorySessionLogRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	s := domain.NewSession("a", "b", "b", domain.ModeVideo, now)
	require.NoError(t, repo.Record(ctx, s))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	s.EndedAt = now.Add(time.Minute)
	s.Reason = domain.ReasonExplicitEnd
	s.Connected = true
	require.NoError(t, repo.Finish(ctx, s))

	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonExplicitEnd, got.Reason)
	assert.True(t, got.Connected)
	assert.Equal(t, "b", got.Initiator)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrRecordMissing)
	assert.ErrorIs(t, repo.Finish(ctx, &domain.Session{ID: "missing"}), ErrRecordMissing)
}

func TestSessionModelConversion(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := domain.NewSession("a", "b", "a", domain.ModeAudio, now)

	rec := toModelSession(s)
	assert.Nil(t, rec.EndedAt, "live sessions have no end time")
	assert.Equal(t, "audio", rec.Mode)

	s.EndedAt = now.Add(time.Hour)
	s.Reason = domain.ReasonTimeout
	back := toDomainSession(toModelSession(s))
	assert.Equal(t, s.EndedAt, back.EndedAt)
	assert.Equal(t, domain.ReasonTimeout, back.Reason)
	assert.Equal(t, s.ParticipantB, back.ParticipantB)
}
