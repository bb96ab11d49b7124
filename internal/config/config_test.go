package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadPathDefaults(t *testing.T) {
	cfg, err := LoadPath(writeConfig(t, "env: prod\n"))
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, ":9000", cfg.HTTP.Address)
	assert.Equal(t, 120*time.Second, cfg.Matchmaking.QueueTTL)
	assert.Equal(t, 10*time.Second, cfg.Matchmaking.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.Matchmaking.PresenceTTL)
	assert.Equal(t, time.Duration(0), cfg.Matchmaking.SessionTTL)
	assert.False(t, cfg.Matchmaking.RequeuePartner)
	assert.Equal(t, 16, cfg.WebSocket.EventBuffer)
	assert.Len(t, cfg.WebRTC.STUNServers, 2)
}

func TestLoadPathOverrides(t *testing.T) {
	cfg, err := LoadPath(writeConfig(t, `
env: dev
http:
  address: ":8081"
  allow_origins: ["https://konek.example"]
matchmaking:
  queue_ttl: 30s
  sweep_interval: 2s
  long_poll_timeout: 5m
  requeue_partner: true
webrtc:
  stun_servers: ["stun:stun.example:3478"]
  turn_servers:
    - urls: ["turn:turn.example:3478"]
      username: user
      credential: pass
`))
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.HTTP.Address)
	assert.Equal(t, []string{"https://konek.example"}, cfg.HTTP.AllowOrigins)
	assert.Equal(t, 30*time.Second, cfg.Matchmaking.QueueTTL)
	assert.Equal(t, 2*time.Second, cfg.Matchmaking.SweepInterval)
	assert.Equal(t, 25*time.Second, cfg.Matchmaking.LongPollTimeout, "long poll is capped")
	assert.True(t, cfg.Matchmaking.RequeuePartner)

	servers := cfg.WebRTC.ICEServers()
	require.Len(t, servers, 2)
	assert.Equal(t, []string{"stun:stun.example:3478"}, servers[0].URLs)
	assert.Equal(t, "user", servers[1].Username)
	assert.Equal(t, "pass", servers[1].Credential)
}

func TestLoadPathMissingFile(t *testing.T) {
	_, err := LoadPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.Panics(t, func() { MustLoadPath(filepath.Join(t.TempDir(), "nope.yaml")) })
}
