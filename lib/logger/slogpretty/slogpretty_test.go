package slogpretty

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrettyHandlerWritesMessageAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	log := slog.New(opts.NewPrettyHandler(&buf)).With(slog.String("op", "test"))

	log.Info("peer matched", slog.String("peer_id", "abc"))

	out := buf.String()
	assert.Contains(t, out, "peer matched")
	assert.Contains(t, out, `"peer_id": "abc"`)
	assert.Contains(t, out, `"op": "test"`)
}

func TestPrettyHandlerPrefixesGroups(t *testing.T) {
	var buf bytes.Buffer
	opts := PrettyHandlerOptions{SlogOpts: &slog.HandlerOptions{Level: slog.LevelDebug}}
	log := slog.New(opts.NewPrettyHandler(&buf)).
		With(slog.String("op", "test")).
		WithGroup("ws").
		With(slog.String("remote", "1.2.3.4")).
		WithGroup("limit")

	log.Warn("rate limited", slog.Int("burst", 2), slog.Group("window", slog.Int("ms", 500)))

	out := buf.String()
	assert.Contains(t, out, `"op": "test"`)
	assert.Contains(t, out, `"ws.remote": "1.2.3.4"`)
	assert.Contains(t, out, `"ws.limit.burst": 2`)
	assert.Contains(t, out, `"ws.limit.window.ms": 500`)
}
