package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

func TestDecodeEnqueue(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"enqueue","payload":{"mode":"video","interests":["Gaming"," movies "],"gender":"female"}}`))
	require.NoError(t, err)
	require.Equal(t, domain.KindEnqueue, msg.Type)

	c, err := DecodeEnqueue(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeVideo, c.Mode)
	assert.Equal(t, []string{"gaming", "movies"}, c.Interests)
	assert.Equal(t, domain.GenderFemale, c.Gender)
}

func TestDecodeEnqueueDefaults(t *testing.T) {
	msg, err := Decode([]byte(`{"type":"enqueue"}`))
	require.NoError(t, err)

	c, err := DecodeEnqueue(msg.Payload)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeText, c.Mode)
	assert.Equal(t, domain.GenderAny, c.Gender)
	assert.Nil(t, c.Interests)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `{`},
		{"missing type", `{"sessionId":"s"}`},
		{"unknown field", `{"type":"ping","extra":1}`},
		{"trailing data", `{"type":"ping"}{"type":"ping"}`},
		{"server kind", `{"type":"matched"}`},
		{"unknown kind", `{"type":"join"}`},
		{"bad mode", `{"type":"enqueue","payload":{"mode":"hologram"}}`},
		{"bad gender", `{"type":"enqueue","payload":{"gender":"robot"}}`},
		{"unknown enqueue field", `{"type":"enqueue","payload":{"mood":"happy"}}`},
		{"offer without session", `{"type":"offer","payload":{"type":"offer","sdp":"v=0"}}`},
		{"candidate without payload", `{"type":"candidate","sessionId":"s"}`},
		{"msg with null payload", `{"type":"msg","sessionId":"s","payload":null}`},
		{"end without session", `{"type":"end"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.in))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestDecodeRelayedKeepsPayloadVerbatim(t *testing.T) {
	in := `{"type":"candidate","sessionId":"s1","to":"b","payload":{"candidate":"candidate:1 1 udp 2122260223 10.0.0.1 5000 typ host","sdpMid":"0"}}`
	msg, err := Decode([]byte(in))
	require.NoError(t, err)

	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, "b", msg.To)
	assert.JSONEq(t, `{"candidate":"candidate:1 1 udp 2122260223 10.0.0.1 5000 typ host","sdpMid":"0"}`, string(msg.Payload))
}

func TestDecodeKeyExchangeAndEncrypted(t *testing.T) {
	kx, err := DecodeKeyExchange(json.RawMessage(`{"jwk":{"kty":"EC"},"echo":true}`))
	require.NoError(t, err)
	assert.True(t, kx.Echo)
	assert.JSONEq(t, `{"kty":"EC"}`, string(kx.JWK))

	_, err = DecodeKeyExchange(json.RawMessage(`{"echo":false}`))
	assert.ErrorIs(t, err, domain.ErrValidation)

	p, err := DecodeEncrypted(json.RawMessage(`{"iv":"AAECAwQFBgcICQoL","ciphertext":"AQID"}`))
	require.NoError(t, err)
	assert.Len(t, p.IV, 12)
	assert.Equal(t, []byte{1, 2, 3}, p.Ciphertext)

	_, err = DecodeEncrypted(json.RawMessage(`{"iv":"AAECAwQFBgcICQoL"}`))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
