package e2ee

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runHandshake(t *testing.T, suite Suite) (*Handshake, *Handshake) {
	t.Helper()
	initiator := NewHandshake(true, suite)
	responder := NewHandshake(false, "")

	offer, err := initiator.Start()
	require.NoError(t, err)
	assert.False(t, offer.Echo)
	assert.Equal(t, HandshakeAwaitingEcho, initiator.State())

	reply, err := responder.Receive(offer)
	require.NoError(t, err)
	require.NotNil(t, reply)
	assert.True(t, reply.Echo)
	assert.Equal(t, HandshakeEstablished, responder.State())

	none, err := initiator.Receive(*reply)
	require.NoError(t, err)
	assert.Nil(t, none, "an echo is never answered")
	assert.Equal(t, HandshakeEstablished, initiator.State())

	return initiator, responder
}

func TestHandshakeDerivesSameKey(t *testing.T) {
	for _, suite := range suites {
		t.Run(string(suite), func(t *testing.T) {
			initiator, responder := runHandshake(t, suite)

			ik, ok := initiator.Key()
			require.True(t, ok)
			rk, ok := responder.Key()
			require.True(t, ok)

			sealed, err := ik.Seal([]byte("M"))
			require.NoError(t, err)
			plain, err := rk.Open(sealed)
			require.NoError(t, err)
			assert.Equal(t, "M", string(plain))
		})
	}
}

func TestResponderAdoptsInitiatorSuite(t *testing.T) {
	initiator := NewHandshake(true, SuiteX25519ChaCha20)
	responder := NewHandshake(false, SuiteP256AESGCM)

	offer, err := initiator.Start()
	require.NoError(t, err)
	reply, err := responder.Receive(offer)
	require.NoError(t, err)
	assert.Equal(t, string(SuiteX25519ChaCha20), reply.Suite)

	_, err = initiator.Receive(*reply)
	require.NoError(t, err)
}

func TestHandshakeRejectsOutOfOrder(t *testing.T) {
	responder := NewHandshake(false, "")
	_, err := responder.Start()
	assert.ErrorIs(t, err, ErrNotInitiator)

	initiator := NewHandshake(true, "")
	offer, err := initiator.Start()
	require.NoError(t, err)
	_, err = initiator.Start()
	assert.Error(t, err)

	// An initiator must never answer a non-echo key, or the exchange would loop.
	_, err = initiator.Receive(offer)
	assert.ErrorIs(t, err, ErrUnexpectedOffer)

	echo := offer
	echo.Echo = true
	_, err = responder.Receive(echo)
	assert.ErrorIs(t, err, ErrUnexpectedEcho)

	idle := NewHandshake(true, "")
	_, err = idle.Receive(echo)
	assert.ErrorIs(t, err, ErrUnexpectedEcho)
}

func TestHandshakeEstablishedRejectsFurtherKeys(t *testing.T) {
	initiator, responder := runHandshake(t, SuiteP256AESGCM)

	again, err := NewHandshake(true, "").Start()
	require.NoError(t, err)

	_, err = responder.Receive(again)
	assert.ErrorIs(t, err, ErrAlreadyEstablished)
	again.Echo = true
	_, err = initiator.Receive(again)
	assert.ErrorIs(t, err, ErrAlreadyEstablished)
}

func TestHandshakeClose(t *testing.T) {
	initiator, responder := runHandshake(t, SuiteP256AESGCM)
	key, ok := initiator.Key()
	require.True(t, ok)

	initiator.Close()
	initiator.Close()

	assert.Equal(t, HandshakeClosed, initiator.State())
	_, ok = initiator.Key()
	assert.False(t, ok)
	_, err := key.Seal([]byte("x"))
	assert.Error(t, err, "closing the handshake discards the session key")

	_, err = initiator.Start()
	assert.ErrorIs(t, err, ErrHandshakeClosed)

	rk, ok := responder.Key()
	require.True(t, ok)
	_, err = rk.Seal([]byte("still fine"))
	assert.NoError(t, err)
}
