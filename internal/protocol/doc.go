// Package protocol decodes and validates the JSON envelopes exchanged over the
// signaling socket.
//
// Every message is a domain.SignalMessage tagged by its type. Decoding is strict:
// unknown fields and trailing data are rejected, and each kind is checked for the
// routing fields it needs. Relayed payloads (offer, answer, candidate, pubkey, msg)
// are only checked for presence; their contents belong to the two peers.
package protocol
