// Package e2ee implements the session-key handshake and message sealing used by
// matched peers.
//
// # Handshake
//
// The initiator sends an ephemeral public key with echo=false. The responder
// generates its own ephemeral key pair, derives the session key and replies once
// with echo=true. The initiator derives the same key from the reply and never
// answers an echo, which terminates the exchange.
//
// # Suites
//
//   - p256-aesgcm: ECDH over P-256, the raw 32-byte shared secret used directly
//     as an AES-256-GCM key. This is what WebCrypto produces for
//     deriveKey({name: "ECDH"}, ..., {name: "AES-GCM", length: 256}), so browser
//     peers interoperate.
//   - x25519-chacha20poly1305: X25519, HKDF-SHA256 over the shared secret bound
//     to both public keys, ChaCha20-Poly1305.
//
// Public keys travel as JWK. Each sealed message carries a fresh random 12-byte
// nonce. Any authentication failure is reported as domain.ErrCrypto and no
// plaintext is returned.
//
// Keys live only as long as the session. Close zeroes the raw key bytes on a
// best-effort basis; copies held by the cipher implementations are not reachable.
package e2ee
