package e2ee

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

type Suite string

const (
	SuiteP256AESGCM        Suite = "p256-aesgcm"
	SuiteX25519ChaCha20    Suite = "x25519-chacha20poly1305"
	DefaultSuite                 = SuiteP256AESGCM
	p256CoordinateSize           = 32
	x25519PublicKeySize          = 32
	uncompressedPointTag    byte = 0x04
)

var (
	ErrUnknownSuite = errors.New("unknown key exchange suite")
	ErrInvalidJWK   = errors.New("invalid public key jwk")
)

func (s Suite) curve() (ecdh.Curve, error) {
	switch s {
	case SuiteP256AESGCM:
		return ecdh.P256(), nil
	case SuiteX25519ChaCha20:
		return ecdh.X25519(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, string(s))
}

// KeyPair is an ephemeral key pair bound to one suite.
type KeyPair struct {
	suite Suite
	priv  *ecdh.PrivateKey
}

func GenerateKeyPair(suite Suite) (*KeyPair, error) {
	curve, err := suite.curve()
	if err != nil {
		return nil, err
	}
	priv, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{suite: suite, priv: priv}, nil
}

func (k *KeyPair) Suite() Suite {
	return k.suite
}

func (k *KeyPair) Public() *ecdh.PublicKey {
	return k.priv.PublicKey()
}

// PublicJWK exports the public half as a JWK object.
func (k *KeyPair) PublicJWK() (json.RawMessage, error) {
	return MarshalPublicJWK(k.suite, k.priv.PublicKey())
}

type jwk struct {
	Kty string `json:"kty"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y,omitempty"`
	D   string `json:"d,omitempty"`
}

var b64 = base64.RawURLEncoding

func MarshalPublicJWK(suite Suite, pub *ecdh.PublicKey) (json.RawMessage, error) {
	raw := pub.Bytes()
	var key jwk
	switch suite {
	case SuiteP256AESGCM:
		if len(raw) != 1+2*p256CoordinateSize || raw[0] != uncompressedPointTag {
			return nil, ErrInvalidJWK
		}
		key = jwk{
			Kty: "EC",
			Crv: "P-256",
			X:   b64.EncodeToString(raw[1 : 1+p256CoordinateSize]),
			Y:   b64.EncodeToString(raw[1+p256CoordinateSize:]),
		}
	case SuiteX25519ChaCha20:
		key = jwk{Kty: "OKP", Crv: "X25519", X: b64.EncodeToString(raw)}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, string(suite))
	}
	return json.Marshal(key)
}

// ParsePublicJWK reads a peer public key and infers its suite from kty/crv.
// JWKs carrying private material are rejected.
func ParsePublicJWK(raw json.RawMessage) (Suite, *ecdh.PublicKey, error) {
	var key jwk
	if err := json.Unmarshal(raw, &key); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
	}
	if key.D != "" {
		return "", nil, fmt.Errorf("%w: private key material present", ErrInvalidJWK)
	}

	switch {
	case key.Kty == "EC" && key.Crv == "P-256":
		x, errX := decodeCoordinate(key.X, p256CoordinateSize)
		y, errY := decodeCoordinate(key.Y, p256CoordinateSize)
		if errX != nil || errY != nil {
			return "", nil, fmt.Errorf("%w: bad P-256 coordinates", ErrInvalidJWK)
		}
		point := make([]byte, 0, 1+2*p256CoordinateSize)
		point = append(point, uncompressedPointTag)
		point = append(point, x...)
		point = append(point, y...)
		pub, err := ecdh.P256().NewPublicKey(point)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
		}
		return SuiteP256AESGCM, pub, nil
	case key.Kty == "OKP" && key.Crv == "X25519":
		x, err := decodeCoordinate(key.X, x25519PublicKeySize)
		if err != nil {
			return "", nil, fmt.Errorf("%w: bad X25519 key", ErrInvalidJWK)
		}
		pub, err := ecdh.X25519().NewPublicKey(x)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalidJWK, err)
		}
		return SuiteX25519ChaCha20, pub, nil
	}
	return "", nil, fmt.Errorf("%w: unsupported kty=%q crv=%q", ErrInvalidJWK, key.Kty, key.Crv)
}

func decodeCoordinate(s string, size int) ([]byte, error) {
	b, err := b64.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) != size {
		return nil, fmt.Errorf("want %d bytes, got %d", size, len(b))
	}
	return b, nil
}

// DeriveSessionKey runs ECDH between our private key and the peer's public key.
// Both sides arrive at the same key regardless of who calls first.
func DeriveSessionKey(own *KeyPair, peer *ecdh.PublicKey) (*SessionKey, error) {
	if own == nil || peer == nil {
		return nil, fmt.Errorf("%w: missing key", domain.ErrCrypto)
	}
	if peer.Curve() != own.priv.Curve() {
		return nil, fmt.Errorf("%w: curve mismatch", domain.ErrCrypto)
	}
	secret, err := own.priv.ECDH(peer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCrypto, err)
	}
	defer Wipe(secret)

	switch own.suite {
	case SuiteP256AESGCM:
		return newAESGCMKey(secret)
	case SuiteX25519ChaCha20:
		a, b := own.Public().Bytes(), peer.Bytes()
		if bytes.Compare(a, b) > 0 {
			a, b = b, a
		}
		return newChaChaKey(secret, a, b)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSuite, string(own.suite))
}
