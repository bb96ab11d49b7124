package e2ee

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

const (
	keySize   = 32
	NonceSize = 12
	hkdfInfo  = "vibe-konek session key v1"
)

// SessionKey seals and opens application messages for one session.
type SessionKey struct {
	mu   sync.RWMutex
	raw  []byte
	aead cipher.AEAD
}

func newAESGCMKey(secret []byte) (*SessionKey, error) {
	if len(secret) != keySize {
		return nil, fmt.Errorf("%w: unexpected secret length %d", domain.ErrCrypto, len(secret))
	}
	raw := make([]byte, keySize)
	copy(raw, secret)

	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SessionKey{raw: raw, aead: aead}, nil
}

func newChaChaKey(secret, lowPub, highPub []byte) (*SessionKey, error) {
	info := make([]byte, 0, len(hkdfInfo)+len(lowPub)+len(highPub))
	info = append(info, hkdfInfo...)
	info = append(info, lowPub...)
	info = append(info, highPub...)

	raw := make([]byte, keySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), raw); err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(raw)
	if err != nil {
		return nil, err
	}
	return &SessionKey{raw: raw, aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (k *SessionKey) Seal(plaintext []byte) (domain.EncryptedPayload, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.aead == nil {
		return domain.EncryptedPayload{}, fmt.Errorf("%w: key discarded", domain.ErrCrypto)
	}

	iv := make([]byte, NonceSize)
	if _, err := rand.Read(iv); err != nil {
		return domain.EncryptedPayload{}, err
	}
	return domain.EncryptedPayload{
		IV:         iv,
		Ciphertext: k.aead.Seal(nil, iv, plaintext, nil),
	}, nil
}

// Open authenticates and decrypts p. It never returns partial plaintext.
func (k *SessionKey) Open(p domain.EncryptedPayload) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.aead == nil {
		return nil, fmt.Errorf("%w: key discarded", domain.ErrCrypto)
	}
	if len(p.IV) != NonceSize {
		return nil, fmt.Errorf("%w: invalid nonce length %d", domain.ErrCrypto, len(p.IV))
	}

	plain, err := k.aead.Open(nil, p.IV, p.Ciphertext, nil)
	if err != nil {
		return nil, domain.ErrCrypto
	}
	return plain, nil
}

// Close zeroes the raw key bytes and drops the cipher. Later Seal and Open calls fail.
// Best effort: the cipher's expanded key schedule is not zeroed and is left to the
// garbage collector.
func (k *SessionKey) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	Wipe(k.raw)
	k.raw = nil
	k.aead = nil
}

// ChatText is the plaintext shape of a chat message.
type ChatText struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

func (k *SessionKey) SealChat(msg ChatText) (domain.EncryptedPayload, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return domain.EncryptedPayload{}, err
	}
	defer Wipe(body)
	return k.Seal(body)
}

func (k *SessionKey) OpenChat(p domain.EncryptedPayload) (ChatText, error) {
	body, err := k.Open(p)
	if err != nil {
		return ChatText{}, err
	}
	defer Wipe(body)

	var msg ChatText
	if err := json.Unmarshal(body, &msg); err != nil {
		return ChatText{}, fmt.Errorf("%w: malformed chat body", domain.ErrCrypto)
	}
	return msg, nil
}
