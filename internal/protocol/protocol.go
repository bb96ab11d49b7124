package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/go-playground/validator/v10"

	"github.com/VibeKonekPilipinas/vibe-konek-core/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode parses one client envelope and checks it against its kind.
func Decode(data []byte) (*domain.SignalMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg domain.SignalMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: malformed envelope: %v", domain.ErrValidation, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("%w: unexpected trailing data", domain.ErrValidation)
	}
	if err := Validate(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Validate applies the per-kind rules to an inbound envelope.
func Validate(msg *domain.SignalMessage) error {
	if msg == nil {
		return domain.Invalid("message", "is required")
	}
	if err := validate.Struct(msg); err != nil {
		return validationError(err)
	}

	switch msg.Type {
	case domain.KindEnqueue:
		_, err := DecodeEnqueue(msg.Payload)
		return err
	case domain.KindOffer, domain.KindAnswer, domain.KindCandidate, domain.KindPubKey, domain.KindMsg:
		if msg.SessionID == "" {
			return domain.Invalid("sessionId", "is required")
		}
		if len(bytes.TrimSpace(msg.Payload)) == 0 || bytes.Equal(bytes.TrimSpace(msg.Payload), []byte("null")) {
			return domain.Invalid("payload", "is required")
		}
	case domain.KindEnd:
		if msg.SessionID == "" {
			return domain.Invalid("sessionId", "is required")
		}
	case domain.KindCancel, domain.KindPoll, domain.KindStats, domain.KindPing:
	default:
		return domain.Invalid("type", fmt.Sprintf("%q is not a client message", msg.Type))
	}
	return nil
}

// DecodeEnqueue turns an enqueue payload into matchmaking criteria, applying defaults.
func DecodeEnqueue(raw json.RawMessage) (domain.Criteria, error) {
	var p domain.EnqueuePayload
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&p); err != nil {
			return domain.Criteria{}, fmt.Errorf("%w: malformed enqueue payload: %v", domain.ErrValidation, err)
		}
	}
	return Criteria(p)
}

// Criteria validates p and fills in the defaults (text mode, any gender).
func Criteria(p domain.EnqueuePayload) (domain.Criteria, error) {
	if err := validate.Struct(p); err != nil {
		return domain.Criteria{}, validationError(err)
	}
	c := domain.Criteria{
		Mode:      p.Mode,
		Interests: domain.NormalizeInterests(p.Interests),
		Gender:    p.Gender,
	}
	if c.Mode == "" {
		c.Mode = domain.ModeText
	}
	if c.Gender == "" {
		c.Gender = domain.GenderAny
	}
	return c, nil
}

func DecodeKeyExchange(raw json.RawMessage) (domain.KeyExchange, error) {
	var kx domain.KeyExchange
	if err := json.Unmarshal(raw, &kx); err != nil {
		return domain.KeyExchange{}, fmt.Errorf("%w: malformed pubkey payload: %v", domain.ErrValidation, err)
	}
	if len(bytes.TrimSpace(kx.JWK)) == 0 {
		return domain.KeyExchange{}, domain.Invalid("jwk", "is required")
	}
	return kx, nil
}

func DecodeEncrypted(raw json.RawMessage) (domain.EncryptedPayload, error) {
	var p domain.EncryptedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.EncryptedPayload{}, fmt.Errorf("%w: malformed msg payload: %v", domain.ErrValidation, err)
	}
	if len(p.IV) == 0 {
		return domain.EncryptedPayload{}, domain.Invalid("iv", "is required")
	}
	if len(p.Ciphertext) == 0 {
		return domain.EncryptedPayload{}, domain.Invalid("ciphertext", "is required")
	}
	return p, nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.Invalid(fe.Field(), "failed "+fe.Tag()+" check")
	}
	return fmt.Errorf("%w: %v", domain.ErrValidation, err)
}
