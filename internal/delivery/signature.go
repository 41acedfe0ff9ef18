package delivery

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

// Headers sent with every webhook request
const (
	SignatureHeader = "X-Webhook-Signature"
	TimestampHeader = "X-Webhook-Timestamp"
	EventTypeHeader = "X-Webhook-Event"
	DeliveryHeader  = "X-Webhook-Delivery"

	signaturePrefix = "sha256="
)

var (
	// ErrSignatureInvalid is returned when a signature is missing, malformed or does not match.
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	// ErrSignatureExpired is returned when issued_at falls outside the tolerance window.
	ErrSignatureExpired = errors.New("webhook signature expired")
)

// Envelope is the JSON body POSTed to subscribers.
type Envelope struct {
	EventID    string           `json:"event_id"`
	EventType  models.EventType `json:"event_type"`
	OccurredAt time.Time        `json:"occurred_at"`
	IssuedAt   int64            `json:"issued_at"`
	Payload    json.RawMessage  `json:"payload"`
	Signature  string           `json:"signature,omitempty"`
}

// NewEnvelope wraps an event for delivery at issuedAt.
func NewEnvelope(evt models.Event, issuedAt time.Time) Envelope {
	payload := evt.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return Envelope{
		EventID:    evt.ID,
		EventType:  evt.Type,
		OccurredAt: evt.OccurredAt.UTC(),
		IssuedAt:   issuedAt.Unix(),
		Payload:    payload,
	}
}

// Sign computes "sha256=<hex>" over "<issuedAt>.<body>" keyed by secret.
func Sign(secret string, issuedAt int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(issuedAt, 10)))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// Seal signs the envelope and returns the final request body along with its signature.
func Seal(secret string, env Envelope) ([]byte, string, error) {
	env.Signature = ""
	unsigned, err := json.Marshal(env)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	env.Signature = Sign(secret, env.IssuedAt, unsigned)
	body, err := json.Marshal(env)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal envelope: %w", err)
	}
	return body, env.Signature, nil
}

// Verify checks a received envelope body against secret. A zero tolerance disables the age check.
func Verify(secret string, body []byte, now time.Time, tolerance time.Duration) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	got := env.Signature
	if !strings.HasPrefix(got, signaturePrefix) {
		return Envelope{}, fmt.Errorf("%w: missing %s prefix", ErrSignatureInvalid, signaturePrefix)
	}

	env.Signature = ""
	unsigned, err := json.Marshal(env)
	if err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	want := Sign(secret, env.IssuedAt, unsigned)
	if !hmac.Equal([]byte(got), []byte(want)) {
		return Envelope{}, ErrSignatureInvalid
	}

	if tolerance > 0 {
		age := now.Sub(time.Unix(env.IssuedAt, 0))
		if age > tolerance || age < -tolerance {
			return Envelope{}, fmt.Errorf("%w: issued %s ago", ErrSignatureExpired, age.Truncate(time.Second))
		}
	}
	env.Signature = got
	return env, nil
}
