package delivery

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

func testEvent() models.Event {
	return models.Event{
		ID:         "evt-1",
		Type:       models.EventTypeReorder,
		ProductID:  "p-1",
		OccurredAt: time.Date(2026, 2, 3, 4, 5, 6, 789, time.UTC),
		Payload:    json.RawMessage(`{"product_id":"p-1","quantity":50,"reason":"a<b & c>d"}`),
	}
}

func TestSign_Format(t *testing.T) {
	sig := Sign("secret", 1700000000, []byte(`{"a":1}`))

	assert.True(t, strings.HasPrefix(sig, "sha256="))
	assert.Len(t, sig, len("sha256=")+64)
	assert.Equal(t, sig, Sign("secret", 1700000000, []byte(`{"a":1}`)))
	assert.NotEqual(t, sig, Sign("secret", 1700000001, []byte(`{"a":1}`)))
	assert.NotEqual(t, sig, Sign("other", 1700000000, []byte(`{"a":1}`)))
}

func TestSealVerify(t *testing.T) {
	issued := time.Unix(1_800_000_000, 0)
	body, sig, err := Seal("whsec", NewEnvelope(testEvent(), issued))
	require.NoError(t, err)

	env, err := Verify("whsec", body, issued.Add(time.Minute), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, sig, env.Signature)
	assert.Equal(t, "evt-1", env.EventID)
	assert.Equal(t, models.EventTypeReorder, env.EventType)
	assert.Equal(t, issued.Unix(), env.IssuedAt)
	assert.JSONEq(t, string(testEvent().Payload), string(env.Payload))

	t.Run("wrong secret", func(t *testing.T) {
		_, err := Verify("other", body, issued, 5*time.Minute)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("tampered payload", func(t *testing.T) {
		tampered := strings.Replace(string(body), `"quantity":50`, `"quantity":500`, 1)
		require.NotEqual(t, string(body), tampered)
		_, err := Verify("whsec", []byte(tampered), issued, 5*time.Minute)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := Verify("whsec", body, issued.Add(10*time.Minute), 5*time.Minute)
		assert.ErrorIs(t, err, ErrSignatureExpired)
	})

	t.Run("zero tolerance skips age check", func(t *testing.T) {
		_, err := Verify("whsec", body, issued.Add(24*time.Hour), 0)
		assert.NoError(t, err)
	})

	t.Run("missing signature", func(t *testing.T) {
		unsigned, err := json.Marshal(NewEnvelope(testEvent(), issued))
		require.NoError(t, err)
		_, err = Verify("whsec", unsigned, issued, 5*time.Minute)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Verify("whsec", []byte("nope"), issued, 5*time.Minute)
		assert.ErrorIs(t, err, ErrSignatureInvalid)
	})
}

func TestNewEnvelope_EmptyPayload(t *testing.T) {
	evt := testEvent()
	evt.Payload = nil

	env := NewEnvelope(evt, time.Unix(1, 0))
	assert.JSONEq(t, "{}", string(env.Payload))
}

func TestBackoffConfig_Defaults(t *testing.T) {
	cfg := BackoffConfig{Initial: -1, Max: 0, Multiplier: 0.5, Jitter: 2}.withDefaults()
	assert.Equal(t, DefaultBackoff(), cfg)

	cfg = BackoffConfig{Initial: time.Minute, Max: time.Second, Multiplier: 3, Jitter: 0}.withDefaults()
	assert.Equal(t, time.Minute, cfg.Max)

	b := BackoffConfig{Initial: 10 * time.Millisecond, Max: 40 * time.Millisecond, Multiplier: 2}.newBackOff()
	assert.Equal(t, 10*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 20*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 40*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 40*time.Millisecond, b.NextBackOff())
}
