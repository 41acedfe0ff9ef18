package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/events"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

func TestReceiver_VerifiesSignatures(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	rcv := &receiver{secret: "s3cret", tolerance: time.Minute, clock: func() time.Time { return now }}
	router := rcv.router()

	evt, err := events.SampleEvent(models.EventTypeReorder, now)
	require.NoError(t, err)

	post := func(secret string, issuedAt time.Time) int {
		body, sig, err := delivery.Seal(secret, delivery.NewEnvelope(evt, issuedAt))
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/hooks/erp", bytes.NewReader(body))
		req.Header.Set(delivery.SignatureHeader, sig)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusNoContent, post("s3cret", now))
	assert.Equal(t, http.StatusUnauthorized, post("wrong", now))
	assert.Equal(t, http.StatusUnauthorized, post("s3cret", now.Add(-time.Hour)))

	received := rcv.snapshot()
	require.Len(t, received, 1)
	assert.Equal(t, evt.ID, received[0].EventID)
	assert.Equal(t, models.EventTypeReorder, received[0].EventType)
}

func TestLoadReceiverEnv(t *testing.T) {
	t.Setenv("WEBHOOK_SECRET", "whsec")
	for _, key := range []string{"SIGNATURE_TOLERANCE", "API_TOKEN"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := loadReceiverEnv()
	require.NoError(t, err)
	assert.Equal(t, "whsec", cfg.Secret)
	assert.Equal(t, 5*time.Minute, cfg.Tolerance)

	t.Setenv("SIGNATURE_TOLERANCE", "30s")
	cfg, err = loadReceiverEnv()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Tolerance)

	t.Setenv("SIGNATURE_TOLERANCE", "-1s")
	_, err = loadReceiverEnv()
	assert.Error(t, err)
}
