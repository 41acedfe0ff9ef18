package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineMetrics_Creation(t *testing.T) {
	t.Run("successfully create engine metrics", func(t *testing.T) {
		m, err := NewEngineMetrics()
		require.NoError(t, err)
		assert.NotNil(t, m)
		assert.NotNil(t, m.passesCounter)
		assert.NotNil(t, m.decisionsCounter)
		assert.NotNil(t, m.attemptsCounter)
		assert.NotNil(t, m.deliveriesPendingGauge)
		assert.NotNil(t, m.subscriptionsDegraded)
	})
}

func TestEngineMetrics_Record(t *testing.T) {
	m, err := NewEngineMetrics()
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("record pass and decisions", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordPass(ctx, 12, 1, 40*time.Millisecond)
			for _, kind := range []string{"none", "reorder", "stockout_alert", "overstock_alert"} {
				m.RecordDecision(ctx, kind)
			}
		})
	})

	t.Run("record delivery lifecycle", func(t *testing.T) {
		assert.NotPanics(t, func() {
			m.RecordDeliveryQueued(ctx, "inventory.reorder")
			m.RecordAttempt(ctx, "inventory.reorder", "failure", 120*time.Millisecond)
			m.RecordRetry(ctx, "inventory.reorder", 1)
			m.RecordAttempt(ctx, "inventory.reorder", "success", 80*time.Millisecond)
			m.RecordDeliveryFinished(ctx, "inventory.reorder", "delivered")
			m.RecordSubscriptionDegraded(ctx, "inventory.reorder")
		})
	})
}

func TestEngineMetrics_NilReceiver(t *testing.T) {
	var m *EngineMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordPass(ctx, 1, 0, time.Second)
		m.RecordDecision(ctx, "reorder")
		m.RecordDeliveryQueued(ctx, "inventory.stockout")
		m.RecordAttempt(ctx, "inventory.stockout", "timeout", time.Second)
		m.RecordRetry(ctx, "inventory.stockout", 2)
		m.RecordDeliveryFinished(ctx, "inventory.stockout", "exhausted")
		m.RecordSubscriptionDegraded(ctx, "inventory.stockout")
	})
}
