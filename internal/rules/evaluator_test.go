package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func snapshot(qty, min, max, reorderQty int64) models.Snapshot {
	return models.Snapshot{Record: models.ProductRecord{
		ProductID:       "p-1",
		Quantity:        qty,
		MinThreshold:    min,
		MaxThreshold:    max,
		ReorderQuantity: reorderQty,
	}}
}

func TestEvaluate_Precedence(t *testing.T) {
	e := NewEvaluator(Config{})
	flat := models.ForecastResult{}
	steep := models.ForecastResult{Rate: 1000, Confidence: 0.95}

	tests := []struct {
		name     string
		snap     models.Snapshot
		forecast models.ForecastResult
		kind     models.DecisionKind
		quantity int64
	}{
		{"empty stock is a stockout regardless of forecast", snapshot(0, 10, 100, 50), steep, models.DecisionStockoutAlert, 0},
		{"below minimum reorders the configured quantity", snapshot(5, 10, 100, 50), flat, models.DecisionReorder, 50},
		{"above maximum is overstock", snapshot(150, 10, 100, 50), flat, models.DecisionOverstockAlert, 0},
		{"at minimum does nothing", snapshot(10, 10, 100, 50), steep, models.DecisionNone, 0},
		{"at maximum does nothing", snapshot(100, 10, 100, 50), flat, models.DecisionNone, 0},
		{"within range does nothing", snapshot(50, 10, 100, 50), flat, models.DecisionNone, 0},
		{"degenerate thresholds below", snapshot(39, 40, 40, 5), flat, models.DecisionReorder, 5},
		{"degenerate thresholds equal", snapshot(40, 40, 40, 5), flat, models.DecisionNone, 0},
		{"degenerate thresholds above", snapshot(41, 40, 40, 5), flat, models.DecisionOverstockAlert, 0},
		{"zero minimum never reorders", snapshot(1, 0, 0, 5), flat, models.DecisionOverstockAlert, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Evaluate(tt.snap, tt.forecast, now)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Equal(t, tt.quantity, d.Quantity)
			assert.Equal(t, "p-1", d.ProductID)
			assert.Equal(t, now, d.DecidedAt)
		})
	}
}

func TestEvaluate_DemandAwareSizing(t *testing.T) {
	e := NewEvaluator(Config{LeadTime: 7 * 24 * time.Hour})

	tests := []struct {
		name     string
		forecast models.ForecastResult
		want     int64
		priority string
	}{
		{"slow demand keeps reorder quantity", models.ForecastResult{Rate: 2, Confidence: 0.9}, 50, models.PriorityHigh},
		{"steep confident demand sizes up", models.ForecastResult{Rate: 10, Confidence: 0.95}, 67, models.PriorityHigh},
		{"steep but unconfident demand is damped", models.ForecastResult{Rate: 10, Confidence: 0.1}, 50, models.PriorityMedium},
		{"negative rate is ignored", models.ForecastResult{Rate: -10, Confidence: 1}, 50, models.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Evaluate(snapshot(8, 10, 100, 50), tt.forecast, now)
			assert.Equal(t, models.DecisionReorder, d.Kind)
			assert.Equal(t, tt.want, d.Quantity)
			assert.Equal(t, tt.priority, d.Priority)
		})
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	e := NewEvaluator(Config{})
	fc := models.ForecastResult{Rate: 12.5, Confidence: 0.6}

	for _, qty := range []int64{-3, 0, 1, 9, 10, 11, 99, 100, 101, 5000} {
		snap := snapshot(qty, 10, 100, 40)
		assert.Equal(t, e.Evaluate(snap, fc, now), e.Evaluate(snap, fc, now))
	}
}

func TestEvaluate_StockoutPriorityAndReason(t *testing.T) {
	d := NewEvaluator(Config{}).Evaluate(snapshot(0, 10, 100, 50), models.ForecastResult{}, now)

	assert.Equal(t, models.PriorityHigh, d.Priority)
	assert.Contains(t, d.Reason, "depleted")
}
