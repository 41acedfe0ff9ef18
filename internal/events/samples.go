package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

// NewEvent builds an event with a JSON-encoded payload.
func NewEvent(t models.EventType, productID string, payload any, at time.Time) (models.Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return models.Event{}, fmt.Errorf("failed to encode %s payload: %w", t, err)
	}
	return models.Event{Type: t, ProductID: productID, OccurredAt: at.UTC(), Payload: raw}, nil
}

// SampleEvent returns a representative event of the given type so integrators can map
// fields before any real event fires.
func SampleEvent(t models.EventType, now time.Time) (models.Event, error) {
	const productID = "sample-product"
	now = now.UTC()

	var payload any
	switch t {
	case models.EventTypeStockout:
		payload = models.DecisionPayload{
			ProductID: productID, SupplierID: "sample-supplier", Decision: models.DecisionStockoutAlert.String(),
			CurrentStock: 0, MinThreshold: 10, MaxThreshold: 100, Priority: models.PriorityHigh,
			Reason: "stock level 0 is depleted (minimum 10)", DecidedAt: now,
		}
	case models.EventTypeReorder:
		payload = models.DecisionPayload{
			ProductID: productID, SupplierID: "sample-supplier", Decision: models.DecisionReorder.String(),
			Quantity: 50, CurrentStock: 5, MinThreshold: 10, MaxThreshold: 100, Priority: models.PriorityMedium,
			Reason: "stock level 5 below minimum 10", ForecastRate: 4.2, ForecastConfidence: 0.6, DecidedAt: now,
		}
	case models.EventTypeOverstock:
		payload = models.DecisionPayload{
			ProductID: productID, Decision: models.DecisionOverstockAlert.String(),
			CurrentStock: 150, MinThreshold: 10, MaxThreshold: 100, Priority: models.PriorityLow,
			Reason: "stock level 150 above maximum 100", DecidedAt: now,
		}
	case models.EventTypeSupplierRequestCreated:
		payload = models.SupplierRequestPayload{
			RequestID: "sample-request", SupplierID: "sample-supplier", ProductID: productID,
			Quantity: 50, Priority: models.PriorityMedium, Reason: "stock level 5 below minimum 10", CreatedAt: now,
		}
	case models.EventTypeDemandSpike:
		payload = models.DemandSpikePayload{
			ProductID: productID, RatePerDay: 22, LatestRate: 50, Confidence: 0.19,
			Trend: models.TrendIncreasing, CurrentStock: 40, ComputedAt: now,
		}
	default:
		return models.Event{}, fmt.Errorf("%w: %q", ErrUnknownEventType, t)
	}

	evt, err := NewEvent(t, productID, payload, now)
	if err != nil {
		return models.Event{}, err
	}
	evt.ID = "sample-" + string(t)
	return evt, nil
}
