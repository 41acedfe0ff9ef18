package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// DecisionKind is the closed set of outcomes of rule evaluation.
type DecisionKind uint8

const (
	DecisionNone DecisionKind = iota
	DecisionReorder
	DecisionStockoutAlert
	DecisionOverstockAlert
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionNone:
		return "none"
	case DecisionReorder:
		return "reorder"
	case DecisionStockoutAlert:
		return "stockout_alert"
	case DecisionOverstockAlert:
		return "overstock_alert"
	}
	return fmt.Sprintf("DecisionKind(%d)", uint8(k))
}

// MarshalJSON encodes the kind as its string name.
func (k DecisionKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a kind from its string name.
func (k *DecisionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "none":
		*k = DecisionNone
	case "reorder":
		*k = DecisionReorder
	case "stockout_alert":
		*k = DecisionStockoutAlert
	case "overstock_alert":
		*k = DecisionOverstockAlert
	default:
		return fmt.Errorf("unknown decision kind %q", s)
	}
	return nil
}

// EventType maps a decision kind to the event published for it. ok is false for DecisionNone.
func (k DecisionKind) EventType() (EventType, bool) {
	switch k {
	case DecisionReorder:
		return EventTypeReorder, true
	case DecisionStockoutAlert:
		return EventTypeStockout, true
	case DecisionOverstockAlert:
		return EventTypeOverstock, true
	case DecisionNone:
		return "", false
	}
	return "", false
}

// Priorities attached to decisions
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Decision is the outcome of evaluating one product
type Decision struct {
	ProductID string       `json:"product_id"`
	Kind      DecisionKind `json:"kind"`
	Quantity  int64        `json:"quantity,omitempty"`
	Priority  string       `json:"priority,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	DecidedAt time.Time    `json:"decided_at"`
}

// DecisionPayload is the webhook body for inventory.* events
type DecisionPayload struct {
	ProductID          string    `json:"product_id"`
	SupplierID         string    `json:"supplier_id,omitempty"`
	Decision           string    `json:"decision"`
	Quantity           int64     `json:"quantity,omitempty"`
	CurrentStock       int64     `json:"current_stock"`
	MinThreshold       int64     `json:"min_threshold"`
	MaxThreshold       int64     `json:"max_threshold"`
	Priority           string    `json:"priority,omitempty"`
	Reason             string    `json:"reason,omitempty"`
	ForecastRate       float64   `json:"forecast_rate_per_day"`
	ForecastConfidence float64   `json:"forecast_confidence"`
	Manual             bool      `json:"manual,omitempty"`
	DecidedAt          time.Time `json:"decided_at"`
}

// SupplierRequestPayload is the webhook body for supplier.request_created
type SupplierRequestPayload struct {
	RequestID  string    `json:"request_id"`
	SupplierID string    `json:"supplier_id"`
	ProductID  string    `json:"product_id"`
	Quantity   int64     `json:"quantity"`
	Priority   string    `json:"priority"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// DemandSpikePayload is the webhook body for forecasting.demand_spike
type DemandSpikePayload struct {
	ProductID    string    `json:"product_id"`
	RatePerDay   float64   `json:"rate_per_day"`
	LatestRate   float64   `json:"latest_rate_per_day"`
	Confidence   float64   `json:"confidence"`
	Trend        string    `json:"trend"`
	CurrentStock int64     `json:"current_stock"`
	ComputedAt   time.Time `json:"computed_at"`
}
