package models

import (
	"encoding/json"
	"time"
)

// EventType is one of the fixed webhook event types subscribers can register for.
type EventType string

// Event types. These strings are part of the subscriber contract and must not change.
const (
	EventTypeStockout               EventType = "inventory.stockout"
	EventTypeOverstock              EventType = "inventory.overstock"
	EventTypeReorder                EventType = "inventory.reorder"
	EventTypeSupplierRequestCreated EventType = "supplier.request_created"
	EventTypeDemandSpike            EventType = "forecasting.demand_spike"
)

// EventTypes lists every supported event type in a stable order.
func EventTypes() []EventType {
	return []EventType{
		EventTypeStockout,
		EventTypeOverstock,
		EventTypeReorder,
		EventTypeSupplierRequestCreated,
		EventTypeDemandSpike,
	}
}

// Valid reports whether t is one of the supported event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeStockout, EventTypeOverstock, EventTypeReorder,
		EventTypeSupplierRequestCreated, EventTypeDemandSpike:
		return true
	}
	return false
}

// Event is a typed occurrence published through the event bus
type Event struct {
	ID         string          `json:"event_id"`
	Type       EventType       `json:"event_type"`
	ProductID  string          `json:"product_id,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Fields decodes the payload into a flat map, used for subscription filter matching.
func (e Event) Fields() map[string]any {
	fields := map[string]any{}
	if len(e.Payload) == 0 {
		return fields
	}
	_ = json.Unmarshal(e.Payload, &fields)
	return fields
}

// NoticeKindSubscriptionDegraded is raised when a subscription is deactivated after repeated delivery failures.
const NoticeKindSubscriptionDegraded = "subscription.degraded"

// Notice is an operator-facing internal notification. Notices are never delivered to webhook subscribers.
type Notice struct {
	Kind                string    `json:"kind"`
	SubscriptionID      string    `json:"subscription_id"`
	EventType           EventType `json:"event_type"`
	Endpoint            string    `json:"endpoint"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Message             string    `json:"message"`
	At                  time.Time `json:"at"`
}
