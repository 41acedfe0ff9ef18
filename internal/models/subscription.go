package models

import "time"

// Subscription is a webhook endpoint registered for one event type.
// Subscriptions are never deleted; they are deactivated for auditability.
type Subscription struct {
	ID                  string            `json:"id"`
	EventType           EventType         `json:"event_type"`
	Endpoint            string            `json:"endpoint"`
	Secret              string            `json:"-"`
	Filters             map[string]string `json:"filters,omitempty"`
	Description         string            `json:"description,omitempty"`
	Active              bool              `json:"active"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	DeactivatedReason   string            `json:"deactivated_reason,omitempty"`
	TotalDeliveries     int64             `json:"total_deliveries"`
	LastDeliveredAt     *time.Time        `json:"last_delivered_at,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// Reasons recorded when a subscription is deactivated
const (
	DeactivatedUnsubscribed = "unsubscribed"
	DeactivatedDegraded     = "degraded"
)

// AttemptOutcome classifies one delivery attempt
type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailure AttemptOutcome = "failure"
	OutcomeTimeout AttemptOutcome = "timeout"
)

// DeliveryAttempt is one append-only record of an outbound webhook call
type DeliveryAttempt struct {
	ID             string         `json:"id"`
	DeliveryID     string         `json:"delivery_id"`
	SubscriptionID string         `json:"subscription_id"`
	EventID        string         `json:"event_id"`
	EventType      EventType      `json:"event_type"`
	Attempt        int            `json:"attempt"`
	Outcome        AttemptOutcome `json:"outcome"`
	StatusCode     int            `json:"status_code,omitempty"`
	Error          string         `json:"error,omitempty"`
	Payload        []byte         `json:"-"`
	At             time.Time      `json:"at"`
}
