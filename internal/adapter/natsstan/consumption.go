package natsstan

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/inventory"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// ConsumptionMessage is the wire format published on the consumption subject.
type ConsumptionMessage struct {
	// MessageID lets redelivered messages be recognized. Optional.
	MessageID  string    `json:"message_id,omitempty"`
	ProductID  string    `json:"product_id"`
	Quantity   int64     `json:"quantity"`
	ConsumedAt time.Time `json:"consumed_at,omitempty"`
}

// ConsumptionRecorder is the part of the inventory store the feed writes to.
type ConsumptionRecorder interface {
	RecordConsumption(ctx context.Context, productID string, qty int64, at time.Time) (models.ProductRecord, error)
}

// ConsumptionHandler applies consumption messages to the store, skipping recently seen message IDs.
type ConsumptionHandler struct {
	recorder ConsumptionRecorder

	mu   sync.Mutex
	seen map[string]struct{}
	ring []string
	next int
}

// NewConsumptionHandler creates a handler remembering up to window message IDs.
func NewConsumptionHandler(recorder ConsumptionRecorder, window int) *ConsumptionHandler {
	if window <= 0 {
		window = 1024
	}
	return &ConsumptionHandler{
		recorder: recorder,
		seen:     make(map[string]struct{}, window),
		ring:     make([]string, window),
	}
}

// Handle decodes and applies one message. Malformed messages and ones the store rejects
// are acknowledged and dropped; storage failures are returned so the message is redelivered.
func (h *ConsumptionHandler) Handle(ctx context.Context, raw []byte) error {
	var msg ConsumptionMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		telemetry.Logger.Warn("consumption_message_invalid", "error", err)
		return nil
	}
	msg.ProductID = strings.TrimSpace(msg.ProductID)
	if msg.MessageID != "" && h.wasSeen(msg.MessageID) {
		telemetry.Logger.Info("consumption_message_duplicate", "message_id", msg.MessageID)
		return nil
	}

	_, err := h.recorder.RecordConsumption(ctx, msg.ProductID, msg.Quantity, msg.ConsumedAt)
	switch {
	case err == nil:
	case errors.Is(err, inventory.ErrProductNotFound), errors.Is(err, inventory.ErrInvalidQuantity):
		telemetry.Logger.Warn("consumption_message_rejected",
			"message_id", msg.MessageID,
			"product_id", msg.ProductID,
			"error", err)
		return nil
	default:
		return err
	}

	if msg.MessageID != "" {
		h.remember(msg.MessageID)
	}
	return nil
}

func (h *ConsumptionHandler) wasSeen(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.seen[id]
	return ok
}

func (h *ConsumptionHandler) remember(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old := h.ring[h.next]; old != "" {
		delete(h.seen, old)
	}
	h.ring[h.next] = id
	h.seen[id] = struct{}{}
	h.next = (h.next + 1) % len(h.ring)
}
