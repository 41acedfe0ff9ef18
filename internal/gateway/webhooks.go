package gateway

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/events"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

const maxAttemptsPage = 500

// CreateSubscriptionRequest registers a webhook endpoint
type CreateSubscriptionRequest struct {
	EventType   models.EventType  `json:"event_type" binding:"required"`
	Endpoint    string            `json:"endpoint" binding:"required"`
	Secret      string            `json:"secret,omitempty"`
	Filters     map[string]string `json:"filters,omitempty"`
	Description string            `json:"description,omitempty"`
}

// SubscriptionResponse is a subscription as returned on creation. The signing secret is
// only disclosed here.
type SubscriptionResponse struct {
	models.Subscription
	Secret string `json:"secret,omitempty"`
}

// EventTypeInfo describes one subscribable event type
type EventTypeInfo struct {
	Type        models.EventType `json:"type"`
	Description string           `json:"description"`
}

var eventTypeDescriptions = map[models.EventType]string{
	models.EventTypeStockout:               "A product ran out of stock",
	models.EventTypeOverstock:              "A product holds more than its maximum",
	models.EventTypeReorder:                "A reorder was decided or manually triggered",
	models.EventTypeSupplierRequestCreated: "A purchase request was raised for the product's supplier",
	models.EventTypeDemandSpike:            "Latest consumption is well above the smoothed demand rate",
}

// CreateSubscription godoc
// @Summary Subscribe webhook
// @Description Register an endpoint for one event type. A signing secret is generated when none is given.
// @Tags webhooks
// @Accept json
// @Produce json
// @Param request body CreateSubscriptionRequest true "Subscription"
// @Success 201 {object} SubscriptionResponse
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /webhooks/subscriptions [post]
func (h *Handler) CreateSubscription(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	sub, err := h.bus.Subscribe(c.Request.Context(), events.SubscribeRequest{
		EventType:   req.EventType,
		Endpoint:    req.Endpoint,
		Secret:      req.Secret,
		Filters:     req.Filters,
		Description: req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, SubscriptionResponse{Subscription: sub, Secret: sub.Secret})
}

// ListSubscriptions godoc
// @Summary List subscriptions
// @Tags webhooks
// @Produce json
// @Param event_type query string false "Event type"
// @Param active query bool false "Only active subscriptions"
// @Success 200 {array} models.Subscription
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /webhooks/subscriptions [get]
func (h *Handler) ListSubscriptions(c *gin.Context) {
	filter := events.ListFilter{
		EventType:  models.EventType(c.Query("event_type")),
		ActiveOnly: c.Query("active") == "true",
	}
	if filter.EventType != "" && !filter.EventType.Valid() {
		writeError(c, events.ErrUnknownEventType)
		return
	}
	c.JSON(http.StatusOK, h.bus.List(filter))
}

// GetSubscription godoc
// @Summary Get subscription
// @Tags webhooks
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} models.Subscription
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /webhooks/subscriptions/{id} [get]
func (h *Handler) GetSubscription(c *gin.Context) {
	sub, err := h.bus.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteSubscription godoc
// @Summary Unsubscribe webhook
// @Description Deactivate a subscription. It is kept for auditing and receives no further deliveries.
// @Tags webhooks
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} models.Subscription
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /webhooks/subscriptions/{id} [delete]
func (h *Handler) DeleteSubscription(c *gin.Context) {
	sub, err := h.bus.Unsubscribe(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// ReactivateSubscription godoc
// @Summary Reactivate subscription
// @Description Re-enable a degraded or unsubscribed endpoint and reset its failure count
// @Tags webhooks
// @Produce json
// @Param id path string true "Subscription ID"
// @Success 200 {object} models.Subscription
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /webhooks/subscriptions/{id}/reactivate [post]
func (h *Handler) ReactivateSubscription(c *gin.Context) {
	sub, err := h.bus.Reactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if h.deliveries != nil {
		h.deliveries.ResetBreaker(sub.ID)
	}

	telemetry.Logger.Info("subscription_reactivated", "subscription_id", sub.ID, "endpoint", sub.Endpoint)
	c.JSON(http.StatusOK, sub)
}

// ListAttempts godoc
// @Summary List delivery attempts
// @Description Delivery history of a subscription, newest first
// @Tags webhooks
// @Produce json
// @Param id path string true "Subscription ID"
// @Param event_id query string false "Event ID"
// @Param limit query int false "Maximum attempts returned"
// @Success 200 {array} models.DeliveryAttempt
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /webhooks/subscriptions/{id}/attempts [get]
func (h *Handler) ListAttempts(c *gin.Context) {
	sub, err := h.bus.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error: "limit must be a positive integer",
				Code:  models.ErrCodeInvalidRequest,
			})
			return
		}
		limit = min(n, maxAttemptsPage)
	}

	attempts := []models.DeliveryAttempt{}
	if h.deliveries != nil {
		found, err := h.deliveries.Attempts(c.Request.Context(), delivery.AttemptFilter{
			SubscriptionID: sub.ID,
			EventID:        c.Query("event_id"),
			Limit:          limit,
		})
		if err != nil {
			internalError(c, "attempts_list_failed", err)
			return
		}
		attempts = append(attempts, found...)
	}
	c.JSON(http.StatusOK, attempts)
}

// ListEventTypes godoc
// @Summary List event types
// @Tags webhooks
// @Produce json
// @Success 200 {array} EventTypeInfo
// @Security BearerAuth
// @Router /webhooks/event-types [get]
func (h *Handler) ListEventTypes(c *gin.Context) {
	types := models.EventTypes()
	out := make([]EventTypeInfo, 0, len(types))
	for _, t := range types {
		out = append(out, EventTypeInfo{Type: t, Description: eventTypeDescriptions[t]})
	}
	c.JSON(http.StatusOK, out)
}

// SampleEvent godoc
// @Summary Sample event
// @Description A representative event of the given type, for mapping fields before real events fire
// @Tags webhooks
// @Produce json
// @Param eventType path string true "Event type"
// @Success 200 {object} delivery.Envelope
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /webhooks/samples/{eventType} [get]
func (h *Handler) SampleEvent(c *gin.Context) {
	evt, err := events.SampleEvent(models.EventType(c.Param("eventType")), h.clock())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery.NewEnvelope(evt, evt.OccurredAt))
}
