// Package gateway exposes the reorder engine over HTTP.
package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/auth"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/events"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/inventory"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/orchestration"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// DeliveryAdmin is the part of the dispatcher the API exposes.
type DeliveryAdmin interface {
	Attempts(ctx context.Context, filter delivery.AttemptFilter) ([]models.DeliveryAttempt, error)
	ResetBreaker(subscriptionID string)
}

// Options wires the handler to the engine.
type Options struct {
	Store        *inventory.Store
	Orchestrator *orchestration.Service
	Bus          *events.Bus
	Deliveries   DeliveryAdmin
	// JWTManager nil disables authentication.
	JWTManager         *auth.JWTManager
	OperatorSecretHash string
	TokenTTL           time.Duration
	Clock              func() time.Time
}

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	store        *inventory.Store
	orchestrator *orchestration.Service
	bus          *events.Bus
	deliveries   DeliveryAdmin
	jwtManager   *auth.JWTManager
	operatorHash string
	tokenTTL     time.Duration
	clock        func() time.Time
}

// NewHandler creates a new gateway handler
func NewHandler(opts Options) *Handler {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 12 * time.Hour
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Handler{
		store:        opts.Store,
		orchestrator: opts.Orchestrator,
		bus:          opts.Bus,
		deliveries:   opts.Deliveries,
		jwtManager:   opts.JWTManager,
		operatorHash: opts.OperatorSecretHash,
		tokenTTL:     opts.TokenTTL,
		clock:        opts.Clock,
	}
}

// Register mounts every API route on group. Reads and integration writes need any valid
// token; manual reorders and subscription reactivation need the operator role.
func (h *Handler) Register(group *gin.RouterGroup, hub *NoticeHub) {
	group.POST("/auth/token", h.IssueToken)

	api := group.Group("", auth.RequireAuth(h.jwtManager))
	operator := auth.RequireRole(h.jwtManager, auth.RoleOperator)

	api.POST("/products", h.RegisterProduct)
	api.GET("/products", h.ListProducts)
	api.GET("/products/:id", h.GetProduct)
	api.POST("/products/:id/consumption", h.RecordConsumption)
	api.POST("/products/:id/restock", h.Restock)
	api.PUT("/products/:id/thresholds", h.UpdateThresholds)
	api.POST("/products/:id/reorder", operator, h.TriggerReorder)

	api.POST("/webhooks/subscriptions", h.CreateSubscription)
	api.GET("/webhooks/subscriptions", h.ListSubscriptions)
	api.GET("/webhooks/subscriptions/:id", h.GetSubscription)
	api.DELETE("/webhooks/subscriptions/:id", h.DeleteSubscription)
	api.POST("/webhooks/subscriptions/:id/reactivate", operator, h.ReactivateSubscription)
	api.GET("/webhooks/subscriptions/:id/attempts", h.ListAttempts)
	api.GET("/webhooks/event-types", h.ListEventTypes)
	api.GET("/webhooks/samples/:eventType", h.SampleEvent)

	api.POST("/passes", operator, h.TriggerPass)
	api.GET("/notices", h.ListNotices)
	if hub != nil {
		api.GET("/ws/notices", hub.Serve)
	}
}

// TokenRequest exchanges the operator secret for a token
type TokenRequest struct {
	Subject string `json:"subject"`
	Secret  string `json:"secret" binding:"required"`
}

// TokenResponse represents an issued token
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Roles     []string  `json:"roles"`
}

// IssueToken godoc
// @Summary Issue operator token
// @Description Exchange the operator secret for a JWT carrying the operator and integrator roles
// @Tags auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Operator credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 501 {object} models.ErrorResponse
// @Router /auth/token [post]
func (h *Handler) IssueToken(c *gin.Context) {
	if h.jwtManager == nil {
		c.JSON(http.StatusNotImplemented, models.ErrorResponse{
			Error: "Authentication is disabled",
			Code:  models.ErrCodeInvalidRequest,
		})
		return
	}

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = auth.RoleOperator
	}

	if err := auth.CheckSecret(h.operatorHash, req.Secret); err != nil {
		telemetry.Logger.Warn("token_rejected", "subject", subject)
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error: "Invalid credentials",
			Code:  models.ErrCodeUnauthorized,
		})
		return
	}

	roles := []string{auth.RoleOperator, auth.RoleIntegrator}
	token, err := h.jwtManager.GenerateToken(c.Request.Context(), subject, roles, h.tokenTTL)
	if err != nil {
		internalError(c, "token_issue_failed", err)
		return
	}

	telemetry.Logger.Info("token_issued", "subject", subject)
	c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: h.clock().UTC().Add(h.tokenTTL),
		Roles:     roles,
	})
}

// ListNotices godoc
// @Summary List operator notices
// @Description Recent internal notices such as degraded subscriptions, newest first
// @Tags notices
// @Produce json
// @Success 200 {array} models.Notice
// @Security BearerAuth
// @Router /notices [get]
func (h *Handler) ListNotices(c *gin.Context) {
	c.JSON(http.StatusOK, h.orchestrator.Recent())
}

// TriggerPass godoc
// @Summary Run an evaluation pass
// @Description Evaluates every product changed since the previous pass. With async=true the pass is only scheduled.
// @Tags passes
// @Produce json
// @Param async query bool false "Schedule instead of waiting"
// @Success 200 {object} orchestration.PassResult
// @Success 202 {object} map[string]string
// @Security BearerAuth
// @Router /passes [post]
func (h *Handler) TriggerPass(c *gin.Context) {
	if c.Query("async") == "true" {
		h.orchestrator.Trigger()
		c.JSON(http.StatusAccepted, gin.H{"status": "scheduled"})
		return
	}
	c.JSON(http.StatusOK, h.orchestrator.RunPass(c.Request.Context()))
}

// writeError maps engine errors onto API error codes.
func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, models.ErrCodeInternalError
	switch {
	case errors.Is(err, inventory.ErrInvalidThreshold):
		status, code = http.StatusBadRequest, models.ErrCodeInvalidThreshold
	case errors.Is(err, inventory.ErrInvalidQuantity):
		status, code = http.StatusBadRequest, models.ErrCodeInvalidQuantity
	case errors.Is(err, inventory.ErrProductNotFound):
		status, code = http.StatusNotFound, models.ErrCodeProductNotFound
	case errors.Is(err, events.ErrUnknownEventType):
		status, code = http.StatusBadRequest, models.ErrCodeUnknownEventType
	case errors.Is(err, events.ErrInvalidEndpoint):
		status, code = http.StatusBadRequest, models.ErrCodeInvalidEndpoint
	case errors.Is(err, events.ErrSubscriptionNotFound):
		status, code = http.StatusNotFound, models.ErrCodeSubscriptionNotFound
	}

	if status == http.StatusInternalServerError {
		internalError(c, "request_failed", err)
		return
	}
	c.JSON(status, models.ErrorResponse{Error: err.Error(), Code: code})
}

func internalError(c *gin.Context, event string, err error) {
	telemetry.Logger.Error(event, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error: "Internal server error",
		Code:  models.ErrCodeInternalError,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "Invalid request",
		Code:    models.ErrCodeInvalidRequest,
		Details: map[string]string{"reason": err.Error()},
	})
}

// bindOptionalJSON binds a JSON body when one is present.
func bindOptionalJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
