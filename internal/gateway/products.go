package gateway

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// RegisterProductRequest registers or replaces a product
type RegisterProductRequest struct {
	ProductID       string `json:"product_id" binding:"required"`
	SupplierID      string `json:"supplier_id"`
	Quantity        int64  `json:"quantity"`
	MinThreshold    int64  `json:"min_threshold"`
	MaxThreshold    int64  `json:"max_threshold"`
	ReorderQuantity int64  `json:"reorder_quantity"`
}

// QuantityRequest carries units consumed or received
type QuantityRequest struct {
	Quantity   int64      `json:"quantity"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// ThresholdsRequest replaces a product's reorder thresholds
type ThresholdsRequest struct {
	MinThreshold    *int64 `json:"min_threshold" binding:"required"`
	MaxThreshold    *int64 `json:"max_threshold" binding:"required"`
	ReorderQuantity *int64 `json:"reorder_quantity"`
}

// ReorderRequest optionally overrides the reorder quantity
type ReorderRequest struct {
	Quantity int64 `json:"quantity"`
}

// RegisterProduct godoc
// @Summary Register product
// @Description Register a product or replace its stock level and thresholds
// @Tags products
// @Accept json
// @Produce json
// @Param request body RegisterProductRequest true "Product"
// @Success 201 {object} models.ProductRecord
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products [post]
func (h *Handler) RegisterProduct(c *gin.Context) {
	var req RegisterProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	record, err := h.store.PutProduct(c.Request.Context(), models.ProductRecord{
		ProductID:       req.ProductID,
		SupplierID:      req.SupplierID,
		Quantity:        req.Quantity,
		MinThreshold:    req.MinThreshold,
		MaxThreshold:    req.MaxThreshold,
		ReorderQuantity: req.ReorderQuantity,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	telemetry.Logger.Info("product_registered", "product_id", record.ProductID, "quantity", record.Quantity)
	c.JSON(http.StatusCreated, record)
}

// ListProducts godoc
// @Summary List products
// @Tags products
// @Produce json
// @Success 200 {array} models.ProductRecord
// @Security BearerAuth
// @Router /products [get]
func (h *Handler) ListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.List())
}

// GetProduct godoc
// @Summary Inspect product
// @Description Current state, live forecast and the decision the next pass would take
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} orchestration.ProductView
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id} [get]
func (h *Handler) GetProduct(c *gin.Context) {
	view, err := h.orchestrator.Inspect(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// RecordConsumption godoc
// @Summary Record consumption
// @Description Record units consumed; stock never drops below zero
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body QuantityRequest true "Consumed units"
// @Success 200 {object} models.ProductRecord
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id}/consumption [post]
func (h *Handler) RecordConsumption(c *gin.Context) {
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	var at time.Time
	if req.ConsumedAt != nil {
		at = *req.ConsumedAt
	}

	record, err := h.store.RecordConsumption(c.Request.Context(), c.Param("id"), req.Quantity, at)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// Restock godoc
// @Summary Restock product
// @Description Add received units to a product
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body QuantityRequest true "Received units"
// @Success 200 {object} models.ProductRecord
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id}/restock [post]
func (h *Handler) Restock(c *gin.Context) {
	var req QuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	record, err := h.store.Restock(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// UpdateThresholds godoc
// @Summary Update thresholds
// @Description Atomically replace minimum, maximum and reorder quantity. Invalid values are never applied.
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body ThresholdsRequest true "Thresholds"
// @Success 200 {object} models.ProductRecord
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id}/thresholds [put]
func (h *Handler) UpdateThresholds(c *gin.Context) {
	var req ThresholdsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	productID := c.Param("id")

	var reorderQty int64
	if req.ReorderQuantity != nil {
		reorderQty = *req.ReorderQuantity
	} else {
		snap, err := h.store.Snapshot(productID)
		if err != nil {
			writeError(c, err)
			return
		}
		reorderQty = snap.Record.ReorderQuantity
	}

	record, err := h.store.UpdateThresholds(c.Request.Context(), productID, *req.MinThreshold, *req.MaxThreshold, reorderQty)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

// TriggerReorder godoc
// @Summary Trigger manual reorder
// @Description Publish a reorder for the product regardless of thresholds
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param request body ReorderRequest false "Quantity override"
// @Success 202 {object} orchestration.ManualReorder
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /products/{id}/reorder [post]
func (h *Handler) TriggerReorder(c *gin.Context) {
	var req ReorderRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.orchestrator.TriggerReorderManually(c.Request.Context(), c.Param("id"), req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, result)
}
