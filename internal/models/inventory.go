package models

import "time"

// ProductRecord is the current inventory state and reorder configuration of one product
type ProductRecord struct {
	ProductID       string    `json:"product_id"`
	SupplierID      string    `json:"supplier_id,omitempty"`
	Quantity        int64     `json:"quantity"`
	MinThreshold    int64     `json:"min_threshold"`
	MaxThreshold    int64     `json:"max_threshold"`
	ReorderQuantity int64     `json:"reorder_quantity"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ConsumptionSample records units consumed at a point in time
type ConsumptionSample struct {
	ProductID string    `json:"product_id"`
	At        time.Time `json:"at"`
	Quantity  int64     `json:"quantity"`
}

// Snapshot is a consistent view of one product used for evaluation
type Snapshot struct {
	Record  ProductRecord       `json:"record"`
	Samples []ConsumptionSample `json:"samples"`
}

// Trend directions reported by the forecast estimator
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// ForecastResult is derived demand data; it is recomputed on every pass and never persisted.
type ForecastResult struct {
	ProductID   string    `json:"product_id"`
	Rate        float64   `json:"rate_per_day"`
	Confidence  float64   `json:"confidence"`
	Trend       string    `json:"trend"`
	Spike       bool      `json:"spike"`
	LatestRate  float64   `json:"latest_rate_per_day"`
	SampleCount int       `json:"sample_count"`
	ComputedAt  time.Time `json:"computed_at"`
}
