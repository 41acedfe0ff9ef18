// Package rules decides whether a product needs a reorder or a stock alert.
package rules

import (
	"fmt"
	"math"
	"time"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

// DefaultLeadTime is the supplier lead time assumed when none is configured.
const DefaultLeadTime = 7 * 24 * time.Hour

// Config tunes reorder sizing.
type Config struct {
	// LeadTime is how long a reorder takes to arrive; demand over it is covered by the reorder.
	LeadTime time.Duration
}

// Evaluator applies the reorder policy. It holds no state between calls.
type Evaluator struct {
	leadDays float64
}

// NewEvaluator creates an evaluator.
func NewEvaluator(cfg Config) *Evaluator {
	if cfg.LeadTime <= 0 {
		cfg.LeadTime = DefaultLeadTime
	}
	return &Evaluator{leadDays: float64(cfg.LeadTime) / float64(24*time.Hour)}
}

// Evaluate returns the first matching decision in precedence order:
// stockout (quantity <= 0), reorder (quantity < min), overstock (quantity > max), none.
// Boundaries are exclusive, so a quantity equal to a threshold never triggers it.
func (e *Evaluator) Evaluate(snap models.Snapshot, fc models.ForecastResult, now time.Time) models.Decision {
	r := snap.Record
	d := models.Decision{ProductID: r.ProductID, Kind: e.classify(r), DecidedAt: now}

	switch d.Kind {
	case models.DecisionStockoutAlert:
		d.Priority = models.PriorityHigh
		d.Reason = fmt.Sprintf("stock level %d is depleted (minimum %d)", r.Quantity, r.MinThreshold)
	case models.DecisionReorder:
		projected := e.projectedDemand(fc)
		d.Quantity = r.ReorderQuantity
		if need := int64(math.Ceil(projected)); need > d.Quantity {
			d.Quantity = need
		}
		d.Priority = models.PriorityMedium
		if projected >= float64(r.Quantity) {
			d.Priority = models.PriorityHigh
		}
		d.Reason = fmt.Sprintf("stock level %d below minimum %d; projected lead-time demand %.1f", r.Quantity, r.MinThreshold, projected)
	case models.DecisionOverstockAlert:
		d.Priority = models.PriorityLow
		d.Reason = fmt.Sprintf("stock level %d above maximum %d", r.Quantity, r.MaxThreshold)
	case models.DecisionNone:
	}
	return d
}

func (e *Evaluator) classify(r models.ProductRecord) models.DecisionKind {
	switch {
	case r.Quantity <= 0:
		return models.DecisionStockoutAlert
	case r.Quantity < r.MinThreshold:
		return models.DecisionReorder
	case r.Quantity > r.MaxThreshold:
		return models.DecisionOverstockAlert
	default:
		return models.DecisionNone
	}
}

// projectedDemand is the confidence-weighted demand expected before a reorder arrives.
func (e *Evaluator) projectedDemand(fc models.ForecastResult) float64 {
	rate, conf := fc.Rate, fc.Confidence
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return 0
	}
	if math.IsNaN(conf) || conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf * rate * e.leadDays
}
