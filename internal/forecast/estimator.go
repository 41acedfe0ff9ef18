// Package forecast estimates per-product demand from consumption history.
//
// Estimate is a pure function of its inputs: the same sample sequence and
// timestamp always produce the same result, which keeps rule decisions
// reproducible across passes and replays.
package forecast

import (
	"time"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

const day = 24 * time.Hour

// Config tunes the estimator. Zero values fall back to defaults.
type Config struct {
	// Period is the span a lone sample is assumed to cover.
	Period time.Duration
	// Alpha is the smoothing factor of the exponentially weighted rate.
	Alpha float64
	// FullWindow is the sample count at which confidence reaches MaxConfidence.
	FullWindow    int
	MaxConfidence float64
	// SpikeFactor flags a spike when the latest interval rate is at least this multiple of the smoothed prior rate.
	SpikeFactor     float64
	SpikeMinSamples int
	// TrendTolerance is the relative change below which the trend is reported as stable.
	TrendTolerance float64
}

// DefaultConfig mirrors the defaults documented in the service configuration.
func DefaultConfig() Config {
	return Config{
		Period:          day,
		Alpha:           0.3,
		FullWindow:      30,
		MaxConfidence:   0.95,
		SpikeFactor:     2.0,
		SpikeMinSamples: 5,
		TrendTolerance:  0.1,
	}
}

// Estimator turns consumption samples into a ForecastResult.
type Estimator struct {
	cfg Config
}

// NewEstimator creates an estimator, filling unset fields from DefaultConfig.
func NewEstimator(cfg Config) *Estimator {
	def := DefaultConfig()
	if cfg.Period <= 0 {
		cfg.Period = def.Period
	}
	if cfg.Alpha <= 0 || cfg.Alpha > 1 {
		cfg.Alpha = def.Alpha
	}
	if cfg.FullWindow <= 0 {
		cfg.FullWindow = def.FullWindow
	}
	if cfg.MaxConfidence <= 0 || cfg.MaxConfidence > 1 {
		cfg.MaxConfidence = def.MaxConfidence
	}
	if cfg.SpikeFactor <= 1 {
		cfg.SpikeFactor = def.SpikeFactor
	}
	if cfg.SpikeMinSamples <= 0 {
		cfg.SpikeMinSamples = def.SpikeMinSamples
	}
	if cfg.TrendTolerance <= 0 {
		cfg.TrendTolerance = def.TrendTolerance
	}
	return &Estimator{cfg: cfg}
}

// Estimate projects a demand rate in units per day. Samples must be ordered by timestamp.
// An empty history yields a zero rate with zero confidence.
func (e *Estimator) Estimate(productID string, samples []models.ConsumptionSample, now time.Time) models.ForecastResult {
	result := models.ForecastResult{
		ProductID:   productID,
		Trend:       models.TrendStable,
		SampleCount: len(samples),
		ComputedAt:  now,
	}
	if len(samples) == 0 {
		return result
	}
	result.Confidence = e.confidence(len(samples))

	rates := intervalRates(samples)
	if len(rates) == 0 {
		// One sample, or every sample shares a timestamp: spread the total over one period.
		var total int64
		for _, s := range samples {
			total += s.Quantity
		}
		result.Rate = float64(total) / days(e.cfg.Period)
		result.LatestRate = result.Rate
		return result
	}

	latest := rates[len(rates)-1]
	smoothed := rates[0]
	if len(rates) > 2 {
		for _, r := range rates[1 : len(rates)-1] {
			smoothed = e.cfg.Alpha*r + (1-e.cfg.Alpha)*smoothed
		}
	}
	prior := smoothed
	if len(rates) > 1 {
		smoothed = e.cfg.Alpha*latest + (1-e.cfg.Alpha)*smoothed
	}

	result.Rate = smoothed
	result.LatestRate = latest
	if len(rates) >= 2 {
		result.Trend = e.trend(prior, latest)
		result.Spike = len(samples) >= e.cfg.SpikeMinSamples &&
			prior > 0 && latest >= e.cfg.SpikeFactor*prior
	}
	return result
}

func (e *Estimator) confidence(n int) float64 {
	if n > e.cfg.FullWindow {
		n = e.cfg.FullWindow
	}
	return e.cfg.MaxConfidence * float64(n) / float64(e.cfg.FullWindow)
}

func (e *Estimator) trend(prior, latest float64) string {
	if prior == 0 {
		if latest > 0 {
			return models.TrendIncreasing
		}
		return models.TrendStable
	}
	change := (latest - prior) / prior
	switch {
	case change > e.cfg.TrendTolerance:
		return models.TrendIncreasing
	case change < -e.cfg.TrendTolerance:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// intervalRates converts consecutive samples into units/day. Samples sharing a
// timestamp are merged first; the earliest group only anchors the window.
func intervalRates(samples []models.ConsumptionSample) []float64 {
	type group struct {
		at  time.Time
		qty int64
	}
	groups := make([]group, 0, len(samples))
	for _, s := range samples {
		if n := len(groups); n > 0 && groups[n-1].at.Equal(s.At) {
			groups[n-1].qty += s.Quantity
			continue
		}
		groups = append(groups, group{at: s.At, qty: s.Quantity})
	}

	var rates []float64
	for i := 1; i < len(groups); i++ {
		dt := groups[i].at.Sub(groups[i-1].at)
		rates = append(rates, float64(groups[i].qty)/days(dt))
	}
	return rates
}

func days(d time.Duration) float64 {
	return float64(d) / float64(day)
}
