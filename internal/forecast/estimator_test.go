package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

var t0 = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

func daily(quantities ...int64) []models.ConsumptionSample {
	samples := make([]models.ConsumptionSample, len(quantities))
	for i, q := range quantities {
		samples[i] = models.ConsumptionSample{ProductID: "p", At: t0.Add(time.Duration(i) * day), Quantity: q}
	}
	return samples
}

func TestEstimate_EmptyHistory(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	result := e.Estimate("p", nil, t0)

	assert.Zero(t, result.Rate)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, models.TrendStable, result.Trend)
	assert.False(t, result.Spike)
	assert.Equal(t, t0, result.ComputedAt)
}

func TestEstimate_SingleSample(t *testing.T) {
	tests := []struct {
		name   string
		period time.Duration
		want   float64
	}{
		{"daily period", day, 12},
		{"half-day period", 12 * time.Hour, 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Period = tt.period
			result := NewEstimator(cfg).Estimate("p", daily(12), t0)

			assert.InDelta(t, tt.want, result.Rate, 1e-9)
			assert.InDelta(t, 0.95/30, result.Confidence, 1e-9)
			assert.Greater(t, result.Confidence, 0.0)
		})
	}
}

func TestEstimate_SteadyDemand(t *testing.T) {
	result := NewEstimator(DefaultConfig()).Estimate("p", daily(10, 10, 10, 10, 10, 10, 10, 10, 10, 10), t0)

	assert.InDelta(t, 10, result.Rate, 1e-9)
	assert.InDelta(t, 0.95*10/30, result.Confidence, 1e-9)
	assert.Equal(t, models.TrendStable, result.Trend)
	assert.False(t, result.Spike)
	assert.Equal(t, 10, result.SampleCount)
}

func TestEstimate_ConfidenceCapped(t *testing.T) {
	quantities := make([]int64, 45)
	for i := range quantities {
		quantities[i] = 4
	}
	result := NewEstimator(DefaultConfig()).Estimate("p", daily(quantities...), t0)

	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
}

func TestEstimate_ConfidenceIncreasesWithSamples(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	prev := 0.0
	for n := 1; n <= 30; n++ {
		quantities := make([]int64, n)
		for i := range quantities {
			quantities[i] = 1
		}
		c := e.Estimate("p", daily(quantities...), t0).Confidence
		assert.Greater(t, c, prev)
		prev = c
	}
}

func TestEstimate_DemandSpike(t *testing.T) {
	result := NewEstimator(DefaultConfig()).Estimate("p", daily(10, 10, 10, 10, 10, 50), t0)

	assert.True(t, result.Spike)
	assert.Equal(t, models.TrendIncreasing, result.Trend)
	assert.InDelta(t, 50, result.LatestRate, 1e-9)
	// 0.3*50 + 0.7*10
	assert.InDelta(t, 22, result.Rate, 1e-9)
}

func TestEstimate_SpikeNeedsEnoughSamples(t *testing.T) {
	result := NewEstimator(DefaultConfig()).Estimate("p", daily(10, 10, 50), t0)

	assert.False(t, result.Spike)
	assert.Equal(t, models.TrendIncreasing, result.Trend)
}

func TestEstimate_DecreasingTrend(t *testing.T) {
	result := NewEstimator(DefaultConfig()).Estimate("p", daily(20, 20, 20, 5), t0)

	assert.Equal(t, models.TrendDecreasing, result.Trend)
	assert.False(t, result.Spike)
}

func TestEstimate_TwoSamples(t *testing.T) {
	result := NewEstimator(DefaultConfig()).Estimate("p", daily(4, 6), t0)

	assert.InDelta(t, 6, result.Rate, 1e-9)
	assert.InDelta(t, 6, result.LatestRate, 1e-9)
	assert.Equal(t, models.TrendStable, result.Trend)
	assert.False(t, result.Spike)
	assert.Equal(t, 2, result.SampleCount)
	assert.InDelta(t, 0.95*2/30, result.Confidence, 1e-9)
}

func TestEstimate_MergesSharedTimestamps(t *testing.T) {
	samples := []models.ConsumptionSample{
		{ProductID: "p", At: t0, Quantity: 5},
		{ProductID: "p", At: t0.Add(day), Quantity: 3},
		{ProductID: "p", At: t0.Add(day), Quantity: 2},
	}
	result := NewEstimator(DefaultConfig()).Estimate("p", samples, t0)

	assert.InDelta(t, 5, result.Rate, 1e-9)
	assert.Equal(t, 3, result.SampleCount)
}

func TestEstimate_AllSamplesAtOneInstant(t *testing.T) {
	samples := []models.ConsumptionSample{
		{ProductID: "p", At: t0, Quantity: 4},
		{ProductID: "p", At: t0, Quantity: 6},
	}
	result := NewEstimator(DefaultConfig()).Estimate("p", samples, t0)

	assert.InDelta(t, 10, result.Rate, 1e-9)
}

func TestEstimate_Deterministic(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	histories := [][]models.ConsumptionSample{
		nil,
		daily(7),
		daily(3, 9, 1, 14, 2, 8, 30),
		daily(0, 0, 0, 1),
	}
	for _, h := range histories {
		assert.Equal(t, e.Estimate("p", h, t0), e.Estimate("p", h, t0))
	}
}

func TestNewEstimator_FillsDefaults(t *testing.T) {
	e := NewEstimator(Config{})
	assert.Equal(t, DefaultConfig(), e.cfg)
}
