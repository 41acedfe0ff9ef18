package delivery

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffConfig shapes the delay between attempts of one delivery.
type BackoffConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	// Jitter is the randomization factor; 0.5 spreads each delay over [0.5d, 1.5d].
	Jitter float64
}

// DefaultBackoff doubles from one second up to five minutes with 50% jitter.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{Initial: time.Second, Max: 5 * time.Minute, Multiplier: 2, Jitter: 0.5}
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	d := DefaultBackoff()
	if c.Initial <= 0 {
		c.Initial = d.Initial
	}
	if c.Max <= 0 {
		c.Max = d.Max
	}
	if c.Max < c.Initial {
		c.Max = c.Initial
	}
	if c.Multiplier < 1 {
		c.Multiplier = d.Multiplier
	}
	if c.Jitter < 0 || c.Jitter >= 1 {
		c.Jitter = d.Jitter
	}
	return c
}

// newBackOff returns a fresh per-delivery schedule. The schedule is not safe for concurrent use,
// which matches attempts of one delivery being strictly sequential.
func (c BackoffConfig) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.Initial
	b.MaxInterval = c.Max
	b.Multiplier = c.Multiplier
	b.RandomizationFactor = c.Jitter
	b.Reset()
	return b
}
