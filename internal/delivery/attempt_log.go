package delivery

import (
	"context"
	"sort"
	"sync"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

// AttemptFilter selects attempts from an AttemptLog. Empty fields match everything.
type AttemptFilter struct {
	SubscriptionID string
	EventID        string
	DeliveryID     string
	// Limit caps the result to the most recent attempts. Zero means no limit.
	Limit int
}

// AttemptLog is the append-only history of delivery attempts.
type AttemptLog interface {
	Append(ctx context.Context, attempt models.DeliveryAttempt) error
	List(ctx context.Context, filter AttemptFilter) ([]models.DeliveryAttempt, error)
}

// MemoryAttemptLog keeps attempts in process memory.
type MemoryAttemptLog struct {
	mu       sync.RWMutex
	attempts []models.DeliveryAttempt
}

// NewMemoryAttemptLog creates an empty log
func NewMemoryAttemptLog() *MemoryAttemptLog {
	return &MemoryAttemptLog{}
}

// Append records an attempt
func (l *MemoryAttemptLog) Append(_ context.Context, attempt models.DeliveryAttempt) error {
	l.mu.Lock()
	l.attempts = append(l.attempts, attempt)
	l.mu.Unlock()
	return nil
}

// List returns matching attempts, newest first.
func (l *MemoryAttemptLog) List(_ context.Context, filter AttemptFilter) ([]models.DeliveryAttempt, error) {
	l.mu.RLock()
	var out []models.DeliveryAttempt
	for _, a := range l.attempts {
		if filter.Matches(a) {
			out = append(out, a)
		}
	}
	l.mu.RUnlock()

	SortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Matches reports whether a satisfies the filter.
func (f AttemptFilter) Matches(a models.DeliveryAttempt) bool {
	if f.SubscriptionID != "" && a.SubscriptionID != f.SubscriptionID {
		return false
	}
	if f.EventID != "" && a.EventID != f.EventID {
		return false
	}
	if f.DeliveryID != "" && a.DeliveryID != f.DeliveryID {
		return false
	}
	return true
}

// SortNewestFirst orders attempts by time descending, breaking ties by attempt number.
func SortNewestFirst(attempts []models.DeliveryAttempt) {
	sort.SliceStable(attempts, func(i, j int) bool {
		if !attempts[i].At.Equal(attempts[j].At) {
			return attempts[i].At.After(attempts[j].At)
		}
		return attempts[i].Attempt > attempts[j].Attempt
	})
}
