// Package inventory holds product stock levels, reorder thresholds and consumption
// history. It is the only component allowed to mutate inventory quantities.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

var (
	// ErrInvalidThreshold is returned when min > max or a threshold is negative. Nothing is applied.
	ErrInvalidThreshold = errors.New("invalid threshold")
	// ErrProductNotFound is returned for operations on an unregistered product.
	ErrProductNotFound = errors.New("product not found")
	// ErrInvalidQuantity is returned for non-positive consumption/restock or negative stock.
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// Persister receives every committed mutation. Implementations make the store durable.
type Persister interface {
	SaveProduct(ctx context.Context, record models.ProductRecord) error
	AppendSample(ctx context.Context, sample models.ConsumptionSample) error
}

// Loader hydrates a store on startup.
type Loader interface {
	LoadProducts(ctx context.Context) ([]models.ProductRecord, error)
	LoadSamples(ctx context.Context, since time.Time) ([]models.ConsumptionSample, error)
}

// Options configures sample retention and persistence.
type Options struct {
	// SampleWindow drops samples older than the newest sample minus the window. Zero keeps all.
	SampleWindow time.Duration
	// SampleMaxCount keeps at most this many recent samples per product. Zero keeps all.
	SampleMaxCount int
	Persister      Persister
	Clock          func() time.Time
}

type product struct {
	mu      sync.Mutex
	record  models.ProductRecord
	samples []models.ConsumptionSample
}

// Store is an in-memory inventory state store with per-product locking.
// The map lock only guards membership; mutations of one product never wait on another.
type Store struct {
	mu       sync.RWMutex
	products map[string]*product
	dirty    *DirtySet
	opts     Options
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Store{
		products: make(map[string]*product),
		dirty:    NewDirtySet(),
		opts:     opts,
	}
}

func validateRecord(r models.ProductRecord) error {
	if strings.TrimSpace(r.ProductID) == "" {
		return fmt.Errorf("%w: product id is required", ErrProductNotFound)
	}
	if r.Quantity < 0 {
		return fmt.Errorf("%w: quantity %d is negative", ErrInvalidQuantity, r.Quantity)
	}
	return validateThresholds(r.MinThreshold, r.MaxThreshold, r.ReorderQuantity)
}

func validateThresholds(min, max, reorderQty int64) error {
	if min < 0 || max < 0 || reorderQty < 0 {
		return fmt.Errorf("%w: thresholds must be non-negative", ErrInvalidThreshold)
	}
	if min > max {
		return fmt.Errorf("%w: minimum %d exceeds maximum %d", ErrInvalidThreshold, min, max)
	}
	return nil
}

func (s *Store) lookup(productID string) (*product, bool) {
	s.mu.RLock()
	p, ok := s.products[productID]
	s.mu.RUnlock()
	return p, ok
}

// PutProduct registers a product or replaces its record. Existing consumption history is kept.
func (s *Store) PutProduct(ctx context.Context, record models.ProductRecord) (models.ProductRecord, error) {
	record.ProductID = strings.TrimSpace(record.ProductID)
	if err := validateRecord(record); err != nil {
		return models.ProductRecord{}, err
	}
	record.UpdatedAt = s.opts.Clock().UTC()

	p, ok := s.lookup(record.ProductID)
	if !ok {
		// Registration is rare; holding the membership lock across the write keeps
		// a failed persist from leaving a placeholder behind.
		s.mu.Lock()
		if p, ok = s.products[record.ProductID]; !ok {
			if err := s.persistProduct(ctx, record); err != nil {
				s.mu.Unlock()
				return models.ProductRecord{}, err
			}
			s.products[record.ProductID] = &product{record: record}
			s.mu.Unlock()
			s.dirty.Mark(record.ProductID)
			return record, nil
		}
		s.mu.Unlock()
	}

	p.mu.Lock()
	if err := s.persistProduct(ctx, record); err != nil {
		p.mu.Unlock()
		return models.ProductRecord{}, err
	}
	p.record = record
	p.mu.Unlock()

	s.dirty.Mark(record.ProductID)
	return record, nil
}

// RecordConsumption appends a consumption sample, decrements stock (never below zero) and marks the product dirty.
func (s *Store) RecordConsumption(ctx context.Context, productID string, qty int64, at time.Time) (models.ProductRecord, error) {
	if qty <= 0 {
		return models.ProductRecord{}, fmt.Errorf("%w: consumption must be positive, got %d", ErrInvalidQuantity, qty)
	}
	if at.IsZero() {
		at = s.opts.Clock()
	}
	sample := models.ConsumptionSample{ProductID: productID, At: at.UTC(), Quantity: qty}

	return s.mutate(ctx, productID, func(r *models.ProductRecord) error {
		r.Quantity -= qty
		if r.Quantity < 0 {
			r.Quantity = 0
		}
		return nil
	}, &sample)
}

// Restock adds received units to a product and marks it dirty.
func (s *Store) Restock(ctx context.Context, productID string, qty int64) (models.ProductRecord, error) {
	if qty <= 0 {
		return models.ProductRecord{}, fmt.Errorf("%w: restock must be positive, got %d", ErrInvalidQuantity, qty)
	}
	return s.mutate(ctx, productID, func(r *models.ProductRecord) error {
		r.Quantity += qty
		return nil
	}, nil)
}

// UpdateThresholds atomically replaces min/max/reorder quantity. Invalid values are rejected and never applied.
func (s *Store) UpdateThresholds(ctx context.Context, productID string, min, max, reorderQty int64) (models.ProductRecord, error) {
	if err := validateThresholds(min, max, reorderQty); err != nil {
		return models.ProductRecord{}, err
	}
	return s.mutate(ctx, productID, func(r *models.ProductRecord) error {
		r.MinThreshold = min
		r.MaxThreshold = max
		r.ReorderQuantity = reorderQty
		return nil
	}, nil)
}

// mutate applies fn to a copy of the record under the product lock, persists the result
// and only then commits it, so readers never see a half-applied or unpersisted change.
func (s *Store) mutate(ctx context.Context, productID string, fn func(*models.ProductRecord) error, sample *models.ConsumptionSample) (models.ProductRecord, error) {
	p, ok := s.lookup(productID)
	if !ok {
		return models.ProductRecord{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}

	p.mu.Lock()
	next := p.record
	if err := fn(&next); err != nil {
		p.mu.Unlock()
		return models.ProductRecord{}, err
	}
	next.UpdatedAt = s.opts.Clock().UTC()

	if sample != nil && s.opts.Persister != nil {
		if err := s.opts.Persister.AppendSample(ctx, *sample); err != nil {
			p.mu.Unlock()
			return models.ProductRecord{}, fmt.Errorf("persist sample: %w", err)
		}
	}
	if err := s.persistProduct(ctx, next); err != nil {
		p.mu.Unlock()
		return models.ProductRecord{}, err
	}

	p.record = next
	if sample != nil {
		p.samples = s.retain(insertSample(p.samples, *sample))
	}
	p.mu.Unlock()

	s.dirty.Mark(productID)
	return next, nil
}

func (s *Store) persistProduct(ctx context.Context, record models.ProductRecord) error {
	if s.opts.Persister == nil {
		return nil
	}
	if err := s.opts.Persister.SaveProduct(ctx, record); err != nil {
		return fmt.Errorf("persist product: %w", err)
	}
	return nil
}

// insertSample keeps samples ordered by timestamp; equal timestamps keep arrival order.
func insertSample(samples []models.ConsumptionSample, sample models.ConsumptionSample) []models.ConsumptionSample {
	i := sort.Search(len(samples), func(i int) bool {
		return samples[i].At.After(sample.At)
	})
	samples = append(samples, models.ConsumptionSample{})
	copy(samples[i+1:], samples[i:])
	samples[i] = sample
	return samples
}

func (s *Store) retain(samples []models.ConsumptionSample) []models.ConsumptionSample {
	if len(samples) == 0 {
		return samples
	}
	start := 0
	if s.opts.SampleWindow > 0 {
		cutoff := samples[len(samples)-1].At.Add(-s.opts.SampleWindow)
		start = sort.Search(len(samples), func(i int) bool {
			return !samples[i].At.Before(cutoff)
		})
	}
	if s.opts.SampleMaxCount > 0 && len(samples)-start > s.opts.SampleMaxCount {
		start = len(samples) - s.opts.SampleMaxCount
	}
	if start == 0 {
		return samples
	}
	kept := make([]models.ConsumptionSample, len(samples)-start)
	copy(kept, samples[start:])
	return kept
}

// Snapshot returns a consistent copy of a product's record and retained samples.
func (s *Store) Snapshot(productID string) (models.Snapshot, error) {
	p, ok := s.lookup(productID)
	if !ok {
		return models.Snapshot{}, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	samples := make([]models.ConsumptionSample, len(p.samples))
	copy(samples, p.samples)
	return models.Snapshot{Record: p.record, Samples: samples}, nil
}

// DrainDirty returns every product mutated since the previous drain and clears the set.
func (s *Store) DrainDirty() []string {
	return s.dirty.Drain()
}

// MarkDirty re-queues a product for the next pass.
func (s *Store) MarkDirty(productID string) {
	s.dirty.Mark(productID)
}

// DirtyCount reports how many products await evaluation.
func (s *Store) DirtyCount() int {
	return s.dirty.Len()
}

// List returns all product records ordered by product ID.
func (s *Store) List() []models.ProductRecord {
	s.mu.RLock()
	ps := make([]*product, 0, len(s.products))
	for _, p := range s.products {
		ps = append(ps, p)
	}
	s.mu.RUnlock()

	records := make([]models.ProductRecord, 0, len(ps))
	for _, p := range ps {
		p.mu.Lock()
		records = append(records, p.record)
		p.mu.Unlock()
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ProductID < records[j].ProductID })
	return records
}

// Load hydrates the store from durable storage and marks every loaded product dirty
// so the first pass re-evaluates it.
func (s *Store) Load(ctx context.Context, loader Loader) error {
	records, err := loader.LoadProducts(ctx)
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	var since time.Time
	if s.opts.SampleWindow > 0 {
		since = s.opts.Clock().Add(-s.opts.SampleWindow)
	}
	samples, err := loader.LoadSamples(ctx, since)
	if err != nil {
		return fmt.Errorf("load samples: %w", err)
	}

	byProduct := make(map[string][]models.ConsumptionSample)
	for _, sample := range samples {
		byProduct[sample.ProductID] = insertSample(byProduct[sample.ProductID], sample)
	}

	s.mu.Lock()
	for _, r := range records {
		s.products[r.ProductID] = &product{
			record:  r,
			samples: s.retain(byProduct[r.ProductID]),
		}
	}
	s.mu.Unlock()

	for _, r := range records {
		s.dirty.Mark(r.ProductID)
	}
	return nil
}
