package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return t0 }
	}
	return NewStore(opts)
}

func putProduct(t *testing.T, s *Store, id string, qty int64) {
	t.Helper()
	_, err := s.PutProduct(context.Background(), models.ProductRecord{
		ProductID:       id,
		Quantity:        qty,
		MinThreshold:    10,
		MaxThreshold:    100,
		ReorderQuantity: 50,
	})
	require.NoError(t, err)
}

func TestStore_PutProductValidation(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()

	_, err := s.PutProduct(ctx, models.ProductRecord{ProductID: "p", MinThreshold: 20, MaxThreshold: 10})
	assert.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = s.PutProduct(ctx, models.ProductRecord{ProductID: "p", Quantity: -1, MaxThreshold: 10})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = s.Snapshot("p")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestStore_RecordConsumption(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()
	putProduct(t, s, "widget", 30)
	s.DrainDirty()

	rec, err := s.RecordConsumption(ctx, "widget", 12, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(18), rec.Quantity)

	rec, err = s.RecordConsumption(ctx, "widget", 100, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.Quantity, "stock never goes negative")

	snap, err := s.Snapshot("widget")
	require.NoError(t, err)
	assert.Len(t, snap.Samples, 2)
	assert.Equal(t, []string{"widget"}, s.DrainDirty())

	_, err = s.RecordConsumption(ctx, "widget", 0, t0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = s.RecordConsumption(ctx, "missing", 1, t0)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestStore_UpdateThresholds(t *testing.T) {
	s := newTestStore(t, Options{})
	ctx := context.Background()
	putProduct(t, s, "widget", 30)

	_, err := s.UpdateThresholds(ctx, "widget", 50, 40, 10)
	require.ErrorIs(t, err, ErrInvalidThreshold)

	snap, err := s.Snapshot("widget")
	require.NoError(t, err)
	assert.Equal(t, int64(10), snap.Record.MinThreshold, "rejected update is never applied")
	assert.Equal(t, int64(100), snap.Record.MaxThreshold)

	rec, err := s.UpdateThresholds(ctx, "widget", 40, 40, 10)
	require.NoError(t, err, "min == max is a valid degenerate configuration")
	assert.Equal(t, int64(40), rec.MinThreshold)
	assert.Equal(t, int64(10), rec.ReorderQuantity)
}

func TestStore_SamplesOrderedAndRetained(t *testing.T) {
	s := newTestStore(t, Options{SampleWindow: 48 * time.Hour, SampleMaxCount: 3})
	ctx := context.Background()
	putProduct(t, s, "widget", 1000)

	for _, offset := range []time.Duration{72 * time.Hour, 0, 24 * time.Hour, 12 * time.Hour, 96 * time.Hour} {
		_, err := s.RecordConsumption(ctx, "widget", 1, t0.Add(offset))
		require.NoError(t, err)
	}

	snap, err := s.Snapshot("widget")
	require.NoError(t, err)
	require.Len(t, snap.Samples, 2, "samples older than 48h before the newest are dropped")
	assert.Equal(t, t0.Add(72*time.Hour), snap.Samples[0].At)
	assert.Equal(t, t0.Add(96*time.Hour), snap.Samples[1].At)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := newTestStore(t, Options{})
	putProduct(t, s, "widget", 30)
	_, err := s.RecordConsumption(context.Background(), "widget", 1, t0)
	require.NoError(t, err)

	snap, err := s.Snapshot("widget")
	require.NoError(t, err)
	snap.Samples[0].Quantity = 999

	again, err := s.Snapshot("widget")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Samples[0].Quantity)
}

func TestStore_ConcurrentConsumptionSameProductLosesNothing(t *testing.T) {
	s := newTestStore(t, Options{})
	putProduct(t, s, "widget", 10000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.RecordConsumption(context.Background(), "widget", 3, t0.Add(time.Duration(i)*time.Second))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	snap, err := s.Snapshot("widget")
	require.NoError(t, err)
	assert.Equal(t, int64(10000-300), snap.Record.Quantity)
	assert.Len(t, snap.Samples, 100)
}

// blockingPersister parks writes for one product until released.
type blockingPersister struct {
	blockID string
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPersister) SaveProduct(ctx context.Context, r models.ProductRecord) error {
	if r.ProductID == b.blockID && r.Quantity < 100 {
		close(b.entered)
		<-b.release
	}
	return nil
}

func (b *blockingPersister) AppendSample(context.Context, models.ConsumptionSample) error { return nil }

func TestStore_DifferentProductsDoNotBlockEachOther(t *testing.T) {
	p := &blockingPersister{blockID: "slow", entered: make(chan struct{}), release: make(chan struct{})}
	s := newTestStore(t, Options{Persister: p})
	putProduct(t, s, "slow", 100)
	putProduct(t, s, "fast", 100)

	go func() {
		_, _ = s.RecordConsumption(context.Background(), "slow", 1, t0)
	}()
	<-p.entered

	done := make(chan error, 1)
	go func() {
		_, err := s.RecordConsumption(context.Background(), "fast", 1, t0)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumption on an unrelated product was blocked")
	}
	close(p.release)
}

type failingPersister struct{}

func (failingPersister) SaveProduct(context.Context, models.ProductRecord) error {
	return errors.New("disk full")
}
func (failingPersister) AppendSample(context.Context, models.ConsumptionSample) error { return nil }

func TestStore_PersistFailureLeavesStateUntouched(t *testing.T) {
	s := newTestStore(t, Options{Persister: failingPersister{}})
	_, err := s.PutProduct(context.Background(), models.ProductRecord{ProductID: "p", MaxThreshold: 1})
	require.Error(t, err)

	_, err = s.Snapshot("p")
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Empty(t, s.List())
}

func TestDirtySet_DrainIsAtomic(t *testing.T) {
	d := NewDirtySet()
	const marks = 1000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < marks; i++ {
			d.Mark(fmt.Sprintf("p-%d", i))
		}
	}()

	seen := map[string]int{}
	var mu sync.Mutex
	drainer := func() {
		for _, id := range d.Drain() {
			mu.Lock()
			seen[id]++
			mu.Unlock()
		}
	}
	for i := 0; i < 50; i++ {
		drainer()
	}
	wg.Wait()
	drainer()

	assert.Len(t, seen, marks, "no mark is lost")
	for id, n := range seen {
		assert.Equal(t, 1, n, "product %s drained more than once", id)
	}
	assert.Zero(t, d.Len())
}

type fakeLoader struct {
	records []models.ProductRecord
	samples []models.ConsumptionSample
}

func (f fakeLoader) LoadProducts(context.Context) ([]models.ProductRecord, error) {
	return f.records, nil
}

func (f fakeLoader) LoadSamples(context.Context, time.Time) ([]models.ConsumptionSample, error) {
	return f.samples, nil
}

func TestStore_Load(t *testing.T) {
	s := newTestStore(t, Options{})
	err := s.Load(context.Background(), fakeLoader{
		records: []models.ProductRecord{{ProductID: "a", Quantity: 3, MaxThreshold: 10}},
		samples: []models.ConsumptionSample{
			{ProductID: "a", At: t0.Add(time.Hour), Quantity: 2},
			{ProductID: "a", At: t0, Quantity: 1},
		},
	})
	require.NoError(t, err)

	snap, err := s.Snapshot("a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Record.Quantity)
	require.Len(t, snap.Samples, 2)
	assert.Equal(t, t0, snap.Samples[0].At)
	assert.Equal(t, []string{"a"}, s.DrainDirty())
}
