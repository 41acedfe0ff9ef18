package natsstan

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/inventory"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

type failingRecorder struct{ err error }

func (f failingRecorder) RecordConsumption(context.Context, string, int64, time.Time) (models.ProductRecord, error) {
	return models.ProductRecord{}, f.err
}

func newStore(t *testing.T) *inventory.Store {
	t.Helper()
	store := inventory.NewStore(inventory.Options{})
	_, err := store.PutProduct(context.Background(), models.ProductRecord{ProductID: "p-1", Quantity: 100, MinThreshold: 10, MaxThreshold: 200})
	require.NoError(t, err)
	return store
}

func quantityOf(t *testing.T, store *inventory.Store) int64 {
	t.Helper()
	snap, err := store.Snapshot("p-1")
	require.NoError(t, err)
	return snap.Record.Quantity
}

func TestConsumptionHandler_AppliesMessages(t *testing.T) {
	store := newStore(t)
	h := NewConsumptionHandler(store, 8)
	ctx := context.Background()

	require.NoError(t, h.Handle(ctx, []byte(`{"product_id":"p-1","quantity":7,"consumed_at":"2026-03-01T10:00:00Z"}`)))
	assert.EqualValues(t, 93, quantityOf(t, store))

	snap, err := store.Snapshot("p-1")
	require.NoError(t, err)
	require.Len(t, snap.Samples, 1)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), snap.Samples[0].At)
}

func TestConsumptionHandler_SkipsDuplicates(t *testing.T) {
	store := newStore(t)
	h := NewConsumptionHandler(store, 2)
	ctx := context.Background()
	msg := []byte(`{"message_id":"m-1","product_id":"p-1","quantity":5}`)

	require.NoError(t, h.Handle(ctx, msg))
	require.NoError(t, h.Handle(ctx, msg))
	assert.EqualValues(t, 95, quantityOf(t, store))

	// the window forgets the oldest ids
	require.NoError(t, h.Handle(ctx, []byte(`{"message_id":"m-2","product_id":"p-1","quantity":1}`)))
	require.NoError(t, h.Handle(ctx, []byte(`{"message_id":"m-3","product_id":"p-1","quantity":1}`)))
	require.NoError(t, h.Handle(ctx, msg))
	assert.EqualValues(t, 88, quantityOf(t, store))
}

func TestConsumptionHandler_AcknowledgesPoisonMessages(t *testing.T) {
	store := newStore(t)
	h := NewConsumptionHandler(store, 0)
	ctx := context.Background()

	tests := []struct {
		name string
		raw  string
	}{
		{"malformed json", `{"product_id":`},
		{"unknown product", `{"product_id":"nope","quantity":1}`},
		{"zero quantity", `{"product_id":"p-1","quantity":0}`},
		{"negative quantity", `{"product_id":"p-1","quantity":-4}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, h.Handle(ctx, []byte(tt.raw)))
		})
	}
	assert.EqualValues(t, 100, quantityOf(t, store))
}

func TestConsumptionHandler_StorageFailureIsRetried(t *testing.T) {
	boom := errors.New("database unavailable")
	h := NewConsumptionHandler(failingRecorder{err: boom}, 4)

	err := h.Handle(context.Background(), []byte(`{"message_id":"m-1","product_id":"p-1","quantity":1}`))
	assert.ErrorIs(t, err, boom)
	assert.False(t, h.wasSeen("m-1"))
}
