package integration

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/events"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/inventory"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/storage/sqlite"
	"github.com/bizmatters/supply-chain/reorder-engine/tests/helpers"
)

type durableStore interface {
	inventory.Persister
	inventory.Loader
	events.SubscriptionStore
	delivery.AttemptLog
}

// assertRestartRecovery writes state through one engine instance and checks a fresh one
// hydrates the same products, samples and subscriptions.
func assertRestartRecovery(t *testing.T, db durableStore, productID string) string {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	first := inventory.NewStore(inventory.Options{Persister: db})
	_, err := first.PutProduct(ctx, models.ProductRecord{
		ProductID: productID, SupplierID: "fastenal", Quantity: 40,
		MinThreshold: 10, MaxThreshold: 100, ReorderQuantity: 50,
	})
	require.NoError(t, err)
	_, err = first.RecordConsumption(ctx, productID, 6, base)
	require.NoError(t, err)
	_, err = first.RecordConsumption(ctx, productID, 4, base.Add(24*time.Hour))
	require.NoError(t, err)

	firstBus := events.NewBus(events.Options{Store: db})
	sub, err := firstBus.Subscribe(ctx, events.SubscribeRequest{
		EventType: models.EventTypeReorder,
		Endpoint:  "https://erp.example.com/hooks",
		Filters:   map[string]string{"product_id": productID},
	})
	require.NoError(t, err)
	_, _, err = firstBus.RecordDeliveryExhausted(ctx, sub.ID, 5)
	require.NoError(t, err)

	require.NoError(t, db.Append(ctx, models.DeliveryAttempt{
		ID: uuid.NewString(), DeliveryID: uuid.NewString(), SubscriptionID: sub.ID,
		EventID: "evt-1", EventType: models.EventTypeReorder, Attempt: 1,
		Outcome: models.OutcomeFailure, StatusCode: 503, Error: "service unavailable", At: base,
	}))

	second := inventory.NewStore(inventory.Options{})
	require.NoError(t, second.Load(ctx, db))
	snap, err := second.Snapshot(productID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), snap.Record.Quantity)
	assert.Equal(t, "fastenal", snap.Record.SupplierID)
	require.Len(t, snap.Samples, 2)
	assert.True(t, snap.Samples[0].At.Equal(base))
	assert.Equal(t, int64(4), snap.Samples[1].Quantity)
	assert.Contains(t, second.DrainDirty(), productID)

	secondBus := events.NewBus(events.Options{Store: db})
	require.NoError(t, secondBus.Load(ctx))
	loaded, err := secondBus.Get(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.Secret, loaded.Secret)
	assert.Equal(t, sub.Filters, loaded.Filters)
	assert.Equal(t, 1, loaded.ConsecutiveFailures)
	assert.True(t, loaded.Active)

	attempts, err := db.List(ctx, delivery.AttemptFilter{SubscriptionID: sub.ID})
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, 503, attempts[0].StatusCode)

	return sub.ID
}

func TestSQLiteStore_RestartRecovery(t *testing.T) {
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	defer db.Close()

	assertRestartRecovery(t, db, "bolt-m8")
}

func TestPostgresStore_RestartRecovery(t *testing.T) {
	testDB := helpers.NewTestDatabase(t)
	defer testDB.Close()

	productID := "it-" + uuid.NewString()
	defer testDB.CleanupProducts(t, productID)

	subID := assertRestartRecovery(t, testDB.Store, productID)
	testDB.CleanupSubscriptions(t, subID)
}
