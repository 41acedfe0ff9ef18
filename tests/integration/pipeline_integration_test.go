package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/events"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/gateway"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/inventory"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/orchestration"
	"github.com/bizmatters/supply-chain/reorder-engine/tests/helpers"
)

const sharedSecret = "integration-secret"

type engine struct {
	router       *gin.Engine
	store        *inventory.Store
	bus          *events.Bus
	dispatcher   *delivery.Dispatcher
	orchestrator *orchestration.Service
}

// newEngine wires the engine in memory the same way cmd/api does, with fast retries.
func newEngine(t *testing.T, degradedThreshold int) *engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := inventory.NewStore(inventory.Options{})
	bus := events.NewBus(events.Options{})
	dispatcher := delivery.NewDispatcher(delivery.Config{
		Workers:           2,
		AttemptTimeout:    2 * time.Second,
		MaxAttempts:       2,
		DegradedThreshold: degradedThreshold,
		Backoff:           delivery.BackoffConfig{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond, Multiplier: 2},
	}, delivery.Options{Registry: bus})
	bus.SetDispatcher(dispatcher)
	dispatcher.Start(context.Background())

	orchestrator := orchestration.NewService(orchestration.Config{PassInterval: time.Hour}, orchestration.Options{
		Store:     store,
		Publisher: bus,
		Notices:   dispatcher.Notices(),
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		orchestrator.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = dispatcher.Shutdown(shutdownCtx)
	})

	router := gin.New()
	gateway.NewHandler(gateway.Options{
		Store:        store,
		Orchestrator: orchestrator,
		Bus:          bus,
		Deliveries:   dispatcher,
	}).Register(router.Group("/api"), gateway.NewNoticeHub())

	return &engine{router: router, store: store, bus: bus, dispatcher: dispatcher, orchestrator: orchestrator}
}

func (e *engine) call(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

func (e *engine) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.True(t, e.dispatcher.DrainUntil(ctx), "deliveries did not settle")
}

func (e *engine) subscribe(t *testing.T, eventType models.EventType, endpoint string) gateway.SubscriptionResponse {
	t.Helper()
	var sub gateway.SubscriptionResponse
	code := e.call(t, http.MethodPost, "/api/webhooks/subscriptions", gateway.CreateSubscriptionRequest{
		EventType: eventType,
		Endpoint:  endpoint,
		Secret:    sharedSecret,
	}, &sub)
	require.Equal(t, http.StatusCreated, code)
	return sub
}

func (e *engine) register(t *testing.T, r models.ProductRecord) {
	t.Helper()
	code := e.call(t, http.MethodPost, "/api/products", gateway.RegisterProductRequest{
		ProductID:       r.ProductID,
		SupplierID:      r.SupplierID,
		Quantity:        r.Quantity,
		MinThreshold:    r.MinThreshold,
		MaxThreshold:    r.MaxThreshold,
		ReorderQuantity: r.ReorderQuantity,
	}, nil)
	require.Equal(t, http.StatusCreated, code)
}

func TestReorderPipeline_EndToEnd(t *testing.T) {
	e := newEngine(t, 3)
	receiver := helpers.NewWebhookReceiver(t)
	receiver.SetSecret(sharedSecret)

	reorderSub := e.subscribe(t, models.EventTypeReorder, receiver.URL())
	e.subscribe(t, models.EventTypeSupplierRequestCreated, receiver.URL())

	for _, p := range []models.ProductRecord{
		helpers.ReorderProduct, helpers.StockoutProduct, helpers.OverstockProduct, helpers.HealthyProduct,
	} {
		e.register(t, p)
	}

	var pass orchestration.PassResult
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/passes", nil, &pass))
	assert.Equal(t, 4, pass.Evaluated)
	assert.Equal(t, 4, pass.Events)
	assert.Equal(t, 2, pass.Deliveries)
	assert.Equal(t, 1, pass.Decisions["none"])

	e.drain(t)

	byType := receiver.ByType()
	require.Len(t, byType[models.EventTypeReorder], 1)
	require.Len(t, byType[models.EventTypeSupplierRequestCreated], 1)
	assert.Empty(t, byType[models.EventTypeStockout])
	assert.Zero(t, receiver.Rejected())

	var payload models.DecisionPayload
	require.NoError(t, json.Unmarshal(byType[models.EventTypeReorder][0].Payload, &payload))
	assert.Equal(t, helpers.ReorderProduct.ProductID, payload.ProductID)
	assert.Equal(t, helpers.ReorderProduct.ReorderQuantity, payload.Quantity)

	var attempts []models.DeliveryAttempt
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/webhooks/subscriptions/"+reorderSub.ID+"/attempts", nil, &attempts))
	require.Len(t, attempts, 1)
	assert.Equal(t, models.OutcomeSuccess, attempts[0].Outcome)

	// nothing changed, so the next pass has no work
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/passes", nil, &pass))
	assert.Zero(t, pass.Evaluated)
}

func TestDegradedSubscription_NoticeAndReactivation(t *testing.T) {
	e := newEngine(t, 1)
	receiver := helpers.NewWebhookReceiver(t)
	receiver.SetSecret(sharedSecret)
	receiver.Fail(true)

	sub := e.subscribe(t, models.EventTypeStockout, receiver.URL())
	e.register(t, helpers.StockoutProduct)

	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/passes", nil, nil))
	e.drain(t)
	assert.Equal(t, 2, receiver.Hits())

	require.Eventually(t, func() bool {
		var notices []models.Notice
		e.call(t, http.MethodGet, "/api/notices", nil, &notices)
		return len(notices) == 1 && notices[0].SubscriptionID == sub.ID
	}, 2*time.Second, 10*time.Millisecond)

	var got models.Subscription
	require.Equal(t, http.StatusOK, e.call(t, http.MethodGet, "/api/webhooks/subscriptions/"+sub.ID, nil, &got))
	assert.False(t, got.Active)
	assert.Equal(t, models.DeactivatedDegraded, got.DeactivatedReason)

	// degraded endpoints receive nothing further
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/products/washer-10/consumption", gateway.QuantityRequest{Quantity: 1}, nil))
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/passes", nil, nil))
	e.drain(t)
	assert.Equal(t, 2, receiver.Hits())

	receiver.Fail(false)
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/webhooks/subscriptions/"+sub.ID+"/reactivate", nil, &got))
	assert.True(t, got.Active)
	assert.Zero(t, got.ConsecutiveFailures)

	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/products/washer-10/consumption", gateway.QuantityRequest{Quantity: 1}, nil))
	require.Equal(t, http.StatusOK, e.call(t, http.MethodPost, "/api/passes", nil, nil))
	e.drain(t)
	assert.Len(t, receiver.ByType()[models.EventTypeStockout], 1)
}

func TestManualReorder_DeliversWithoutThresholdBreach(t *testing.T) {
	e := newEngine(t, 3)
	receiver := helpers.NewWebhookReceiver(t)
	receiver.SetSecret(sharedSecret)

	e.subscribe(t, models.EventTypeReorder, receiver.URL())
	e.register(t, helpers.HealthyProduct)

	var manual orchestration.ManualReorder
	code := e.call(t, http.MethodPost, "/api/products/screw-4/reorder", gateway.ReorderRequest{Quantity: 12}, &manual)
	require.Equal(t, http.StatusAccepted, code)
	assert.Equal(t, 1, manual.Deliveries)

	e.drain(t)
	envs := receiver.ByType()[models.EventTypeReorder]
	require.Len(t, envs, 1)

	var payload models.DecisionPayload
	require.NoError(t, json.Unmarshal(envs[0].Payload, &payload))
	assert.True(t, payload.Manual)
	assert.Equal(t, int64(12), payload.Quantity)
}
