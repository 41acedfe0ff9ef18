package helpers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

// Default test fixtures, one per rule outcome
var (
	ReorderProduct = models.ProductRecord{
		ProductID: "bolt-m8", SupplierID: "fastenal", Quantity: 5,
		MinThreshold: 10, MaxThreshold: 100, ReorderQuantity: 50,
	}
	StockoutProduct = models.ProductRecord{
		ProductID: "washer-10", SupplierID: "fastenal", Quantity: 0,
		MinThreshold: 10, MaxThreshold: 100, ReorderQuantity: 50,
	}
	OverstockProduct = models.ProductRecord{
		ProductID: "nut-m8", Quantity: 150,
		MinThreshold: 10, MaxThreshold: 100, ReorderQuantity: 50,
	}
	HealthyProduct = models.ProductRecord{
		ProductID: "screw-4", Quantity: 50,
		MinThreshold: 10, MaxThreshold: 100, ReorderQuantity: 50,
	}
)

// WebhookReceiver is an httptest endpoint that verifies signed deliveries and records them.
type WebhookReceiver struct {
	Server *httptest.Server

	mu        sync.Mutex
	secret    string
	envelopes []delivery.Envelope
	rejected  int
	failing   atomic.Bool
	hits      atomic.Int32
}

// NewWebhookReceiver starts a receiver that is closed when the test ends.
func NewWebhookReceiver(t *testing.T) *WebhookReceiver {
	t.Helper()
	r := &WebhookReceiver{}
	r.Server = httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(r.Server.Close)
	return r
}

// URL returns the endpoint to subscribe.
func (r *WebhookReceiver) URL() string {
	return r.Server.URL + "/hooks"
}

// SetSecret sets the secret used to verify signatures.
func (r *WebhookReceiver) SetSecret(secret string) {
	r.mu.Lock()
	r.secret = secret
	r.mu.Unlock()
}

// Fail makes the receiver answer 503 until called with false.
func (r *WebhookReceiver) Fail(fail bool) {
	r.failing.Store(fail)
}

// Hits counts every request, including failed and rejected ones.
func (r *WebhookReceiver) Hits() int {
	return int(r.hits.Load())
}

// Rejected counts requests whose signature did not verify.
func (r *WebhookReceiver) Rejected() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rejected
}

// Envelopes returns verified deliveries in arrival order.
func (r *WebhookReceiver) Envelopes() []delivery.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery.Envelope(nil), r.envelopes...)
}

// ByType groups verified deliveries by event type.
func (r *WebhookReceiver) ByType() map[models.EventType][]delivery.Envelope {
	out := map[models.EventType][]delivery.Envelope{}
	for _, env := range r.Envelopes() {
		out[env.EventType] = append(out[env.EventType], env)
	}
	return out
}

func (r *WebhookReceiver) serve(w http.ResponseWriter, req *http.Request) {
	r.hits.Add(1)
	if r.failing.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	body, err := io.ReadAll(req.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	env, err := delivery.Verify(r.secret, body, time.Time{}, 0)
	if err != nil {
		r.rejected++
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	r.envelopes = append(r.envelopes, env)
	w.WriteHeader(http.StatusNoContent)
}
