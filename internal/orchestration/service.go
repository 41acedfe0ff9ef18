// Package orchestration runs evaluation passes: it drains products whose state changed,
// forecasts their demand, applies the reorder rules and publishes the resulting events.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/events"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/forecast"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/inventory"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/metrics"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/rules"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// Publisher fans events out to subscribers and reports how many deliveries it scheduled.
type Publisher interface {
	Publish(ctx context.Context, evt models.Event) int
}

// NoticeSink receives operator notices, e.g. connected dashboards.
type NoticeSink interface {
	Broadcast(n models.Notice)
}

// Config tunes pass scheduling.
type Config struct {
	PassInterval  time.Duration
	Concurrency   int
	NoticeHistory int
}

// Options carries the service's collaborators.
type Options struct {
	Store     *inventory.Store
	Estimator *forecast.Estimator
	Evaluator *rules.Evaluator
	Publisher Publisher
	Metrics   *metrics.EngineMetrics
	// Notices is consumed by Run when set.
	Notices <-chan models.Notice
	Clock   func() time.Time
}

// PassResult summarizes one evaluation pass
type PassResult struct {
	StartedAt  time.Time      `json:"started_at"`
	Duration   time.Duration  `json:"duration_ns"`
	Evaluated  int            `json:"evaluated"`
	Requeued   int            `json:"requeued"`
	Failed     int            `json:"failed"`
	Events     int            `json:"events"`
	Deliveries int            `json:"deliveries"`
	Decisions  map[string]int `json:"decisions"`
}

// ProductView is a read-only evaluation of one product that publishes nothing.
type ProductView struct {
	Snapshot models.Snapshot       `json:"snapshot"`
	Forecast models.ForecastResult `json:"forecast"`
	Decision models.Decision       `json:"decision"`
}

// ManualReorder is the result of an operator-triggered reorder
type ManualReorder struct {
	Event      models.Event `json:"event"`
	Quantity   int64        `json:"quantity"`
	Deliveries int          `json:"deliveries"`
}

// Service coordinates the store, estimator, evaluator and event bus
type Service struct {
	cfg       Config
	store     *inventory.Store
	estimator *forecast.Estimator
	evaluator *rules.Evaluator
	publisher Publisher
	metrics   *metrics.EngineMetrics
	notices   <-chan models.Notice
	clock     func() time.Time
	tracer    trace.Tracer

	trigger chan struct{}

	inflightMu sync.Mutex
	inflight   map[string]struct{}

	noticeMu sync.RWMutex
	recent   []models.Notice
	sinks    []NoticeSink
}

// NewService creates a new orchestration service
func NewService(cfg Config, opts Options) *Service {
	if cfg.PassInterval <= 0 {
		cfg.PassInterval = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.NoticeHistory <= 0 {
		cfg.NoticeHistory = 100
	}
	if opts.Estimator == nil {
		opts.Estimator = forecast.NewEstimator(forecast.DefaultConfig())
	}
	if opts.Evaluator == nil {
		opts.Evaluator = rules.NewEvaluator(rules.Config{})
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		cfg:       cfg,
		store:     opts.Store,
		estimator: opts.Estimator,
		evaluator: opts.Evaluator,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		notices:   opts.Notices,
		clock:     opts.Clock,
		tracer:    otel.Tracer("reorder-orchestrator"),
		trigger:   make(chan struct{}, 1),
		inflight:  make(map[string]struct{}),
	}
}

// Run executes passes on every interval tick and on Trigger until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if s.notices != nil {
		go s.consumeNotices(ctx)
	}

	ticker := time.NewTicker(s.cfg.PassInterval)
	defer ticker.Stop()

	telemetry.Logger.Info("orchestrator_started",
		"pass_interval", s.cfg.PassInterval.String(),
		"concurrency", s.cfg.Concurrency)
	for {
		select {
		case <-ctx.Done():
			telemetry.Logger.Info("orchestrator_stopped")
			return
		case <-ticker.C:
		case <-s.trigger:
		}
		s.RunPass(ctx)
	}
}

// Trigger requests a pass as soon as possible. Requests made while one is pending coalesce.
func (s *Service) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// RunPass drains the dirty set and evaluates every drained product.
func (s *Service) RunPass(ctx context.Context) PassResult {
	ctx, span := s.tracer.Start(ctx, "orchestrator.pass")
	defer span.End()

	res := PassResult{StartedAt: s.clock().UTC(), Decisions: map[string]int{}}
	ids := s.store.DrainDirty()
	if len(ids) == 0 {
		return res
	}

	var (
		mu                          sync.Mutex
		evaluated, requeued, failed atomic.Int64
		eventCount, deliveries      atomic.Int64
	)
	start := time.Now()
	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Concurrency)

	for _, id := range ids {
		if !s.acquire(id) {
			// already being evaluated; pick it up next pass with its latest state
			s.store.MarkDirty(id)
			requeued.Add(1)
			continue
		}
		g.Go(func() error {
			defer s.release(id)
			out, err := s.evaluate(ctx, id)
			if err != nil {
				failed.Add(1)
				telemetry.Logger.Error("product_evaluation_failed", "product_id", id, "error", err)
				return nil
			}
			evaluated.Add(1)
			eventCount.Add(int64(out.events))
			deliveries.Add(int64(out.deliveries))
			mu.Lock()
			res.Decisions[out.decision.Kind.String()]++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	res.Duration = time.Since(start)
	res.Evaluated = int(evaluated.Load())
	res.Requeued = int(requeued.Load())
	res.Failed = int(failed.Load())
	res.Events = int(eventCount.Load())
	res.Deliveries = int(deliveries.Load())

	span.SetAttributes(
		attribute.Int("pass.evaluated", res.Evaluated),
		attribute.Int("pass.events", res.Events),
	)
	s.metrics.RecordPass(ctx, res.Evaluated, res.Requeued, res.Duration)
	telemetry.Logger.Info("pass_completed",
		"evaluated", res.Evaluated,
		"requeued", res.Requeued,
		"failed", res.Failed,
		"events", res.Events,
		"deliveries", res.Deliveries,
		"duration_ms", res.Duration.Milliseconds())
	return res
}

type evaluation struct {
	decision   models.Decision
	events     int
	deliveries int
}

func (s *Service) evaluate(ctx context.Context, productID string) (evaluation, error) {
	view, err := s.Inspect(productID)
	if err != nil {
		return evaluation{}, err
	}
	out := evaluation{decision: view.Decision}
	s.metrics.RecordDecision(ctx, view.Decision.Kind.String())

	rec := view.Snapshot.Record
	if t, ok := view.Decision.Kind.EventType(); ok {
		payload := decisionPayload(view, false)
		n, err := s.publish(ctx, t, rec.ProductID, payload, view.Decision.DecidedAt)
		if err != nil {
			return out, err
		}
		out.events++
		out.deliveries += n

		if view.Decision.Kind == models.DecisionReorder && rec.SupplierID != "" {
			n, err := s.publishSupplierRequest(ctx, rec, view.Decision.Quantity, view.Decision.Priority, view.Decision.Reason, view.Decision.DecidedAt)
			if err != nil {
				return out, err
			}
			out.events++
			out.deliveries += n
		}
	}

	if view.Forecast.Spike {
		n, err := s.publish(ctx, models.EventTypeDemandSpike, rec.ProductID, models.DemandSpikePayload{
			ProductID:    rec.ProductID,
			RatePerDay:   view.Forecast.Rate,
			LatestRate:   view.Forecast.LatestRate,
			Confidence:   view.Forecast.Confidence,
			Trend:        view.Forecast.Trend,
			CurrentStock: rec.Quantity,
			ComputedAt:   view.Forecast.ComputedAt,
		}, view.Forecast.ComputedAt)
		if err != nil {
			return out, err
		}
		out.events++
		out.deliveries += n
	}

	if view.Decision.Kind != models.DecisionNone {
		telemetry.Logger.Info("product_evaluated",
			"product_id", rec.ProductID,
			"decision", view.Decision.Kind.String(),
			"quantity", view.Decision.Quantity,
			"priority", view.Decision.Priority,
			"deliveries", out.deliveries)
	}
	return out, nil
}

// Inspect forecasts and evaluates a product against its current state without publishing.
func (s *Service) Inspect(productID string) (ProductView, error) {
	snap, err := s.store.Snapshot(productID)
	if err != nil {
		return ProductView{}, err
	}
	now := s.clock().UTC()
	fc := s.estimator.Estimate(productID, snap.Samples, now)
	return ProductView{
		Snapshot: snap,
		Forecast: fc,
		Decision: s.evaluator.Evaluate(snap, fc, now),
	}, nil
}

// TriggerReorderManually publishes a reorder for productID without consulting the rules.
// A non-positive quantity falls back to the product's configured reorder quantity.
func (s *Service) TriggerReorderManually(ctx context.Context, productID string, quantity int64) (ManualReorder, error) {
	view, err := s.Inspect(productID)
	if err != nil {
		return ManualReorder{}, err
	}
	rec := view.Snapshot.Record
	if quantity <= 0 {
		quantity = rec.ReorderQuantity
	}
	if quantity <= 0 {
		return ManualReorder{}, fmt.Errorf("%w: product %s has no reorder quantity configured", inventory.ErrInvalidQuantity, productID)
	}

	view.Decision = models.Decision{
		ProductID: rec.ProductID,
		Kind:      models.DecisionReorder,
		Quantity:  quantity,
		Priority:  models.PriorityMedium,
		Reason:    "manual reorder",
		DecidedAt: s.clock().UTC(),
	}
	payload := decisionPayload(view, true)
	evt, err := events.NewEvent(models.EventTypeReorder, rec.ProductID, payload, view.Decision.DecidedAt)
	if err != nil {
		return ManualReorder{}, err
	}
	evt.ID = uuid.NewString()
	n := s.deliver(ctx, evt)

	if rec.SupplierID != "" {
		m, err := s.publishSupplierRequest(ctx, rec, quantity, view.Decision.Priority, view.Decision.Reason, view.Decision.DecidedAt)
		if err != nil {
			return ManualReorder{}, err
		}
		n += m
	}

	telemetry.Logger.Info("manual_reorder_triggered",
		"product_id", rec.ProductID,
		"quantity", quantity,
		"event_id", evt.ID,
		"deliveries", n)
	return ManualReorder{Event: evt, Quantity: quantity, Deliveries: n}, nil
}

func (s *Service) publishSupplierRequest(ctx context.Context, rec models.ProductRecord, qty int64, priority, reason string, at time.Time) (int, error) {
	return s.publish(ctx, models.EventTypeSupplierRequestCreated, rec.ProductID, models.SupplierRequestPayload{
		RequestID:  uuid.NewString(),
		SupplierID: rec.SupplierID,
		ProductID:  rec.ProductID,
		Quantity:   qty,
		Priority:   priority,
		Reason:     reason,
		CreatedAt:  at,
	}, at)
}

func (s *Service) publish(ctx context.Context, t models.EventType, productID string, payload any, at time.Time) (int, error) {
	evt, err := events.NewEvent(t, productID, payload, at)
	if err != nil {
		return 0, err
	}
	evt.ID = uuid.NewString()
	return s.deliver(ctx, evt), nil
}

func (s *Service) deliver(ctx context.Context, evt models.Event) int {
	if s.publisher == nil {
		return 0
	}
	return s.publisher.Publish(ctx, evt)
}

func decisionPayload(view ProductView, manual bool) models.DecisionPayload {
	rec := view.Snapshot.Record
	return models.DecisionPayload{
		ProductID:          rec.ProductID,
		SupplierID:         rec.SupplierID,
		Decision:           view.Decision.Kind.String(),
		Quantity:           view.Decision.Quantity,
		CurrentStock:       rec.Quantity,
		MinThreshold:       rec.MinThreshold,
		MaxThreshold:       rec.MaxThreshold,
		Priority:           view.Decision.Priority,
		Reason:             view.Decision.Reason,
		ForecastRate:       view.Forecast.Rate,
		ForecastConfidence: view.Forecast.Confidence,
		Manual:             manual,
		DecidedAt:          view.Decision.DecidedAt,
	}
}

func (s *Service) acquire(productID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[productID]; busy {
		return false
	}
	s.inflight[productID] = struct{}{}
	return true
}

func (s *Service) release(productID string) {
	s.inflightMu.Lock()
	delete(s.inflight, productID)
	s.inflightMu.Unlock()
}

// IsNotFound reports whether err means the product does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, inventory.ErrProductNotFound)
}
