// Package delivery sends signed webhook requests with retries, records every attempt and
// deactivates subscriptions whose endpoints keep failing.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/metrics"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// ErrDispatcherClosed is returned by Shutdown when called twice.
var ErrDispatcherClosed = errors.New("dispatcher closed")

// Registry is the subscription bookkeeping the dispatcher reports to.
type Registry interface {
	IsActive(id string) bool
	RecordDeliverySuccess(ctx context.Context, id string) error
	RecordDeliveryExhausted(ctx context.Context, id string, threshold int) (failures int, deactivated bool, err error)
}

// Config tunes the dispatcher.
type Config struct {
	Workers           int
	AttemptTimeout    time.Duration
	MaxAttempts       int
	DegradedThreshold int
	Backoff           BackoffConfig
	Breaker           BreakerConfig
	NoticeBuffer      int
}

// Options carries the dispatcher's collaborators.
type Options struct {
	Registry   Registry
	AttemptLog AttemptLog
	Metrics    *metrics.EngineMetrics
	Sender     *Sender
	Clock      func() time.Time
}

type job struct {
	id       string
	sub      models.Subscription
	evt      models.Event
	attempt  int
	schedule *backoff.ExponentialBackOff
}

// Dispatcher delivers events to subscribers. Deliver only enqueues; a worker pool performs
// attempts and failed attempts are re-enqueued by timers after a backoff delay.
type Dispatcher struct {
	cfg      Config
	registry Registry
	log      AttemptLog
	metrics  *metrics.EngineMetrics
	sender   *Sender
	clock    func() time.Time

	mu      sync.Mutex
	backlog []*job
	timers  map[string]*time.Timer
	closed  bool
	notify  chan struct{}

	drainMu sync.Mutex
	pending atomic.Int64
	// idle is closed while nothing is pending.
	idle    chan struct{}
	notices chan models.Notice

	ctx     context.Context
	cancel  context.CancelFunc
	workers sync.WaitGroup
}

// NewDispatcher creates a dispatcher. Call Start before delivering.
func NewDispatcher(cfg Config, opts Options) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.DegradedThreshold <= 0 {
		cfg.DegradedThreshold = 3
	}
	if cfg.NoticeBuffer <= 0 {
		cfg.NoticeBuffer = 64
	}
	cfg.Backoff = cfg.Backoff.withDefaults()

	if opts.AttemptLog == nil {
		opts.AttemptLog = NewMemoryAttemptLog()
	}
	if opts.Sender == nil {
		opts.Sender = NewSender(nil, cfg.AttemptTimeout, cfg.Breaker)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	idle := make(chan struct{})
	close(idle)

	return &Dispatcher{
		cfg:      cfg,
		registry: opts.Registry,
		log:      opts.AttemptLog,
		metrics:  opts.Metrics,
		sender:   opts.Sender,
		clock:    opts.Clock,
		timers:   make(map[string]*time.Timer),
		notify:   make(chan struct{}, 1),
		idle:     idle,
		notices:  make(chan models.Notice, cfg.NoticeBuffer),
	}
}

// Start launches the worker pool.
func (d *Dispatcher) Start(parent context.Context) {
	d.ctx, d.cancel = context.WithCancel(parent)
	for i := 0; i < d.cfg.Workers; i++ {
		d.workers.Add(1)
		go d.worker()
	}
	telemetry.Logger.Info("dispatcher_started", "worker_count", d.cfg.Workers)
}

// Deliver schedules delivery of evt to sub and returns immediately.
func (d *Dispatcher) Deliver(sub models.Subscription, evt models.Event) {
	j := &job{
		id:       uuid.NewString(),
		sub:      sub,
		evt:      evt,
		schedule: d.cfg.Backoff.newBackOff(),
	}
	d.addPending(1)
	d.metrics.RecordDeliveryQueued(context.Background(), string(evt.Type))
	if !d.enqueue(j) {
		telemetry.Logger.Warn("delivery_rejected",
			"delivery_id", j.id,
			"subscription_id", sub.ID,
			"event_id", evt.ID,
			"reason", "dispatcher closed")
		d.finish(j, "rejected")
	}
}

// Notices streams operator notices such as subscription degradation. It is closed by Shutdown.
func (d *Dispatcher) Notices() <-chan models.Notice {
	return d.notices
}

// Attempts returns delivery attempt history.
func (d *Dispatcher) Attempts(ctx context.Context, filter AttemptFilter) ([]models.DeliveryAttempt, error) {
	attempts, err := d.log.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}

// ResetBreaker clears the circuit breaker of a subscription, e.g. after reactivation.
func (d *Dispatcher) ResetBreaker(subscriptionID string) {
	d.sender.forget(subscriptionID)
}

// Pending reports deliveries that are queued, in flight or waiting for a retry.
func (d *Dispatcher) Pending() int {
	return int(d.pending.Load())
}

// DrainUntil blocks until no delivery is pending or ctx is done.
func (d *Dispatcher) DrainUntil(ctx context.Context) bool {
	for {
		d.drainMu.Lock()
		if d.pending.Load() == 0 {
			d.drainMu.Unlock()
			return true
		}
		idle := d.idle
		d.drainMu.Unlock()

		select {
		case <-ctx.Done():
			return false
		case <-idle:
		}
	}
}

func (d *Dispatcher) addPending(delta int64) {
	d.drainMu.Lock()
	defer d.drainMu.Unlock()
	prev := d.pending.Load()
	n := d.pending.Add(delta)
	switch {
	case prev == 0 && n > 0:
		d.idle = make(chan struct{})
	case prev > 0 && n == 0:
		close(d.idle)
	}
}

// Shutdown stops accepting deliveries, cancels pending retries and waits for queued and
// in-flight attempts to finish or ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	cancelled := 0
	for id, t := range d.timers {
		if t.Stop() {
			cancelled++
			d.addPending(-1)
		}
		delete(d.timers, id)
	}
	d.mu.Unlock()

	drained := d.DrainUntil(ctx)
	if d.cancel != nil {
		d.cancel()
	}
	d.workers.Wait()
	close(d.notices)

	telemetry.Logger.Info("dispatcher_stopped",
		"cancelled_retries", cancelled,
		"drained", drained)
	if !drained {
		return fmt.Errorf("dispatcher shutdown: %w", ctx.Err())
	}
	return nil
}

func (d *Dispatcher) enqueue(j *job) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.backlog = append(d.backlog, j)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
	return true
}

func (d *Dispatcher) next() *job {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.backlog) == 0 {
		return nil
	}
	j := d.backlog[0]
	d.backlog[0] = nil
	d.backlog = d.backlog[1:]
	return j
}

func (d *Dispatcher) worker() {
	defer d.workers.Done()
	for {
		if j := d.next(); j != nil {
			d.process(j)
			continue
		}
		select {
		case <-d.ctx.Done():
			return
		case <-d.notify:
		}
	}
}

func (d *Dispatcher) process(j *job) {
	ctx := d.ctx
	if d.registry != nil && !d.registry.IsActive(j.sub.ID) {
		telemetry.Logger.Info("delivery_dropped",
			"delivery_id", j.id,
			"subscription_id", j.sub.ID,
			"event_id", j.evt.ID,
			"reason", "subscription inactive")
		d.finish(j, "dropped")
		return
	}

	j.attempt++
	issuedAt := d.clock()
	body, sig, err := Seal(j.sub.Secret, NewEnvelope(j.evt, issuedAt))
	if err != nil {
		telemetry.Logger.Error("delivery_encode_failed", "delivery_id", j.id, "error", err)
		d.finish(j, "failed")
		return
	}

	start := time.Now()
	res := d.sender.send(ctx, request{
		subscription: j.sub,
		deliveryID:   j.id,
		body:         body,
		signature:    sig,
		issuedAt:     issuedAt.Unix(),
	})
	elapsed := time.Since(start)
	d.metrics.RecordAttempt(ctx, string(j.evt.Type), string(res.outcome), elapsed)
	d.record(ctx, j, res, body)

	if res.outcome == models.OutcomeSuccess {
		telemetry.Logger.Info("delivery_succeeded",
			"delivery_id", j.id,
			"subscription_id", j.sub.ID,
			"event_id", j.evt.ID,
			"attempt", j.attempt,
			"status_code", res.statusCode,
			"duration_ms", elapsed.Milliseconds())
		if d.registry != nil && !d.lateResult(j, "delivered") {
			if err := d.registry.RecordDeliverySuccess(ctx, j.sub.ID); err != nil {
				telemetry.Logger.Error("delivery_bookkeeping_failed", "subscription_id", j.sub.ID, "error", err)
			}
		}
		d.finish(j, "delivered")
		return
	}

	telemetry.Logger.Warn("delivery_attempt_failed",
		"delivery_id", j.id,
		"subscription_id", j.sub.ID,
		"event_id", j.evt.ID,
		"attempt", j.attempt,
		"outcome", string(res.outcome),
		"error", res.err)

	if j.attempt >= d.cfg.MaxAttempts {
		d.exhausted(ctx, j)
		return
	}
	d.retry(j)
}

func (d *Dispatcher) retry(j *job) {
	delay := j.schedule.NextBackOff()
	if delay < 0 {
		delay = d.cfg.Backoff.Max
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		telemetry.Logger.Info("delivery_abandoned", "delivery_id", j.id, "attempt", j.attempt, "reason", "shutting down")
		d.finish(j, "abandoned")
		return
	}
	d.timers[j.id] = time.AfterFunc(delay, func() {
		d.mu.Lock()
		delete(d.timers, j.id)
		d.mu.Unlock()
		if !d.enqueue(j) {
			d.finish(j, "abandoned")
		}
	})
	d.mu.Unlock()

	d.metrics.RecordRetry(d.ctx, string(j.evt.Type), j.attempt)
	telemetry.Logger.Info("delivery_retry_scheduled",
		"delivery_id", j.id,
		"subscription_id", j.sub.ID,
		"next_attempt", j.attempt+1,
		"delay_ms", delay.Milliseconds())
}

func (d *Dispatcher) exhausted(ctx context.Context, j *job) {
	defer d.finish(j, "exhausted")
	if d.registry == nil || d.lateResult(j, "exhausted") {
		return
	}
	failures, deactivated, err := d.registry.RecordDeliveryExhausted(ctx, j.sub.ID, d.cfg.DegradedThreshold)
	if err != nil {
		telemetry.Logger.Error("delivery_bookkeeping_failed", "subscription_id", j.sub.ID, "error", err)
		return
	}
	telemetry.Logger.Warn("delivery_exhausted",
		"delivery_id", j.id,
		"subscription_id", j.sub.ID,
		"event_id", j.evt.ID,
		"attempts", j.attempt,
		"consecutive_failures", failures)
	if !deactivated {
		return
	}

	d.metrics.RecordSubscriptionDegraded(ctx, string(j.sub.EventType))
	notice := models.Notice{
		Kind:                models.NoticeKindSubscriptionDegraded,
		SubscriptionID:      j.sub.ID,
		EventType:           j.sub.EventType,
		Endpoint:            j.sub.Endpoint,
		ConsecutiveFailures: failures,
		Message:             fmt.Sprintf("subscription deactivated after %d consecutive failed deliveries", failures),
		At:                  d.clock().UTC(),
	}
	select {
	case d.notices <- notice:
	default:
		telemetry.Logger.Error("notice_dropped", "kind", notice.Kind, "subscription_id", notice.SubscriptionID)
	}
}

// lateResult reports whether the subscription went inactive while the attempt was in
// flight. Such results stay in the attempt log but leave the subscription untouched.
func (d *Dispatcher) lateResult(j *job, status string) bool {
	if d.registry == nil || d.registry.IsActive(j.sub.ID) {
		return false
	}
	telemetry.Logger.Info("delivery_result_ignored",
		"delivery_id", j.id,
		"subscription_id", j.sub.ID,
		"status", status,
		"reason", "subscription inactive")
	return true
}

func (d *Dispatcher) record(ctx context.Context, j *job, res result, body []byte) {
	attempt := models.DeliveryAttempt{
		ID:             uuid.NewString(),
		DeliveryID:     j.id,
		SubscriptionID: j.sub.ID,
		EventID:        j.evt.ID,
		EventType:      j.evt.Type,
		Attempt:        j.attempt,
		Outcome:        res.outcome,
		StatusCode:     res.statusCode,
		Payload:        body,
		At:             d.clock().UTC(),
	}
	if res.err != nil {
		attempt.Error = res.err.Error()
	}
	if err := d.log.Append(context.WithoutCancel(ctx), attempt); err != nil {
		telemetry.Logger.Error("attempt_log_failed", "delivery_id", j.id, "error", err)
	}
}

func (d *Dispatcher) finish(j *job, status string) {
	d.metrics.RecordDeliveryFinished(context.Background(), string(j.evt.Type), status)
	d.addPending(-1)
}
