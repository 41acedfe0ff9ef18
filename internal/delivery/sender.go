package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// ErrDeliveryFailure wraps every failed attempt: non-2xx status, transport error or timeout.
var ErrDeliveryFailure = errors.New("webhook delivery failed")

// BreakerConfig configures the per-subscription circuit breaker.
type BreakerConfig struct {
	// ConsecutiveFailures opens the breaker once exceeded. Zero disables the breaker.
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// request is one outbound webhook call
type request struct {
	subscription models.Subscription
	deliveryID   string
	body         []byte
	signature    string
	issuedAt     int64
}

// result is the classified outcome of one call
type result struct {
	outcome    models.AttemptOutcome
	statusCode int
	err        error
}

// Sender POSTs signed envelopes. Each subscription endpoint gets its own circuit breaker.
type Sender struct {
	httpClient *http.Client
	timeout    time.Duration
	breaker    BreakerConfig
	tracer     trace.Tracer

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewSender creates a sender. A nil client gets a default one; timeout bounds each attempt.
func NewSender(client *http.Client, timeout time.Duration, breaker BreakerConfig) *Sender {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Sender{
		httpClient: client,
		timeout:    timeout,
		breaker:    breaker,
		tracer:     otel.Tracer("webhook-sender"),
		breakers:   make(map[string]*gobreaker.CircuitBreaker),
	}
}

// send performs one attempt. It never returns a nil result.
func (s *Sender) send(ctx context.Context, req request) result {
	ctx, span := s.tracer.Start(ctx, "webhook.deliver", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("subscription.id", req.subscription.ID),
		attribute.String("event.type", string(req.subscription.EventType)),
		attribute.String("delivery.id", req.deliveryID),
	)

	var res result
	cb := s.breakerFor(req.subscription.ID)
	if cb == nil {
		res = s.post(ctx, req)
	} else {
		_, err := cb.Execute(func() (interface{}, error) {
			res = s.post(ctx, req)
			return nil, res.err
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			res = result{outcome: models.OutcomeFailure, err: fmt.Errorf("%w: %v", ErrDeliveryFailure, err)}
		}
	}

	if res.statusCode != 0 {
		span.SetAttributes(attribute.Int("http.status_code", res.statusCode))
	}
	if res.err != nil {
		span.RecordError(res.err)
		span.SetStatus(codes.Error, string(res.outcome))
	}
	return res
}

func (s *Sender) post(ctx context.Context, req request) result {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.subscription.Endpoint, bytes.NewReader(req.body))
	if err != nil {
		return result{outcome: models.OutcomeFailure, err: fmt.Errorf("%w: failed to create request: %v", ErrDeliveryFailure, err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", "reorder-engine-webhooks/1.0")
	httpReq.Header.Set(SignatureHeader, req.signature)
	httpReq.Header.Set(TimestampHeader, fmt.Sprintf("%d", req.issuedAt))
	httpReq.Header.Set(EventTypeHeader, string(req.subscription.EventType))
	httpReq.Header.Set(DeliveryHeader, req.deliveryID)

	// Inject trace context
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return result{outcome: models.OutcomeTimeout, err: fmt.Errorf("%w: timed out after %s", ErrDeliveryFailure, s.timeout)}
		}
		return result{outcome: models.OutcomeFailure, err: fmt.Errorf("%w: %v", ErrDeliveryFailure, err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return result{
			outcome:    models.OutcomeFailure,
			statusCode: resp.StatusCode,
			err:        fmt.Errorf("%w: endpoint returned status %d", ErrDeliveryFailure, resp.StatusCode),
		}
	}
	return result{outcome: models.OutcomeSuccess, statusCode: resp.StatusCode}
}

func (s *Sender) breakerFor(subscriptionID string) *gobreaker.CircuitBreaker {
	if s.breaker.ConsecutiveFailures == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[subscriptionID]; ok {
		return cb
	}
	threshold := s.breaker.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "webhook-" + subscriptionID,
		MaxRequests: 1,
		Timeout:     s.breaker.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			telemetry.Logger.Warn("circuit_breaker_state_changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
	s.breakers[subscriptionID] = cb
	return cb
}

// forget drops the breaker of a subscription, used when it is reactivated.
func (s *Sender) forget(subscriptionID string) {
	s.mu.Lock()
	delete(s.breakers, subscriptionID)
	s.mu.Unlock()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
