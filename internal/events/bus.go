// Package events holds the webhook subscription registry and fans published events out to
// the delivery dispatcher.
package events

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

var (
	// ErrUnknownEventType is returned when subscribing to a type outside the fixed set.
	ErrUnknownEventType = errors.New("unknown event type")
	// ErrInvalidEndpoint is returned for endpoints that are not absolute http(s) URLs.
	ErrInvalidEndpoint = errors.New("invalid endpoint")
	// ErrSubscriptionNotFound is returned for unknown subscription IDs.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

var tracer = otel.Tracer("reorder-engine/events")

// Dispatcher accepts deliveries. Deliver must not block on network I/O.
type Dispatcher interface {
	Deliver(sub models.Subscription, evt models.Event)
}

// SubscriptionStore persists subscriptions. Every registry mutation is written through before it is applied.
type SubscriptionStore interface {
	SaveSubscription(ctx context.Context, sub models.Subscription) error
	LoadSubscriptions(ctx context.Context) ([]models.Subscription, error)
}

// SubscribeRequest describes a new subscription.
type SubscribeRequest struct {
	EventType   models.EventType
	Endpoint    string
	Secret      string
	Filters     map[string]string
	Description string
}

// ListFilter narrows List results. Zero values match everything.
type ListFilter struct {
	EventType  models.EventType
	ActiveOnly bool
}

// Options configures a Bus.
type Options struct {
	Dispatcher Dispatcher
	Store      SubscriptionStore
	Clock      func() time.Time
}

// Bus is the subscription registry keyed by event type.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string]*models.Subscription
	dispatcher Dispatcher
	store      SubscriptionStore
	clock      func() time.Time
}

// NewBus creates an empty registry.
func NewBus(opts Options) *Bus {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Bus{
		subs:       make(map[string]*models.Subscription),
		dispatcher: opts.Dispatcher,
		store:      opts.Store,
		clock:      opts.Clock,
	}
}

// SetDispatcher wires the dispatcher after construction; the dispatcher itself reports back to the bus.
func (b *Bus) SetDispatcher(d Dispatcher) {
	b.mu.Lock()
	b.dispatcher = d
	b.mu.Unlock()
}

// Load restores persisted subscriptions.
func (b *Bus) Load(ctx context.Context) error {
	if b.store == nil {
		return nil
	}
	subs, err := b.store.LoadSubscriptions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subscriptions: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range subs {
		sub := subs[i]
		b.subs[sub.ID] = &sub
	}
	return nil
}

// Subscribe registers an endpoint for one event type. When no secret is supplied a random
// one is generated; the returned subscription is the only place it is disclosed.
func (b *Bus) Subscribe(ctx context.Context, req SubscribeRequest) (models.Subscription, error) {
	if !req.EventType.Valid() {
		return models.Subscription{}, fmt.Errorf("%w: %q", ErrUnknownEventType, req.EventType)
	}
	endpoint, err := validateEndpoint(req.Endpoint)
	if err != nil {
		return models.Subscription{}, err
	}
	secret := req.Secret
	if secret == "" {
		if secret, err = generateSecret(); err != nil {
			return models.Subscription{}, err
		}
	}

	now := b.clock().UTC()
	sub := models.Subscription{
		ID:          uuid.NewString(),
		EventType:   req.EventType,
		Endpoint:    endpoint,
		Secret:      secret,
		Filters:     maps.Clone(req.Filters),
		Description: req.Description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.persist(ctx, sub); err != nil {
		return models.Subscription{}, err
	}
	b.subs[sub.ID] = &sub

	telemetry.Logger.Info("subscription_created",
		"subscription_id", sub.ID,
		"event_type", string(sub.EventType),
		"endpoint", sub.Endpoint)
	return copySub(&sub), nil
}

// Unsubscribe deactivates a subscription. It stays in the registry for auditing and
// receives no further attempts.
func (b *Bus) Unsubscribe(ctx context.Context, id string) (models.Subscription, error) {
	return b.update(ctx, id, func(s *models.Subscription) {
		s.Active = false
		s.DeactivatedReason = models.DeactivatedUnsubscribed
	})
}

// Reactivate re-enables a subscription and resets its failure counter.
func (b *Bus) Reactivate(ctx context.Context, id string) (models.Subscription, error) {
	return b.update(ctx, id, func(s *models.Subscription) {
		s.Active = true
		s.DeactivatedReason = ""
		s.ConsecutiveFailures = 0
	})
}

// Get returns a copy of one subscription.
func (b *Bus) Get(id string) (models.Subscription, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sub, ok := b.subs[id]
	if !ok {
		return models.Subscription{}, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	return copySub(sub), nil
}

// IsActive reports whether a subscription exists and still accepts deliveries.
func (b *Bus) IsActive(id string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sub, ok := b.subs[id]
	return ok && sub.Active
}

// List returns subscriptions ordered by creation time.
func (b *Bus) List(filter ListFilter) []models.Subscription {
	b.mu.RLock()
	out := make([]models.Subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if filter.EventType != "" && sub.EventType != filter.EventType {
			continue
		}
		if filter.ActiveOnly && !sub.Active {
			continue
		}
		out = append(out, copySub(sub))
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Publish hands the event to every active subscription of its type whose filters match and
// returns how many deliveries were scheduled. It never waits for delivery.
func (b *Bus) Publish(ctx context.Context, evt models.Event) int {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = b.clock().UTC()
	}

	_, span := tracer.Start(ctx, "events.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", evt.ID),
		attribute.String("event.type", string(evt.Type)),
	)

	b.mu.RLock()
	dispatcher := b.dispatcher
	var targets []models.Subscription
	var fields map[string]any
	for _, sub := range b.subs {
		if !sub.Active || sub.EventType != evt.Type {
			continue
		}
		if len(sub.Filters) > 0 {
			if fields == nil {
				fields = evt.Fields()
			}
			if !matchFilters(sub.Filters, fields) {
				continue
			}
		}
		targets = append(targets, copySub(sub))
	}
	b.mu.RUnlock()

	span.SetAttributes(attribute.Int("event.subscribers", len(targets)))
	if len(targets) == 0 || dispatcher == nil {
		return 0
	}

	sort.Slice(targets, func(i, j int) bool { return targets[i].ID < targets[j].ID })
	for _, sub := range targets {
		dispatcher.Deliver(sub, evt)
	}
	return len(targets)
}

// RecordDeliverySuccess resets the failure counter and updates trigger stats.
func (b *Bus) RecordDeliverySuccess(ctx context.Context, id string) error {
	_, err := b.update(ctx, id, func(s *models.Subscription) {
		now := b.clock().UTC()
		s.ConsecutiveFailures = 0
		s.TotalDeliveries++
		s.LastDeliveredAt = &now
	})
	return err
}

// RecordDeliveryExhausted counts a delivery whose retries ran out. When the count reaches
// threshold on an active subscription it is deactivated and deactivated is true.
func (b *Bus) RecordDeliveryExhausted(ctx context.Context, id string, threshold int) (failures int, deactivated bool, err error) {
	sub, err := b.update(ctx, id, func(s *models.Subscription) {
		s.ConsecutiveFailures++
		if s.Active && threshold > 0 && s.ConsecutiveFailures >= threshold {
			s.Active = false
			s.DeactivatedReason = models.DeactivatedDegraded
			deactivated = true
		}
	})
	if err != nil {
		return 0, false, err
	}
	if deactivated {
		telemetry.Logger.Warn("subscription_degraded",
			"subscription_id", sub.ID,
			"event_type", string(sub.EventType),
			"consecutive_failures", sub.ConsecutiveFailures)
	}
	return sub.ConsecutiveFailures, deactivated, nil
}

// update applies fn to a copy, persists it and commits it under the registry lock.
func (b *Bus) update(ctx context.Context, id string, fn func(*models.Subscription)) (models.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur, ok := b.subs[id]
	if !ok {
		return models.Subscription{}, fmt.Errorf("%w: %s", ErrSubscriptionNotFound, id)
	}
	next := copySub(cur)
	fn(&next)
	next.UpdatedAt = b.clock().UTC()

	if err := b.persist(ctx, next); err != nil {
		return models.Subscription{}, err
	}
	*cur = next
	return copySub(cur), nil
}

func (b *Bus) persist(ctx context.Context, sub models.Subscription) error {
	if b.store == nil {
		return nil
	}
	if err := b.store.SaveSubscription(ctx, sub); err != nil {
		return fmt.Errorf("failed to persist subscription: %w", err)
	}
	return nil
}

func copySub(s *models.Subscription) models.Subscription {
	c := *s
	c.Filters = maps.Clone(s.Filters)
	if s.LastDeliveredAt != nil {
		t := *s.LastDeliveredAt
		c.LastDeliveredAt = &t
	}
	return c
}

func validateEndpoint(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme must be http or https", ErrInvalidEndpoint)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: host is required", ErrInvalidEndpoint)
	}
	return u.String(), nil
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// matchFilters requires every filter key to be present in the payload with an equal value.
func matchFilters(filters map[string]string, fields map[string]any) bool {
	for k, want := range filters {
		got, ok := fields[k]
		if !ok || fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}
