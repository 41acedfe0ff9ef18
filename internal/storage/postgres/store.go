// Package postgres persists inventory, subscriptions and delivery attempts in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/events"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/inventory"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

// Store is a pgx-backed implementation of the engine's persistence ports.
type Store struct {
	Pool *pgxpool.Pool
}

var (
	_ inventory.Persister      = (*Store)(nil)
	_ inventory.Loader         = (*Store)(nil)
	_ events.SubscriptionStore = (*Store)(nil)
	_ delivery.AttemptLog      = (*Store)(nil)
)

// NewStore creates a store on an existing pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}

// Connect opens a pool for databaseURL and ensures the schema exists.
func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return NewStore(pool), nil
}

// Close releases the pool
func (s *Store) Close() {
	s.Pool.Close()
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

// SaveProduct upserts a product record
func (s *Store) SaveProduct(ctx context.Context, r models.ProductRecord) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO products (product_id, supplier_id, quantity, min_threshold, max_threshold, reorder_quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (product_id) DO UPDATE SET
			supplier_id = EXCLUDED.supplier_id,
			quantity = EXCLUDED.quantity,
			min_threshold = EXCLUDED.min_threshold,
			max_threshold = EXCLUDED.max_threshold,
			reorder_quantity = EXCLUDED.reorder_quantity,
			updated_at = EXCLUDED.updated_at`,
		r.ProductID, r.SupplierID, r.Quantity, r.MinThreshold, r.MaxThreshold, r.ReorderQuantity, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save product %s: %w", r.ProductID, err)
	}
	return nil
}

// AppendSample stores one consumption sample
func (s *Store) AppendSample(ctx context.Context, sample models.ConsumptionSample) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO consumption_samples (product_id, consumed_at, quantity) VALUES ($1, $2, $3)`,
		sample.ProductID, sample.At, sample.Quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to append sample for %s: %w", sample.ProductID, err)
	}
	return nil
}

// LoadProducts returns every stored product
func (s *Store) LoadProducts(ctx context.Context) ([]models.ProductRecord, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, supplier_id, quantity, min_threshold, max_threshold, reorder_quantity, updated_at
		FROM products ORDER BY product_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ProductRecord, error) {
		var r models.ProductRecord
		err := row.Scan(&r.ProductID, &r.SupplierID, &r.Quantity, &r.MinThreshold, &r.MaxThreshold, &r.ReorderQuantity, &r.UpdatedAt)
		r.UpdatedAt = r.UpdatedAt.UTC()
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return records, nil
}

// LoadSamples returns samples at or after since, oldest first
func (s *Store) LoadSamples(ctx context.Context, since time.Time) ([]models.ConsumptionSample, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT product_id, consumed_at, quantity
		FROM consumption_samples
		WHERE consumed_at >= $1
		ORDER BY consumed_at, id`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load samples: %w", err)
	}
	samples, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.ConsumptionSample, error) {
		var sample models.ConsumptionSample
		err := row.Scan(&sample.ProductID, &sample.At, &sample.Quantity)
		sample.At = sample.At.UTC()
		return sample, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan samples: %w", err)
	}
	return samples, nil
}

// SaveSubscription upserts a subscription
func (s *Store) SaveSubscription(ctx context.Context, sub models.Subscription) error {
	filters := sub.Filters
	if filters == nil {
		filters = map[string]string{}
	}
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO webhook_subscriptions (
			id, event_type, endpoint, secret, filters, description, active, consecutive_failures,
			deactivated_reason, total_deliveries, last_delivered_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			endpoint = EXCLUDED.endpoint,
			secret = EXCLUDED.secret,
			filters = EXCLUDED.filters,
			description = EXCLUDED.description,
			active = EXCLUDED.active,
			consecutive_failures = EXCLUDED.consecutive_failures,
			deactivated_reason = EXCLUDED.deactivated_reason,
			total_deliveries = EXCLUDED.total_deliveries,
			last_delivered_at = EXCLUDED.last_delivered_at,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, string(sub.EventType), sub.Endpoint, sub.Secret, filters, sub.Description, sub.Active,
		sub.ConsecutiveFailures, sub.DeactivatedReason, sub.TotalDeliveries, sub.LastDeliveredAt,
		sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save subscription %s: %w", sub.ID, err)
	}
	return nil
}

// LoadSubscriptions returns every stored subscription
func (s *Store) LoadSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, event_type, endpoint, secret, filters, description, active, consecutive_failures,
			deactivated_reason, total_deliveries, last_delivered_at, created_at, updated_at
		FROM webhook_subscriptions
		ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}
	subs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Subscription, error) {
		var sub models.Subscription
		var eventType string
		err := row.Scan(&sub.ID, &eventType, &sub.Endpoint, &sub.Secret, &sub.Filters, &sub.Description,
			&sub.Active, &sub.ConsecutiveFailures, &sub.DeactivatedReason, &sub.TotalDeliveries,
			&sub.LastDeliveredAt, &sub.CreatedAt, &sub.UpdatedAt)
		sub.EventType = models.EventType(eventType)
		if len(sub.Filters) == 0 {
			sub.Filters = nil
		}
		sub.CreatedAt = sub.CreatedAt.UTC()
		sub.UpdatedAt = sub.UpdatedAt.UTC()
		return sub, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan subscriptions: %w", err)
	}
	return subs, nil
}

// Append records one delivery attempt
func (s *Store) Append(ctx context.Context, a models.DeliveryAttempt) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO delivery_attempts (
			id, delivery_id, subscription_id, event_id, event_type, attempt, outcome, status_code, error, payload, attempted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.DeliveryID, a.SubscriptionID, a.EventID, string(a.EventType), a.Attempt,
		string(a.Outcome), a.StatusCode, a.Error, a.Payload, a.At,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// List returns matching attempts, newest first
func (s *Store) List(ctx context.Context, f delivery.AttemptFilter) ([]models.DeliveryAttempt, error) {
	var limit *int
	if f.Limit > 0 {
		limit = &f.Limit
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, delivery_id, subscription_id, event_id, event_type, attempt, outcome, status_code, error, payload, attempted_at
		FROM delivery_attempts
		WHERE ($1::text = '' OR subscription_id = $1)
		  AND ($2::text = '' OR event_id = $2)
		  AND ($3::text = '' OR delivery_id = $3)
		ORDER BY attempted_at DESC, attempt DESC
		LIMIT $4`,
		f.SubscriptionID, f.EventID, f.DeliveryID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	attempts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.DeliveryAttempt, error) {
		var a models.DeliveryAttempt
		var eventType, outcome string
		err := row.Scan(&a.ID, &a.DeliveryID, &a.SubscriptionID, &a.EventID, &eventType, &a.Attempt,
			&outcome, &a.StatusCode, &a.Error, &a.Payload, &a.At)
		a.EventType = models.EventType(eventType)
		a.Outcome = models.AttemptOutcome(outcome)
		a.At = a.At.UTC()
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan attempts: %w", err)
	}
	return attempts, nil
}
