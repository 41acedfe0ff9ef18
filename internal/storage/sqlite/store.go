// Package sqlite persists inventory, subscriptions and delivery attempts in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/storage/sqlite/migrations"
)

// Store provides SQLite-backed persistence for the engine.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the database at path, creating it if needed, and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// SaveProduct upserts a product record.
func (s *Store) SaveProduct(ctx context.Context, r models.ProductRecord) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO products (product_id, supplier_id, quantity, min_threshold, max_threshold, reorder_quantity, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (product_id) DO UPDATE SET
	supplier_id = excluded.supplier_id,
	quantity = excluded.quantity,
	min_threshold = excluded.min_threshold,
	max_threshold = excluded.max_threshold,
	reorder_quantity = excluded.reorder_quantity,
	updated_at = excluded.updated_at
`,
		r.ProductID, r.SupplierID, r.Quantity, r.MinThreshold, r.MaxThreshold, r.ReorderQuantity, toMillis(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save product %s: %w", r.ProductID, err)
	}
	return nil
}

// AppendSample stores one consumption sample.
func (s *Store) AppendSample(ctx context.Context, sample models.ConsumptionSample) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO consumption_samples (product_id, consumed_at, quantity) VALUES (?, ?, ?)`,
		sample.ProductID, toMillis(sample.At), sample.Quantity,
	)
	if err != nil {
		return fmt.Errorf("append sample for %s: %w", sample.ProductID, err)
	}
	return nil
}

// LoadProducts returns every stored product.
func (s *Store) LoadProducts(ctx context.Context) ([]models.ProductRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT product_id, supplier_id, quantity, min_threshold, max_threshold, reorder_quantity, updated_at
FROM products
ORDER BY product_id
`)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	defer rows.Close()

	var out []models.ProductRecord
	for rows.Next() {
		var r models.ProductRecord
		var updated int64
		if err := rows.Scan(&r.ProductID, &r.SupplierID, &r.Quantity, &r.MinThreshold, &r.MaxThreshold, &r.ReorderQuantity, &updated); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		r.UpdatedAt = fromMillis(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadSamples returns samples at or after since, oldest first. A zero since loads all.
func (s *Store) LoadSamples(ctx context.Context, since time.Time) ([]models.ConsumptionSample, error) {
	var lower int64
	if !since.IsZero() {
		lower = toMillis(since)
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT product_id, consumed_at, quantity
FROM consumption_samples
WHERE consumed_at >= ?
ORDER BY consumed_at, id
`, lower)
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}
	defer rows.Close()

	var out []models.ConsumptionSample
	for rows.Next() {
		var sample models.ConsumptionSample
		var at int64
		if err := rows.Scan(&sample.ProductID, &at, &sample.Quantity); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.At = fromMillis(at)
		out = append(out, sample)
	}
	return out, rows.Err()
}

// SaveSubscription upserts a subscription.
func (s *Store) SaveSubscription(ctx context.Context, sub models.Subscription) error {
	filters, err := json.Marshal(sub.Filters)
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}
	var lastDelivered sql.NullInt64
	if sub.LastDeliveredAt != nil {
		lastDelivered = sql.NullInt64{Int64: toMillis(*sub.LastDeliveredAt), Valid: true}
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO subscriptions (
	id, event_type, endpoint, secret, filters, description, active, consecutive_failures,
	deactivated_reason, total_deliveries, last_delivered_at, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
	endpoint = excluded.endpoint,
	secret = excluded.secret,
	filters = excluded.filters,
	description = excluded.description,
	active = excluded.active,
	consecutive_failures = excluded.consecutive_failures,
	deactivated_reason = excluded.deactivated_reason,
	total_deliveries = excluded.total_deliveries,
	last_delivered_at = excluded.last_delivered_at,
	updated_at = excluded.updated_at
`,
		sub.ID, string(sub.EventType), sub.Endpoint, sub.Secret, string(filters), sub.Description,
		sub.Active, sub.ConsecutiveFailures, sub.DeactivatedReason, sub.TotalDeliveries,
		lastDelivered, toMillis(sub.CreatedAt), toMillis(sub.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save subscription %s: %w", sub.ID, err)
	}
	return nil
}

// LoadSubscriptions returns every stored subscription.
func (s *Store) LoadSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, event_type, endpoint, secret, filters, description, active, consecutive_failures,
	deactivated_reason, total_deliveries, last_delivered_at, created_at, updated_at
FROM subscriptions
ORDER BY created_at, id
`)
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}
	defer rows.Close()

	var out []models.Subscription
	for rows.Next() {
		var (
			sub                models.Subscription
			eventType, filters string
			lastDelivered      sql.NullInt64
			created, updated   int64
		)
		if err := rows.Scan(&sub.ID, &eventType, &sub.Endpoint, &sub.Secret, &filters, &sub.Description,
			&sub.Active, &sub.ConsecutiveFailures, &sub.DeactivatedReason, &sub.TotalDeliveries,
			&lastDelivered, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		sub.EventType = models.EventType(eventType)
		if err := json.Unmarshal([]byte(filters), &sub.Filters); err != nil {
			return nil, fmt.Errorf("decode filters of %s: %w", sub.ID, err)
		}
		if lastDelivered.Valid {
			t := fromMillis(lastDelivered.Int64)
			sub.LastDeliveredAt = &t
		}
		sub.CreatedAt = fromMillis(created)
		sub.UpdatedAt = fromMillis(updated)
		out = append(out, sub)
	}
	return out, rows.Err()
}

// Append records one delivery attempt.
func (s *Store) Append(ctx context.Context, a models.DeliveryAttempt) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO delivery_attempts (
	id, delivery_id, subscription_id, event_id, event_type, attempt, outcome, status_code, error, payload, attempted_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		a.ID, a.DeliveryID, a.SubscriptionID, a.EventID, string(a.EventType), a.Attempt,
		string(a.Outcome), a.StatusCode, a.Error, a.Payload, toMillis(a.At),
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// List returns matching attempts, newest first.
func (s *Store) List(ctx context.Context, f delivery.AttemptFilter) ([]models.DeliveryAttempt, error) {
	query := `
SELECT id, delivery_id, subscription_id, event_id, event_type, attempt, outcome, status_code, error, payload, attempted_at
FROM delivery_attempts
WHERE (? = '' OR subscription_id = ?)
  AND (? = '' OR event_id = ?)
  AND (? = '' OR delivery_id = ?)
ORDER BY attempted_at DESC, attempt DESC`
	args := []any{f.SubscriptionID, f.SubscriptionID, f.EventID, f.EventID, f.DeliveryID, f.DeliveryID}
	if f.Limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []models.DeliveryAttempt
	for rows.Next() {
		var (
			a                  models.DeliveryAttempt
			eventType, outcome string
			at                 int64
		)
		if err := rows.Scan(&a.ID, &a.DeliveryID, &a.SubscriptionID, &a.EventID, &eventType, &a.Attempt,
			&outcome, &a.StatusCode, &a.Error, &a.Payload, &at); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		a.EventType = models.EventType(eventType)
		a.Outcome = models.AttemptOutcome(outcome)
		a.At = fromMillis(at)
		out = append(out, a)
	}
	return out, rows.Err()
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
