package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	product_id       TEXT PRIMARY KEY,
	supplier_id      TEXT NOT NULL DEFAULT '',
	quantity         BIGINT NOT NULL CHECK (quantity >= 0),
	min_threshold    BIGINT NOT NULL,
	max_threshold    BIGINT NOT NULL,
	reorder_quantity BIGINT NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL,
	CHECK (min_threshold <= max_threshold)
);

CREATE TABLE IF NOT EXISTS consumption_samples (
	id          BIGSERIAL PRIMARY KEY,
	product_id  TEXT NOT NULL REFERENCES products (product_id),
	consumed_at TIMESTAMPTZ NOT NULL,
	quantity    BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_consumption_samples_product_at
	ON consumption_samples (product_id, consumed_at);

CREATE TABLE IF NOT EXISTS webhook_subscriptions (
	id                   TEXT PRIMARY KEY,
	event_type           TEXT NOT NULL,
	endpoint             TEXT NOT NULL,
	secret               TEXT NOT NULL,
	filters              JSONB NOT NULL DEFAULT '{}'::jsonb,
	description          TEXT NOT NULL DEFAULT '',
	active               BOOLEAN NOT NULL,
	consecutive_failures INTEGER NOT NULL DEFAULT 0,
	deactivated_reason   TEXT NOT NULL DEFAULT '',
	total_deliveries     BIGINT NOT NULL DEFAULT 0,
	last_delivered_at    TIMESTAMPTZ,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS delivery_attempts (
	id              TEXT PRIMARY KEY,
	delivery_id     TEXT NOT NULL,
	subscription_id TEXT NOT NULL,
	event_id        TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	attempt         INTEGER NOT NULL,
	outcome         TEXT NOT NULL,
	status_code     INTEGER NOT NULL DEFAULT 0,
	error           TEXT NOT NULL DEFAULT '',
	payload         BYTEA,
	attempted_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_delivery_attempts_subscription
	ON delivery_attempts (subscription_id, attempted_at DESC);
`

// EnsureSchema creates the engine's tables if they are missing
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
