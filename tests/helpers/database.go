package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/storage/postgres"
)

// GetTestDatabasePool creates a database connection pool for testing
func GetTestDatabasePool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
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

	return pool, nil
}

// databaseURL reads DATABASE_URL, falling back to the POSTGRES_* variables. It returns ""
// when neither is configured.
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		return ""
	}

	port := envOr("POSTGRES_PORT", "5432")
	user := envOr("POSTGRES_USER", "postgres")
	password := envOr("POSTGRES_PASSWORD", "postgres")
	dbname := envOr("POSTGRES_DB", "reorder_engine")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=prefer",
		user, password, host, port, dbname)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// TestDatabase provides database utilities for testing
type TestDatabase struct {
	Pool  *pgxpool.Pool
	Store *postgres.Store
	ctx   context.Context
}

// NewTestDatabase connects to the configured test database and ensures the schema exists.
// The test is skipped when no database is configured.
func NewTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	url := databaseURL()
	if url == "" {
		t.Skip("DATABASE_URL not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := GetTestDatabasePool(ctx, url)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("Failed to ensure schema: %v", err)
	}

	return &TestDatabase{
		Pool:  pool,
		Store: postgres.NewStore(pool),
		ctx:   ctx,
	}
}

// Close closes the database connection
func (db *TestDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// CleanupProducts removes products and their samples created by a test
func (db *TestDatabase) CleanupProducts(t *testing.T, productIDs ...string) {
	t.Helper()
	for _, id := range productIDs {
		if _, err := db.Pool.Exec(db.ctx, `DELETE FROM consumption_samples WHERE product_id = $1`, id); err != nil {
			t.Logf("Warning: Failed to cleanup samples of %s: %v", id, err)
		}
		if _, err := db.Pool.Exec(db.ctx, `DELETE FROM products WHERE product_id = $1`, id); err != nil {
			t.Logf("Warning: Failed to cleanup product %s: %v", id, err)
		}
	}
}

// CleanupSubscriptions removes subscriptions and their delivery attempts created by a test
func (db *TestDatabase) CleanupSubscriptions(t *testing.T, subscriptionIDs ...string) {
	t.Helper()
	for _, id := range subscriptionIDs {
		if _, err := db.Pool.Exec(db.ctx, `DELETE FROM delivery_attempts WHERE subscription_id = $1`, id); err != nil {
			t.Logf("Warning: Failed to cleanup attempts of %s: %v", id, err)
		}
		if _, err := db.Pool.Exec(db.ctx, `DELETE FROM webhook_subscriptions WHERE id = $1`, id); err != nil {
			t.Logf("Warning: Failed to cleanup subscription %s: %v", id, err)
		}
	}
}
