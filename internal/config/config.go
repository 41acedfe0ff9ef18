// Package config loads runtime configuration for the reorder engine from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Storage drivers
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

// Config holds every tunable of the service. Defaults are usable for local development.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"reorder-engine"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	DatabaseURL   string `env:"DATABASE_URL"`
	SQLitePath    string `env:"SQLITE_PATH" envDefault:"data/reorder.db"`

	JWTSecret          string        `env:"JWT_SECRET"`
	OperatorSecretHash string        `env:"OPERATOR_SECRET_HASH"`
	TokenTTL           time.Duration `env:"TOKEN_TTL" envDefault:"12h"`

	PassInterval    time.Duration `env:"PASS_INTERVAL" envDefault:"5s"`
	PassConcurrency int           `env:"PASS_CONCURRENCY" envDefault:"8"`
	NoticeHistory   int           `env:"NOTICE_HISTORY" envDefault:"100"`

	SampleWindow    time.Duration `env:"SAMPLE_WINDOW" envDefault:"720h"`
	SampleMaxCount  int           `env:"SAMPLE_MAX_COUNT" envDefault:"500"`
	ForecastPeriod  time.Duration `env:"FORECAST_PERIOD" envDefault:"24h"`
	ForecastAlpha   float64       `env:"FORECAST_ALPHA" envDefault:"0.3"`
	ForecastFullAt  int           `env:"FORECAST_FULL_WINDOW" envDefault:"30"`
	ForecastMaxConf float64       `env:"FORECAST_MAX_CONFIDENCE" envDefault:"0.95"`
	SpikeFactor     float64       `env:"SPIKE_FACTOR" envDefault:"2.0"`
	SpikeMinSamples int           `env:"SPIKE_MIN_SAMPLES" envDefault:"5"`
	ReorderLeadTime time.Duration `env:"REORDER_LEAD_TIME" envDefault:"168h"`

	DispatchWorkers    int           `env:"DISPATCH_WORKERS" envDefault:"4"`
	AttemptTimeout     time.Duration `env:"DELIVERY_ATTEMPT_TIMEOUT" envDefault:"10s"`
	MaxAttempts        int           `env:"DELIVERY_MAX_ATTEMPTS" envDefault:"5"`
	BackoffInitial     time.Duration `env:"DELIVERY_BACKOFF_INITIAL" envDefault:"1s"`
	BackoffMax         time.Duration `env:"DELIVERY_BACKOFF_MAX" envDefault:"5m"`
	BackoffMultiplier  float64       `env:"DELIVERY_BACKOFF_MULTIPLIER" envDefault:"2.0"`
	BackoffJitter      float64       `env:"DELIVERY_BACKOFF_JITTER" envDefault:"0.5"`
	DegradedThreshold  int           `env:"DELIVERY_DEGRADED_THRESHOLD" envDefault:"3"`
	BreakerFailures    uint32        `env:"ENDPOINT_BREAKER_FAILURES" envDefault:"10"`
	BreakerOpenTimeout time.Duration `env:"ENDPOINT_BREAKER_TIMEOUT" envDefault:"30s"`

	STANURL       string `env:"STAN_URL"`
	STANClusterID string `env:"STAN_CLUSTER_ID" envDefault:"inventory-cluster"`
	STANClientID  string `env:"STAN_CLIENT_ID"`
	STANSubject   string `env:"STAN_SUBJECT" envDefault:"inventory.consumption"`
	STANDurable   string `env:"STAN_DURABLE" envDefault:"reorder-engine"`

	OTELEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELStdout   bool   `env:"OTEL_STDOUT" envDefault:"false"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.StorageDriver) {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}
	if c.PassInterval <= 0 {
		errs = append(errs, errors.New("PASS_INTERVAL must be positive"))
	}
	if c.PassConcurrency <= 0 {
		errs = append(errs, errors.New("PASS_CONCURRENCY must be positive"))
	}
	if c.DispatchWorkers <= 0 {
		errs = append(errs, errors.New("DISPATCH_WORKERS must be positive"))
	}
	if c.MaxAttempts <= 0 {
		errs = append(errs, errors.New("DELIVERY_MAX_ATTEMPTS must be positive"))
	}
	if c.DegradedThreshold <= 0 {
		errs = append(errs, errors.New("DELIVERY_DEGRADED_THRESHOLD must be positive"))
	}
	if c.AttemptTimeout <= 0 {
		errs = append(errs, errors.New("DELIVERY_ATTEMPT_TIMEOUT must be positive"))
	}
	if c.BackoffInitial <= 0 || c.BackoffMax < c.BackoffInitial {
		errs = append(errs, errors.New("DELIVERY_BACKOFF_INITIAL must be positive and not exceed DELIVERY_BACKOFF_MAX"))
	}
	if c.BackoffMultiplier < 1 {
		errs = append(errs, errors.New("DELIVERY_BACKOFF_MULTIPLIER must be at least 1"))
	}
	if c.BackoffJitter < 0 || c.BackoffJitter > 1 {
		errs = append(errs, errors.New("DELIVERY_BACKOFF_JITTER must be within [0,1]"))
	}
	if c.ForecastAlpha <= 0 || c.ForecastAlpha > 1 {
		errs = append(errs, errors.New("FORECAST_ALPHA must be within (0,1]"))
	}
	if c.ForecastMaxConf <= 0 || c.ForecastMaxConf > 1 {
		errs = append(errs, errors.New("FORECAST_MAX_CONFIDENCE must be within (0,1]"))
	}
	if c.ForecastFullAt <= 0 {
		errs = append(errs, errors.New("FORECAST_FULL_WINDOW must be positive"))
	}
	return errors.Join(errs...)
}
