package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/bizmatters/supply-chain/reorder-engine/docs" // swagger docs
	"github.com/bizmatters/supply-chain/reorder-engine/internal/adapter/natsstan"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/auth"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/config"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/events"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/forecast"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/gateway"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/inventory"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/metrics"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/orchestration"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/rules"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// @title Reorder Engine API
// @version 1.0
// @description Event-driven inventory reorder automation.
// @description
// @description Tracks stock and consumption, forecasts demand, decides reorders and alerts,
// @description and delivers signed webhooks to subscribed integrations.

// @contact.name API Support
// @contact.email support@bizmatters.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

func main() {
	if err := run(); err != nil {
		telemetry.Logger.Error("service_failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.InitLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracer(ctx, telemetry.TracerOptions{
		ServiceName:  cfg.ServiceName,
		OTLPEndpoint: cfg.OTELEndpoint,
		Stdout:       cfg.OTELStdout,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}

	engineMetrics, err := metrics.NewEngineMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	storage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	store := inventory.NewStore(inventory.Options{
		SampleWindow:   cfg.SampleWindow,
		SampleMaxCount: cfg.SampleMaxCount,
		Persister:      storage.persister,
	})
	bus := events.NewBus(events.Options{Store: storage.subscriptions})
	if storage.loader != nil {
		if err := store.Load(ctx, storage.loader); err != nil {
			return fmt.Errorf("failed to load inventory: %w", err)
		}
		if err := bus.Load(ctx); err != nil {
			return fmt.Errorf("failed to load subscriptions: %w", err)
		}
	}

	dispatcher := delivery.NewDispatcher(delivery.Config{
		Workers:           cfg.DispatchWorkers,
		AttemptTimeout:    cfg.AttemptTimeout,
		MaxAttempts:       cfg.MaxAttempts,
		DegradedThreshold: cfg.DegradedThreshold,
		Backoff: delivery.BackoffConfig{
			Initial:    cfg.BackoffInitial,
			Max:        cfg.BackoffMax,
			Multiplier: cfg.BackoffMultiplier,
			Jitter:     cfg.BackoffJitter,
		},
		Breaker: delivery.BreakerConfig{
			ConsecutiveFailures: cfg.BreakerFailures,
			OpenTimeout:         cfg.BreakerOpenTimeout,
		},
	}, delivery.Options{
		Registry:   bus,
		AttemptLog: storage.attempts,
		Metrics:    engineMetrics,
	})
	bus.SetDispatcher(dispatcher)
	dispatcher.Start(context.Background())

	orchestrator := orchestration.NewService(orchestration.Config{
		PassInterval:  cfg.PassInterval,
		Concurrency:   cfg.PassConcurrency,
		NoticeHistory: cfg.NoticeHistory,
	}, orchestration.Options{
		Store: store,
		Estimator: forecast.NewEstimator(forecast.Config{
			Period:          cfg.ForecastPeriod,
			Alpha:           cfg.ForecastAlpha,
			FullWindow:      cfg.ForecastFullAt,
			MaxConfidence:   cfg.ForecastMaxConf,
			SpikeFactor:     cfg.SpikeFactor,
			SpikeMinSamples: cfg.SpikeMinSamples,
		}),
		Evaluator: rules.NewEvaluator(rules.Config{LeadTime: cfg.ReorderLeadTime}),
		Publisher: bus,
		Metrics:   engineMetrics,
		Notices:   dispatcher.Notices(),
	})
	hub := gateway.NewNoticeHub()
	orchestrator.AddSink(hub)

	runCtx, cancelRun := context.WithCancel(context.Background())
	orchestratorDone := make(chan struct{})
	go func() {
		defer close(orchestratorDone)
		orchestrator.Run(runCtx)
	}()

	if cfg.STANURL != "" {
		sub := &natsstan.Subscriber{
			ClusterID: cfg.STANClusterID,
			ClientID:  cfg.STANClientID,
			URL:       cfg.STANURL,
			Subject:   cfg.STANSubject,
			Durable:   cfg.STANDurable,
		}
		if err := sub.Subscribe(runCtx, natsstan.NewConsumptionHandler(store, 0).Handle); err != nil {
			cancelRun()
			return err
		}
	}

	var jwtManager *auth.JWTManager
	if cfg.JWTSecret != "" {
		if jwtManager, err = auth.NewJWTManager(cfg.JWTSecret); err != nil {
			cancelRun()
			return fmt.Errorf("failed to initialize JWT manager: %w", err)
		}
	} else {
		telemetry.Logger.Warn("authentication_disabled", "reason", "JWT_SECRET is not set")
	}

	handler := gateway.NewHandler(gateway.Options{
		Store:              store,
		Orchestrator:       orchestrator,
		Bus:                bus,
		Deliveries:         dispatcher,
		JWTManager:         jwtManager,
		OperatorSecretHash: cfg.OperatorSecretHash,
		TokenTTL:           cfg.TokenTTL,
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(structuredLoggingMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := storage.ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"error":  "storage unavailable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":             "ready",
			"pending_deliveries": dispatcher.Pending(),
			"dirty_products":     store.DirtyCount(),
		})
	})
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	handler.Register(router.Group("/api"), hub)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		telemetry.Logger.Info("server_starting", "port", cfg.Port, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		telemetry.Logger.Info("shutdown_requested")
	case runErr = <-serverErr:
		telemetry.Logger.Error("server_failed", "error", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		telemetry.Logger.Error("server_shutdown_failed", "error", err)
	}
	cancelRun()
	<-orchestratorDone
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		telemetry.Logger.Error("dispatcher_shutdown_failed", "error", err)
	}
	hub.Close()
	if err := shutdownTracer(shutdownCtx); err != nil {
		telemetry.Logger.Error("tracer_shutdown_failed", "error", err)
	}

	telemetry.Logger.Info("server_exited")
	return runErr
}

// structuredLoggingMiddleware provides structured JSON logging for all requests
func structuredLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if claims, ok := auth.ClaimsFrom(c); ok {
			attrs = append(attrs, "subject", claims.Subject)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		telemetry.Logger.Info("http_request", attrs...)
	}
}
