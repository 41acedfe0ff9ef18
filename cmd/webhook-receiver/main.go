// Command webhook-receiver is a development endpoint for subscriptions. It verifies
// signed deliveries, logs them and can follow the operator notice stream.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/delivery"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

const maxBody = 1 << 20

// receiver keeps the verified envelopes it has seen, most recent last.
type receiver struct {
	secret    string
	tolerance time.Duration
	clock     func() time.Time

	mu       sync.Mutex
	received []delivery.Envelope
}

// receiverEnv holds the environment defaults; flags override them.
type receiverEnv struct {
	Secret    string        `env:"WEBHOOK_SECRET"`
	Tolerance time.Duration `env:"SIGNATURE_TOLERANCE" envDefault:"5m"`
	Token     string        `env:"API_TOKEN"`
}

func loadReceiverEnv() (receiverEnv, error) {
	var cfg receiverEnv
	if err := env.Parse(&cfg); err != nil {
		return receiverEnv{}, fmt.Errorf("failed to read environment: %w", err)
	}
	if cfg.Tolerance < 0 {
		return receiverEnv{}, fmt.Errorf("SIGNATURE_TOLERANCE must not be negative")
	}
	return cfg, nil
}

func main() {
	defaults, err := loadReceiverEnv()
	if err != nil {
		telemetry.Logger.Error("webhook_receiver_failed", "error", err)
		os.Exit(1)
	}

	listen := flag.String("listen", ":9090", "Address to listen on")
	secret := flag.String("secret", defaults.Secret, "Subscription signing secret")
	tolerance := flag.Duration("tolerance", defaults.Tolerance, "Maximum signature age, 0 disables the check")
	noticesURL := flag.String("notices", "", "Notice stream to follow, e.g. ws://localhost:8080/api/ws/notices")
	token := flag.String("token", defaults.Token, "Bearer token for the notice stream")
	flag.Parse()

	if *secret == "" {
		telemetry.Logger.Error("webhook_receiver_failed", "error", "a signing secret is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *noticesURL != "" {
		go followNotices(ctx, *noticesURL, *token)
	}

	rcv := &receiver{secret: *secret, tolerance: *tolerance, clock: time.Now}
	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              *listen,
		Handler:           rcv.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		telemetry.Logger.Info("webhook_receiver_listening", "addr", *listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			telemetry.Logger.Error("webhook_receiver_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}

func (r *receiver) router() *gin.Engine {
	router := gin.New()
	router.POST("/*path", r.handle)
	router.GET("/received", func(c *gin.Context) {
		c.JSON(http.StatusOK, r.snapshot())
	})
	return router
}

func (r *receiver) handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "unreadable body", Code: models.ErrCodeInvalidRequest})
		return
	}

	envelope, err := delivery.Verify(r.secret, body, r.clock(), r.tolerance)
	if err != nil {
		telemetry.Logger.Warn("webhook_rejected",
			"delivery_id", c.GetHeader(delivery.DeliveryHeader),
			"error", err)
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: err.Error(), Code: models.ErrCodeUnauthorized})
		return
	}
	if header := c.GetHeader(delivery.SignatureHeader); header != "" && header != envelope.Signature {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Error: "signature header mismatch", Code: models.ErrCodeUnauthorized})
		return
	}

	r.mu.Lock()
	r.received = append(r.received, envelope)
	r.mu.Unlock()

	telemetry.Logger.Info("webhook_received",
		"path", c.Request.URL.Path,
		"event_id", envelope.EventID,
		"event_type", string(envelope.EventType),
		"delivery_id", c.GetHeader(delivery.DeliveryHeader),
		"payload", string(envelope.Payload))
	c.Status(http.StatusNoContent)
}

func (r *receiver) snapshot() []delivery.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery.Envelope{}, r.received...)
}

// followNotices prints operator notices, reconnecting until ctx is done.
func followNotices(ctx context.Context, url, token string) {
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
		if err != nil {
			telemetry.Logger.Warn("notice_stream_connect_failed", "url", url, "error", err)
		} else {
			telemetry.Logger.Info("notice_stream_connected", "url", url)
			readNotices(ctx, conn)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(3 * time.Second):
		}
	}
}

func readNotices(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}()

	for {
		var n models.Notice
		if err := conn.ReadJSON(&n); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				telemetry.Logger.Warn("notice_stream_read_failed", "error", err)
			}
			return
		}
		telemetry.Logger.Warn("operator_notice",
			"kind", n.Kind,
			"subscription_id", n.SubscriptionID,
			"endpoint", n.Endpoint,
			"consecutive_failures", n.ConsecutiveFailures,
			"message", n.Message)
	}
}
