// Package natsstan feeds consumption messages from NATS Streaming into the inventory store.
package natsstan

import (
	"context"
	"fmt"
	"time"

	stan "github.com/nats-io/stan.go"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// Handler processes one message. Returning an error leaves the message unacknowledged so
// the server redelivers it after AckWait.
type Handler func(ctx context.Context, raw []byte) error

// Subscriber is a durable queue subscription on one subject.
type Subscriber struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string
	Durable   string
	Queue     string
	AckWait   time.Duration
	// HandlerTimeout bounds each handler call.
	HandlerTimeout time.Duration
}

// Subscribe connects and starts delivering messages to handler until ctx is done.
func (s *Subscriber) Subscribe(ctx context.Context, handler Handler) error {
	clientID := s.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("reorder-engine-%d", time.Now().UnixNano())
	}
	queue := s.Queue
	if queue == "" {
		queue = "reorder-engine"
	}
	ackWait := s.AckWait
	if ackWait <= 0 {
		ackWait = 30 * time.Second
	}
	timeout := s.HandlerTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	sc, err := stan.Connect(s.ClusterID, clientID, stan.NatsURL(s.URL),
		stan.SetConnectionLostHandler(func(_ stan.Conn, reason error) {
			telemetry.Logger.Error("stan_connection_lost", "error", reason)
		}))
	if err != nil {
		return fmt.Errorf("failed to connect to nats streaming: %w", err)
	}

	_, err = sc.QueueSubscribe(s.Subject, queue, func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := handler(hCtx, m.Data); err != nil {
			telemetry.Logger.Warn("stan_message_redelivery",
				"subject", m.Subject,
				"sequence", m.Sequence,
				"redelivered", m.Redelivered,
				"error", err)
			return
		}
		if err := m.Ack(); err != nil {
			telemetry.Logger.Error("stan_ack_failed", "sequence", m.Sequence, "error", err)
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(ackWait), stan.DeliverAllAvailable())
	if err != nil {
		_ = sc.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", s.Subject, err)
	}

	go func() {
		<-ctx.Done()
		_ = sc.Close()
	}()
	telemetry.Logger.Info("stan_subscribed", "subject", s.Subject, "queue", queue, "durable", s.Durable)
	return nil
}
