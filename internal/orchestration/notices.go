package orchestration

import (
	"context"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

// AddSink registers a receiver for future notices.
func (s *Service) AddSink(sink NoticeSink) {
	s.noticeMu.Lock()
	s.sinks = append(s.sinks, sink)
	s.noticeMu.Unlock()
}

// Recent returns retained notices, newest first.
func (s *Service) Recent() []models.Notice {
	s.noticeMu.RLock()
	defer s.noticeMu.RUnlock()
	out := make([]models.Notice, len(s.recent))
	for i, n := range s.recent {
		out[len(s.recent)-1-i] = n
	}
	return out
}

// HandleNotice logs a notice, retains it and forwards it to every sink.
func (s *Service) HandleNotice(n models.Notice) {
	telemetry.Logger.Warn("operator_notice",
		"kind", n.Kind,
		"subscription_id", n.SubscriptionID,
		"event_type", string(n.EventType),
		"consecutive_failures", n.ConsecutiveFailures,
		"message", n.Message)

	s.noticeMu.Lock()
	s.recent = append(s.recent, n)
	if over := len(s.recent) - s.cfg.NoticeHistory; over > 0 {
		s.recent = append([]models.Notice(nil), s.recent[over:]...)
	}
	sinks := append([]NoticeSink(nil), s.sinks...)
	s.noticeMu.Unlock()

	for _, sink := range sinks {
		sink.Broadcast(n)
	}
}

func (s *Service) consumeNotices(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-s.notices:
			if !ok {
				return
			}
			s.HandleNotice(n)
		}
	}
}
