package gateway

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
	"github.com/bizmatters/supply-chain/reorder-engine/internal/telemetry"
)

var wsTracer = otel.Tracer("notice-hub")

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	clientBuffer = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NoticeHub streams operator notices to connected websocket clients.
// Slow clients drop notices rather than stall the broadcaster.
type NoticeHub struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
	tracer  trace.Tracer
}

// NewNoticeHub creates a new notice hub
func NewNoticeHub() *NoticeHub {
	return &NoticeHub{
		clients: make(map[*wsClient]struct{}),
		tracer:  wsTracer,
	}
}

// ClientCount reports connected clients.
func (h *NoticeHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends a notice to every connected client.
func (h *NoticeHub) Broadcast(n models.Notice) {
	data, err := json.Marshal(n)
	if err != nil {
		telemetry.Logger.Error("notice_encode_failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			telemetry.Logger.Warn("notice_dropped_slow_client", "subscription_id", n.SubscriptionID)
		}
	}
}

// Close disconnects every client.
func (h *NoticeHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

// Serve handles WebSocket /api/ws/notices
// @Summary Stream operator notices
// @Description WebSocket endpoint streaming notices such as degraded subscriptions as they happen
// @Tags notices
// @Success 101 "Switching Protocols"
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/notices [get]
func (h *NoticeHub) Serve(c *gin.Context) {
	_, span := h.tracer.Start(c.Request.Context(), "notice_hub.serve")
	defer span.End()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		telemetry.Logger.Warn("websocket_upgrade_failed", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}
	h.mu.Lock()
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	span.SetAttributes(attribute.Int("ws.clients", count))
	telemetry.Logger.Info("notice_client_connected", "clients", count)

	go h.writePump(client)
	h.readPump(client)
}

// readPump discards client messages and detects disconnects.
func (h *NoticeHub) readPump(c *wsClient) {
	defer h.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				telemetry.Logger.Warn("notice_client_read_failed", "error", err)
			}
			return
		}
	}
}

func (h *NoticeHub) writePump(c *wsClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				telemetry.Logger.Warn("notice_client_write_failed", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *NoticeHub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	telemetry.Logger.Info("notice_client_disconnected", "clients", count)
}
