package gateway

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizmatters/supply-chain/reorder-engine/internal/models"
)

func TestNoticeHub_BroadcastsToClients(t *testing.T) {
	hub := NewNoticeHub()
	router := gin.New()
	router.GET("/ws/notices", hub.Serve)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notices"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(models.Notice{
		Kind:                models.NoticeKindSubscriptionDegraded,
		SubscriptionID:      "sub-1",
		EventType:           models.EventTypeReorder,
		ConsecutiveFailures: 3,
		At:                  now,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var got models.Notice
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "sub-1", got.SubscriptionID)
	assert.Equal(t, 3, got.ConsecutiveFailures)
}

func TestNoticeHub_RemovesDisconnectedClients(t *testing.T) {
	hub := NewNoticeHub()
	router := gin.New()
	router.GET("/ws/notices", hub.Serve)
	server := httptest.NewServer(router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/notices"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.NotPanics(t, func() { hub.Broadcast(models.Notice{SubscriptionID: "late"}) })
}
