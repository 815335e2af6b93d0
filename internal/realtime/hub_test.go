package realtime

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"brigade/internal/models"
	"brigade/internal/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHub(t *testing.T) (*Hub, *monitoring.Monitor, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	monitor := monitoring.NewMonitor()
	hub := NewHub(monitor)

	router := gin.New()
	router.GET("/ws", hub.ServeWS)
	server := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Close()
		server.Close()
	})
	return hub, monitor, "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastReachesEveryDisplay(t *testing.T) {
	hub, monitor, url := setupHub(t)
	a := dial(t, url)
	b := dial(t, url)

	require.Eventually(t, func() bool { return hub.Count() == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(monitor.Displays))

	delivered := hub.Broadcast(models.Event{Name: models.EventKDSUpdate, Payload: "kds needs to update"})
	assert.Equal(t, 2, delivered)

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		var ev models.Event
		require.NoError(t, json.Unmarshal(data, &ev))
		assert.Equal(t, "kds_update", ev.Name)
		assert.Equal(t, "kds needs to update", ev.Payload)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, monitor, url := setupHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 10*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	require.Eventually(t, func() bool { return hub.Count() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(monitor.Displays))
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	monitor := monitoring.NewMonitor()
	hub := NewHub(monitor)
	hub.clients["slow"] = &Client{ID: "slow", hub: hub, send: make(chan []byte)}

	done := make(chan int)
	go func() { done <- hub.Broadcast(models.Event{Name: models.EventKDSUpdate}) }()

	select {
	case delivered := <-done:
		assert.Zero(t, delivered)
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a slow display")
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(monitor.BroadcastDropped))
}

func TestHub_CloseRefusesNewDisplays(t *testing.T) {
	hub, _, url := setupHub(t)
	hub.Close()

	conn := dial(t, url)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
	assert.Zero(t, hub.Count())
}
