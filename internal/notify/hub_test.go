package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubBroadcastsToConnectedClients(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 5*time.Millisecond)

	hub.Emit("campaign:progress", map[string]any{"id": "camp_1", "status": "in_progress"})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg, &decoded))
	assert.Equal(t, "campaign:progress", decoded["event"])
	payload := decoded["payload"].(map[string]any)
	assert.Equal(t, "camp_1", payload["id"])
}

func TestHubDropsDeadClients(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 5*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		hub.Emit("ping", nil)
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 0
	}, time.Second, 10*time.Millisecond)
}

// Several campaign workers emit progress at the same time; the hub must
// serialize writes, since a websocket connection allows one writer only.
func TestHubEmitFromManyGoroutines(t *testing.T) {
	hub := NewHub(zap.NewNop().Sugar())
	defer hub.Close()

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 5*time.Millisecond)

	// keep the client draining so writes never back up
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				hub.Emit("campaign:progress", map[string]any{"worker": g, "n": i})
			}
		}(g)
	}
	wg.Wait()

	hub.mu.Lock()
	defer hub.mu.Unlock()
	assert.Len(t, hub.clients, 1, "a healthy client must survive concurrent broadcasts")
}

func TestNoopNotifier(t *testing.T) {
	// must not panic with any payload
	Noop{}.Emit("anything", map[string]any{"x": 1})
	Noop{}.Emit("anything", nil)
}
