package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"ppemonitor/internal/config"
	"ppemonitor/internal/dto"
	"ppemonitor/internal/logger"
	"ppemonitor/internal/metrics"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newTestHub(t *testing.T) (*HubService, *metrics.Metrics, context.CancelFunc) {
	t.Helper()
	l := logger.NewLogger(&config.Config{LogDirectory: t.TempDir(), LogLevel: "error", LogMaxSizeMB: 1})
	m := metrics.New()
	hub := NewHubService(l, m)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.done
		l.Close()
	})
	return hub, m, cancel
}

// startServer upgrades every request and keeps the viewer registered until it disconnects.
func startServer(t *testing.T, hub *HubService) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Register(conn)
		defer hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *HubService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("client count = %d, want %d", hub.GetClientCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_NotifyReachesAllViewers(t *testing.T) {
	hub, m, _ := newTestHub(t)
	srv := startServer(t, hub)

	a := dial(t, srv)
	defer a.Close()
	b := dial(t, srv)
	defer b.Close()
	waitForClients(t, hub, 2)
	if m.AlertClients.Load() != 2 {
		t.Errorf("AlertClients = %d, want 2", m.AlertClients.Load())
	}

	event := dto.AlertEvent{
		Source:    "camera:0",
		Violation: true,
		Labels:    []string{"NO-Hardhat"},
		Timestamp: time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	hub.Notify(event)

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage: %v", err)
		}
		var got dto.AlertEvent
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", data, err)
		}
		if got.Source != "camera:0" || !got.Violation || got.Labels[0] != "NO-Hardhat" {
			t.Errorf("received %+v", got)
		}
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, _, _ := newTestHub(t)
	srv := startServer(t, hub)

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}

func TestHub_ShutdownClosesViewers(t *testing.T) {
	hub, _, cancel := newTestHub(t)
	srv := startServer(t, hub)

	conn := dial(t, srv)
	defer conn.Close()
	waitForClients(t, hub, 1)

	cancel()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected connection to be closed on shutdown")
	}

	// calls after shutdown must not block
	hub.Notify(dto.AlertEvent{Source: "late"})
}
