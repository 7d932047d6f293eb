package broadcast

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestHealthzReportsOK(t *testing.T) {
	s := NewServer(":0", NewHub())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Fatalf("expected body to contain ok, got %q", rec.Body.String())
	}
}

func TestHandleUpgradeAcceptsWebsocketAndReceivesBroadcastFrame(t *testing.T) {
	hub := NewHub()
	s := NewServer(":0", hub)
	ts := httptest.NewServer(s.srv.Handler)
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.ClientCount() != 1 {
		t.Fatalf("expected hub to register 1 client, got %d", hub.ClientCount())
	}

	hub.BroadcastFrame([]float32{1, 2, 3})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading broadcast frame: %v", err)
	}
	if len(data) != frameHeaderSize+3*4 {
		t.Fatalf("expected a %d byte particle frame, got %d", frameHeaderSize+3*4, len(data))
	}
}
