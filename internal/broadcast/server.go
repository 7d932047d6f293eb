package broadcast

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

// DefaultAddr is the §4.10/§6 default bind address for the broadcast
// websocket server.
const DefaultAddr = ":8765"

// writeTick is how often each client's write pump drains its queue.
const writeTick = 16 * time.Millisecond

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Companion UIs are typically served from a different origin
	// (local dev server, LAN dashboard); the daemon has no session
	// cookies or credentials for the upgrade to leak.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server exposes a Hub over a websocket upgrade endpoint.
type Server struct {
	hub *Hub
	srv *http.Server
}

// NewServer builds a Server bound to addr (use DefaultAddr for the
// §4.10/§6 default) serving the given Hub at "/".
func NewServer(addr string, hub *Hub) *Server {
	s := &Server{hub: hub}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/", s.handleUpgrade)
	s.srv = &http.Server{Addr: addr, Handler: r}
	return s
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newClient(conn)
	s.hub.add(c)

	ctx, cancel := context.WithCancel(r.Context())
	go func() {
		c.readPump(ctx)
		cancel()
	}()
	c.writePump(ctx, writeTick)
	s.hub.remove(c)
	cancel()
}

// ListenAndServe starts accepting connections; it blocks until the
// server is shut down or fails.
func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight upgrades
// and pumps to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
