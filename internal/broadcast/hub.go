package broadcast

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/aura-core/aura/internal/telemetry"
)

// outboundCapacity is the §6 per-client buffered-queue depth.
const outboundCapacity = 2

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// client wraps one connected websocket with a drop-oldest outbound queue.
type client struct {
	conn *websocket.Conn

	mu      sync.Mutex
	pending [][]byte
	dropped int64

	closeOnce sync.Once
	closed    chan struct{}
}

func newClient(conn *websocket.Conn) *client {
	return &client{conn: conn, closed: make(chan struct{})}
}

// enqueue appends msg to the client's pending queue, dropping the oldest
// queued message if the queue is already at outboundCapacity — the
// inverse of the conventional "drop the newest" backpressure policy.
func (c *client) enqueue(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) >= outboundCapacity {
		c.pending = c.pending[1:]
		c.dropped++
		telemetry.BroadcastDroppedFrames.Inc()
	}
	c.pending = append(c.pending, msg)
}

func (c *client) drain() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return nil
	}
	out := c.pending
	c.pending = nil
	return out
}

func (c *client) Dropped() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.closed) })
}

// writePump flushes the pending queue to the socket on a fixed tick; a
// tick-driven pump (rather than one goroutine per enqueue) is what lets
// enqueue's drop-oldest policy actually take effect before a slow
// connection catches up.
func (c *client) writePump(ctx context.Context, tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	defer c.conn.Close()

	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.closed:
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-pingTicker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ticker.C:
			for _, msg := range c.drain() {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				msgType := websocket.BinaryMessage
				if len(msg) > 0 && msg[0] == '{' {
					msgType = websocket.TextMessage
				}
				if err := c.conn.WriteMessage(msgType, msg); err != nil {
					return
				}
			}
		}
	}
}

func (c *client) readPump(ctx context.Context) {
	defer c.close()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Hub fans out particle frames and state messages to every connected
// client, applying each client's independent drop-oldest backpressure.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	telemetry.BroadcastClients.Set(float64(n))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	telemetry.BroadcastClients.Set(float64(n))
}

// BroadcastFrame enqueues a binary particle frame to every connected
// client.
func (h *Hub) BroadcastFrame(positions []float32) {
	h.broadcastBytes(EncodeParticleFrame(positions))
}

// BroadcastState enqueues a JSON StateMessage to every connected client.
func (h *Hub) BroadcastState(msg StateMessage) error {
	data, err := encodeStateMessage(msg)
	if err != nil {
		return err
	}
	h.broadcastBytes(data)
	return nil
}

func (h *Hub) broadcastBytes(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.enqueue(data)
	}
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
