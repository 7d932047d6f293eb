package broadcast

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestEncodeParticleFrameHeaderLayout(t *testing.T) {
	positions := []float32{1, 2, 3, 4, 5, 6}
	buf := EncodeParticleFrame(positions)

	if len(buf) != frameHeaderSize+len(positions)*4 {
		t.Fatalf("expected %d bytes, got %d", frameHeaderSize+len(positions)*4, len(buf))
	}
	if magic := binary.LittleEndian.Uint32(buf[0:4]); magic != frameMagic {
		t.Fatalf("expected magic %x, got %x", frameMagic, magic)
	}
	if version := binary.LittleEndian.Uint16(buf[4:6]); version != protocolVersion {
		t.Fatalf("expected version %d, got %d", protocolVersion, version)
	}
	if count := binary.LittleEndian.Uint16(buf[6:8]); count != 2 {
		t.Fatalf("expected particle count 2, got %d", count)
	}

	first := math.Float32frombits(binary.LittleEndian.Uint32(buf[8:12]))
	if first != 1 {
		t.Fatalf("expected first component 1, got %v", first)
	}
}

func TestClientEnqueueDropsOldestNeverNewestOnOverflow(t *testing.T) {
	c := newClient(nil)
	c.enqueue([]byte("a"))
	c.enqueue([]byte("b"))
	c.enqueue([]byte("c")) // queue at capacity 2: should drop "a", keep "b","c"

	pending := c.drain()
	if len(pending) != outboundCapacity {
		t.Fatalf("expected %d pending messages, got %d", outboundCapacity, len(pending))
	}
	if string(pending[0]) != "b" || string(pending[1]) != "c" {
		t.Fatalf("expected [b c] (oldest dropped), got %v", stringsOf(pending))
	}
	if c.Dropped() != 1 {
		t.Fatalf("expected 1 dropped message, got %d", c.Dropped())
	}
}

func TestClientDrainEmptiesQueue(t *testing.T) {
	c := newClient(nil)
	c.enqueue([]byte("only"))
	if got := c.drain(); len(got) != 1 {
		t.Fatalf("expected 1 message on first drain, got %d", len(got))
	}
	if got := c.drain(); got != nil {
		t.Fatalf("expected nil on second drain, got %v", got)
	}
}

func TestHubBroadcastFrameReachesAllClients(t *testing.T) {
	h := NewHub()
	a := newClient(nil)
	b := newClient(nil)
	h.add(a)
	h.add(b)

	h.BroadcastFrame([]float32{1, 2, 3})

	if len(a.drain()) != 1 {
		t.Fatal("expected client a to receive the frame")
	}
	if len(b.drain()) != 1 {
		t.Fatal("expected client b to receive the frame")
	}
}

func TestHubBroadcastStateEncodesJSONEnvelope(t *testing.T) {
	h := NewHub()
	c := newClient(nil)
	h.add(c)

	if err := h.BroadcastState(StateMessage{Type: "daemon_state", TS: time.Now(), Data: map[string]string{"id": "wifi"}}); err != nil {
		t.Fatalf("BroadcastState returned error: %v", err)
	}
	pending := c.drain()
	if len(pending) != 1 {
		t.Fatalf("expected 1 queued message, got %d", len(pending))
	}
	if pending[0][0] != '{' {
		t.Fatalf("expected JSON text frame to start with '{', got %q", pending[0][0])
	}
}

func TestHubRemoveStopsFutureBroadcasts(t *testing.T) {
	h := NewHub()
	c := newClient(nil)
	h.add(c)
	h.remove(c)

	h.BroadcastFrame([]float32{1, 2, 3})
	if got := c.drain(); got != nil {
		t.Fatalf("expected removed client to receive nothing, got %v", got)
	}
	if h.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after remove, got %d", h.ClientCount())
	}
}

func stringsOf(bs [][]byte) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}
