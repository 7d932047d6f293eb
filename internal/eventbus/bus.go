package eventbus

import (
	"container/heap"
	"log"
	"sync"
	"time"

	"github.com/aura-core/aura/internal/telemetry"
)

// criticalQueueWaitViolation is the §4.2 threshold above which a CRITICAL
// event's time in queue is logged as a violation.
const criticalQueueWaitViolation = 100 * time.Millisecond

const ringSize = 1000

// subscription is the bus's private bookkeeping for one subscriber.
type subscription struct {
	id       string
	mask     Category
	minPrio  Priority
	ch       chan Event
	dropped  int64
	mu       sync.Mutex
	canceled bool
}

// Subscription is the handle returned to callers so they can unsubscribe
// and drain delivered events.
type Subscription struct {
	sub *subscription
	bus *Bus
}

// Events returns the channel events are delivered on. At-most-once
// delivery: the bus never retries a send that the subscriber didn't have
// room for (§4.2 "no retries — subscribers must be idempotent").
func (s *Subscription) Events() <-chan Event { return s.sub.ch }

// Dropped reports how many events were dropped for this subscriber because
// its channel was full.
func (s *Subscription) Dropped() int64 {
	s.sub.mu.Lock()
	defer s.sub.mu.Unlock()
	return s.sub.dropped
}

// Unsubscribe removes the subscriber. In-flight delivery already queued on
// its channel completes; no further events are delivered.
func (s *Subscription) Unsubscribe() { s.bus.Unsubscribe(s.sub.id) }

// Bus dispatches Events to registered subscribers through a single worker
// that drains a priority queue (§4.2).
type Bus struct {
	mu   sync.Mutex
	subs map[string]*subscription
	q    pqueue
	wake chan struct{}
	seq  int64

	ringMu sync.Mutex
	ring   []Event
	ringAt int

	stop chan struct{}
	done chan struct{}
}

// New constructs a Bus and starts its dispatch worker. Callers should
// defer Close() for cooperative shutdown.
func New() *Bus {
	b := &Bus{
		subs: make(map[string]*subscription),
		wake: make(chan struct{}, 1),
		ring: make([]Event, 0, ringSize),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	heap.Init(&b.q)
	go b.run()
	return b
}

// Close stops the dispatch worker. Any events still queued are dropped.
func (b *Bus) Close() {
	close(b.stop)
	<-b.done
}

// Subscribe registers interest in events matching mask (a bitwise-OR of
// Category values) at or above minPriority. The returned channel has
// enough buffer to smooth bursts without itself becoming a coupling point;
// once full, further events for this subscriber are dropped and counted.
func (b *Bus) Subscribe(mask Category, minPriority Priority) *Subscription {
	sub := &subscription{
		id:      newSubscriberID(),
		mask:    mask,
		minPrio: minPriority,
		ch:      make(chan Event, 64),
	}
	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return &Subscription{sub: sub, bus: b}
}

// Unsubscribe removes a subscriber by id; safe to call more than once.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
	}
	b.mu.Unlock()
	if ok {
		sub.mu.Lock()
		sub.canceled = true
		sub.mu.Unlock()
	}
}

// Publish enqueues an event for asynchronous delivery. Publish never
// blocks on subscriber delivery — it only takes the queue lock briefly.
func (b *Bus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	b.mu.Lock()
	b.seq++
	e.seq = b.seq
	heap.Push(&b.q, &e)
	b.mu.Unlock()

	telemetry.EventBusPublished.WithLabelValues(e.Category.String()).Inc()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// Recent returns up to the last 1000 published events, oldest first, for
// introspection (§3 Event ring invariant).
func (b *Bus) Recent() []Event {
	b.ringMu.Lock()
	defer b.ringMu.Unlock()
	out := make([]Event, 0, len(b.ring))
	out = append(out, b.ring[b.ringAt:]...)
	out = append(out, b.ring[:b.ringAt]...)
	return out
}

func (b *Bus) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		case <-b.wake:
			b.drain()
		}
	}
}

func (b *Bus) drain() {
	for {
		b.mu.Lock()
		if b.q.Len() == 0 {
			b.mu.Unlock()
			return
		}
		e := heap.Pop(&b.q).(*Event)
		b.mu.Unlock()

		b.recordRing(*e)

		if e.Priority == Critical {
			if wait := time.Since(e.Timestamp); wait > criticalQueueWaitViolation {
				log.Printf("[eventbus] VIOLATION: CRITICAL event %q waited %s in queue (> %s)",
					e.Kind, wait, criticalQueueWaitViolation)
			}
		}

		b.deliver(*e)
	}
}

func (b *Bus) recordRing(e Event) {
	b.ringMu.Lock()
	defer b.ringMu.Unlock()
	if len(b.ring) < ringSize {
		b.ring = append(b.ring, e)
	} else {
		b.ring[b.ringAt] = e
		b.ringAt = (b.ringAt + 1) % ringSize
	}
}

func (b *Bus) deliver(e Event) {
	b.mu.Lock()
	targets := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.mask&e.Category != 0 && e.Priority >= sub.minPrio {
			targets = append(targets, sub)
		}
	}
	b.mu.Unlock()

	for _, sub := range targets {
		sub.mu.Lock()
		canceled := sub.canceled
		sub.mu.Unlock()
		if canceled {
			continue
		}
		// Subscriber exceptions are impossible in Go's type system (no
		// callback invoked here) — a slow subscriber instead loses the
		// event being delivered when its channel is full: the non-blocking
		// send below drops and counts it, which is this bus's analogue of
		// "subscriber exceptions don't affect other subscribers".
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[eventbus] subscriber %q panicked: %v", sub.id, r)
				}
			}()
			select {
			case sub.ch <- e:
			default:
				sub.mu.Lock()
				sub.dropped++
				sub.mu.Unlock()
				telemetry.EventBusDropped.WithLabelValues(sub.id).Inc()
			}
		}()
	}
}
