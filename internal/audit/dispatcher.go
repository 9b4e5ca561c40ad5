package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/sessionauth/identity"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Now stamps recorded events. Defaults to time.Now.
	Now func() time.Time
}

// Dispatcher stamps audit events and relays them to a sink from a single
// goroutine. A nil *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	now        func() time.Time

	// mu guards closed and the close of queue; senders hold it shared.
	mu     sync.RWMutex
	closed bool
	queue  chan Event
	idle   chan struct{}

	dropped   atomic.Uint64
	delivered atomic.Uint64
}

// NewDispatcher returns nil when auditing is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		now:        cfg.Now,
		queue:      make(chan Event, cfg.BufferSize),
		idle:       make(chan struct{}),
	}
	go d.relay()
	return d
}

// relay exits once Close has closed the queue and the backlog is delivered.
func (d *Dispatcher) relay() {
	defer close(d.idle)
	for event := range d.queue {
		d.sink.Emit(context.Background(), event)
		d.delivered.Add(1)
	}
}

// Record queues an event about subject. Only the redacted form of the email
// leaves this call; a zero Email leaves Subject empty. err contributes its
// message, never its chain.
func (d *Dispatcher) Record(ctx context.Context, eventType string, subject identity.Email, success bool, err error) {
	if d == nil {
		return
	}
	event := Event{
		Timestamp: d.now(),
		EventType: eventType,
		Success:   success,
	}
	if !subject.IsZero() {
		event.Subject = subject.Redacted()
	}
	if err != nil {
		event.Error = err.Error()
	}
	d.Emit(ctx, event)
}

// Emit queues a prepared event. With DropIfFull a full buffer drops the event
// and counts it; otherwise Emit waits for room until ctx ends.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.dropped.Add(1)
		}
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// Close stops accepting events and returns after the backlog reached the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.idle
}

func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.delivered.Load()
}
