package authgate

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher decouples request handling from sink latency. Events are
// handed to a buffered channel; a single goroutine drains it into the sink.
// With DropIfFull set, a full buffer drops the event and bumps a counter
// instead of blocking the caller.
type auditDispatcher struct {
	sink       AuditSink
	events     chan AuditEvent
	stop       chan struct{}
	drained    chan struct{}
	dropped    atomic.Uint64
	closing    atomic.Bool
	dropIfFull bool
	stopOnce   sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	buffer := cfg.BufferSize
	if buffer <= 0 {
		buffer = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:       sink,
		events:     make(chan AuditEvent, buffer),
		stop:       make(chan struct{}),
		drained:    make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer close(d.drained)

	flush := func() bool {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
			return true
		default:
			return false
		}
	}

	for {
		select {
		case event := <-d.events:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			// Deliver whatever made it into the buffer before the
			// stop was observed, then exit.
			for flush() {
			}
			return
		}
	}
}

func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closing.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.dropIfFull {
		select {
		case d.events <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.events <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closing.Store(true)
		close(d.stop)
		<-d.drained
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
