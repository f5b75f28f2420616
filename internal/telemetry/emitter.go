// Package telemetry implements the non-blocking usage-event emitter
// (SPEC_FULL.md §4.G): producers push onto a bounded queue and a
// background worker batches events to a pluggable Sink.
package telemetry

import (
	"sync"
	"sync/atomic"
	"time"
)

// Operation classifies what a UsageEvent reports on.
type Operation string

const (
	OpResolve  Operation = "RESOLVE"
	OpRead     Operation = "READ"
	OpDescribe Operation = "DESCRIBE"
	OpList     Operation = "LIST"
	OpLineage  Operation = "LINEAGE"
)

// Outcome classifies how an operation ended.
type Outcome string

const (
	OutcomeSuccess  Outcome = "success"
	OutcomeError    Outcome = "error"
	OutcomeNotFound Outcome = "not_found"
)

// UsageEvent is one record of catalog access.
type UsageEvent struct {
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"request_id"`
	CallerAppID    string    `json:"caller_app_id,omitempty"`
	CallerTeam     string    `json:"caller_team,omitempty"`
	Moniker        string    `json:"moniker"`
	Operation      Operation `json:"operation"`
	Outcome        Outcome   `json:"outcome"`
	SourceType     string    `json:"source_type,omitempty"`
	LatencyMs      int64     `json:"latency_ms"`
	OwnerAtAccess  string    `json:"owner_at_access,omitempty"`
	Deprecated     bool      `json:"deprecated"`
	Successor      string    `json:"successor,omitempty"`
	RedirectedFrom string    `json:"redirected_from,omitempty"`
}

// Sink is the narrow interface every telemetry backend implements. A sink
// that errors on a batch does not fail the caller's request; the emitter
// counts it in its errors counter and does not log it.
type Sink interface {
	Write(batch []UsageEvent) error
	Close() error
}

// Counters reports the emitter's live state for /health.
type Counters struct {
	Emitted    int64 `json:"emitted"`
	Dropped    int64 `json:"dropped"`
	Errors     int64 `json:"errors"`
	QueueDepth int64 `json:"queue_depth"`
}

// Emitter is a non-blocking, best-effort usage-event pipeline: Emit never
// blocks the caller, dropping and counting when the queue is full.
type Emitter struct {
	sink          Sink
	queue         chan UsageEvent
	batchSize     int
	flushInterval time.Duration

	emitted int64
	dropped int64
	errs    int64

	stop   chan struct{}
	done   chan struct{}
	once   sync.Once
}

// NewEmitter starts the background worker immediately.
func NewEmitter(sink Sink, queueSize, batchSize int, flushInterval time.Duration) *Emitter {
	if queueSize <= 0 {
		queueSize = 1000
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	e := &Emitter{
		sink:          sink,
		queue:         make(chan UsageEvent, queueSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
	go e.run()
	return e
}

// Emit pushes an event onto the queue without blocking. If the queue is
// full, the event is dropped and the drop counter incremented.
func (e *Emitter) Emit(event UsageEvent) {
	select {
	case e.queue <- event:
		atomic.AddInt64(&e.emitted, 1)
	default:
		atomic.AddInt64(&e.dropped, 1)
	}
}

// Counters returns a snapshot of the emitter's counters.
func (e *Emitter) Counters() Counters {
	return Counters{
		Emitted:    atomic.LoadInt64(&e.emitted),
		Dropped:    atomic.LoadInt64(&e.dropped),
		Errors:     atomic.LoadInt64(&e.errs),
		QueueDepth: int64(len(e.queue)),
	}
}

// Stop flushes the queue with a bounded timeout and closes the sink.
func (e *Emitter) Stop(timeout time.Duration) {
	e.once.Do(func() {
		close(e.stop)
	})
	select {
	case <-e.done:
	case <-time.After(timeout):
	}
	_ = e.sink.Close()
}

func (e *Emitter) run() {
	defer close(e.done)

	batch := make([]UsageEvent, 0, e.batchSize)
	ticker := time.NewTicker(e.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := e.sink.Write(batch); err != nil {
			atomic.AddInt64(&e.errs, 1)
		}
		batch = make([]UsageEvent, 0, e.batchSize)
	}

	for {
		select {
		case event := <-e.queue:
			batch = append(batch, event)
			if len(batch) >= e.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-e.stop:
			// Drain whatever is already queued before flushing the tail.
			for {
				select {
				case event := <-e.queue:
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}
