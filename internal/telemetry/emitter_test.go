package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []UsageEvent
	closed bool
}

func (s *recordingSink) Write(batch []UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, batch...)
	return nil
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEmitter_FlushesOnInterval(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink, 10, 100, 10*time.Millisecond)
	defer e.Stop(time.Second)

	e.Emit(UsageEvent{Moniker: "prices.equity/AAPL"})

	require.Eventually(t, func() bool { return sink.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestEmitter_FlushesOnBatchSize(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink, 10, 2, time.Hour)
	defer e.Stop(time.Second)

	e.Emit(UsageEvent{Moniker: "a"})
	e.Emit(UsageEvent{Moniker: "b"})

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 5*time.Millisecond)
}

func TestEmitter_DropsWhenQueueFull(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink, 1, 1000, time.Hour)
	defer e.Stop(time.Second)

	for i := 0; i < 10; i++ {
		e.Emit(UsageEvent{Moniker: "x"})
	}

	require.Eventually(t, func() bool { return e.Counters().Dropped > 0 }, time.Second, 5*time.Millisecond)
}

func TestEmitter_StopFlushesRemaining(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(sink, 100, 100, time.Hour)
	e.Emit(UsageEvent{Moniker: "a"})
	e.Stop(time.Second)

	require.Equal(t, 1, sink.count())
	require.True(t, sink.closed)
}
