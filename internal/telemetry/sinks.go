package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/logging"
)

// ConsoleSink logs each batch through the structured logger.
type ConsoleSink struct {
	log *logging.Logger
}

// NewConsoleSink builds a Sink that logs one structured entry per event of
// each batch.
func NewConsoleSink(log *logging.Logger) *ConsoleSink {
	return &ConsoleSink{log: log}
}

func (s *ConsoleSink) Write(batch []UsageEvent) error {
	for _, event := range batch {
		s.log.Info("usage_event",
			zap.String("request_id", event.RequestID),
			zap.String("moniker", event.Moniker),
			zap.String("operation", string(event.Operation)),
			zap.String("outcome", string(event.Outcome)),
			zap.Int64("latency_ms", event.LatencyMs),
			zap.Bool("deprecated", event.Deprecated),
		)
	}
	return nil
}

func (s *ConsoleSink) Close() error { return nil }

// FileSink appends newline-delimited JSON to a configured path.
type FileSink struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileSink opens path for append, creating it if necessary.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open sink file: %w", err)
	}
	return &FileSink{file: f}, nil
}

func (s *FileSink) Write(batch []UsageEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	enc := json.NewEncoder(s.file)
	for _, event := range batch {
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("telemetry: encode event: %w", err)
		}
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}

// NoopSink discards every batch. Used in tests and for the noop config
// selection.
type NoopSink struct{}

func (NoopSink) Write([]UsageEvent) error { return nil }
func (NoopSink) Close() error             { return nil }
