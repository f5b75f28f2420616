// Package audit persists catalog.AuditEntry records to Postgres, with an
// in-memory fallback buffer so a database outage never blocks or fails the
// mutating registry operation that produced the entry (SPEC_FULL.md §4.M,
// §7: "audit-log appends must not fail the mutating operation").
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/logging"
)

// createTableSQL is applied once at startup; it is a no-op if the table
// already exists.
const createTableSQL = `
CREATE TABLE IF NOT EXISTS moniker_audit_log (
	id         TEXT PRIMARY KEY,
	ts         TIMESTAMPTZ NOT NULL,
	actor      TEXT NOT NULL,
	path       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	before     JSONB,
	after      JSONB,
	reason     TEXT
)`

const insertSQL = `
INSERT INTO moniker_audit_log (id, ts, actor, path, kind, before, after, reason)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO NOTHING`

// Store appends audit entries to Postgres and buffers in memory when the
// database is unreachable, retrying opportunistically in the background.
type Store struct {
	db  *sql.DB
	log *logging.Logger

	mu           sync.Mutex
	buffer       []catalog.AuditEntry
	bufferLimit  int
	droppedAudit int64

	stop chan struct{}
	done chan struct{}
}

// NewStore opens a connection pool to dsn, creates the audit table if
// needed, and starts a background drain loop for the fallback buffer. An
// empty dsn is valid — the store then operates purely in the in-memory
// fallback mode, which is useful for local development and tests.
func NewStore(dsn string, bufferLimit int, log *logging.Logger) (*Store, error) {
	if bufferLimit <= 0 {
		bufferLimit = 1000
	}
	s := &Store{bufferLimit: bufferLimit, log: log, stop: make(chan struct{}), done: make(chan struct{})}

	if dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("audit: open database: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
			log.Warn("audit: could not ensure table exists, falling back to in-memory buffering", zap.Error(err))
		} else {
			s.db = db
		}
	}

	go s.drainLoop()
	return s, nil
}

// Append writes one entry. It never returns an error the caller should act
// on: failures are buffered and counted.
func (s *Store) Append(entry catalog.AuditEntry) {
	if s.db == nil {
		s.bufferEntry(entry)
		return
	}
	if err := s.insert(entry); err != nil {
		s.log.Warn("audit: insert failed, buffering", zap.Error(err))
		s.bufferEntry(entry)
	}
}

func (s *Store) insert(entry catalog.AuditEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	before, _ := json.Marshal(entry.Before)
	after, _ := json.Marshal(entry.After)
	_, err := s.db.ExecContext(ctx, insertSQL,
		entry.ID, entry.Timestamp, entry.Actor, entry.Path, entry.Kind, before, after, entry.Reason)
	return err
}

func (s *Store) bufferEntry(entry catalog.AuditEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.buffer) >= s.bufferLimit {
		s.droppedAudit++
		s.buffer = s.buffer[1:]
	}
	s.buffer = append(s.buffer, entry)
}

// DroppedCount reports how many buffered entries were evicted because the
// fallback buffer itself overflowed.
func (s *Store) DroppedCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.droppedAudit
}

// drainLoop periodically retries flushing the in-memory buffer to Postgres
// once the database becomes reachable again.
func (s *Store) drainLoop() {
	defer close(s.done)
	if s.db == nil {
		<-s.stop
		return
	}

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.drainOnce()
		case <-s.stop:
			s.drainOnce()
			return
		}
	}
}

func (s *Store) drainOnce() {
	s.mu.Lock()
	pending := s.buffer
	s.buffer = nil
	s.mu.Unlock()

	for _, entry := range pending {
		if err := s.insert(entry); err != nil {
			s.bufferEntry(entry)
		}
	}
}

// Close stops the drain loop and closes the underlying connection pool.
func (s *Store) Close() error {
	close(s.stop)
	<-s.done
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
