package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/catalog"
	"github.com/ganizanisitara/open-moniker-svc/resolver-go/internal/logging"
)

func newFallbackStore(t *testing.T, bufferLimit int) *Store {
	t.Helper()
	s, err := NewStore("", bufferLimit, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestStore_AppendBuffersInFallbackMode(t *testing.T) {
	s := newFallbackStore(t, 10)
	s.Append(catalog.NewAuditEntry(time.Now(), "alice", "prices.equity", "created", "", nil, nil))

	require.Len(t, s.buffer, 1)
	require.Equal(t, int64(0), s.DroppedCount())
}

func TestStore_BufferOverflowEvictsOldestAndCounts(t *testing.T) {
	s := newFallbackStore(t, 2)
	for i := 0; i < 5; i++ {
		s.Append(catalog.NewAuditEntry(time.Now(), "alice", "prices.equity", "created", "", nil, nil))
	}

	require.Len(t, s.buffer, 2)
	require.Equal(t, int64(3), s.DroppedCount())
}

func TestStore_DefaultsBufferLimitWhenNonPositive(t *testing.T) {
	s := newFallbackStore(t, 0)
	require.Equal(t, 1000, s.bufferLimit)
}

func TestStore_CloseStopsDrainLoopCleanly(t *testing.T) {
	s, err := NewStore("", 10, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
