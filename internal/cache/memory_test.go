package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemory_SetGet(t *testing.T) {
	c := NewInMemory(time.Minute, 10)
	c.Set("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
}

func TestInMemory_Miss(t *testing.T) {
	c := NewInMemory(time.Minute, 10)
	_, ok := c.Get("missing")
	require.False(t, ok)
}

func TestInMemory_Expiry(t *testing.T) {
	c := NewInMemory(time.Millisecond, 10)
	c.Set("a", 1)
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("a")
	require.False(t, ok)
}

func TestInMemory_LRUEviction(t *testing.T) {
	c := NewInMemory(time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // promote a to most-recently-used
	c.Set("c", 3)

	_, ok := c.Get("b")
	require.False(t, ok, "b should have been evicted as least-recently-used")

	_, ok = c.Get("a")
	require.True(t, ok)
	_, ok = c.Get("c")
	require.True(t, ok)
}

func TestInMemory_PurgeByPrefix(t *testing.T) {
	c := NewInMemory(time.Minute, 0)
	c.Set("prices.equity/AAPL", 1)
	c.Set("prices.equity/MSFT", 2)
	c.Set("rates.libor/usd", 3)

	removed := c.PurgeByPrefix("prices.equity")
	require.Equal(t, 2, removed)

	_, ok := c.Get("rates.libor/usd")
	require.True(t, ok)
}

func TestInMemory_Clear(t *testing.T) {
	c := NewInMemory(time.Minute, 0)
	c.Set("a", 1)
	c.Clear()

	require.Equal(t, 0, c.Size())
}

func TestInMemory_Stats(t *testing.T) {
	c := NewInMemory(time.Minute, 0)
	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	require.Equal(t, 1, stats.Size)
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
}
