package qotd

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
)

func TestStoreSetAndGet(t *testing.T) {
	s := NewStore("hello")
	require.Equal(t, "hello", s.Message())
	s.SetMessage("world")
	require.Equal(t, "world", s.Message())
}

func TestStoreTruncatesOversizedMessage(t *testing.T) {
	s := NewStore("")
	long := make([]byte, maxMessageBytes+50)
	for i := range long {
		long[i] = 'a'
	}
	s.SetMessage(string(long))
	require.Len(t, s.Message(), maxMessageBytes)
}

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(2, time.Minute, clock)

	require.True(t, rl.Allow())
	require.True(t, rl.Allow())
	require.False(t, rl.Allow(), "third request within the window exceeds max and trips back-off")
	require.False(t, rl.Allow(), "fourth request is refused while backing off")
}

func TestRateLimiterBacksOffUntilOldestExpires(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(1, time.Minute, clock)

	require.True(t, rl.Allow())
	require.False(t, rl.Allow())

	clock.Advance(30 * time.Second)
	require.False(t, rl.Allow(), "still within window of the oldest recorded timestamp")

	clock.Advance(31 * time.Second)
	require.True(t, rl.Allow(), "oldest timestamp has aged out, back-off lifts")
}

func TestRateLimiterCapsRetainedHistory(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rl := NewRateLimiter(1_000_000, time.Hour, clock)

	for i := 0; i < maxRateLimiterEntries+50; i++ {
		rl.Allow()
		clock.Advance(time.Millisecond)
	}

	rl.mu.Lock()
	n := len(rl.hits)
	rl.mu.Unlock()
	require.LessOrEqual(t, n, maxRateLimiterEntries)
}
