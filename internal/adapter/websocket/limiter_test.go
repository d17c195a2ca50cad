package websocket

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestConnectionLimits_Global(t *testing.T) {
	limits := NewConnectionLimits(LimitsConfig{MaxConnections: 2}, clockwork.NewFakeClock())

	ok, _ := limits.Acquire("1.1.1.1")
	assert.True(t, ok)
	ok, _ = limits.Acquire("2.2.2.2")
	assert.True(t, ok)
	ok, reason := limits.Acquire("3.3.3.3")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)
	assert.Equal(t, int64(2), limits.Current())
	assert.InDelta(t, 100, limits.CapacityPct(), 0.001)

	limits.Release("1.1.1.1")
	ok, _ = limits.Acquire("3.3.3.3")
	assert.True(t, ok)
}

func TestConnectionLimits_PerIPRollsBackGlobal(t *testing.T) {
	limits := NewConnectionLimits(LimitsConfig{MaxConnections: 10, MaxPerIP: 1}, clockwork.NewFakeClock())

	ok, _ := limits.Acquire("1.1.1.1")
	assert.True(t, ok)
	ok, reason := limits.Acquire("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)
	assert.Equal(t, int64(1), limits.Current(), "global slot released on per-IP rejection")
	assert.Equal(t, 1, limits.PerIP("1.1.1.1"))

	limits.Release("1.1.1.1")
	assert.Equal(t, 0, limits.PerIP("1.1.1.1"))
}

func TestConnectionLimits_RateRefillsWithClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limits := NewConnectionLimits(LimitsConfig{PerIPRate: 1, PerIPBurst: 2}, clock)

	for range 2 {
		ok, _ := limits.Acquire("1.1.1.1")
		assert.True(t, ok)
	}
	ok, reason := limits.Acquire("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonRate, reason)

	ok, _ = limits.Acquire("2.2.2.2")
	assert.True(t, ok, "buckets are per IP")

	clock.Advance(time.Second)
	ok, _ = limits.Acquire("1.1.1.1")
	assert.True(t, ok)
}

func TestConnectionLimits_RateEntriesExpire(t *testing.T) {
	clock := clockwork.NewFakeClock()
	limits := NewConnectionLimits(LimitsConfig{PerIPRate: 1, PerIPBurst: 1}, clock)

	limits.Acquire("1.1.1.1")
	clock.Advance(rateLimiterIdleTTL + rateLimiterCleanupEvery)
	limits.Acquire("2.2.2.2")

	limits.rate.mu.Lock()
	defer limits.rate.mu.Unlock()
	assert.NotContains(t, limits.rate.limiters, "1.1.1.1")
	assert.Contains(t, limits.rate.limiters, "2.2.2.2")
}

func TestConnectionLimits_Unbounded(t *testing.T) {
	limits := NewConnectionLimits(LimitsConfig{}, clockwork.NewFakeClock())

	for range 100 {
		ok, _ := limits.Acquire("1.1.1.1")
		assert.True(t, ok)
	}
	assert.Equal(t, int64(-1), limits.Current())
	assert.Zero(t, limits.CapacityPct())
	limits.Release("1.1.1.1")
}

func TestConnectionLimits_ConcurrentAcquire(t *testing.T) {
	limits := NewConnectionLimits(LimitsConfig{MaxConnections: 100}, clockwork.NewFakeClock())
	var successCount, failCount atomic.Int64

	start := make(chan struct{})
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if ok, _ := limits.Acquire("10.0.0.1"); ok {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int64(100), successCount.Load())
	assert.Equal(t, int64(100), failCount.Load())
	assert.Equal(t, int64(100), limits.Current())
}
