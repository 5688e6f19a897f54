package ratecache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landed-cost/pkg/api"
)

func TestGetFreshEntry(t *testing.T) {
	c := New()
	c.Set("fx:USD:INR", 83.2, time.Minute, api.SourceLive)

	entry, ok := c.Get("fx:USD:INR")
	require.True(t, ok)
	assert.Equal(t, 83.2, entry.Value)
	assert.Equal(t, api.SourceLive, entry.Source)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestExpiredEntryIsNeverServedAsFresh(t *testing.T) {
	c := New()
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("tax:IN:electronics", 0.18, 100*time.Millisecond, api.SourceLive)

	c.now = func() time.Time { return base.Add(time.Second) }

	_, ok := c.Get("tax:IN:electronics")
	assert.False(t, ok, "expired entry must be a miss on the fresh path")
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestGetOrFetchMissFetchesOnce(t *testing.T) {
	c := New()
	var calls int32

	lookup, err := c.GetOrFetch(context.Background(), "fx:USD:EUR", time.Minute, func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return 0.92, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0.92, lookup.Value)
	assert.Equal(t, api.SourceLive, lookup.Source)
	assert.False(t, lookup.Stale)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// Second read within TTL is a cache hit with zero fetches.
	lookup, err = c.GetOrFetch(context.Background(), "fx:USD:EUR", time.Minute, func(ctx context.Context) (any, error) {
		atomic.AddInt32(&calls, 1)
		return 0.92, nil
	})
	require.NoError(t, err)
	assert.Equal(t, api.SourceCache, lookup.Source)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestGetOrFetchServesStaleWhileRevalidating(t *testing.T) {
	c := New()
	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("tax:IN:apparel", 0.12, 50*time.Millisecond, api.SourceLive)
	c.now = func() time.Time { return base.Add(time.Second) }

	fetched := make(chan struct{})
	lookup, err := c.GetOrFetch(context.Background(), "tax:IN:apparel", time.Minute, func(ctx context.Context) (any, error) {
		close(fetched)
		return 0.13, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0.12, lookup.Value, "reader sees the pre-refresh value")
	assert.True(t, lookup.Stale)
	assert.Equal(t, api.SourceFallback, lookup.Source)

	select {
	case <-fetched:
	case <-time.After(2 * time.Second):
		t.Fatal("background revalidation never ran")
	}

	// The refresh eventually replaces the stale value.
	assert.Eventually(t, func() bool {
		entry, present, _ := c.GetStale("tax:IN:apparel")
		return present && entry.Value == 0.13
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConcurrentMissesShareOneFetch(t *testing.T) {
	c := New()
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetOrFetch(context.Background(), "fx:GBP:USD", time.Minute, func(ctx context.Context) (any, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 1.27, nil
			})
			assert.NoError(t, err)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "single writer per key")
}

func TestFetchErrorPropagatesOnColdMiss(t *testing.T) {
	c := New()
	_, err := c.GetOrFetch(context.Background(), "fx:USD:XXX", time.Minute, func(ctx context.Context) (any, error) {
		return nil, errors.New("upstream down")
	})
	require.Error(t, err)
	assert.Equal(t, int64(1), c.Stats().Errors)
}

func TestLastWriterWins(t *testing.T) {
	c := New()
	c.Set("tax:AU:books", 0.10, time.Minute, api.SourceLive)
	c.Set("tax:AU:books", 0.11, time.Minute, api.SourceLive)

	entry, ok := c.Get("tax:AU:books")
	require.True(t, ok)
	assert.Equal(t, 0.11, entry.Value)
}

func TestClearEvictsEntriesButKeepsCounters(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute, api.SourceLive)
	c.Get("a")
	require.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(1), c.Stats().Hits)
}
