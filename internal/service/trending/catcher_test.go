package trending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendcatch/internal/adapter/creativecenter"
	"trendcatch/internal/domain/sound"
)

type catcherFixture struct {
	fetcher *fakeFetcher
	store   *memoryStore
	clock   *fakeClock
	cache   *FetchCache
	catcher *Catcher
}

func newCatcherFixture(t *testing.T, regions []string, config CatcherConfig) *catcherFixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 3, 1, 0, 30, 0, 0, time.UTC)}
	f := &catcherFixture{
		fetcher: newFakeFetcher(),
		store:   newMemoryStore(),
		clock:   clock,
		cache:   NewFetchCache(6*time.Hour, clock.Now),
	}
	f.catcher = NewCatcher(f.fetcher, f.store, f.cache, NewRotation(regions, 0, 3), nil, config)
	f.catcher.now = clock.Now
	return f
}

func TestCatcherUnforcedSkipsFreshRegions(t *testing.T) {
	f := newCatcherFixture(t, defaultRegions, CatcherConfig{})
	f.fetcher.records["US"] = []creativecenter.TrendRecord{record("a", 1, 10, 20)}
	f.fetcher.records["GB"] = []creativecenter.TrendRecord{record("b", 2, 10, 15)}
	f.fetcher.records["BR"] = []creativecenter.TrendRecord{record("c", 3, 10, 10)}

	ctx := context.Background()
	_, err := f.catcher.Trending(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "GB", "BR"}, f.fetcher.Calls())

	// within TTL nothing is re-fetched
	f.fetcher.Reset()
	f.clock.Advance(10 * time.Minute)
	_, err = f.catcher.Trending(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, f.fetcher.Calls())

	// forced refresh always fetches
	_, err = f.catcher.Trending(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "GB", "BR"}, f.fetcher.Calls())

	// after the TTL the regions are stale again
	f.fetcher.Reset()
	f.clock.Advance(6 * time.Hour)
	_, err = f.catcher.Trending(ctx, false)
	require.NoError(t, err)
	// hour 6 selects JP, KR, ID which were never fetched
	assert.Equal(t, []string{"JP", "KR", "ID"}, f.fetcher.Calls())
}

func TestCatcherFailedRegionStaysUnfresh(t *testing.T) {
	f := newCatcherFixture(t, defaultRegions, CatcherConfig{})
	f.fetcher.errs["US"] = errors.New("connection reset")
	f.fetcher.errs["GB"] = creativecenter.ErrNoData
	f.fetcher.records["BR"] = []creativecenter.TrendRecord{record("c", 1, 5, 10)}

	ranked, err := f.catcher.Trending(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "c", ranked[0].ID)

	assert.Equal(t, StateNeverFetched, f.cache.State("US"))
	assert.Equal(t, StateNeverFetched, f.cache.State("GB"))
	assert.Equal(t, StateFresh, f.cache.State("BR"))

	// failed regions are retried on the next read
	f.fetcher.Reset()
	_, err = f.catcher.Trending(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "GB"}, f.fetcher.Calls())
}

func TestCatcherFailedRegionCoolsDown(t *testing.T) {
	f := newCatcherFixture(t, []string{"US", "GB"}, CatcherConfig{FailureCooldown: 10 * time.Minute})
	f.fetcher.errs["US"] = errors.New("connection reset")
	f.fetcher.records["GB"] = []creativecenter.TrendRecord{record("b", 1, 5, 10)}

	_, err := f.catcher.Trending(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "GB"}, f.fetcher.Calls())

	// within the cooldown an unforced read leaves the upstream alone
	f.fetcher.Reset()
	f.clock.Advance(5 * time.Minute)
	_, err = f.catcher.Trending(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, f.fetcher.Calls())

	// a forced read still retries
	_, err = f.catcher.Trending(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, []string{"US", "GB"}, f.fetcher.Calls())

	f.fetcher.Reset()
	f.clock.Advance(10 * time.Minute)
	delete(f.fetcher.errs, "US")
	f.fetcher.records["US"] = []creativecenter.TrendRecord{record("a", 1, 5, 10)}
	_, err = f.catcher.Trending(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"US"}, f.fetcher.Calls())
	assert.Equal(t, StateFresh, f.cache.State("US"))
	assert.False(t, f.cache.FailedWithin("US", time.Hour))
}

func TestCatcherHangingUpstreamServesStoredRanking(t *testing.T) {
	f := newCatcherFixture(t, []string{"US", "GB", "BR"}, CatcherConfig{ScrapeBudget: 30 * time.Millisecond})
	_, err := f.catcher.Ingest(context.Background(), sound.Observation{
		Sound: sound.Sound{ID: "stored", Name: "Stored"},
		Uses:  100,
	})
	require.NoError(t, err)
	f.fetcher.hang = true

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	ranked, err := f.catcher.Trending(ctx, false)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "stored", ranked[0].ID)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
	assert.NoError(t, ctx.Err())
}

func TestCatcherEmptyRegionNotMarkedFresh(t *testing.T) {
	f := newCatcherFixture(t, []string{"US"}, CatcherConfig{})
	f.fetcher.records["US"] = []creativecenter.TrendRecord{}

	_, err := f.catcher.Trending(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, StateNeverFetched, f.cache.State("US"))
}

func TestCatcherTrendingExcludesSoundsWithoutSnapshots(t *testing.T) {
	f := newCatcherFixture(t, []string{"US"}, CatcherConfig{})
	f.store.addSound(sound.Sound{ID: "B", Name: "No snapshots"})

	ctx := context.Background()
	for _, uses := range []int64{100, 120, 180} {
		_, err := f.catcher.Ingest(ctx, sound.Observation{Sound: sound.Sound{ID: "A", Name: "Tracked"}, Uses: uses})
		require.NoError(t, err)
	}

	ranked, err := f.catcher.Trending(ctx, false)
	require.NoError(t, err)
	require.Len(t, ranked, 1)
	assert.Equal(t, "A", ranked[0].ID)
	assert.Equal(t, int64(180), ranked[0].LatestUses)
	assert.Equal(t, 50.0, ranked[0].Velocity)
}

func TestCatcherTrendingRanksAndLimits(t *testing.T) {
	f := newCatcherFixture(t, []string{"US"}, CatcherConfig{TopLimit: 2})
	f.fetcher.records["US"] = []creativecenter.TrendRecord{
		record("slow", 1, 100, 110),
		record("fast", 2, 100, 400),
		record("flat", 3, 100, 100),
	}

	ranked, err := f.catcher.Trending(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, ranked, 2)
	assert.Equal(t, "fast", ranked[0].ID)
	assert.Equal(t, 300.0, ranked[0].Velocity)
	assert.Equal(t, int64(50000), ranked[0].LatestUses)
	assert.Equal(t, "slow", ranked[1].ID)
}

func TestCatcherTrendingStoreError(t *testing.T) {
	f := newCatcherFixture(t, []string{"US"}, CatcherConfig{})
	f.store.latestErr = errors.New("database unavailable")

	_, err := f.catcher.Trending(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestCatcherIngestComputesVelocityFromHistory(t *testing.T) {
	f := newCatcherFixture(t, []string{"US"}, CatcherConfig{})
	ctx := context.Background()
	obs := sound.Observation{Sound: sound.Sound{ID: "x", Name: "X"}, Uses: 100}

	first, err := f.catcher.Ingest(ctx, obs)
	require.NoError(t, err)
	assert.Equal(t, 0.0, *first.Velocity)

	obs.Uses = 150
	second, err := f.catcher.Ingest(ctx, obs)
	require.NoError(t, err)
	assert.Equal(t, 50.0, *second.Velocity)
}

func TestCatcherEventHandlers(t *testing.T) {
	f := newCatcherFixture(t, []string{"KR"}, CatcherConfig{})
	f.fetcher.records["KR"] = []creativecenter.TrendRecord{record("k", 1, 10, 30)}

	var mu sync.Mutex
	var events []sound.Event
	f.catcher.RegisterEventHandler(func(e sound.Event) error {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, e)
		return nil
	})
	f.catcher.RegisterEventHandler(func(sound.Event) error {
		return errors.New("handler failure does not stop ingestion")
	})

	_, err := f.catcher.Trending(context.Background(), false)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, events, 1)
	assert.Equal(t, "k", events[0].SoundID)
	assert.Equal(t, "KR", events[0].Region)
	assert.Equal(t, 200.0, events[0].Velocity)
	assert.Equal(t, int64(100000), events[0].Uses)
	assert.NotEmpty(t, events[0].ID)
}

func TestCatcherRefreshAll(t *testing.T) {
	regions := []string{"US", "GB", "BR", "MX"}
	f := newCatcherFixture(t, regions, CatcherConfig{SnapshotRetention: 500})
	f.fetcher.records["US"] = []creativecenter.TrendRecord{record("a", 1, 1, 2), record("b", 2, 1, 3)}
	f.fetcher.records["GB"] = []creativecenter.TrendRecord{record("a", 1, 1, 2)}
	f.fetcher.errs["BR"] = errors.New("timeout")
	f.fetcher.records["MX"] = []creativecenter.TrendRecord{record("m", 3, 2, 2)}

	// fresh regions are still fetched
	f.cache.MarkFetched("US")

	found, err := f.catcher.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, found)
	assert.Equal(t, regions, f.fetcher.Calls())
	assert.Equal(t, []int{500}, f.store.pruned)

	for _, r := range []string{"US", "GB", "MX"} {
		assert.Equal(t, StateFresh, f.cache.State(r), r)
	}
	assert.Equal(t, StateNeverFetched, f.cache.State("BR"))
}

func TestCatcherPacesRequests(t *testing.T) {
	f := newCatcherFixture(t, []string{"US", "GB", "BR"}, CatcherConfig{RequestDelay: 40 * time.Millisecond})
	f.fetcher.errs["US"] = errors.New("fail")
	f.fetcher.errs["GB"] = errors.New("fail")
	f.fetcher.errs["BR"] = errors.New("fail")

	start := time.Now()
	_, err := f.catcher.Trending(context.Background(), true)
	require.NoError(t, err)

	// the delay applies after failed attempts too
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
	assert.Len(t, f.fetcher.Calls(), 3)
}

func TestCatcherRefreshAllCanceled(t *testing.T) {
	f := newCatcherFixture(t, []string{"US", "GB"}, CatcherConfig{RefreshDelay: time.Hour})
	f.fetcher.records["US"] = []creativecenter.TrendRecord{record("a", 1, 1, 2)}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	found, err := f.catcher.RefreshAll(ctx)
	assert.Error(t, err)
	assert.Equal(t, 1, found)
	assert.Equal(t, []string{"US"}, f.fetcher.Calls())
	assert.Empty(t, f.store.pruned)
}

func TestCatcherDetails(t *testing.T) {
	f := newCatcherFixture(t, []string{"US"}, CatcherConfig{})
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		_, err := f.catcher.Ingest(ctx, sound.Observation{Sound: sound.Sound{ID: "d", Name: "D"}, Uses: int64(100 + i)})
		require.NoError(t, err)
	}

	details, err := f.catcher.Details(ctx, "d")
	require.NoError(t, err)
	require.Len(t, details.Snapshots, DetailSnapshots)
	assert.Equal(t, int64(111), details.Snapshots[0].Uses)

	_, err = f.catcher.Details(ctx, "missing")
	assert.ErrorIs(t, err, sound.ErrNotFound)
}
