package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/Taskboard/internal/scoring"
	"github.com/MikeSquared-Agency/Taskboard/internal/store"
)

const testDay = "2026-10-14"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T) (*RankingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute, BreakerConfig{}, discardLogger())
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func testRanking(t *testing.T) []scoring.ScoredTask {
	t.Helper()
	hours := 2.5
	engine := scoring.NewEngine(discardLogger(),
		scoring.WithClock(func() time.Time { return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC) }),
		scoring.WithLocation(time.UTC),
	)
	ranked, err := engine.Rank([]store.Task{
		{ID: 1, Title: "ship", DueDate: "2026-10-15", EstimatedHours: &hours, Importance: 9},
		{ID: 2, Title: "follow up", Importance: 4, Dependencies: store.Dependencies{1}},
		{ID: 3, Title: "done", Importance: 7, Completed: true},
	}, scoring.SmartBalance)
	require.NoError(t, err)
	return ranked
}

func TestRankingKey(t *testing.T) {
	assert.Equal(t, "taskboard:ranking:0:smart_balance:2026-10-14", rankingKey(0, scoring.SmartBalance, "2026-10-14"))
	assert.Equal(t, "taskboard:ranking:12:fastest_wins:2026-10-15", rankingKey(12, scoring.FastestWins, "2026-10-15"))
}

func TestNilCacheAlwaysMisses(t *testing.T) {
	var c *RankingCache
	ctx := context.Background()

	ranked, lk := c.Get(ctx, scoring.HighImpact, testDay)
	assert.Nil(t, ranked)
	assert.Equal(t, ResultMiss, lk.Result)

	// Must not panic.
	c.Put(ctx, lk, scoring.HighImpact, testDay, nil)
	c.Invalidate(ctx)
	assert.NoError(t, c.Close())
}

func TestGetPutRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()
	want := testRanking(t)

	got, lk := c.Get(ctx, scoring.SmartBalance, testDay)
	assert.Nil(t, got)
	require.Equal(t, ResultMiss, lk.Result)

	c.Put(ctx, lk, scoring.SmartBalance, testDay, want)

	got, lk = c.Get(ctx, scoring.SmartBalance, testDay)
	require.Equal(t, ResultHit, lk.Result)
	assert.Equal(t, want, got)

	// Other strategies and days are separate entries.
	_, lk = c.Get(ctx, scoring.FastestWins, testDay)
	assert.Equal(t, ResultMiss, lk.Result)
	_, lk = c.Get(ctx, scoring.SmartBalance, "2026-10-15")
	assert.Equal(t, ResultMiss, lk.Result)
}

func TestPutIgnoresHitsAndErrors(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	c.Put(ctx, Lookup{Result: ResultHit}, scoring.SmartBalance, testDay, testRanking(t))
	c.Put(ctx, Lookup{Result: ResultError}, scoring.SmartBalance, testDay, testRanking(t))
	assert.Empty(t, mr.Keys())
}

func TestInvalidateDropsCachedRankings(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, lk := c.Get(ctx, scoring.HighImpact, testDay)
	c.Put(ctx, lk, scoring.HighImpact, testDay, testRanking(t))
	_, lk = c.Get(ctx, scoring.HighImpact, testDay)
	require.Equal(t, ResultHit, lk.Result)

	c.Invalidate(ctx)

	got, lk := c.Get(ctx, scoring.HighImpact, testDay)
	assert.Nil(t, got)
	assert.Equal(t, ResultMiss, lk.Result)
}

func TestWriteBetweenGetAndPutOrphansStaleRanking(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, lk := c.Get(ctx, scoring.SmartBalance, testDay)
	require.Equal(t, ResultMiss, lk.Result)
	stale := testRanking(t)

	// A task write lands after the rows were read but before the store.
	c.Invalidate(ctx)
	c.Put(ctx, lk, scoring.SmartBalance, testDay, stale)

	got, lk := c.Get(ctx, scoring.SmartBalance, testDay)
	assert.Nil(t, got)
	assert.Equal(t, ResultMiss, lk.Result)
}

func TestEntriesExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, lk := c.Get(ctx, scoring.DeadlineDriven, testDay)
	c.Put(ctx, lk, scoring.DeadlineDriven, testDay, testRanking(t))
	mr.FastForward(2 * time.Minute)

	_, lk = c.Get(ctx, scoring.DeadlineDriven, testDay)
	assert.Equal(t, ResultMiss, lk.Result)
}

func TestCorruptEntryReadsAsError(t *testing.T) {
	c, mr := newTestCache(t)
	require.NoError(t, mr.Set(rankingKey(0, scoring.SmartBalance, testDay), "{not json"))

	got, lk := c.Get(context.Background(), scoring.SmartBalance, testDay)
	assert.Nil(t, got)
	assert.Equal(t, ResultError, lk.Result)
}

func TestUnreachableRedisDegradesAndTripsBreaker(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := New(client, time.Minute, BreakerConfig{FailureThreshold: 2, Timeout: time.Minute}, discardLogger())
	t.Cleanup(func() { _ = c.Close() })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ranked, lk := c.Get(ctx, scoring.SmartBalance, testDay)
		assert.Nil(t, ranked)
		assert.Equal(t, ResultError, lk.Result)
	}
	assert.Equal(t, "open", c.State())

	// Writes are swallowed while open.
	c.Put(ctx, Lookup{Result: ResultMiss}, scoring.SmartBalance, testDay, []scoring.ScoredTask{})
	c.Invalidate(ctx)
}
