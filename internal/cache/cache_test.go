package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpup/tracks.ersn.net/server/internal/lib/geo"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/profile"
	"github.com/dpup/tracks.ersn.net/server/internal/lib/slope"
)

// fakeClock is a manually advanced time source
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestCache() (*Cache, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return NewCache(WithClock(clock.Now)), clock
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache()

	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}
	require.NoError(t, c.Set("k", payload{"ridge", 4.5}, time.Minute, "test"))

	var got payload
	found, err := c.Get("k", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{"ridge", 4.5}, got)

	found, err = c.Get("missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_Expiry(t *testing.T) {
	c, clock := newTestCache()
	require.NoError(t, c.Set("k", 1, time.Minute, "test"))

	var v int
	found, err := c.Get("k", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 1, v)

	clock.Advance(2 * time.Minute)
	found, err = c.Get("k", &v)
	require.NoError(t, err)
	assert.False(t, found, "Stale entries are not returned by Get")
	assert.Equal(t, 1, c.Stats().StaleEntries, "Stale entries stay until cleanup")
}

func TestCache_UnmarshalError(t *testing.T) {
	c, _ := newTestCache()
	require.NoError(t, c.Set("k", "text", time.Minute, "test"))

	var n int
	_, err := c.Get("k", &n)
	assert.Error(t, err)
}

func TestCache_StatsAndCleanup(t *testing.T) {
	c, clock := newTestCache()
	require.NoError(t, c.Set("short", 1, time.Minute, "test"))
	clock.Advance(time.Second)
	require.NoError(t, c.Set("long", 2, time.Hour, "test"))
	clock.Advance(5 * time.Minute)

	stats := c.Stats()
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)
	assert.Equal(t, 1, stats.StaleEntries)
	assert.True(t, stats.OldestEntry.Before(stats.NewestEntry))
	assert.Equal(t, map[string]int{"test": 2}, stats.BySource)

	assert.Equal(t, 1, c.CleanupStale())
	assert.Equal(t, 0, c.CleanupStale(), "Nothing left to remove")

	stats = c.Stats()
	assert.Equal(t, 1, stats.TotalEntries)
	assert.Equal(t, 1, stats.FreshEntries)

	var v int
	found, err := c.Get("long", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, v)
}

func TestCache_PeriodicCleanupStopsWithContext(t *testing.T) {
	c, clock := newTestCache()
	require.NoError(t, c.Set("k", 1, time.Millisecond, "test"))
	clock.Advance(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartPeriodicCleanup(ctx, 5*time.Millisecond)

	assert.Eventually(t, func() bool {
		return c.Stats().TotalEntries == 0
	}, time.Second, 5*time.Millisecond, "Stale entry should be cleaned up")
}

func TestMetricsCache_RoundTrip(t *testing.T) {
	c, clock := newTestCache()
	mc := NewMetricsCache(c, time.Hour)

	points := geo.Sequence{{Latitude: 0, Longitude: 0}, {Latitude: 0, Longitude: 0.001}, {Latitude: 0, Longitude: 0.002}}
	elevations := profile.Floats([]float64{100, 110, 120})
	analysis, ok := slope.Analyze(points, elevations, slope.DefaultConfig())
	require.True(t, ok)
	entry := TerrainEntry{
		Metrics: slope.Summarize(analysis, slope.DefaultConfig()),
		GainM:   &analysis.GainM,
		LossM:   &analysis.LossM,
	}
	require.True(t, entry.Metrics.Computable())

	hash := ContentHash(points, elevations, slope.DefaultConfig())
	_, found, err := mc.GetTerrain(hash)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, mc.SetTerrain(hash, entry))

	got, found, err := mc.GetTerrain(hash)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entry, got)
	assert.Equal(t, 1, mc.Stats().FreshEntries)

	clock.Advance(2 * time.Hour)
	_, found, err = mc.GetTerrain(hash)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMetricsCache_NotComputableSurvivesRoundTrip(t *testing.T) {
	c, _ := newTestCache()
	mc := NewMetricsCache(c, time.Hour)

	require.NoError(t, mc.SetTerrain("h", TerrainEntry{}))
	got, found, err := mc.GetTerrain("h")
	require.NoError(t, err)
	assert.True(t, found)
	assert.False(t, got.Metrics.Computable())
	assert.Nil(t, got.GainM)
	assert.Nil(t, got.LossM)
}

func TestContentHash(t *testing.T) {
	points := geo.Sequence{{Latitude: 38.1, Longitude: -120.4}, {Latitude: 38.2, Longitude: -120.5}}
	elevations := profile.Floats([]float64{600, 650})
	cfg := slope.DefaultConfig()

	base := ContentHash(points, elevations, cfg)
	assert.Len(t, base, 64)
	assert.Equal(t, base, ContentHash(points.Clone(), profile.Floats([]float64{600, 650}), cfg), "Hash is deterministic")

	moved := points.Clone()
	moved[1].Longitude = -120.50001
	assert.NotEqual(t, base, ContentHash(moved, elevations, cfg))

	missing := profile.Channel[float64]{profile.Some(600.0), profile.None[float64]()}
	assert.NotEqual(t, base, ContentHash(points, missing, cfg))
	assert.NotEqual(t, ContentHash(points, missing, cfg), ContentHash(points, profile.Floats([]float64{600, 0}), cfg),
		"Missing differs from zero")

	cfg.MergeMinLengthM = 30
	assert.NotEqual(t, base, ContentHash(points, elevations, cfg), "Settings are part of the key")
}
