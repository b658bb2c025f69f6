// file: internal/blacklist/governor_test.go
// version: 1.0.0
// guid: c63f3a3c-93e7-4744-90a9-5afec73b76c1

package blacklist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/media-acquirer/internal/database"
	"github.com/jdfalk/media-acquirer/internal/models"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func setupGovernor(t *testing.T, opts ...Option) (*Governor, *clock) {
	t.Helper()
	store, err := database.NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	c := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(c.Now)}, opts...)
	return New(store, opts...), c
}

func entry(id, source string, ref models.MediaRef, reason string) models.BlacklistEntry {
	return models.BlacklistEntry{ReleaseID: id, Source: source, Media: ref, Reason: reason}
}

func TestBlacklistSetsExpiryAndFailureType(t *testing.T) {
	g, c := setupGovernor(t)
	ctx := context.Background()

	e, err := g.Blacklist(ctx, entry("abc", "nzbgeek", models.MovieRef(1), "CRC error in archive"))
	require.NoError(t, err)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, models.FailureVerification, e.FailureType)
	assert.Equal(t, c.now, e.CreatedAt)
	assert.Equal(t, c.now.Add(30*24*time.Hour), e.ExpiresAt)
}

func TestBlacklistRejectsBadMediaRef(t *testing.T) {
	g, _ := setupGovernor(t)
	ctx := context.Background()

	_, err := g.Blacklist(ctx, entry("abc", "idx", models.MediaRef{}, "crc"))
	assert.ErrorIs(t, err, ErrInvalidMediaRef)

	movie, episode := int64(1), int64(2)
	_, err = g.Blacklist(ctx, entry("abc", "idx", models.MediaRef{MovieID: &movie, EpisodeID: &episode}, "crc"))
	assert.ErrorIs(t, err, ErrInvalidMediaRef)

	_, err = g.HasExceededRetries(ctx, models.MediaRef{})
	assert.ErrorIs(t, err, ErrInvalidMediaRef)
}

func TestReblacklistRefreshesSingleEntry(t *testing.T) {
	g, c := setupGovernor(t)
	ctx := context.Background()

	first, err := g.Blacklist(ctx, entry("abc", "idx", models.MovieRef(1), "CRC error"))
	require.NoError(t, err)

	c.now = c.now.Add(10 * 24 * time.Hour)
	second, err := g.Blacklist(ctx, entry("abc", "idx", models.MovieRef(1), "unpack failed"))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	entries, err := g.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.FailureExtraction, entries[0].FailureType)
	assert.True(t, entries[0].ExpiresAt.Equal(c.now.Add(DefaultWindow)))
}

func TestIsBlacklistedLifecycle(t *testing.T) {
	g, c := setupGovernor(t)
	ctx := context.Background()
	key := models.ReleaseKey{ReleaseID: "abc", Source: "idx"}

	ok, err := g.IsBlacklisted(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = g.Blacklist(ctx, entry("abc", "idx", models.EpisodeRef(5), "corrupt"))
	require.NoError(t, err)
	ok, err = g.IsBlacklisted(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	c.now = c.now.Add(DefaultWindow)
	ok, err = g.IsBlacklisted(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "entry expires after the window")

	n, err := g.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRemove(t *testing.T) {
	g, _ := setupGovernor(t)
	ctx := context.Background()
	key := models.ReleaseKey{ReleaseID: "abc", Source: "idx"}

	_, err := g.Blacklist(ctx, entry("abc", "idx", models.BookRef(9), "password protected"))
	require.NoError(t, err)
	require.NoError(t, g.Remove(ctx, key))

	ok, err := g.IsBlacklisted(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, errors.Is(g.Remove(ctx, key), database.ErrNotFound))
}

func TestFilterBlacklisted(t *testing.T) {
	g, c := setupGovernor(t)
	ctx := context.Background()

	_, err := g.Blacklist(ctx, entry("1", "idx", models.MovieRef(1), "crc"))
	require.NoError(t, err)
	_, err = g.Blacklist(ctx, entry("2", "other", models.MovieRef(1), "crc"))
	require.NoError(t, err)

	c.now = c.now.Add(-40 * 24 * time.Hour)
	_, err = g.Blacklist(ctx, entry("3", "idx", models.MovieRef(1), "crc"))
	require.NoError(t, err)
	c.now = c.now.Add(40 * 24 * time.Hour)

	candidates := []models.Candidate{
		{GUID: "1", Source: "idx"},   // live
		{GUID: "2", Source: "idx"},   // blacklisted on another source only
		{GUID: "2", Source: "other"}, // live
		{GUID: "3", Source: "idx"},   // expired
		{GUID: "4", Source: "idx"},
	}
	kept, err := g.FilterBlacklisted(ctx, candidates)
	require.NoError(t, err)

	var got []string
	for _, k := range kept {
		got = append(got, k.Key().String())
	}
	assert.Equal(t, []string{"idx/2", "idx/3", "idx/4"}, got)
}

func TestHasExceededRetries(t *testing.T) {
	g, c := setupGovernor(t)
	ctx := context.Background()
	ref := models.AlbumRef(42)

	for i, id := range []string{"a", "b"} {
		_, err := g.Blacklist(ctx, entry(id, "idx", ref, "crc"))
		require.NoError(t, err, i)
	}
	exceeded, err := g.HasExceededRetries(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exceeded)

	// a refresh of an existing release does not count twice
	_, err = g.Blacklist(ctx, entry("a", "idx", ref, "crc again"))
	require.NoError(t, err)
	exceeded, err = g.HasExceededRetries(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exceeded)

	_, err = g.Blacklist(ctx, entry("c", "idx", ref, "crc"))
	require.NoError(t, err)
	exceeded, err = g.HasExceededRetries(ctx, ref)
	require.NoError(t, err)
	assert.True(t, exceeded)

	other, err := g.HasExceededRetries(ctx, models.BookRef(42))
	require.NoError(t, err)
	assert.False(t, other, "the cap is per media item")

	c.now = c.now.Add(DefaultWindow + time.Minute)
	exceeded, err = g.HasExceededRetries(ctx, ref)
	require.NoError(t, err)
	assert.False(t, exceeded, "expired entries free the item again")
}

func TestConfigurableLimits(t *testing.T) {
	g, _ := setupGovernor(t, WithMaxRetries(1), WithWindow(time.Hour))
	ctx := context.Background()
	assert.Equal(t, time.Hour, g.Window())

	e, err := g.Blacklist(ctx, entry("a", "idx", models.MovieRef(1), "crc"))
	require.NoError(t, err)
	assert.Equal(t, e.CreatedAt.Add(time.Hour), e.ExpiresAt)

	exceeded, err := g.HasExceededRetries(ctx, models.MovieRef(1))
	require.NoError(t, err)
	assert.True(t, exceeded)
}

func TestCanceledContext(t *testing.T) {
	g, _ := setupGovernor(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.FilterBlacklisted(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = g.Blacklist(ctx, entry("a", "idx", models.MovieRef(1), "crc"))
	assert.ErrorIs(t, err, context.Canceled)
}
