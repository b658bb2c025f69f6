// file: internal/database/store_test.go
// version: 1.0.0
// guid: 6195c4b1-7ebd-48a7-9efe-8818e8554f7c

package database

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/media-acquirer/internal/models"
)

// storeFactories runs each test against both engines.
var storeFactories = map[string]func(t *testing.T) Store{
	"pebble": func(t *testing.T) Store {
		tmpdir, err := os.MkdirTemp("", "test_pebble_")
		require.NoError(t, err)
		store, err := NewPebbleStore(tmpdir)
		require.NoError(t, err)
		t.Cleanup(func() {
			store.Close()
			os.RemoveAll(tmpdir)
		})
		return store
	},
	"sqlite": func(t *testing.T) Store {
		tmpdir := t.TempDir()
		store, err := NewSQLiteStore(filepath.Join(tmpdir, "test.db"))
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
		return store
	},
}

func forEachStore(t *testing.T, fn func(t *testing.T, store Store)) {
	for name, factory := range storeFactories {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	store, err := Open("", filepath.Join(dir, "pebble"), false)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = Open("sqlite", filepath.Join(dir, "db.sqlite"), false)
	assert.Error(t, err, "sqlite must be opted into")

	store, err = Open("sqlite3", filepath.Join(dir, "db.sqlite"), true)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = Open("mongo", dir, true)
	assert.Error(t, err)
}

func sampleProfile() *models.QualityProfile {
	return &models.QualityProfile{
		Name:      "Lossless",
		MediaType: models.MediaMusic,
		Items: []models.QualityItem{
			{ID: 1, Name: "FLAC", Allowed: true},
			{ID: 2, Name: "MP3-320", Allowed: true},
			{ID: 3, Name: "MP3-256", Allowed: false},
		},
		Cutoff:         2,
		UpgradeAllowed: true,
		MinFormatScore: 10,
	}
}

func TestProfiles(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		p := sampleProfile()
		require.NoError(t, store.SaveProfile(p))
		require.NotZero(t, p.ID)

		got, err := store.GetProfile(p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, got)

		p.Cutoff = 1
		require.NoError(t, store.SaveProfile(p))
		got, err = store.GetProfile(p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Cutoff)

		explicit := sampleProfile()
		explicit.ID = 40
		require.NoError(t, store.SaveProfile(explicit))
		next := sampleProfile()
		require.NoError(t, store.SaveProfile(next))
		assert.Greater(t, next.ID, 40)

		all, err := store.ListProfiles()
		require.NoError(t, err)
		assert.Len(t, all, 3)

		require.NoError(t, store.DeleteProfile(p.ID))
		_, err = store.GetProfile(p.ID)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestCustomFormatsAndScores(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		profile := sampleProfile()
		require.NoError(t, store.SaveProfile(profile))

		hdr := &models.CustomFormat{Name: "HDR", Specifications: []models.Specification{
			{Implementation: models.SpecContains, Value: `\bHDR\b`, Required: true},
		}}
		lq := &models.CustomFormat{Name: "LQ group", Specifications: []models.Specification{
			{Implementation: models.SpecReleaseGroup, Value: "YIFY"},
			{Implementation: models.SpecReleaseGroup, Value: "EVO"},
		}}
		require.NoError(t, store.SaveCustomFormat(hdr))
		require.NoError(t, store.SaveCustomFormat(lq))
		assert.NotEqual(t, hdr.ID, lq.ID)

		got, err := store.GetCustomFormat(lq.ID)
		require.NoError(t, err)
		assert.Equal(t, lq, got)

		require.NoError(t, store.SetFormatScore(profile.ID, hdr.ID, 50))
		require.NoError(t, store.SetFormatScore(profile.ID, lq.ID, -500))
		require.NoError(t, store.SetFormatScore(profile.ID, lq.ID, -1000))

		scored, err := store.GetProfileFormats(profile.ID)
		require.NoError(t, err)
		require.Len(t, scored, 2)
		assert.Equal(t, "HDR", scored[0].Format.Name)
		assert.Equal(t, 50, scored[0].Score)
		assert.Equal(t, -1000, scored[1].Score)

		none, err := store.GetProfileFormats(profile.ID + 100)
		require.NoError(t, err)
		assert.Empty(t, none)

		formats, err := store.ListCustomFormats()
		require.NoError(t, err)
		assert.Len(t, formats, 2)
	})
}

func blacklistEntry(id, source string, ref models.MediaRef, created time.Time) *models.BlacklistEntry {
	return &models.BlacklistEntry{
		ReleaseID:   id,
		Source:      source,
		Media:       ref,
		Title:       "Some.Release-" + id,
		Reason:      "CRC error",
		FailureType: models.FailureVerification,
		CreatedAt:   created,
		ExpiresAt:   created.Add(30 * 24 * time.Hour),
	}
}

func TestBlacklistUpsertKeepsOneEntry(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		now := time.Now().UTC()
		first := blacklistEntry("abc", "nzbgeek", models.MovieRef(7), now)
		require.NoError(t, store.UpsertBlacklistEntry(first))
		require.NotEmpty(t, first.ID)

		again := blacklistEntry("abc", "nzbgeek", models.MovieRef(7), now.Add(time.Hour))
		again.Reason = "par2 repair failed"
		require.NoError(t, store.UpsertBlacklistEntry(again))
		assert.Equal(t, first.ID, again.ID)

		all, err := store.ListBlacklist()
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "par2 repair failed", all[0].Reason)
		assert.True(t, all[0].CreatedAt.Equal(now.Add(time.Hour)))

		got, err := store.GetBlacklistEntry(models.ReleaseKey{ReleaseID: "abc", Source: "nzbgeek"})
		require.NoError(t, err)
		assert.True(t, got.Media.Equal(models.MovieRef(7)))

		// same id on another source is a different release
		require.NoError(t, store.UpsertBlacklistEntry(blacklistEntry("abc", "other", models.MovieRef(7), now)))
		all, err = store.ListBlacklist()
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestBlacklistConcurrentUpsert(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		now := time.Now().UTC()
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, store.UpsertBlacklistEntry(blacklistEntry("race", "idx", models.EpisodeRef(1), now)))
			}()
		}
		wg.Wait()

		all, err := store.ListBlacklist()
		require.NoError(t, err)
		assert.Len(t, all, 1)
		count, err := store.CountLiveBlacklist(models.EpisodeRef(1), now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestBlacklistLiveKeysAndCounts(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		now := time.Now().UTC()
		expired := blacklistEntry("old", "idx", models.AlbumRef(3), now.Add(-40*24*time.Hour))
		require.NoError(t, store.UpsertBlacklistEntry(expired))
		require.NoError(t, store.UpsertBlacklistEntry(blacklistEntry("a", "idx", models.AlbumRef(3), now)))
		require.NoError(t, store.UpsertBlacklistEntry(blacklistEntry("b", "idx", models.AlbumRef(3), now)))
		require.NoError(t, store.UpsertBlacklistEntry(blacklistEntry("c", "idx", models.BookRef(3), now)))

		keys, err := store.LiveBlacklistKeys(now)
		require.NoError(t, err)
		assert.Len(t, keys, 3)
		assert.Contains(t, keys, models.ReleaseKey{ReleaseID: "a", Source: "idx"})
		assert.NotContains(t, keys, models.ReleaseKey{ReleaseID: "old", Source: "idx"})

		count, err := store.CountLiveBlacklist(models.AlbumRef(3), now)
		require.NoError(t, err)
		assert.Equal(t, 2, count, "expired entries and other media kinds do not count")

		// moving an entry to another media item updates the per-media count
		moved := blacklistEntry("b", "idx", models.BookRef(3), now)
		require.NoError(t, store.UpsertBlacklistEntry(moved))
		count, err = store.CountLiveBlacklist(models.AlbumRef(3), now)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		count, err = store.CountLiveBlacklist(models.BookRef(3), now)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestBlacklistDeleteAndSweep(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		now := time.Now().UTC()
		require.NoError(t, store.UpsertBlacklistEntry(blacklistEntry("old1", "idx", models.MovieRef(1), now.Add(-31*24*time.Hour))))
		require.NoError(t, store.UpsertBlacklistEntry(blacklistEntry("old2", "idx", models.MovieRef(1), now.Add(-60*24*time.Hour))))
		require.NoError(t, store.UpsertBlacklistEntry(blacklistEntry("new", "idx", models.MovieRef(1), now)))

		removed, err := store.DeleteExpiredBlacklist(now)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		removed, err = store.DeleteExpiredBlacklist(now)
		require.NoError(t, err)
		assert.Equal(t, 0, removed)

		key := models.ReleaseKey{ReleaseID: "new", Source: "idx"}
		require.NoError(t, store.DeleteBlacklistEntry(key))
		_, err = store.GetBlacklistEntry(key)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, store.DeleteBlacklistEntry(key), ErrNotFound)

		count, err := store.CountLiveBlacklist(models.MovieRef(1), now)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}

func TestDownloadJobs(t *testing.T) {
	forEachStore(t, func(t *testing.T, store Store) {
		job := &models.DownloadJob{
			Backend:     "seedbox",
			Handle:      "c0ffee",
			ReleaseID:   "abc",
			Source:      "tracker",
			Media:       models.EpisodeRef(12),
			Title:       "Show.S01E02.720p.HDTV.x264-LOL",
			QualityName: "HDTV-720p",
			Status:      models.JobQueued,
			Size:        1 << 30,
			ETA:         90 * time.Second,
		}
		require.NoError(t, store.SaveJob(job))
		require.NotEmpty(t, job.ID)
		require.False(t, job.AddedAt.IsZero())

		got, err := store.GetJob(job.ID)
		require.NoError(t, err)
		assert.Equal(t, job.Title, got.Title)
		assert.Equal(t, 90*time.Second, got.ETA)
		assert.True(t, got.Media.Equal(models.EpisodeRef(12)))

		byHandle, err := store.GetJobByHandle("seedbox", "c0ffee")
		require.NoError(t, err)
		assert.Equal(t, job.ID, byHandle.ID)

		job.Status = models.JobDownloading
		job.Progress = 0.5
		job.BytesDone = 1 << 29
		require.NoError(t, store.SaveJob(job))

		done := &models.DownloadJob{Backend: "seedbox", Handle: "d00d", Status: models.JobCompleted, Media: models.MovieRef(1)}
		require.NoError(t, store.SaveJob(done))

		active, err := store.ListJobs(true)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, models.JobDownloading, active[0].Status)
		assert.InDelta(t, 0.5, active[0].Progress, 0.0001)

		all, err := store.ListJobs(false)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		_, err = store.GetJob("missing")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = store.GetJobByHandle("seedbox", "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
