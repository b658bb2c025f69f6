// file: internal/database/pebble_store.go
// version: 2.0.0
// guid: 97f37256-6b25-4f2e-a82e-f6de7277cfab

package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble/v2"

	"github.com/jdfalk/media-acquirer/internal/models"
)

// PebbleStore implements the Store interface using PebbleDB (LSM key-value store)
//
// Key Schema:
// - profile:<id>                         -> QualityProfile JSON
// - format:<id>                          -> CustomFormat JSON
// - formatscore:<profile_id>:<format_id> -> score
// - blacklist:<source>/<release_id>      -> BlacklistEntry JSON (path-escaped parts)
// - blacklistmedia:<kind>:<id>:<key>     -> "" (per-media index)
// - job:<id>                             -> DownloadJob JSON
// - jobhandle:<backend>:<handle>         -> job_id
// - counter:profile                      -> next profile ID
// - counter:format                       -> next custom format ID
type PebbleStore struct {
	db *pebble.DB
	// serializes counter read-modify-write
	counterMu sync.Mutex
}

// NewPebbleStore creates a new PebbleDB store
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}

	store := &PebbleStore{db: db}

	// Initialize counters if they don't exist
	for _, counter := range []string{"profile", "format"} {
		key := fmt.Sprintf("counter:%s", counter)
		if _, closer, err := db.Get([]byte(key)); errors.Is(err, pebble.ErrNotFound) {
			if err := db.Set([]byte(key), []byte("1"), pebble.Sync); err != nil {
				db.Close()
				return nil, fmt.Errorf("failed to initialize counter %s: %w", counter, err)
			}
		} else if err == nil {
			closer.Close()
		} else {
			db.Close()
			return nil, fmt.Errorf("failed to check counter %s: %w", counter, err)
		}
	}

	return store, nil
}

// Close closes the database
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

// Helper functions

func (p *PebbleStore) nextID(counter string) (int, error) {
	p.counterMu.Lock()
	defer p.counterMu.Unlock()

	key := []byte(fmt.Sprintf("counter:%s", counter))
	value, closer, err := p.db.Get(key)
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(string(value))
	closer.Close()
	if err != nil {
		return 0, err
	}

	if err := p.db.Set(key, []byte(strconv.Itoa(id+1)), pebble.Sync); err != nil {
		return 0, err
	}
	return id, nil
}

// bumpCounter keeps the counter ahead of explicitly chosen ids.
func (p *PebbleStore) bumpCounter(counter string, id int) error {
	p.counterMu.Lock()
	defer p.counterMu.Unlock()

	key := []byte(fmt.Sprintf("counter:%s", counter))
	value, closer, err := p.db.Get(key)
	if err != nil {
		return err
	}
	next, err := strconv.Atoi(string(value))
	closer.Close()
	if err != nil {
		return err
	}
	if id < next {
		return nil
	}
	return p.db.Set(key, []byte(strconv.Itoa(id+1)), pebble.Sync)
}

// getJSON loads key into v, returning ErrNotFound when absent.
func (p *PebbleStore) getJSON(key []byte, v any) error {
	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	defer closer.Close()
	return json.Unmarshal(value, v)
}

// scan visits every key with the given prefix.
func (p *PebbleStore) scan(prefix string, fn func(key, value []byte) error) error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixUpperBound([]byte(prefix)),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func prefixUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func profileKey(id int) []byte { return []byte(fmt.Sprintf("profile:%010d", id)) }
func formatKey(id int) []byte  { return []byte(fmt.Sprintf("format:%010d", id)) }
func formatScoreKey(profileID, formatID int) []byte {
	return []byte(fmt.Sprintf("formatscore:%010d:%010d", profileID, formatID))
}

func blacklistKeyPart(key models.ReleaseKey) string {
	return url.PathEscape(key.Source) + "/" + url.PathEscape(key.ReleaseID)
}
func blacklistKey(key models.ReleaseKey) []byte {
	return []byte("blacklist:" + blacklistKeyPart(key))
}
func mediaPrefix(ref models.MediaRef) string {
	return fmt.Sprintf("blacklistmedia:%s:%d:", ref.Kind(), ref.ID())
}
func jobKey(id string) []byte { return []byte("job:" + id) }
func jobHandleKey(backend, handle string) []byte {
	return []byte("jobhandle:" + url.PathEscape(backend) + ":" + handle)
}

// Quality profile operations

func (p *PebbleStore) ListProfiles() ([]models.QualityProfile, error) {
	var profiles []models.QualityProfile
	err := p.scan("profile:", func(_, value []byte) error {
		var profile models.QualityProfile
		if err := json.Unmarshal(value, &profile); err != nil {
			return err
		}
		profiles = append(profiles, profile)
		return nil
	})
	return profiles, err
}

func (p *PebbleStore) GetProfile(id int) (*models.QualityProfile, error) {
	var profile models.QualityProfile
	if err := p.getJSON(profileKey(id), &profile); err != nil {
		return nil, fmt.Errorf("profile %d: %w", id, err)
	}
	return &profile, nil
}

func (p *PebbleStore) SaveProfile(profile *models.QualityProfile) error {
	if profile.ID == 0 {
		id, err := p.nextID("profile")
		if err != nil {
			return err
		}
		profile.ID = id
	} else if err := p.bumpCounter("profile", profile.ID); err != nil {
		return err
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return p.db.Set(profileKey(profile.ID), data, pebble.Sync)
}

func (p *PebbleStore) DeleteProfile(id int) error {
	batch := p.db.NewBatch()
	defer batch.Close()

	if err := batch.Delete(profileKey(id), nil); err != nil {
		return err
	}
	prefix := fmt.Sprintf("formatscore:%010d:", id)
	if err := batch.DeleteRange([]byte(prefix), prefixUpperBound([]byte(prefix)), nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

// Custom format operations

func (p *PebbleStore) ListCustomFormats() ([]models.CustomFormat, error) {
	var formats []models.CustomFormat
	err := p.scan("format:", func(_, value []byte) error {
		var format models.CustomFormat
		if err := json.Unmarshal(value, &format); err != nil {
			return err
		}
		formats = append(formats, format)
		return nil
	})
	return formats, err
}

func (p *PebbleStore) GetCustomFormat(id int) (*models.CustomFormat, error) {
	var format models.CustomFormat
	if err := p.getJSON(formatKey(id), &format); err != nil {
		return nil, fmt.Errorf("custom format %d: %w", id, err)
	}
	return &format, nil
}

func (p *PebbleStore) SaveCustomFormat(format *models.CustomFormat) error {
	if format.ID == 0 {
		id, err := p.nextID("format")
		if err != nil {
			return err
		}
		format.ID = id
	} else if err := p.bumpCounter("format", format.ID); err != nil {
		return err
	}

	data, err := json.Marshal(format)
	if err != nil {
		return err
	}
	return p.db.Set(formatKey(format.ID), data, pebble.Sync)
}

func (p *PebbleStore) SetFormatScore(profileID, formatID, score int) error {
	return p.db.Set(formatScoreKey(profileID, formatID), []byte(strconv.Itoa(score)), pebble.Sync)
}

func (p *PebbleStore) GetProfileFormats(profileID int) ([]models.ScoredFormat, error) {
	scores := map[int]int{}
	prefix := fmt.Sprintf("formatscore:%010d:", profileID)
	err := p.scan(prefix, func(key, value []byte) error {
		formatID, err := strconv.Atoi(strings.TrimPrefix(string(key), prefix))
		if err != nil {
			return err
		}
		score, err := strconv.Atoi(string(value))
		if err != nil {
			return err
		}
		scores[formatID] = score
		return nil
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	scored := make([]models.ScoredFormat, 0, len(ids))
	for _, id := range ids {
		format, err := p.GetCustomFormat(id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		scored = append(scored, models.ScoredFormat{Format: *format, Score: scores[id]})
	}
	return scored, nil
}

// Blacklist operations

func (p *PebbleStore) GetBlacklistEntry(key models.ReleaseKey) (*models.BlacklistEntry, error) {
	var entry models.BlacklistEntry
	if err := p.getJSON(blacklistKey(key), &entry); err != nil {
		return nil, fmt.Errorf("blacklist entry %s: %w", key, err)
	}
	return &entry, nil
}

// UpsertBlacklistEntry writes the entry under its release key. Concurrent
// upserts of the same key converge on one record; the last write wins.
func (p *PebbleStore) UpsertBlacklistEntry(entry *models.BlacklistEntry) error {
	existing, err := p.GetBlacklistEntry(entry.Key())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := prepareBlacklistEntry(entry, existing); err != nil {
		return err
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	if existing != nil && !existing.Media.Equal(entry.Media) {
		if err := batch.Delete([]byte(mediaPrefix(existing.Media)+blacklistKeyPart(existing.Key())), nil); err != nil {
			return err
		}
	}
	if err := batch.Set(blacklistKey(entry.Key()), data, nil); err != nil {
		return err
	}
	if err := batch.Set([]byte(mediaPrefix(entry.Media)+blacklistKeyPart(entry.Key())), nil, nil); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleStore) ListBlacklist() ([]models.BlacklistEntry, error) {
	var entries []models.BlacklistEntry
	err := p.scan("blacklist:", func(_, value []byte) error {
		var entry models.BlacklistEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return err
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

func (p *PebbleStore) LiveBlacklistKeys(now time.Time) (map[models.ReleaseKey]struct{}, error) {
	keys := make(map[models.ReleaseKey]struct{})
	err := p.scan("blacklist:", func(_, value []byte) error {
		var entry models.BlacklistEntry
		if err := json.Unmarshal(value, &entry); err != nil {
			return err
		}
		if entry.Live(now) {
			keys[entry.Key()] = struct{}{}
		}
		return nil
	})
	return keys, err
}

func (p *PebbleStore) CountLiveBlacklist(ref models.MediaRef, now time.Time) (int, error) {
	prefix := mediaPrefix(ref)
	count := 0
	err := p.scan(prefix, func(key, _ []byte) error {
		var entry models.BlacklistEntry
		err := p.getJSON([]byte("blacklist:"+strings.TrimPrefix(string(key), prefix)), &entry)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if entry.Live(now) && entry.Media.Equal(ref) {
			count++
		}
		return nil
	})
	return count, err
}

func (p *PebbleStore) deleteEntry(batch *pebble.Batch, entry models.BlacklistEntry) error {
	if err := batch.Delete(blacklistKey(entry.Key()), nil); err != nil {
		return err
	}
	return batch.Delete([]byte(mediaPrefix(entry.Media)+blacklistKeyPart(entry.Key())), nil)
}

func (p *PebbleStore) DeleteBlacklistEntry(key models.ReleaseKey) error {
	entry, err := p.GetBlacklistEntry(key)
	if err != nil {
		return err
	}
	batch := p.db.NewBatch()
	defer batch.Close()
	if err := p.deleteEntry(batch, *entry); err != nil {
		return err
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleStore) DeleteExpiredBlacklist(now time.Time) (int, error) {
	entries, err := p.ListBlacklist()
	if err != nil {
		return 0, err
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	removed := 0
	for _, entry := range entries {
		if entry.Live(now) {
			continue
		}
		if err := p.deleteEntry(batch, entry); err != nil {
			return 0, err
		}
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, err
	}
	return removed, nil
}

// Download job operations

func (p *PebbleStore) SaveJob(job *models.DownloadJob) error {
	var previous *models.DownloadJob
	if job.ID != "" {
		if existing, err := p.GetJob(job.ID); err == nil {
			previous = existing
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	if err := prepareJob(job); err != nil {
		return err
	}

	data, err := json.Marshal(job)
	if err != nil {
		return err
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	if previous != nil && previous.Handle != "" &&
		(previous.Handle != job.Handle || previous.Backend != job.Backend) {
		if err := batch.Delete(jobHandleKey(previous.Backend, previous.Handle), nil); err != nil {
			return err
		}
	}
	if err := batch.Set(jobKey(job.ID), data, nil); err != nil {
		return err
	}
	if job.Handle != "" {
		if err := batch.Set(jobHandleKey(job.Backend, job.Handle), []byte(job.ID), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

func (p *PebbleStore) GetJob(id string) (*models.DownloadJob, error) {
	var job models.DownloadJob
	if err := p.getJSON(jobKey(id), &job); err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	return &job, nil
}

func (p *PebbleStore) GetJobByHandle(backend, handle string) (*models.DownloadJob, error) {
	value, closer, err := p.db.Get(jobHandleKey(backend, handle))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("job %s/%s: %w", backend, handle, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	id := string(value)
	closer.Close()
	return p.GetJob(id)
}

func (p *PebbleStore) ListJobs(activeOnly bool) ([]models.DownloadJob, error) {
	var jobs []models.DownloadJob
	err := p.scan("job:", func(_, value []byte) error {
		var job models.DownloadJob
		if err := json.Unmarshal(value, &job); err != nil {
			return err
		}
		if activeOnly && job.Status.Terminal() {
			return nil
		}
		jobs = append(jobs, job)
		return nil
	})
	return jobs, err
}
