// file: internal/database/store.go
// version: 3.0.0
// guid: 8f51c258-7af0-4237-8c1c-172c2170460e

package database

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	ulid "github.com/oklog/ulid/v2"

	"github.com/jdfalk/media-acquirer/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for our database operations
// This abstraction allows us to support both PebbleDB (default) and SQLite3 (opt-in)
type Store interface {
	// Lifecycle
	Close() error

	// Quality profiles
	ListProfiles() ([]models.QualityProfile, error)
	GetProfile(id int) (*models.QualityProfile, error)
	SaveProfile(profile *models.QualityProfile) error // assigns an ID when zero
	DeleteProfile(id int) error

	// Custom formats and their per-profile scores
	ListCustomFormats() ([]models.CustomFormat, error)
	GetCustomFormat(id int) (*models.CustomFormat, error)
	SaveCustomFormat(format *models.CustomFormat) error // assigns an ID when zero
	SetFormatScore(profileID, formatID, score int) error
	GetProfileFormats(profileID int) ([]models.ScoredFormat, error)

	// Blacklist, keyed by (release id, source)
	UpsertBlacklistEntry(entry *models.BlacklistEntry) error // keeps the existing ID on refresh
	GetBlacklistEntry(key models.ReleaseKey) (*models.BlacklistEntry, error)
	ListBlacklist() ([]models.BlacklistEntry, error)
	LiveBlacklistKeys(now time.Time) (map[models.ReleaseKey]struct{}, error)
	CountLiveBlacklist(ref models.MediaRef, now time.Time) (int, error)
	DeleteBlacklistEntry(key models.ReleaseKey) error
	DeleteExpiredBlacklist(now time.Time) (int, error)

	// Download jobs
	SaveJob(job *models.DownloadJob) error // assigns a ULID when empty
	GetJob(id string) (*models.DownloadJob, error)
	GetJobByHandle(backend, handle string) (*models.DownloadJob, error)
	ListJobs(activeOnly bool) ([]models.DownloadJob, error)
}

// Open initializes a store based on configuration
func Open(dbType, path string, enableSQLite bool) (Store, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		if !enableSQLite {
			return nil, fmt.Errorf("SQLite3 is not enabled. To use SQLite3, set 'enable_sqlite3: true' in your config file. PebbleDB is the recommended database")
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return store, nil
	case "pebble", "":
		// PebbleDB is the default
		store, err := NewPebbleStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PebbleDB store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: pebble, sqlite)", dbType)
	}
}

func newULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(time.Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// prepareBlacklistEntry validates an entry and fills its ID.
func prepareBlacklistEntry(entry *models.BlacklistEntry, existing *models.BlacklistEntry) error {
	if entry.ReleaseID == "" || entry.Source == "" {
		return fmt.Errorf("blacklist entry needs release id and source")
	}
	if existing != nil {
		entry.ID = existing.ID
	}
	if entry.ID == "" {
		id, err := newULID()
		if err != nil {
			return err
		}
		entry.ID = id
	}
	return nil
}

func prepareJob(job *models.DownloadJob) error {
	if job.ID == "" {
		id, err := newULID()
		if err != nil {
			return err
		}
		job.ID = id
	}
	now := time.Now().UTC()
	if job.AddedAt.IsZero() {
		job.AddedAt = now
	}
	job.UpdatedAt = now
	return nil
}
