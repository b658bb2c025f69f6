// file: internal/database/sqlite_store.go
// version: 2.0.0
// guid: 9bccd722-11af-42e2-9c57-017529a01ce5

package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jdfalk/media-acquirer/internal/models"
)

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// SQLiteStore implements the Store interface using SQLite3
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db}

	// Create tables
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// createTables creates all required tables. Timestamps are stored as unix
// nanoseconds so expiry comparisons stay in SQL.
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS quality_profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		media_type TEXT NOT NULL,
		items TEXT NOT NULL,
		cutoff INTEGER NOT NULL,
		upgrade_allowed INTEGER NOT NULL DEFAULT 0,
		min_format_score INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS custom_formats (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		specifications TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profile_format_scores (
		profile_id INTEGER NOT NULL,
		format_id INTEGER NOT NULL,
		score INTEGER NOT NULL,
		PRIMARY KEY (profile_id, format_id)
	);

	CREATE TABLE IF NOT EXISTS blacklist (
		id TEXT NOT NULL,
		release_id TEXT NOT NULL,
		source TEXT NOT NULL,
		media_kind TEXT NOT NULL,
		media_id INTEGER NOT NULL,
		title TEXT,
		reason TEXT,
		failure_type TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		PRIMARY KEY (release_id, source)
	);

	CREATE INDEX IF NOT EXISTS idx_blacklist_media ON blacklist(media_kind, media_id);
	CREATE INDEX IF NOT EXISTS idx_blacklist_expires ON blacklist(expires_at);

	CREATE TABLE IF NOT EXISTS download_jobs (
		id TEXT PRIMARY KEY,
		backend TEXT NOT NULL,
		handle TEXT,
		release_id TEXT,
		source TEXT,
		media_kind TEXT,
		media_id INTEGER,
		title TEXT,
		quality_name TEXT,
		status TEXT NOT NULL,
		size INTEGER,
		bytes_done INTEGER,
		progress REAL,
		download_rate INTEGER,
		upload_rate INTEGER,
		eta_seconds INTEGER,
		save_path TEXT,
		error_message TEXT,
		added_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_download_jobs_handle ON download_jobs(backend, handle);
	CREATE INDEX IF NOT EXISTS idx_download_jobs_status ON download_jobs(status);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return err
}

// Quality profile operations

const profileColumns = `id, name, media_type, items, cutoff, upgrade_allowed, min_format_score`

func scanProfile(scanner rowScanner) (*models.QualityProfile, error) {
	var (
		profile models.QualityProfile
		items   string
	)
	if err := scanner.Scan(&profile.ID, &profile.Name, &profile.MediaType, &items,
		&profile.Cutoff, &profile.UpgradeAllowed, &profile.MinFormatScore); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(items), &profile.Items); err != nil {
		return nil, fmt.Errorf("decode profile items: %w", err)
	}
	return &profile, nil
}

func (s *SQLiteStore) ListProfiles() ([]models.QualityProfile, error) {
	rows, err := s.db.Query("SELECT " + profileColumns + " FROM quality_profiles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []models.QualityProfile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

func (s *SQLiteStore) GetProfile(id int) (*models.QualityProfile, error) {
	profile, err := scanProfile(s.db.QueryRow("SELECT "+profileColumns+" FROM quality_profiles WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("profile %d", id))
	}
	return profile, nil
}

func (s *SQLiteStore) SaveProfile(profile *models.QualityProfile) error {
	items, err := json.Marshal(profile.Items)
	if err != nil {
		return err
	}

	if profile.ID == 0 {
		result, err := s.db.Exec(
			`INSERT INTO quality_profiles (name, media_type, items, cutoff, upgrade_allowed, min_format_score)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			profile.Name, profile.MediaType, string(items), profile.Cutoff, profile.UpgradeAllowed, profile.MinFormatScore,
		)
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		profile.ID = int(id)
		return nil
	}

	_, err = s.db.Exec(
		`INSERT INTO quality_profiles (id, name, media_type, items, cutoff, upgrade_allowed, min_format_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, media_type = excluded.media_type,
		   items = excluded.items, cutoff = excluded.cutoff, upgrade_allowed = excluded.upgrade_allowed,
		   min_format_score = excluded.min_format_score`,
		profile.ID, profile.Name, profile.MediaType, string(items), profile.Cutoff, profile.UpgradeAllowed, profile.MinFormatScore,
	)
	return err
}

func (s *SQLiteStore) DeleteProfile(id int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM quality_profiles WHERE id = ?", id); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM profile_format_scores WHERE profile_id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// Custom format operations

func scanFormat(scanner rowScanner) (*models.CustomFormat, error) {
	var (
		format models.CustomFormat
		specs  string
	)
	if err := scanner.Scan(&format.ID, &format.Name, &specs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(specs), &format.Specifications); err != nil {
		return nil, fmt.Errorf("decode specifications: %w", err)
	}
	return &format, nil
}

func (s *SQLiteStore) ListCustomFormats() ([]models.CustomFormat, error) {
	rows, err := s.db.Query("SELECT id, name, specifications FROM custom_formats ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var formats []models.CustomFormat
	for rows.Next() {
		format, err := scanFormat(rows)
		if err != nil {
			return nil, err
		}
		formats = append(formats, *format)
	}
	return formats, rows.Err()
}

func (s *SQLiteStore) GetCustomFormat(id int) (*models.CustomFormat, error) {
	format, err := scanFormat(s.db.QueryRow("SELECT id, name, specifications FROM custom_formats WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("custom format %d", id))
	}
	return format, nil
}

func (s *SQLiteStore) SaveCustomFormat(format *models.CustomFormat) error {
	specs, err := json.Marshal(format.Specifications)
	if err != nil {
		return err
	}

	if format.ID == 0 {
		result, err := s.db.Exec("INSERT INTO custom_formats (name, specifications) VALUES (?, ?)", format.Name, string(specs))
		if err != nil {
			return err
		}
		id, err := result.LastInsertId()
		if err != nil {
			return err
		}
		format.ID = int(id)
		return nil
	}

	_, err = s.db.Exec(
		`INSERT INTO custom_formats (id, name, specifications) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, specifications = excluded.specifications`,
		format.ID, format.Name, string(specs),
	)
	return err
}

func (s *SQLiteStore) SetFormatScore(profileID, formatID, score int) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO profile_format_scores (profile_id, format_id, score) VALUES (?, ?, ?)",
		profileID, formatID, score,
	)
	return err
}

func (s *SQLiteStore) GetProfileFormats(profileID int) ([]models.ScoredFormat, error) {
	rows, err := s.db.Query(
		`SELECT f.id, f.name, f.specifications, ps.score
		 FROM profile_format_scores ps
		 JOIN custom_formats f ON f.id = ps.format_id
		 WHERE ps.profile_id = ?
		 ORDER BY f.id`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scored := []models.ScoredFormat{}
	for rows.Next() {
		var (
			sf    models.ScoredFormat
			specs string
		)
		if err := rows.Scan(&sf.Format.ID, &sf.Format.Name, &specs, &sf.Score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(specs), &sf.Format.Specifications); err != nil {
			return nil, fmt.Errorf("decode specifications: %w", err)
		}
		scored = append(scored, sf)
	}
	return scored, rows.Err()
}

// Blacklist operations

const blacklistColumns = `id, release_id, source, media_kind, media_id, title, reason, failure_type, created_at, expires_at`

func scanBlacklistEntry(scanner rowScanner) (*models.BlacklistEntry, error) {
	var (
		entry            models.BlacklistEntry
		kind             string
		mediaID          int64
		title, reason    sql.NullString
		created, expires int64
	)
	if err := scanner.Scan(&entry.ID, &entry.ReleaseID, &entry.Source, &kind, &mediaID,
		&title, &reason, &entry.FailureType, &created, &expires); err != nil {
		return nil, err
	}
	entry.Media = models.NewMediaRef(kind, mediaID)
	entry.Title = title.String
	entry.Reason = reason.String
	entry.CreatedAt = fromNanos(created)
	entry.ExpiresAt = fromNanos(expires)
	return &entry, nil
}

func (s *SQLiteStore) GetBlacklistEntry(key models.ReleaseKey) (*models.BlacklistEntry, error) {
	entry, err := scanBlacklistEntry(s.db.QueryRow(
		"SELECT "+blacklistColumns+" FROM blacklist WHERE release_id = ? AND source = ?",
		key.ReleaseID, key.Source,
	))
	if err != nil {
		return nil, notFound(err, "blacklist entry "+key.String())
	}
	return entry, nil
}

// UpsertBlacklistEntry inserts or refreshes the entry for its release key.
// The conflict clause keeps the original id so a refresh never duplicates.
func (s *SQLiteStore) UpsertBlacklistEntry(entry *models.BlacklistEntry) error {
	existing, err := s.GetBlacklistEntry(entry.Key())
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err := prepareBlacklistEntry(entry, existing); err != nil {
		return err
	}

	_, err = s.db.Exec(
		`INSERT INTO blacklist (`+blacklistColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(release_id, source) DO UPDATE SET
		   media_kind = excluded.media_kind, media_id = excluded.media_id, title = excluded.title,
		   reason = excluded.reason, failure_type = excluded.failure_type,
		   created_at = excluded.created_at, expires_at = excluded.expires_at`,
		entry.ID, entry.ReleaseID, entry.Source, entry.Media.Kind(), entry.Media.ID(),
		entry.Title, entry.Reason, entry.FailureType, toNanos(entry.CreatedAt), toNanos(entry.ExpiresAt),
	)
	if err != nil {
		return err
	}
	// a concurrent first insert may have won the race; report the stored id
	stored, err := s.GetBlacklistEntry(entry.Key())
	if err != nil {
		return err
	}
	entry.ID = stored.ID
	return nil
}

func (s *SQLiteStore) ListBlacklist() ([]models.BlacklistEntry, error) {
	rows, err := s.db.Query("SELECT " + blacklistColumns + " FROM blacklist ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.BlacklistEntry
	for rows.Next() {
		entry, err := scanBlacklistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) LiveBlacklistKeys(now time.Time) (map[models.ReleaseKey]struct{}, error) {
	rows, err := s.db.Query("SELECT release_id, source FROM blacklist WHERE expires_at > ?", toNanos(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	keys := make(map[models.ReleaseKey]struct{})
	for rows.Next() {
		var key models.ReleaseKey
		if err := rows.Scan(&key.ReleaseID, &key.Source); err != nil {
			return nil, err
		}
		keys[key] = struct{}{}
	}
	return keys, rows.Err()
}

func (s *SQLiteStore) CountLiveBlacklist(ref models.MediaRef, now time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM blacklist WHERE media_kind = ? AND media_id = ? AND expires_at > ?",
		ref.Kind(), ref.ID(), toNanos(now),
	).Scan(&count)
	return count, err
}

func (s *SQLiteStore) DeleteBlacklistEntry(key models.ReleaseKey) error {
	result, err := s.db.Exec("DELETE FROM blacklist WHERE release_id = ? AND source = ?", key.ReleaseID, key.Source)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("blacklist entry %s: %w", key, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) DeleteExpiredBlacklist(now time.Time) (int, error) {
	result, err := s.db.Exec("DELETE FROM blacklist WHERE expires_at <= ?", toNanos(now))
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	return int(n), err
}

// Download job operations

const jobColumns = `id, backend, handle, release_id, source, media_kind, media_id, title, quality_name,
	status, size, bytes_done, progress, download_rate, upload_rate, eta_seconds, save_path, error_message,
	added_at, updated_at`

func scanJob(scanner rowScanner) (*models.DownloadJob, error) {
	var (
		job                                    models.DownloadJob
		handle, releaseID, source, kind        sql.NullString
		title, qualityName, savePath, errorMsg sql.NullString
		mediaID, size, bytesDone, down, up     sql.NullInt64
		eta                                    sql.NullInt64
		progress                               sql.NullFloat64
		added, updated                         int64
	)
	if err := scanner.Scan(&job.ID, &job.Backend, &handle, &releaseID, &source, &kind, &mediaID,
		&title, &qualityName, &job.Status, &size, &bytesDone, &progress, &down, &up, &eta,
		&savePath, &errorMsg, &added, &updated); err != nil {
		return nil, err
	}
	job.Handle = handle.String
	job.ReleaseID = releaseID.String
	job.Source = source.String
	job.Media = models.NewMediaRef(kind.String, mediaID.Int64)
	job.Title = title.String
	job.QualityName = qualityName.String
	job.Size = size.Int64
	job.BytesDone = bytesDone.Int64
	job.Progress = progress.Float64
	job.DownloadRate = down.Int64
	job.UploadRate = up.Int64
	job.ETA = time.Duration(eta.Int64) * time.Second
	job.SavePath = savePath.String
	job.ErrorMessage = errorMsg.String
	job.AddedAt = fromNanos(added)
	job.UpdatedAt = fromNanos(updated)
	return &job, nil
}

func (s *SQLiteStore) SaveJob(job *models.DownloadJob) error {
	if err := prepareJob(job); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO download_jobs (`+jobColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Backend, job.Handle, job.ReleaseID, job.Source, job.Media.Kind(), job.Media.ID(),
		job.Title, job.QualityName, job.Status, job.Size, job.BytesDone, job.Progress,
		job.DownloadRate, job.UploadRate, int64(job.ETA/time.Second), job.SavePath, job.ErrorMessage,
		toNanos(job.AddedAt), toNanos(job.UpdatedAt),
	)
	return err
}

func (s *SQLiteStore) GetJob(id string) (*models.DownloadJob, error) {
	job, err := scanJob(s.db.QueryRow("SELECT "+jobColumns+" FROM download_jobs WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "job "+id)
	}
	return job, nil
}

func (s *SQLiteStore) GetJobByHandle(backend, handle string) (*models.DownloadJob, error) {
	job, err := scanJob(s.db.QueryRow(
		"SELECT "+jobColumns+" FROM download_jobs WHERE backend = ? AND handle = ? ORDER BY added_at DESC LIMIT 1",
		backend, handle,
	))
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("job %s/%s", backend, handle))
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(activeOnly bool) ([]models.DownloadJob, error) {
	query := "SELECT " + jobColumns + " FROM download_jobs"
	var args []interface{}
	if activeOnly {
		query += " WHERE status NOT IN (?, ?)"
		args = append(args, models.JobCompleted, models.JobFailed)
	}
	query += " ORDER BY id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.DownloadJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
