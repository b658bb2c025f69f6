// file: internal/blacklist/governor.go
// version: 1.0.0
// guid: 37908738-fbe0-41ee-b344-74bc0dd458d5

// Package blacklist records failed releases, expires them, and caps
// automatic retries per media item.
package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jdfalk/media-acquirer/internal/database"
	"github.com/jdfalk/media-acquirer/internal/logger"
	"github.com/jdfalk/media-acquirer/internal/metrics"
	"github.com/jdfalk/media-acquirer/internal/models"
)

const (
	// DefaultWindow is how long an entry suppresses its release.
	DefaultWindow = 30 * 24 * time.Hour
	// DefaultMaxRetries is the number of live entries that blocks a media item.
	DefaultMaxRetries = 3
)

// ErrInvalidMediaRef is returned when an entry does not reference exactly
// one media item.
var ErrInvalidMediaRef = errors.New("blacklist entry must reference exactly one media item")

// Store is the persistence the governor needs.
type Store interface {
	UpsertBlacklistEntry(entry *models.BlacklistEntry) error
	GetBlacklistEntry(key models.ReleaseKey) (*models.BlacklistEntry, error)
	ListBlacklist() ([]models.BlacklistEntry, error)
	LiveBlacklistKeys(now time.Time) (map[models.ReleaseKey]struct{}, error)
	CountLiveBlacklist(ref models.MediaRef, now time.Time) (int, error)
	DeleteBlacklistEntry(key models.ReleaseKey) error
	DeleteExpiredBlacklist(now time.Time) (int, error)
}

// Governor decides which releases may be attempted again.
type Governor struct {
	store      Store
	window     time.Duration
	maxRetries int
	now        func() time.Time
	log        *log.Entry
}

// Option customizes a Governor.
type Option func(*Governor)

// WithWindow overrides the expiry window.
func WithWindow(d time.Duration) Option {
	return func(g *Governor) {
		if d > 0 {
			g.window = d
		}
	}
}

// WithMaxRetries overrides the per-media retry ceiling.
func WithMaxRetries(n int) Option {
	return func(g *Governor) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Governor) { g.now = now }
}

// New returns a Governor backed by store.
func New(store Store, opts ...Option) *Governor {
	g := &Governor{
		store:      store,
		window:     DefaultWindow,
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
		log:        logger.For("blacklist"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Window returns the configured expiry window.
func (g *Governor) Window() time.Duration { return g.window }

// MaxRetries returns the configured retry ceiling.
func (g *Governor) MaxRetries() int { return g.maxRetries }

// Blacklist creates or refreshes the entry for the release. Timestamps are
// set here; an empty FailureType is derived from the reason.
func (g *Governor) Blacklist(ctx context.Context, entry models.BlacklistEntry) (*models.BlacklistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !entry.Media.Valid() {
		return nil, fmt.Errorf("%w: %d references set", ErrInvalidMediaRef, entry.Media.Count())
	}
	if entry.FailureType == "" {
		entry.FailureType = DetermineFailureType(entry.Reason)
	}

	now := g.now().UTC()
	entry.CreatedAt = now
	entry.ExpiresAt = now.Add(g.window)

	if err := g.store.UpsertBlacklistEntry(&entry); err != nil {
		return nil, fmt.Errorf("blacklist %s: %w", entry.Key(), err)
	}

	metrics.RecordBlacklisted(string(entry.FailureType))
	g.log.WithFields(log.Fields{
		"release":      entry.Key().String(),
		"media":        entry.Media.Kind(),
		"failure_type": entry.FailureType,
	}).Info("release blacklisted")
	return &entry, nil
}

// IsBlacklisted reports whether the release has a live entry.
func (g *Governor) IsBlacklisted(ctx context.Context, key models.ReleaseKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	entry, err := g.store.GetBlacklistEntry(key)
	if errors.Is(err, database.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return entry.Live(g.now()), nil
}

// FilterBlacklisted drops candidates whose release has a live entry. The
// live keys are fetched once for the whole list.
func (g *Governor) FilterBlacklisted(ctx context.Context, candidates []models.Candidate) ([]models.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	keys, err := g.store.LiveBlacklistKeys(g.now())
	if err != nil {
		return nil, fmt.Errorf("load blacklist: %w", err)
	}

	kept := make([]models.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, blocked := keys[c.Key()]; blocked {
			metrics.RecordRejection("blacklisted")
			continue
		}
		kept = append(kept, c)
	}
	if dropped := len(candidates) - len(kept); dropped > 0 {
		g.log.WithField("dropped", dropped).Debug("filtered blacklisted candidates")
	}
	return kept, nil
}

// HasExceededRetries reports whether the media item has reached the retry
// ceiling of live entries.
func (g *Governor) HasExceededRetries(ctx context.Context, ref models.MediaRef) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !ref.Valid() {
		return false, fmt.Errorf("%w: %d references set", ErrInvalidMediaRef, ref.Count())
	}
	n, err := g.store.CountLiveBlacklist(ref, g.now())
	if err != nil {
		return false, err
	}
	return n >= g.maxRetries, nil
}

// Remove deletes an entry on operator request.
func (g *Governor) Remove(ctx context.Context, key models.ReleaseKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.store.DeleteBlacklistEntry(key); err != nil {
		return err
	}
	g.log.WithField("release", key.String()).Info("blacklist entry removed")
	return nil
}

// Sweep deletes expired entries and returns how many were removed.
func (g *Governor) Sweep(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := g.store.DeleteExpiredBlacklist(g.now())
	if err != nil {
		return 0, err
	}
	metrics.AddSwept(n)
	if n > 0 {
		g.log.WithField("removed", n).Info("expired blacklist entries swept")
	}
	return n, nil
}

// List returns entries newest first, optionally including expired ones.
func (g *Governor) List(ctx context.Context, includeExpired bool) ([]models.BlacklistEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := g.store.ListBlacklist()
	if err != nil || includeExpired {
		return entries, err
	}
	now := g.now()
	live := entries[:0]
	for _, e := range entries {
		if e.Live(now) {
			live = append(live, e)
		}
	}
	return live, nil
}
