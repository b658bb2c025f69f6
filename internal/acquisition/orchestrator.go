// file: internal/acquisition/orchestrator.go
// version: 1.0.0
// guid: 738b54fc-06f1-4ea1-a634-b4d47cd26d8e

// Package acquisition ties release selection, submission, polling and
// failure handling together.
package acquisition

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jdfalk/media-acquirer/internal/blacklist"
	"github.com/jdfalk/media-acquirer/internal/customformat"
	"github.com/jdfalk/media-acquirer/internal/download"
	"github.com/jdfalk/media-acquirer/internal/logger"
	"github.com/jdfalk/media-acquirer/internal/metrics"
	"github.com/jdfalk/media-acquirer/internal/models"
	"github.com/jdfalk/media-acquirer/internal/parser"
	"github.com/jdfalk/media-acquirer/internal/quality"
)

var (
	// ErrNoCandidate means every candidate was filtered or rejected.
	ErrNoCandidate = errors.New("no acceptable release candidate")

	// ErrRetriesExceeded means the media item hit the blacklist ceiling.
	ErrRetriesExceeded = errors.New("retry limit reached for media item")

	// ErrNoBackend means no configured backend can take the release.
	ErrNoBackend = errors.New("no download backend for release")
)

// Store is the persistence the orchestrator needs.
type Store interface {
	GetProfile(id int) (*models.QualityProfile, error)
	GetProfileFormats(profileID int) ([]models.ScoredFormat, error)
	SaveJob(job *models.DownloadJob) error
	ListJobs(activeOnly bool) ([]models.DownloadJob, error)
}

// Backends resolves download backends by name.
type Backends interface {
	Get(name string) (download.Backend, bool)
	Names() []string
}

// Request describes one acquisition attempt.
type Request struct {
	Media     models.MediaRef
	MediaType models.MediaType // defaults to the profile's media type
	ProfileID int
	// Title and Year identify the wanted item. An empty Title or a zero
	// Year skips that check.
	Title      string
	Year       int
	Candidates []models.Candidate
	Limits     quality.SizeLimits
	// Backend names the backend to submit to. Empty picks the first one
	// that handles the release protocol.
	Backend string
	Options download.SubmitOptions
}

// Decision is one accepted candidate with its scores.
type Decision struct {
	Candidate models.Candidate    `json:"candidate"`
	Quality   quality.Result      `json:"quality"`
	Formats   customformat.Result `json:"formats"`
}

// Notifier is told about job state changes after they are saved. Calls
// happen on the acquiring or polling goroutine and must not block.
type Notifier interface {
	JobSubmitted(job models.DownloadJob)
	JobUpdated(job models.DownloadJob)
	JobFailed(job models.DownloadJob, blacklisted bool)
}

type nopNotifier struct{}

func (nopNotifier) JobSubmitted(models.DownloadJob)    {}
func (nopNotifier) JobUpdated(models.DownloadJob)      {}
func (nopNotifier) JobFailed(models.DownloadJob, bool) {}

// Orchestrator runs the acquisition flow.
type Orchestrator struct {
	store    Store
	governor *blacklist.Governor
	scorer   *customformat.Scorer
	backends Backends
	notify   Notifier
	now      func() time.Time
	log      *log.Entry
}

// New builds an orchestrator.
func New(store Store, governor *blacklist.Governor, backends Backends) *Orchestrator {
	return &Orchestrator{
		store:    store,
		governor: governor,
		scorer:   customformat.NewScorer(store),
		backends: backends,
		notify:   nopNotifier{},
		now:      time.Now,
		log:      logger.For("acquisition"),
	}
}

// SetNotifier installs n; nil restores the no-op notifier. Call it before
// the orchestrator is shared.
func (o *Orchestrator) SetNotifier(n Notifier) {
	if n == nil {
		n = nopNotifier{}
	}
	o.notify = n
}

func (o *Orchestrator) profile(req *Request) (*models.QualityProfile, error) {
	profile, err := o.store.GetProfile(req.ProfileID)
	if err != nil {
		return nil, fmt.Errorf("load profile %d: %w", req.ProfileID, err)
	}
	if req.MediaType == "" {
		req.MediaType = profile.MediaType
	}
	return profile, nil
}

// parsedTitle extracts the title and year a candidate claims to be.
func parsedTitle(c models.Candidate, mediaType models.MediaType) (string, int) {
	switch mediaType {
	case models.MediaMusic:
		info := parser.ParseAlbum(c.Title)
		album, year := info.Album, info.Year
		if c.Album != "" {
			album = c.Album
		}
		if c.Year != 0 {
			year = c.Year
		}
		return album, year
	case models.MediaBook:
		info := parser.ParseBook(c.Title)
		return info.Title, info.Year
	default:
		r := parser.ParsePath(c.Title, mediaType)
		return r.Title, r.Year
	}
}

func matchesWanted(c models.Candidate, req Request) bool {
	title, year := parsedTitle(c, req.MediaType)
	if req.Title != "" && !parser.TitleMatches(title, req.Title) {
		return false
	}
	if req.Year != 0 && year != 0 {
		if d := year - req.Year; d < -1 || d > 1 {
			return false
		}
	}
	return true
}

// Decide filters and orders the request's candidates. Title mismatches and
// blacklisted releases are dropped first, then quality and custom format
// policy apply. The result is ordered by quality score, then custom format
// score, then size.
func (o *Orchestrator) Decide(ctx context.Context, req Request) ([]Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	profile, err := o.profile(&req)
	if err != nil {
		return nil, err
	}
	metrics.AddEvaluated(string(req.MediaType), len(req.Candidates))

	wanted := make([]models.Candidate, 0, len(req.Candidates))
	for _, c := range req.Candidates {
		if !matchesWanted(c, req) {
			metrics.RecordRejection("title_mismatch")
			continue
		}
		wanted = append(wanted, c)
	}

	allowed, err := o.governor.FilterBlacklisted(ctx, wanted)
	if err != nil {
		return nil, err
	}

	ranked := quality.RankReleases(allowed, req.MediaType, profile, req.Limits)
	if dropped := len(allowed) - len(ranked); dropped > 0 {
		metrics.AddRejected("quality", dropped)
	}

	decisions := make([]Decision, 0, len(ranked))
	for _, r := range ranked {
		formats, err := o.scorer.ScoreRelease(ctx, r.Candidate.Title, profile.ID)
		if err != nil {
			return nil, err
		}
		if formats.Rejected {
			continue
		}
		if profile.MinFormatScore != 0 && formats.TotalScore < profile.MinFormatScore {
			metrics.RecordRejection("min_format_score")
			continue
		}
		decisions = append(decisions, Decision{Candidate: r.Candidate, Quality: r.Result, Formats: formats})
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		a, b := decisions[i], decisions[j]
		if a.Quality.Score != b.Quality.Score {
			return a.Quality.Score > b.Quality.Score
		}
		if a.Formats.TotalScore != b.Formats.TotalScore {
			return a.Formats.TotalScore > b.Formats.TotalScore
		}
		return a.Candidate.Size > b.Candidate.Size
	})

	o.log.WithFields(log.Fields{
		"media_type": req.MediaType,
		"candidates": len(req.Candidates),
		"accepted":   len(decisions),
	}).Debug("candidates evaluated")
	return decisions, nil
}

func handlesProtocol(kind download.Kind, p models.Protocol) bool {
	switch p {
	case models.ProtocolUsenet:
		return kind == download.KindSABnzbd
	case models.ProtocolTorrent:
		return kind == download.KindDeluge || kind == download.KindTransmission
	default:
		return false
	}
}

// backendFor resolves the backend a candidate is submitted to.
func (o *Orchestrator) backendFor(name string, c models.Candidate) (string, download.Backend, error) {
	if name != "" {
		b, ok := o.backends.Get(name)
		if !ok {
			return "", nil, fmt.Errorf("%w: unknown backend %q", ErrNoBackend, name)
		}
		return name, b, nil
	}
	for _, n := range o.backends.Names() {
		b, _ := o.backends.Get(n)
		if handlesProtocol(b.Kind(), c.Protocol) {
			return n, b, nil
		}
	}
	return "", nil, fmt.Errorf("%w: protocol %q", ErrNoBackend, c.Protocol)
}

// Acquire decides and submits the best candidate, then records the job.
// Every failure is returned to the caller.
func (o *Orchestrator) Acquire(ctx context.Context, req Request) (*models.DownloadJob, error) {
	exceeded, err := o.governor.HasExceededRetries(ctx, req.Media)
	if err != nil {
		return nil, err
	}
	if exceeded {
		metrics.IncSubmission("none", "retries_exceeded")
		return nil, fmt.Errorf("%w: %s %d", ErrRetriesExceeded, req.Media.Kind(), req.Media.ID())
	}

	decisions, err := o.Decide(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(decisions) == 0 {
		return nil, ErrNoCandidate
	}
	best := decisions[0]

	name, backend, err := o.backendFor(req.Backend, best.Candidate)
	if err != nil {
		return nil, err
	}

	opts := req.Options
	if opts.Name == "" {
		opts.Name = best.Candidate.Title
	}
	handle, err := backend.Submit(ctx, best.Candidate.DownloadURL, opts)
	if err != nil {
		metrics.IncSubmission(name, "error")
		return nil, fmt.Errorf("submit %s to %s: %w", best.Candidate.Key(), name, err)
	}

	job := &models.DownloadJob{
		Backend:     name,
		Handle:      handle,
		ReleaseID:   best.Candidate.GUID,
		Source:      best.Candidate.Source,
		Media:       req.Media,
		Title:       best.Candidate.Title,
		QualityName: best.Quality.Quality.QualityName,
		Status:      models.JobQueued,
		Size:        best.Candidate.Size,
	}
	if opts.Paused {
		job.Status = models.JobPaused
	}
	if err := o.store.SaveJob(job); err != nil {
		metrics.IncSubmission(name, "error")
		return nil, fmt.Errorf("record job for %s (handle %s): %w", best.Candidate.Key(), handle, err)
	}
	metrics.IncSubmission(name, "submitted")
	o.notify.JobSubmitted(*job)

	o.log.WithFields(log.Fields{
		"release": best.Candidate.Key().String(),
		"backend": name,
		"handle":  handle,
		"quality": job.QualityName,
	}).Info("release submitted")
	return job, nil
}

// HandleFailure marks the job failed and blacklists its release when the
// error text warrants it. It reports whether an entry was written.
func (o *Orchestrator) HandleFailure(ctx context.Context, job *models.DownloadJob, errText string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	job.Status = models.JobFailed
	job.ErrorMessage = errText

	blacklisted := false
	if blacklist.ShouldBlacklist(errText) {
		_, err := o.governor.Blacklist(ctx, models.BlacklistEntry{
			ReleaseID: job.ReleaseID,
			Source:    job.Source,
			Media:     job.Media,
			Title:     job.Title,
			Reason:    errText,
		})
		if err != nil {
			return false, fmt.Errorf("blacklist %s: %w", job.ReleaseKey(), err)
		}
		blacklisted = true
	}

	if err := o.store.SaveJob(job); err != nil {
		return blacklisted, fmt.Errorf("save failed job %s: %w", job.ID, err)
	}
	o.notify.JobFailed(*job, blacklisted)
	o.log.WithFields(log.Fields{
		"job":         job.ID,
		"release":     job.ReleaseKey().String(),
		"blacklisted": blacklisted,
	}).Warn("download failed")
	return blacklisted, nil
}
