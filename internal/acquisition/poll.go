// file: internal/acquisition/poll.go
// version: 1.0.0
// guid: a57f5483-a994-4509-acfd-37a33e96e852

package acquisition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jdfalk/media-acquirer/internal/download"
	"github.com/jdfalk/media-acquirer/internal/metrics"
	"github.com/jdfalk/media-acquirer/internal/models"
)

// missingFromBackend is recorded when a tracked job disappears from its
// backend. It matches no blacklist keyword.
const missingFromBackend = "download removed from backend"

// PollResult summarizes one poll pass.
type PollResult struct {
	Checked     int `json:"checked"`
	Updated     int `json:"updated"`
	Completed   int `json:"completed"`
	Failed      int `json:"failed"`
	Blacklisted int `json:"blacklisted"`
}

func applyJob(job *models.DownloadJob, native download.Job, now time.Time) bool {
	before := *job
	job.Status = native.Status
	job.Size = native.Size
	job.BytesDone = native.BytesDone
	job.Progress = native.Progress
	job.DownloadRate = native.DownloadRate
	job.UploadRate = native.UploadRate
	job.ETA = native.ETA
	job.SavePath = native.SavePath
	if native.Error != "" {
		job.ErrorMessage = native.Error
	}
	changed := before != *job
	if changed {
		job.UpdatedAt = now
	}
	return changed
}

// Poll refreshes every active job from its backend. Failed jobs go through
// HandleFailure. A backend that cannot be listed is reported in the returned
// error while the others are still processed.
func (o *Orchestrator) Poll(ctx context.Context) (PollResult, error) {
	var result PollResult
	if err := ctx.Err(); err != nil {
		return result, err
	}

	jobs, err := o.store.ListJobs(true)
	if err != nil {
		return result, fmt.Errorf("list active jobs: %w", err)
	}
	byBackend := make(map[string][]models.DownloadJob)
	var order []string
	for _, j := range jobs {
		if _, seen := byBackend[j.Backend]; !seen {
			order = append(order, j.Backend)
		}
		byBackend[j.Backend] = append(byBackend[j.Backend], j)
	}

	var errs []error
	for _, name := range order {
		if err := o.pollBackend(ctx, name, byBackend[name], &result); err != nil {
			errs = append(errs, err)
		}
	}

	if all, err := o.store.ListJobs(false); err == nil {
		counts := map[string]int{}
		for _, j := range all {
			counts[string(j.Status)]++
		}
		metrics.SetJobs(counts)
	}

	o.log.WithField("checked", result.Checked).
		WithField("updated", result.Updated).
		WithField("failed", result.Failed).
		Debug("poll complete")
	return result, errors.Join(errs...)
}

func (o *Orchestrator) pollBackend(ctx context.Context, name string, jobs []models.DownloadJob, result *PollResult) error {
	backend, ok := o.backends.Get(name)
	if !ok {
		return fmt.Errorf("%w: jobs reference unknown backend %q", ErrNoBackend, name)
	}
	native, err := backend.ListJobs(ctx)
	if err != nil {
		return fmt.Errorf("list jobs on %s: %w", name, err)
	}
	byHandle := make(map[string]download.Job, len(native))
	for _, n := range native {
		byHandle[n.Handle] = n
	}

	now := o.now().UTC()
	var errs []error
	for i := range jobs {
		job := &jobs[i]
		result.Checked++

		n, found := byHandle[job.Handle]
		if !found {
			result.Failed++
			if _, err := o.HandleFailure(ctx, job, missingFromBackend); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		if !applyJob(job, n, now) {
			continue
		}
		result.Updated++

		switch job.Status {
		case models.JobFailed:
			result.Failed++
			reason := n.Error
			if reason == "" {
				reason = "download failed in " + name
			}
			blacklisted, err := o.HandleFailure(ctx, job, reason)
			if err != nil {
				errs = append(errs, err)
			}
			if blacklisted {
				result.Blacklisted++
			}
			continue
		case models.JobCompleted:
			result.Completed++
		}
		if err := o.store.SaveJob(job); err != nil {
			errs = append(errs, fmt.Errorf("save job %s: %w", job.ID, err))
			continue
		}
		o.notify.JobUpdated(*job)
	}
	return errors.Join(errs...)
}

// Run polls every interval until ctx is done.
func (o *Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := o.Poll(ctx); err != nil && ctx.Err() == nil {
			o.log.WithError(err).Warn("poll failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
