// file: internal/models/job.go
// version: 1.0.0
// guid: 0fbcd3f9-6b3b-4939-8ce8-477986cc94ef

package models

import "time"

// JobStatus is the backend-agnostic lifecycle state of a download.
type JobStatus string

const (
	JobQueued      JobStatus = "queued"
	JobDownloading JobStatus = "downloading"
	JobPaused      JobStatus = "paused"
	JobImporting   JobStatus = "importing"
	JobCompleted   JobStatus = "completed"
	JobFailed      JobStatus = "failed"
)

// Terminal reports whether no further polling is needed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// DownloadJob tracks a release handed to a download backend.
type DownloadJob struct {
	ID           string        `json:"id"` // ULID
	Backend      string        `json:"backend"`
	Handle       string        `json:"handle"`
	ReleaseID    string        `json:"release_id"`
	Source       string        `json:"source"`
	Media        MediaRef      `json:"media"`
	Title        string        `json:"title"`
	QualityName  string        `json:"quality_name,omitempty"`
	Status       JobStatus     `json:"status"`
	Size         int64         `json:"size"`
	BytesDone    int64         `json:"bytes_done"`
	Progress     float64       `json:"progress"` // 0.0 - 1.0
	DownloadRate int64         `json:"download_rate"`
	UploadRate   int64         `json:"upload_rate"`
	ETA          time.Duration `json:"eta"`
	SavePath     string        `json:"save_path,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	AddedAt      time.Time     `json:"added_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ReleaseKey returns the release this job was created from.
func (j DownloadJob) ReleaseKey() ReleaseKey {
	return ReleaseKey{ReleaseID: j.ReleaseID, Source: j.Source}
}
