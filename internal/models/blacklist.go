// file: internal/models/blacklist.go
// version: 1.0.0
// guid: 3d528acd-9f68-4ef6-a1e9-35ce719b2912

package models

import "time"

// FailureType tags why a release was blacklisted.
type FailureType string

const (
	FailureExtraction   FailureType = "extraction_failed"
	FailureVerification FailureType = "verification_failed"
	FailureImport       FailureType = "import_failed"
	FailureMissingFiles FailureType = "missing_files"
	FailureDownload     FailureType = "download_failed"
)

// BlacklistEntry suppresses a (release id, source) pair until ExpiresAt.
type BlacklistEntry struct {
	ID          string      `json:"id"` // ULID
	ReleaseID   string      `json:"release_id"`
	Source      string      `json:"source"`
	Media       MediaRef    `json:"media"`
	Title       string      `json:"title,omitempty"`
	Reason      string      `json:"reason"`
	FailureType FailureType `json:"failure_type"`
	CreatedAt   time.Time   `json:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// Key returns the composite key of the entry.
func (e BlacklistEntry) Key() ReleaseKey {
	return ReleaseKey{ReleaseID: e.ReleaseID, Source: e.Source}
}

// Live reports whether the entry is still in force at now.
func (e BlacklistEntry) Live(now time.Time) bool {
	return e.ExpiresAt.After(now)
}
