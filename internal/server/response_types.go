// file: internal/server/response_types.go
// version: 2.0.0
// guid: 7f8a9b0c-1d2e-3f4a-5b6c-7d8e9f0a1b2c

package server

import (
	"github.com/jdfalk/media-acquirer/internal/acquisition"
	"github.com/jdfalk/media-acquirer/internal/models"
	"github.com/jdfalk/media-acquirer/internal/parser"
)

// ListResponse provides a consistent format for list responses
type ListResponse struct {
	Items any `json:"items"`
	Count int `json:"count"`
}

// DeleteResponse provides a consistent format for deletion responses
type DeleteResponse struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}

// StatusResponse provides a consistent format for status check responses
type StatusResponse struct {
	Status string `json:"status"` // "ok", "degraded"
	Code   string `json:"code,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ClassifyResponse holds whichever parse applies to the media type.
type ClassifyResponse struct {
	MediaType models.MediaType      `json:"media_type"`
	Release   *parser.ParsedRelease `json:"release,omitempty"`
	Album     *parser.AlbumInfo     `json:"album,omitempty"`
	Book      *parser.BookInfo      `json:"book,omitempty"`
}

// UpgradeResponse answers an upgrade check.
type UpgradeResponse struct {
	Upgrade     bool `json:"upgrade"`
	CutoffUnmet bool `json:"cutoff_unmet"`
}

// SweepResponse reports how many expired entries were removed.
type SweepResponse struct {
	Removed int `json:"removed"`
}

// FailureResponse reports the outcome of a reported job failure.
type FailureResponse struct {
	Job         *models.DownloadJob `json:"job"`
	Blacklisted bool                `json:"blacklisted"`
}

// PollResponse wraps a poll pass. Errors from individual backends are
// reported alongside the counts.
type PollResponse struct {
	acquisition.PollResult
	Errors []string `json:"errors,omitempty"`
}

// BackendInfo describes one configured download backend.
type BackendInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}
