// file: internal/download/client.go
// version: 2.0.1
// guid: 404055b4-a238-453f-80a7-f6303ab23ec1

// Package download provides torrent and Usenet client integrations behind
// one capability contract.
package download

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/logger"
	"github.com/jdfalk/media-acquirer/internal/metrics"
	"github.com/jdfalk/media-acquirer/internal/models"
)

// Kind identifies a backend implementation.
type Kind string

const (
	KindDeluge       Kind = "deluge"
	KindTransmission Kind = "transmission"
	KindSABnzbd      Kind = "sabnzbd"
)

// Job is the normalized view of one transfer, identical in shape for every
// backend.
type Job struct {
	Handle       string           // client-opaque id: info hash or nzo id
	Name         string           // user-visible name
	Category     string           // label or category, if any
	Size         int64            // total bytes
	BytesDone    int64            // bytes downloaded
	Progress     float64          // 0.0 - 1.0
	DownloadRate int64            // bytes/s
	UploadRate   int64            // bytes/s
	ETA          time.Duration    // zero when unknown or finished
	SavePath     string           // directory on the backend host
	AddedAt      time.Time        // when the backend accepted it
	Finished     bool             // backend reports the transfer as done
	NativeState  string           // backend state before mapping
	Error        string           // backend error text, if any
	Status       models.JobStatus // canonical status via MapState
}

// SubmitOptions tunes a submission. Zero values use backend defaults.
type SubmitOptions struct {
	Name     string
	Category string
	SavePath string
	Paused   bool
}

// Backend is the capability contract every download client satisfies.
type Backend interface {
	// TestConnection verifies reachability and credentials.
	TestConnection(ctx context.Context) error

	// ListJobs returns every transfer the backend knows about.
	ListJobs(ctx context.Context) ([]Job, error)

	// Submit hands a URL, magnet link or local file to the backend and
	// returns its handle.
	Submit(ctx context.Context, source string, opts SubmitOptions) (string, error)

	Pause(ctx context.Context, handles []string) error
	Resume(ctx context.Context, handles []string) error
	Remove(ctx context.Context, handles []string, deleteData bool) error

	// MapState converts a native state to the canonical status. A finished
	// transfer is completed whatever its native state says.
	MapState(native string, finished bool) models.JobStatus

	// Kind returns the implementation kind.
	Kind() Kind
}

// Option customizes a backend built by NewBackend.
type Option func(*base)

// WithHTTPClient replaces the HTTP client. Its Timeout is left untouched.
func WithHTTPClient(c *http.Client) Option {
	return func(b *base) { b.http = c }
}

// base carries what every backend implementation shares.
type base struct {
	cfg      config.BackendConfig
	kind     Kind
	http     *http.Client
	sessions SessionCache
	log      *log.Entry
}

func newBase(kind Kind, cfg config.BackendConfig, sessions SessionCache, opts []Option) base {
	cfg.ApplyDefaults()
	b := base{
		cfg:      cfg,
		kind:     kind,
		http:     &http.Client{Timeout: cfg.Timeout},
		sessions: sessions,
		log:      logger.For("download").WithFields(log.Fields{"backend": cfg.Name, "kind": kind}),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) Kind() Kind { return b.kind }

func (b *base) sessionKey() string { return SessionKey(b.kind, b.cfg.HostPort()) }

// bounded applies the per-call timeout.
func (b *base) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.cfg.Timeout)
}

func (b *base) observe(method string, start time.Time, err error) {
	metrics.ObserveBackendRequest(string(b.kind), method, err, time.Since(start))
}

// sourceKind tells URLs, magnets and local files apart.
type sourceKind int

const (
	sourceURL sourceKind = iota
	sourceMagnet
	sourceFile
)

func classifySource(source string) sourceKind {
	lower := strings.ToLower(source)
	switch {
	case strings.HasPrefix(lower, "magnet:"):
		return sourceMagnet
	case strings.HasPrefix(lower, "http://"), strings.HasPrefix(lower, "https://"):
		return sourceURL
	default:
		return sourceFile
	}
}

// readSourceFile returns the file's base name and base64 content.
func readSourceFile(path string) (string, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return filepath.Base(path), base64.StdEncoding.EncodeToString(data), nil
}

// finalStatus applies the finished-is-authoritative rule to a mapped state.
func finalStatus(b Backend, j *Job) {
	j.Status = b.MapState(j.NativeState, j.Finished)
}
