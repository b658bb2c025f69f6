// file: internal/download/deluge.go
// version: 2.0.0
// guid: 466129e8-037a-4da5-a961-078808151e0e

package download

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/metrics"
	"github.com/jdfalk/media-acquirer/internal/models"
)

const (
	delugeCookie       = "_session_id"
	delugeNotAuthCode  = 1
	delugeNotAuthText  = "not authenticated"
	delugeEndpointPath = "/json"
)

var delugeFields = []string{
	"name", "label", "state", "message", "save_path", "total_size",
	"total_done", "progress", "download_payload_rate", "upload_payload_rate",
	"eta", "time_added", "is_finished",
}

// DelugeClient talks to the Deluge Web UI JSON-RPC endpoint. The login
// cookie lives in the injected SessionCache.
type DelugeClient struct {
	base
	endpoint  string
	requestID int64
}

type delugeRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int64  `json:"id"`
}

type delugeResponse struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

type delugeTorrent struct {
	Name         string  `json:"name"`
	Label        string  `json:"label"`
	State        string  `json:"state"`
	Message      string  `json:"message"`
	SavePath     string  `json:"save_path"`
	TotalSize    int64   `json:"total_size"`
	TotalDone    int64   `json:"total_done"`
	Progress     float64 `json:"progress"` // percent
	DownloadRate float64 `json:"download_payload_rate"`
	UploadRate   float64 `json:"upload_payload_rate"`
	ETA          float64 `json:"eta"`
	TimeAdded    float64 `json:"time_added"`
	IsFinished   bool    `json:"is_finished"`
}

// NewDelugeClient constructs a Deluge client adapter.
func NewDelugeClient(cfg config.BackendConfig, sessions SessionCache, opts ...Option) *DelugeClient {
	return &DelugeClient{
		base:     newBase(KindDeluge, cfg, sessions, opts),
		endpoint: cfg.BaseURL() + delugeEndpointPath,
	}
}

func (d *DelugeClient) nextID() int64 {
	return atomic.AddInt64(&d.requestID, 1)
}

func isDelugeAuthError(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) || rpcErr.Kind != KindDeluge {
		return false
	}
	return rpcErr.Code == delugeNotAuthCode || strings.Contains(strings.ToLower(rpcErr.Message), delugeNotAuthText)
}

// post sends one envelope with the given cookie and returns the raw result
// plus any session cookie the server set.
func (d *DelugeClient) post(ctx context.Context, cookie, method string, params []any) (json.RawMessage, string, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(delugeRequest{Method: method, Params: params, ID: d.nextID()})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal request: %w", err)
	}

	start := time.Now()
	raw, setCookie, err := d.roundTrip(ctx, cookie, method, body)
	d.observe(method, start, err)
	return raw, setCookie, err
}

func (d *DelugeClient) roundTrip(ctx context.Context, cookie, method string, body []byte) (json.RawMessage, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: delugeCookie, Value: cookie})
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("deluge: %s: request failed: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var setCookie string
	for _, c := range resp.Cookies() {
		if c.Name == delugeCookie {
			setCookie = c.Value
		}
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, setCookie, &RPCError{Kind: KindDeluge, Method: method, Code: delugeNotAuthCode, Message: "Not authenticated"}
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, setCookie, fmt.Errorf("deluge: %s: HTTP error: %d - %s", method, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	var rpcResp delugeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, setCookie, fmt.Errorf("deluge: %s: failed to decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return nil, setCookie, &RPCError{Kind: KindDeluge, Method: method, Code: rpcResp.Error.Code, Message: rpcResp.Error.Message}
	}
	return rpcResp.Result, setCookie, nil
}

// login authenticates, connects the web UI to a daemon when needed and
// caches the session cookie.
func (d *DelugeClient) login(ctx context.Context) (string, error) {
	metrics.IncSessionRefresh(string(d.kind))
	raw, cookie, err := d.post(ctx, "", "auth.login", []any{d.cfg.Password})
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err != nil {
		return "", fmt.Errorf("failed to parse login response: %w", err)
	}
	if !ok || cookie == "" {
		return "", fmt.Errorf("%w: deluge rejected the password", ErrAuthFailed)
	}

	if err := d.connectDaemon(ctx, cookie); err != nil {
		return "", err
	}
	d.sessions.Set(d.sessionKey(), cookie)
	d.log.Debug("deluge session established")
	return cookie, nil
}

func (d *DelugeClient) connectDaemon(ctx context.Context, cookie string) error {
	raw, _, err := d.post(ctx, cookie, "web.connected", nil)
	if err != nil {
		return err
	}
	var connected bool
	if err := json.Unmarshal(raw, &connected); err == nil && connected {
		return nil
	}

	raw, _, err = d.post(ctx, cookie, "web.get_hosts", nil)
	if err != nil {
		return fmt.Errorf("failed to get hosts: %w", err)
	}
	var hosts [][]any
	if err := json.Unmarshal(raw, &hosts); err != nil {
		return fmt.Errorf("failed to parse hosts: %w", err)
	}
	if len(hosts) == 0 || len(hosts[0]) == 0 {
		return fmt.Errorf("deluge: web UI has no daemon hosts configured")
	}
	hostID, ok := hosts[0][0].(string)
	if !ok {
		return fmt.Errorf("deluge: unexpected host entry %v", hosts[0])
	}
	_, _, err = d.post(ctx, cookie, "web.connect", []any{hostID})
	return err
}

// call runs method with the cached cookie. On an authentication error it
// logs in once and retries once; the second outcome is final.
func (d *DelugeClient) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	cookie, _ := d.sessions.Get(d.sessionKey())
	raw, _, err := d.post(ctx, cookie, method, params)
	if err == nil || !isDelugeAuthError(err) {
		return raw, err
	}

	d.sessions.InvalidateIf(d.sessionKey(), cookie)
	fresh, loginErr := d.login(ctx)
	if loginErr != nil {
		return nil, loginErr
	}
	raw, _, err = d.post(ctx, fresh, method, params)
	if isDelugeAuthError(err) {
		d.sessions.InvalidateIf(d.sessionKey(), fresh)
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return raw, err
}

// TestConnection validates credentials and connectivity for Deluge.
func (d *DelugeClient) TestConnection(ctx context.Context) error {
	raw, err := d.call(ctx, "daemon.info")
	if err != nil {
		return err
	}
	var version string
	if err := json.Unmarshal(raw, &version); err != nil {
		return fmt.Errorf("failed to parse version: %w", err)
	}
	d.log.WithField("version", version).Debug("deluge reachable")
	return nil
}

// ListJobs returns all torrents sorted by handle.
func (d *DelugeClient) ListJobs(ctx context.Context) ([]Job, error) {
	raw, err := d.call(ctx, "core.get_torrents_status", map[string]any{}, delugeFields)
	if err != nil {
		return nil, err
	}
	var torrents map[string]delugeTorrent
	if err := json.Unmarshal(raw, &torrents); err != nil {
		return nil, fmt.Errorf("failed to parse torrents: %w", err)
	}

	jobs := make([]Job, 0, len(torrents))
	for hash, t := range torrents {
		job := Job{
			Handle:       hash,
			Name:         t.Name,
			Category:     t.Label,
			Size:         t.TotalSize,
			BytesDone:    t.TotalDone,
			Progress:     math.Min(t.Progress/100, 1),
			DownloadRate: int64(t.DownloadRate),
			UploadRate:   int64(t.UploadRate),
			SavePath:     t.SavePath,
			Finished:     t.IsFinished,
			NativeState:  t.State,
		}
		if t.ETA > 0 && !t.IsFinished {
			job.ETA = time.Duration(t.ETA) * time.Second
		}
		if t.TimeAdded > 0 {
			sec, frac := math.Modf(t.TimeAdded)
			job.AddedAt = time.Unix(int64(sec), int64(frac*1e9)).UTC()
		}
		if t.State == "Error" {
			job.Error = t.Message
		}
		finalStatus(d, &job)
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Handle < jobs[j].Handle })
	return jobs, nil
}

// Submit adds a magnet, URL or local .torrent file.
func (d *DelugeClient) Submit(ctx context.Context, source string, opts SubmitOptions) (string, error) {
	options := map[string]any{"add_paused": opts.Paused}
	if opts.SavePath != "" {
		options["download_location"] = opts.SavePath
	}

	var raw json.RawMessage
	var err error
	switch classifySource(source) {
	case sourceMagnet:
		raw, err = d.call(ctx, "core.add_torrent_magnet", source, options)
	case sourceURL:
		raw, err = d.call(ctx, "core.add_torrent_url", source, options)
	default:
		name, content, readErr := readSourceFile(source)
		if readErr != nil {
			return "", readErr
		}
		raw, err = d.call(ctx, "core.add_torrent_file", name, content, options)
	}
	if err != nil {
		return "", err
	}

	var hash string
	if err := json.Unmarshal(raw, &hash); err != nil || hash == "" {
		return "", fmt.Errorf("deluge: submission returned no torrent id")
	}

	category := opts.Category
	if category == "" {
		category = d.cfg.Category
	}
	if category != "" {
		// Label plugin might not be enabled
		if _, err := d.call(ctx, "label.set_torrent", hash, strings.ToLower(category)); err != nil {
			d.log.WithError(err).WithField("label", category).Warn("failed to label torrent")
		}
	}
	return hash, nil
}

// Pause pauses the given torrents.
func (d *DelugeClient) Pause(ctx context.Context, handles []string) error {
	_, err := d.call(ctx, "core.pause_torrent", handles)
	return err
}

// Resume resumes the given torrents.
func (d *DelugeClient) Resume(ctx context.Context, handles []string) error {
	_, err := d.call(ctx, "core.resume_torrent", handles)
	return err
}

// Remove removes torrents, optionally with their data.
func (d *DelugeClient) Remove(ctx context.Context, handles []string, deleteData bool) error {
	_, err := d.call(ctx, "core.remove_torrents", handles, deleteData)
	return err
}

// MapState maps Deluge torrent states.
func (d *DelugeClient) MapState(native string, finished bool) models.JobStatus {
	if finished {
		return models.JobCompleted
	}
	switch native {
	case "Queued":
		return models.JobQueued
	case "Paused":
		return models.JobPaused
	case "Error":
		return models.JobFailed
	case "Seeding":
		return models.JobCompleted
	case "Moving":
		return models.JobImporting
	default: // Downloading, Checking, Allocating
		return models.JobDownloading
	}
}
