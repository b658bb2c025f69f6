// file: internal/download/transmission.go
// version: 1.0.0
// guid: a45e3c4a-59c4-40b5-a895-7c8666f224a3

package download

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/metrics"
	"github.com/jdfalk/media-acquirer/internal/models"
)

const (
	// SessionHeader is the header name for Transmission CSRF protection
	SessionHeader = "X-Transmission-Session-Id"

	transmissionRPCPath = "/transmission/rpc"

	// error is 3 for local errors; 1 and 2 are tracker warnings.
	transmissionLocalError = 3
)

// Transmission status codes, named the way MapState expects them.
var transmissionStates = map[int]string{
	0: "stopped",
	1: "check_wait",
	2: "checking",
	3: "download_wait",
	4: "downloading",
	5: "seed_wait",
	6: "seeding",
}

var transmissionFields = []string{
	"hashString", "name", "labels", "status", "error", "errorString",
	"totalSize", "haveValid", "percentDone", "rateDownload", "rateUpload",
	"eta", "downloadDir", "addedDate", "isFinished", "leftUntilDone",
}

// TransmissionClient is a client for the Transmission RPC API. The CSRF
// session id lives in the injected SessionCache.
type TransmissionClient struct {
	base
	rpcURL string
}

type transmissionRequest struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

type transmissionResponse struct {
	Result    string          `json:"result"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

type transmissionTorrent struct {
	HashString    string   `json:"hashString"`
	Name          string   `json:"name"`
	Labels        []string `json:"labels"`
	Status        int      `json:"status"`
	Error         int      `json:"error"`
	ErrorString   string   `json:"errorString"`
	TotalSize     int64    `json:"totalSize"`
	HaveValid     int64    `json:"haveValid"`
	PercentDone   float64  `json:"percentDone"`
	RateDownload  int64    `json:"rateDownload"`
	RateUpload    int64    `json:"rateUpload"`
	ETA           int64    `json:"eta"`
	DownloadDir   string   `json:"downloadDir"`
	AddedDate     int64    `json:"addedDate"`
	IsFinished    bool     `json:"isFinished"`
	LeftUntilDone int64    `json:"leftUntilDone"`
}

// NewTransmissionClient creates a new Transmission RPC client
func NewTransmissionClient(cfg config.BackendConfig, sessions SessionCache, opts ...Option) *TransmissionClient {
	return &TransmissionClient{
		base:   newBase(KindTransmission, cfg, sessions, opts),
		rpcURL: cfg.BaseURL() + transmissionRPCPath,
	}
}

type transmissionReply struct {
	status  int
	session string
	body    []byte
}

func (c *TransmissionClient) post(ctx context.Context, method, session string, body []byte) (*transmissionReply, error) {
	start := time.Now()
	reply, err := c.roundTrip(ctx, session, body)
	c.observe(method, start, err)
	return reply, err
}

func (c *TransmissionClient) roundTrip(ctx context.Context, session string, body []byte) (*transmissionReply, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	if c.cfg.Username != "" {
		req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transmission: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("transmission: failed to read response: %w", err)
	}
	return &transmissionReply{status: resp.StatusCode, session: resp.Header.Get(SessionHeader), body: data}, nil
}

// request sends one RPC call. A 409 carries a fresh session id: it is
// captured and the call is retried exactly once.
func (c *TransmissionClient) request(ctx context.Context, method string, arguments map[string]any) (json.RawMessage, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	body, err := json.Marshal(transmissionRequest{Method: method, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	key := c.sessionKey()
	session, _ := c.sessions.Get(key)
	reply, err := c.post(ctx, method, session, body)
	if err != nil {
		return nil, err
	}

	if reply.status == http.StatusConflict {
		if reply.session == "" {
			return nil, fmt.Errorf("%w: 409 without a session id", ErrSessionConflict)
		}
		c.sessions.Set(key, reply.session)
		metrics.IncSessionRefresh(string(c.kind))
		c.log.Debug("transmission session id refreshed")

		reply, err = c.post(ctx, method, reply.session, body)
		if err != nil {
			return nil, err
		}
		if reply.status == http.StatusConflict {
			return nil, fmt.Errorf("%w: %s rejected the refreshed session id", ErrSessionConflict, method)
		}
	}

	switch {
	case reply.status == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: unauthorized - invalid credentials", ErrAuthFailed)
	case reply.status != http.StatusOK:
		return nil, fmt.Errorf("transmission: %s: HTTP error: %d - %s", method, reply.status, strings.TrimSpace(string(reply.body)))
	}

	var rpcResp transmissionResponse
	if err := json.Unmarshal(reply.body, &rpcResp); err != nil {
		return nil, fmt.Errorf("transmission: %s: failed to decode response: %w", method, err)
	}
	if rpcResp.Result != "success" {
		return nil, &RPCError{Kind: KindTransmission, Method: method, Message: rpcResp.Result}
	}
	return rpcResp.Arguments, nil
}

// TestConnection tests the connection to Transmission
func (c *TransmissionClient) TestConnection(ctx context.Context) error {
	raw, err := c.request(ctx, "session-get", map[string]any{"fields": []string{"version"}})
	if err != nil {
		return err
	}
	var session struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &session); err != nil {
		return fmt.Errorf("failed to parse session: %w", err)
	}
	c.log.WithField("version", session.Version).Debug("transmission reachable")
	return nil
}

// ListJobs returns all torrents sorted by handle.
func (c *TransmissionClient) ListJobs(ctx context.Context) ([]Job, error) {
	raw, err := c.request(ctx, "torrent-get", map[string]any{"fields": transmissionFields})
	if err != nil {
		return nil, err
	}
	var args struct {
		Torrents []transmissionTorrent `json:"torrents"`
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("failed to parse torrents: %w", err)
	}

	jobs := make([]Job, 0, len(args.Torrents))
	for _, t := range args.Torrents {
		native, ok := transmissionStates[t.Status]
		if !ok {
			native = fmt.Sprintf("status_%d", t.Status)
		}
		if t.Error == transmissionLocalError {
			native = "error"
		}
		finished := t.IsFinished || (t.LeftUntilDone == 0 && t.PercentDone >= 1 && t.TotalSize > 0)
		job := Job{
			Handle:       t.HashString,
			Name:         t.Name,
			Size:         t.TotalSize,
			BytesDone:    t.HaveValid,
			Progress:     t.PercentDone,
			DownloadRate: t.RateDownload,
			UploadRate:   t.RateUpload,
			SavePath:     t.DownloadDir,
			Finished:     finished,
			NativeState:  native,
			Error:        t.ErrorString,
		}
		if len(t.Labels) > 0 {
			job.Category = t.Labels[0]
		}
		if t.ETA > 0 && !finished {
			job.ETA = time.Duration(t.ETA) * time.Second
		}
		if t.AddedDate > 0 {
			job.AddedAt = time.Unix(t.AddedDate, 0).UTC()
		}
		finalStatus(c, &job)
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Handle < jobs[j].Handle })
	return jobs, nil
}

// Submit adds a magnet, URL or local .torrent file.
func (c *TransmissionClient) Submit(ctx context.Context, source string, opts SubmitOptions) (string, error) {
	args := map[string]any{"paused": opts.Paused}
	if opts.SavePath != "" {
		args["download-dir"] = opts.SavePath
	}
	category := opts.Category
	if category == "" {
		category = c.cfg.Category
	}
	if category != "" {
		args["labels"] = []string{category}
	}

	if classifySource(source) == sourceFile {
		_, content, err := readSourceFile(source)
		if err != nil {
			return "", err
		}
		args["metainfo"] = content
	} else {
		args["filename"] = source
	}

	raw, err := c.request(ctx, "torrent-add", args)
	if err != nil {
		return "", err
	}
	var added struct {
		Added     *transmissionTorrent `json:"torrent-added"`
		Duplicate *transmissionTorrent `json:"torrent-duplicate"`
	}
	if err := json.Unmarshal(raw, &added); err != nil {
		return "", fmt.Errorf("failed to parse torrent-add response: %w", err)
	}
	switch {
	case added.Added != nil && added.Added.HashString != "":
		return added.Added.HashString, nil
	case added.Duplicate != nil && added.Duplicate.HashString != "":
		c.log.WithField("hash", added.Duplicate.HashString).Info("torrent already present")
		return added.Duplicate.HashString, nil
	default:
		return "", fmt.Errorf("transmission: submission returned no torrent id")
	}
}

// Pause stops the given torrents.
func (c *TransmissionClient) Pause(ctx context.Context, handles []string) error {
	_, err := c.request(ctx, "torrent-stop", map[string]any{"ids": handles})
	return err
}

// Resume starts the given torrents.
func (c *TransmissionClient) Resume(ctx context.Context, handles []string) error {
	_, err := c.request(ctx, "torrent-start", map[string]any{"ids": handles})
	return err
}

// Remove removes torrents, optionally with their data.
func (c *TransmissionClient) Remove(ctx context.Context, handles []string, deleteData bool) error {
	_, err := c.request(ctx, "torrent-remove", map[string]any{"ids": handles, "delete-local-data": deleteData})
	return err
}

// MapState maps Transmission status names.
func (c *TransmissionClient) MapState(native string, finished bool) models.JobStatus {
	if finished {
		return models.JobCompleted
	}
	switch native {
	case "stopped":
		return models.JobPaused
	case "check_wait", "checking", "download_wait":
		return models.JobQueued
	case "seed_wait", "seeding":
		return models.JobCompleted
	case "error":
		return models.JobFailed
	default:
		return models.JobDownloading
	}
}
