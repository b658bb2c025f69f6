// file: internal/download/sabnzbd.go
// version: 2.0.0
// guid: 2670e805-a4a5-4cd0-870a-fe15f09bd4e8

package download

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/models"
)

// sabPausedPriority queues a job paused.
const sabPausedPriority = "-2"

// SABnzbdClient implements Backend for SABnzbd via its REST API. It keys on
// the API key, so it keeps no session state.
type SABnzbdClient struct {
	base
	apiURL string
}

// NewSABnzbdClient constructs a SABnzbd client adapter.
func NewSABnzbdClient(cfg config.BackendConfig, sessions SessionCache, opts ...Option) *SABnzbdClient {
	return &SABnzbdClient{
		base:   newBase(KindSABnzbd, cfg, sessions, opts),
		apiURL: cfg.BaseURL() + "/api",
	}
}

func (s *SABnzbdClient) params(mode string, extra url.Values) url.Values {
	params := url.Values{
		"apikey": {s.cfg.APIKey},
		"output": {"json"},
		"mode":   {mode},
	}
	for k, v := range extra {
		params[k] = v
	}
	return params
}

func (s *SABnzbdClient) apiCall(ctx context.Context, mode string, extra url.Values) (json.RawMessage, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+"?"+s.params(mode, extra).Encode(), nil)
	if err != nil {
		return nil, err
	}
	return s.do(req, mode)
}

func (s *SABnzbdClient) do(req *http.Request, mode string) (raw json.RawMessage, err error) {
	start := time.Now()
	defer func() { s.observe(mode, start, err) }()

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sabnzbd: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: sabnzbd returned status %d", ErrAuthFailed, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("sabnzbd: API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("sabnzbd: failed to parse response: %w", err)
	}

	// Check for API error response
	var errResp struct {
		Status *bool  `json:"status"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
		if strings.Contains(strings.ToLower(errResp.Error), "api key") {
			return nil, fmt.Errorf("%w: %s", ErrAuthFailed, errResp.Error)
		}
		return nil, &RPCError{Kind: KindSABnzbd, Method: mode, Message: errResp.Error}
	}
	return raw, nil
}

// TestConnection validates credentials and connectivity for SABnzbd. The
// version call needs no key, so the queue is read as well.
func (s *SABnzbdClient) TestConnection(ctx context.Context) error {
	raw, err := s.apiCall(ctx, "version", nil)
	if err != nil {
		return fmt.Errorf("sabnzbd: connection failed: %w", err)
	}
	var version struct {
		Version string `json:"version"`
	}
	_ = json.Unmarshal(raw, &version)

	if _, err := s.apiCall(ctx, "queue", url.Values{"limit": {"1"}}); err != nil {
		return err
	}
	s.log.WithField("version", version.Version).Debug("sabnzbd reachable")
	return nil
}

type sabQueueSlot struct {
	NzoID      string `json:"nzo_id"`
	Filename   string `json:"filename"`
	Category   string `json:"cat"`
	Status     string `json:"status"`
	Percentage string `json:"percentage"`
	MB         string `json:"mb"`
	MBLeft     string `json:"mbleft"`
	TimeLeft   string `json:"timeleft"`
}

type sabHistorySlot struct {
	NzoID       string `json:"nzo_id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Status      string `json:"status"`
	Bytes       int64  `json:"bytes"`
	Storage     string `json:"storage"`
	FailMessage string `json:"fail_message"`
	Completed   int64  `json:"completed"`
}

type sabQueue struct {
	Queue struct {
		Status   string         `json:"status"`
		KBPerSec string         `json:"kbpersec"`
		Slots    []sabQueueSlot `json:"slots"`
	} `json:"queue"`
}

type sabHistory struct {
	History struct {
		Slots []sabHistorySlot `json:"slots"`
	} `json:"history"`
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f
}

// parseTimeLeft reads SABnzbd's [d:]h:mm:ss format.
func parseTimeLeft(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 3 || len(parts) > 4 {
		return 0
	}
	units := []time.Duration{time.Second, time.Minute, time.Hour, 24 * time.Hour}
	var total time.Duration
	for i := range parts {
		n, err := strconv.Atoi(parts[len(parts)-1-i])
		if err != nil {
			return 0
		}
		total += time.Duration(n) * units[i]
	}
	return total
}

func (s *SABnzbdClient) queueJob(slot sabQueueSlot, rate int64) Job {
	const mb = 1024 * 1024
	size := int64(parseFloat(slot.MB) * mb)
	left := int64(parseFloat(slot.MBLeft) * mb)
	job := Job{
		Handle:      slot.NzoID,
		Name:        slot.Filename,
		Category:    slot.Category,
		Size:        size,
		BytesDone:   size - left,
		Progress:    parseFloat(slot.Percentage) / 100.0,
		ETA:         parseTimeLeft(slot.TimeLeft),
		NativeState: slot.Status,
	}
	if slot.Status == "Downloading" {
		job.DownloadRate = rate
	}
	finalStatus(s, &job)
	return job
}

func (s *SABnzbdClient) historyJob(slot sabHistorySlot) Job {
	job := Job{
		Handle:      slot.NzoID,
		Name:        slot.Name,
		Category:    slot.Category,
		Size:        slot.Bytes,
		SavePath:    slot.Storage,
		Finished:    slot.Status == "Completed",
		NativeState: slot.Status,
		Error:       slot.FailMessage,
	}
	if slot.Status != "Failed" {
		job.BytesDone = slot.Bytes
		job.Progress = 1
	}
	if slot.Completed > 0 {
		job.AddedAt = time.Unix(slot.Completed, 0).UTC()
	}
	finalStatus(s, &job)
	return job
}

// ListJobs merges the queue and the history.
func (s *SABnzbdClient) ListJobs(ctx context.Context) ([]Job, error) {
	raw, err := s.apiCall(ctx, "queue", nil)
	if err != nil {
		return nil, err
	}
	var queue sabQueue
	if err := json.Unmarshal(raw, &queue); err != nil {
		return nil, fmt.Errorf("sabnzbd: failed to parse queue: %w", err)
	}

	raw, err = s.apiCall(ctx, "history", url.Values{"limit": {"100"}})
	if err != nil {
		return nil, err
	}
	var history sabHistory
	if err := json.Unmarshal(raw, &history); err != nil {
		return nil, fmt.Errorf("sabnzbd: failed to parse history: %w", err)
	}

	rate := int64(parseFloat(queue.Queue.KBPerSec) * 1024)
	jobs := make([]Job, 0, len(queue.Queue.Slots)+len(history.History.Slots))
	for _, slot := range queue.Queue.Slots {
		jobs = append(jobs, s.queueJob(slot, rate))
	}
	for _, slot := range history.History.Slots {
		jobs = append(jobs, s.historyJob(slot))
	}
	sort.SliceStable(jobs, func(i, j int) bool { return jobs[i].Handle < jobs[j].Handle })
	return jobs, nil
}

func (s *SABnzbdClient) addParams(opts SubmitOptions) url.Values {
	extra := url.Values{}
	category := opts.Category
	if category == "" {
		category = s.cfg.Category
	}
	if category != "" {
		extra.Set("cat", category)
	}
	if opts.Name != "" {
		extra.Set("nzbname", opts.Name)
	}
	if opts.Paused {
		extra.Set("priority", sabPausedPriority)
	}
	return extra
}

// Submit adds an NZB by URL or uploads a local .nzb file.
func (s *SABnzbdClient) Submit(ctx context.Context, source string, opts SubmitOptions) (string, error) {
	var raw json.RawMessage
	var err error
	if classifySource(source) == sourceURL {
		extra := s.addParams(opts)
		extra.Set("name", source)
		raw, err = s.apiCall(ctx, "addurl", extra)
	} else {
		raw, err = s.addFile(ctx, source, opts)
	}
	if err != nil {
		return "", err
	}

	var added struct {
		Status bool     `json:"status"`
		NzoIDs []string `json:"nzo_ids"`
	}
	if err := json.Unmarshal(raw, &added); err != nil {
		return "", fmt.Errorf("sabnzbd: failed to parse add response: %w", err)
	}
	if !added.Status || len(added.NzoIDs) == 0 {
		return "", fmt.Errorf("sabnzbd: submission returned no job id")
	}
	return added.NzoIDs[0], nil
}

func (s *SABnzbdClient) addFile(ctx context.Context, path string, opts SubmitOptions) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("name", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := form.Close(); err != nil {
		return nil, err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL+"?"+s.params("addfile", s.addParams(opts)).Encode(), &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return s.do(req, "addfile")
}

func (s *SABnzbdClient) queueAction(ctx context.Context, name string, handles []string, extra url.Values) error {
	params := url.Values{"name": {name}, "value": {strings.Join(handles, ",")}}
	for k, v := range extra {
		params[k] = v
	}
	_, err := s.apiCall(ctx, "queue", params)
	return err
}

// Pause pauses queued jobs.
func (s *SABnzbdClient) Pause(ctx context.Context, handles []string) error {
	return s.queueAction(ctx, "pause", handles, nil)
}

// Resume resumes queued jobs.
func (s *SABnzbdClient) Resume(ctx context.Context, handles []string) error {
	return s.queueAction(ctx, "resume", handles, nil)
}

// Remove deletes jobs from the queue and the history.
func (s *SABnzbdClient) Remove(ctx context.Context, handles []string, deleteData bool) error {
	extra := url.Values{}
	if deleteData {
		extra.Set("del_files", "1")
	}
	if err := s.queueAction(ctx, "delete", handles, extra); err != nil {
		return err
	}
	_, err := s.apiCall(ctx, "history", url.Values{
		"name":      {"delete"},
		"value":     {strings.Join(handles, ",")},
		"del_files": {strconv.FormatBool(deleteData)},
	})
	return err
}

// MapState maps SABnzbd queue and history states. Post-processing counts
// as importing.
func (s *SABnzbdClient) MapState(native string, finished bool) models.JobStatus {
	if finished {
		return models.JobCompleted
	}
	switch native {
	case "Queued", "Grabbing", "Fetching", "Propagating":
		return models.JobQueued
	case "Paused":
		return models.JobPaused
	case "Downloading":
		return models.JobDownloading
	case "QuickCheck", "Verifying", "Repairing", "Extracting", "Moving", "Running":
		return models.JobImporting
	case "Completed":
		return models.JobCompleted
	case "Failed":
		return models.JobFailed
	default:
		return models.JobQueued
	}
}
