// file: internal/download/transmission_test.go
// version: 1.0.1
// guid: d807c328-0174-43d4-beac-6a4268e44c0e

package download

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdfalk/media-acquirer/internal/config"
	"github.com/jdfalk/media-acquirer/internal/models"
)

// fakeTransmission emulates the Transmission RPC endpoint with its CSRF
// session id handshake.
type fakeTransmission struct {
	mu       sync.Mutex
	requests int
	session  string
	// rotate issues a new session id on every 409.
	rotate    bool
	status    int
	last      transmissionRequest
	basicAuth string
	arguments map[string]any
}

func (f *fakeTransmission) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *fakeTransmission) lastRequest() transmissionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func (f *fakeTransmission) auth() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.basicAuth
}

func (f *fakeTransmission) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests++

	if user, pass, ok := r.BasicAuth(); ok {
		f.basicAuth = user + ":" + pass
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	if r.Header.Get(SessionHeader) != f.session || f.rotate {
		if f.rotate {
			f.session = fmt.Sprintf("session-%d", f.requests)
		}
		w.Header().Set(SessionHeader, f.session)
		w.WriteHeader(http.StatusConflict)
		return
	}

	var req transmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.last = req
	args := f.arguments
	if args == nil {
		args = map[string]any{"version": "4.0.5"}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"result": "success", "arguments": args})
}

func newTransmissionFixture(t *testing.T, fake *fakeTransmission) (*TransmissionClient, SessionCache) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	sessions := NewSessionCache(0)
	return NewTransmissionClient(backendConfig(t, srv, KindTransmission), sessions), sessions
}

func TestTransmissionRetriesOnceAfter409(t *testing.T) {
	fake := &fakeTransmission{session: "abc"}
	client, sessions := newTransmissionFixture(t, fake)

	require.NoError(t, client.TestConnection(context.Background()))
	assert.Equal(t, 2, fake.count())
	assert.Equal(t, "session-get", fake.lastRequest().Method)

	token, ok := sessions.Get(client.sessionKey())
	require.True(t, ok)
	assert.Equal(t, "abc", token)

	require.NoError(t, client.TestConnection(context.Background()))
	assert.Equal(t, 3, fake.count(), "cached session id is reused")
}

func TestTransmissionZeroTimeoutUsesDefault(t *testing.T) {
	fake := &fakeTransmission{session: "abc"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := backendConfig(t, srv, KindTransmission)
	cfg.Timeout = 0
	client := NewTransmissionClient(cfg, NewSessionCache(0))

	require.NoError(t, client.TestConnection(context.Background()))
	assert.Equal(t, config.DefaultBackendTimeout, client.cfg.Timeout)
	assert.Equal(t, config.DefaultBackendTimeout, client.http.Timeout)
}

func TestTransmissionSecond409Surfaces(t *testing.T) {
	fake := &fakeTransmission{rotate: true}
	client, _ := newTransmissionFixture(t, fake)

	err := client.TestConnection(context.Background())
	assert.ErrorIs(t, err, ErrSessionConflict)
	assert.Equal(t, 2, fake.count(), "no second retry")
}

func TestTransmissionUnauthorized(t *testing.T) {
	fake := &fakeTransmission{status: http.StatusUnauthorized}
	client, _ := newTransmissionFixture(t, fake)

	err := client.TestConnection(context.Background())
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Equal(t, 1, fake.count())
}

func TestTransmissionBasicAuth(t *testing.T) {
	fake := &fakeTransmission{session: "abc"}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	cfg := backendConfig(t, srv, KindTransmission)
	cfg.Username = "admin"
	client := NewTransmissionClient(cfg, NewSessionCache(0))

	require.NoError(t, client.TestConnection(context.Background()))
	assert.Equal(t, "admin:secret", fake.auth())
}

func TestTransmissionListJobs(t *testing.T) {
	fake := &fakeTransmission{session: "abc", arguments: map[string]any{
		"torrents": []map[string]any{
			{
				"hashString": "b", "name": "Done.Stopped", "status": 0, "isFinished": true,
				"totalSize": 100, "haveValid": 100, "percentDone": 1.0, "leftUntilDone": 0,
				"downloadDir": "/dl", "addedDate": 1700000000,
			},
			{
				"hashString": "a", "name": "Active", "status": 4, "totalSize": 400,
				"haveValid": 100, "percentDone": 0.25, "leftUntilDone": 300,
				"rateDownload": 2048, "eta": 60, "labels": []string{"tv"},
			},
			{
				"hashString": "c", "name": "Broken", "status": 0, "error": 3,
				"errorString": "No data found", "totalSize": 10, "leftUntilDone": 10,
			},
			{
				"hashString": "d", "name": "Tracker warning", "status": 4, "error": 2,
				"errorString": "Tracker gave HTTP 404", "totalSize": 10, "leftUntilDone": 10,
			},
		},
	}}
	client, _ := newTransmissionFixture(t, fake)

	jobs, err := client.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	assert.Equal(t, "torrent-get", fake.lastRequest().Method)
	assert.Equal(t, "a", jobs[0].Handle)
	assert.Equal(t, models.JobDownloading, jobs[0].Status)
	assert.Equal(t, "tv", jobs[0].Category)
	assert.Equal(t, int64(2048), jobs[0].DownloadRate)
	assert.Equal(t, 60.0, jobs[0].ETA.Seconds())

	assert.Equal(t, models.JobCompleted, jobs[1].Status, "finished beats stopped")
	assert.Equal(t, "stopped", jobs[1].NativeState)

	assert.Equal(t, models.JobFailed, jobs[2].Status)
	assert.Equal(t, "No data found", jobs[2].Error)

	assert.Equal(t, models.JobDownloading, jobs[3].Status, "tracker errors are not local failures")
}

func TestTransmissionSubmit(t *testing.T) {
	fake := &fakeTransmission{session: "abc", arguments: map[string]any{
		"torrent-duplicate": map[string]any{"hashString": "dupe", "id": 3, "name": "x"},
	}}
	client, _ := newTransmissionFixture(t, fake)

	hash, err := client.Submit(context.Background(), "magnet:?xt=urn:btih:dupe", SubmitOptions{SavePath: "/movies", Category: "movies"})
	require.NoError(t, err)
	assert.Equal(t, "dupe", hash)
	assert.Equal(t, "torrent-add", fake.lastRequest().Method)
	assert.Equal(t, "magnet:?xt=urn:btih:dupe", fake.lastRequest().Arguments["filename"])
	assert.Equal(t, "/movies", fake.lastRequest().Arguments["download-dir"])
	assert.Equal(t, []any{"movies"}, fake.lastRequest().Arguments["labels"])
}

func TestTransmissionRemoveSendsDeleteFlag(t *testing.T) {
	fake := &fakeTransmission{session: "abc", arguments: map[string]any{}}
	client, _ := newTransmissionFixture(t, fake)

	require.NoError(t, client.Remove(context.Background(), []string{"a", "b"}, true))
	assert.Equal(t, "torrent-remove", fake.lastRequest().Method)
	assert.Equal(t, []any{"a", "b"}, fake.lastRequest().Arguments["ids"])
	assert.Equal(t, true, fake.lastRequest().Arguments["delete-local-data"])
}
