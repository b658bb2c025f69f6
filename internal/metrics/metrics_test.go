// file: internal/metrics/metrics_test.go
// version: 1.1.0
// guid: 7e835378-3782-4bbb-9f90-69f783bcd08d

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	Register()
	Register()
}

func TestDecisionCounters(t *testing.T) {
	before := testutil.ToFloat64(releasesEvaluated.WithLabelValues("movie"))
	AddEvaluated("movie", 3)
	assert.Equal(t, before+3, testutil.ToFloat64(releasesEvaluated.WithLabelValues("movie")))

	before = testutil.ToFloat64(releasesRejected.WithLabelValues("custom_format"))
	RecordRejection("custom_format")
	assert.Equal(t, before+1, testutil.ToFloat64(releasesRejected.WithLabelValues("custom_format")))
}

func TestBlacklistCounters(t *testing.T) {
	before := testutil.ToFloat64(blacklistEntries.WithLabelValues("verification_failed"))
	RecordBlacklisted("verification_failed")
	assert.Equal(t, before+1, testutil.ToFloat64(blacklistEntries.WithLabelValues("verification_failed")))

	before = testutil.ToFloat64(blacklistSwept)
	AddSwept(4)
	assert.Equal(t, before+4, testutil.ToFloat64(blacklistSwept))
}

func TestObserveBackendRequest(t *testing.T) {
	ok := backendRequests.WithLabelValues("deluge", "core.pause_torrent", "success")
	failed := backendRequests.WithLabelValues("deluge", "core.pause_torrent", "error")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveBackendRequest("deluge", "core.pause_torrent", nil, 15*time.Millisecond)
	ObserveBackendRequest("deluge", "core.pause_torrent", errors.New("boom"), time.Second)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestSessionAndSubmissionCounters(t *testing.T) {
	before := testutil.ToFloat64(sessionRefreshes.WithLabelValues("transmission"))
	IncSessionRefresh("transmission")
	assert.Equal(t, before+1, testutil.ToFloat64(sessionRefreshes.WithLabelValues("transmission")))

	before = testutil.ToFloat64(submissions.WithLabelValues("seedbox", "success"))
	IncSubmission("seedbox", "success")
	assert.Equal(t, before+1, testutil.ToFloat64(submissions.WithLabelValues("seedbox", "success")))
}

func TestHTTPCounters(t *testing.T) {
	ok := httpRequests.WithLabelValues("/api/v1/rank", "200")
	before := testutil.ToFloat64(ok)
	ObserveHTTPRequest("/api/v1/rank", 200, 5*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(ok))

	before = testutil.ToFloat64(rateLimited)
	IncRateLimited()
	assert.Equal(t, before+1, testutil.ToFloat64(rateLimited))
}

func TestSetJobs(t *testing.T) {
	SetJobs(map[string]int{"downloading": 2, "queued": 1})
	assert.Equal(t, 2.0, testutil.ToFloat64(activeJobs.WithLabelValues("downloading")))

	SetJobs(map[string]int{"completed": 1})
	assert.Equal(t, 1, testutil.CollectAndCount(activeJobs))
}
