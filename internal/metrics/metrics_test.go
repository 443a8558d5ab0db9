package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := New()
	r.Player()
	r.Player()
	r.Skipped(ReasonNoData)
	r.ResultsWritten(7)
	r.SnapshotWritten()
	r.RunFinished(90*time.Second, time.Unix(1717400000, 0), false)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.players))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipped.WithLabelValues(ReasonNoData)))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.resultRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resultSets))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.snapshots))
	assert.Equal(t, 90.0, testutil.ToFloat64(r.runDuration))
	assert.Equal(t, 1717400000.0, testutil.ToFloat64(r.lastSuccess))
}

func TestInterruptedRunKeepsLastSuccess(t *testing.T) {
	r := New()
	r.RunFinished(time.Second, time.Unix(100, 0), true)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.lastSuccess))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Player()
		r.Skipped(ReasonNotInRegistry)
		r.ResultsWritten(3)
		r.SnapshotWritten()
		r.RunFinished(time.Second, time.Now(), false)
	})
	assert.NoError(t, r.Push(context.Background(), "http://unused", "job"))
}

func TestPush(t *testing.T) {
	var (
		method, path string
		body         string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		method, path = req.Method, req.URL.Path
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New()
	r.Player()
	require.NoError(t, r.Push(context.Background(), srv.URL, "pgaweekly"))
	assert.Equal(t, http.MethodPut, method)
	assert.True(t, strings.HasPrefix(path, "/metrics/job/pgaweekly"), path)
	assert.NotEmpty(t, body)

	assert.NoError(t, r.Push(context.Background(), "", "pgaweekly"), "empty url is a no-op")
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, New().Push(context.Background(), srv.URL, "pgaweekly"))
}
