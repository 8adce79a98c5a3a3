package reportserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justjake/querybench/pkg/resultsdb"
)

type fakeRuns struct {
	runs  []resultsdb.RunSummary
	err   error
	limit int
}

func (f *fakeRuns) RecentRuns(_ context.Context, limit int) ([]resultsdb.RunSummary, error) {
	f.limit = limit
	return f.runs, f.err
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>report</html>"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "query_0"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "query_0", "plot_benchmark.svg"), []byte("<svg/>"), 0644))

	s := New(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestServer_Ping(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/ping")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, ".", body)
}

func TestServer_RootRedirects(t *testing.T) {
	_, ts := newTestServer(t)
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	resp, err := client.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/index.html", resp.Header.Get("Location"))
}

func TestServer_ServesFiles(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := get(t, ts.URL+"/query_0/plot_benchmark.svg")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<svg/>", body)
	assert.Contains(t, resp.Header.Get("Cache-Control"), "no-cache")

	resp, body = get(t, ts.URL+"/index.html")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "<html>report</html>", body)

	resp, _ = get(t, ts.URL+"/missing.svg")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	_, ts := newTestServer(t)
	get(t, ts.URL+"/index.html")

	resp, body := get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `querybench_report_requests_total{code="200"}`)
}

func TestServer_Runs(t *testing.T) {
	s, ts := newTestServer(t)

	resp, _ := get(t, ts.URL+"/api/runs")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	runs := &fakeRuns{runs: []resultsdb.RunSummary{{
		SessionID:  "cq0abc",
		RecordedAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
		Timings:    60,
	}}}
	s.Runs = runs

	resp, body := get(t, ts.URL+"/api/runs?limit=5")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, runs.limit)

	var decoded struct {
		Runs []resultsdb.RunSummary `json:"runs"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &decoded))
	require.Len(t, decoded.Runs, 1)
	assert.Equal(t, "cq0abc", decoded.Runs[0].SessionID)

	resp, _ = get(t, ts.URL+"/api/runs?limit=zero")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	runs.err = fmt.Errorf("list runs: %w", resultsdb.ErrPermissionDenied)
	resp, _ = get(t, ts.URL+"/api/runs")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, defaultRunLimit, runs.limit)
}

func TestServer_Routes(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := get(t, ts.URL+"/api/routes")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"/api/runs"`)
}

func TestServer_ListenAndServeStopsOnCancel(t *testing.T) {
	s := New(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
