package download_test

import (
	"context"
	"crypto/sha1" //nolint:gosec // test vectors
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/domain"
	"craftinstall/internal/download"
	"craftinstall/internal/task"
	"craftinstall/internal/util"
)

var (
	goodBody = []byte("minecraft server jar contents")
	badBody  = []byte("corrupted jar contents!!")
)

func sha1Of(b []byte) []byte {
	sum := sha1.Sum(b) //nolint:gosec // test vectors
	return sum[:]
}

func newDownloader() *download.Downloader {
	client := util.NewHTTPClient(config.HTTPConfig{Timeout: 5, UserAgent: "test"}, zap.NewNop())
	return download.New(client, zap.NewNop())
}

// flakyServer serves badBody for the first bad requests, then goodBody
func flakyServer(t *testing.T, bad int32) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := hits.Add(1)
		body := goodBody
		if n <= bad {
			body = badBody
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func tempSiblings(t *testing.T, target string) []string {
	t.Helper()
	matches, err := filepath.Glob(target + ".tmp*")
	require.NoError(t, err)
	return matches
}

func TestDownloadPlacesFileAtomically(t *testing.T) {
	srv, _ := flakyServer(t, 0)
	target := filepath.Join(t.TempDir(), "server.jar")
	tk := task.New(context.Background(), "srv", "1.20.1")

	err := newDownloader().DownloadFile(context.Background(), download.Request{
		URL:      srv.URL + "/server.jar",
		Target:   target,
		Hash:     util.HashSHA1,
		Expected: sha1Of(goodBody),
	}, tk)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, goodBody, data)
	assert.Empty(t, tempSiblings(t, target))
	assert.Equal(t, 100.0, tk.Snapshot().Percentage)
}

func TestDownloadReportsSubRange(t *testing.T) {
	srv, _ := flakyServer(t, 0)
	target := filepath.Join(t.TempDir(), "installer.jar")

	var last float64
	tk := task.New(context.Background(), "srv", "1.16.5", task.WithObserver(func(u task.Update) {
		last = u.Percentage
	}))
	err := newDownloader().DownloadFile(context.Background(), download.Request{
		URL:        srv.URL,
		Target:     target,
		Multiplier: 0.5,
	}, tk)
	require.NoError(t, err)
	assert.Equal(t, 50.0, last)
}

func TestHashMismatchRetry(t *testing.T) {
	srv, hits := flakyServer(t, 1)
	target := filepath.Join(t.TempDir(), "server.jar")

	decisions := 0
	tk := task.New(context.Background(), "srv", "1.20.1", task.WithValidator(
		func(file string, actual, expected []byte) domain.ValidateDecision {
			decisions++
			assert.Equal(t, target, file)
			assert.Equal(t, sha1Of(badBody), actual)
			return domain.DecisionRetry
		}))

	err := newDownloader().DownloadFile(context.Background(), download.Request{
		URL:      srv.URL,
		Target:   target,
		Hash:     util.HashSHA1,
		Expected: sha1Of(goodBody),
	}, tk)
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 1, decisions)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, goodBody, data)
	assert.Empty(t, tempSiblings(t, target))
}

func TestHashMismatchAbortLeavesTargetUntouched(t *testing.T) {
	srv, hits := flakyServer(t, 10)
	target := filepath.Join(t.TempDir(), "server.jar")
	require.NoError(t, os.WriteFile(target, []byte("previous"), 0o600))

	tk := task.New(context.Background(), "srv", "1.20.1", task.WithValidator(
		func(string, []byte, []byte) domain.ValidateDecision { return domain.DecisionAbort }))

	err := newDownloader().DownloadFile(context.Background(), download.Request{
		URL:      srv.URL,
		Target:   target,
		Hash:     util.HashSHA1,
		Expected: sha1Of(goodBody),
	}, tk)
	require.ErrorIs(t, err, domain.ErrHashMismatch)

	assert.Equal(t, int32(1), hits.Load())
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, []byte("previous"), data)
	assert.Empty(t, tempSiblings(t, target))
}

func TestHashMismatchIgnoreKeepsFile(t *testing.T) {
	srv, _ := flakyServer(t, 10)
	target := filepath.Join(t.TempDir(), "server.jar")
	tk := task.New(context.Background(), "srv", "1.20.1", task.WithValidator(
		func(string, []byte, []byte) domain.ValidateDecision { return domain.DecisionIgnore }))

	err := newDownloader().DownloadFile(context.Background(), download.Request{
		URL:      srv.URL,
		Target:   target,
		Hash:     util.HashSHA1,
		Expected: sha1Of(goodBody),
	}, tk)
	require.NoError(t, err)

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, badBody, data)
}

func TestHTTPErrorLeavesNoTemp(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	target := filepath.Join(t.TempDir(), "server.jar")

	err := newDownloader().DownloadFile(context.Background(), download.Request{URL: srv.URL, Target: target}, nil)
	require.Error(t, err)

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, tempSiblings(t, target))
}

func TestTempNameAvoidsCollision(t *testing.T) {
	srv, _ := flakyServer(t, 0)
	target := filepath.Join(t.TempDir(), "server.jar")
	stale := target + ".tmp"
	require.NoError(t, os.WriteFile(stale, []byte("someone else's"), 0o600))

	err := newDownloader().DownloadFile(context.Background(), download.Request{URL: srv.URL, Target: target}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{stale}, tempSiblings(t, target))
	data, err := os.ReadFile(stale)
	require.NoError(t, err)
	assert.Equal(t, []byte("someone else's"), data)
}

func TestCancelMidDownload(t *testing.T) {
	const size = 1000
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(size))
		_, _ = w.Write(make([]byte, size*3/10))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	target := filepath.Join(t.TempDir(), "server.jar")
	var tk *task.Task
	tk = task.New(context.Background(), "srv", "1.20.1", task.WithObserver(func(u task.Update) {
		if u.Percentage >= 30 {
			tk.Cancel()
		}
	}))

	err := newDownloader().DownloadFile(tk.Context(), download.Request{URL: srv.URL, Target: target}, tk)
	require.Error(t, err)
	tk.Fail(err)

	assert.Equal(t, task.Failed, tk.Snapshot().Outcome)
	assert.ErrorIs(t, tk.Err(), domain.ErrCancelled)
	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, tempSiblings(t, target))
}
