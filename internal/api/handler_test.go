package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytget/yt-downloader-server/internal/download"
	"github.com/ytget/yt-downloader-server/internal/model"
)

type fakeDownloader struct {
	submitErr error
	submitted []model.Request
	snapshots map[string]model.Snapshot
	info      *model.MediaInfo
	probeErr  error
}

func (f *fakeDownloader) Submit(req model.Request) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	f.submitted = append(f.submitted, req)
	return fmt.Sprintf("job-%d", len(f.submitted)), nil
}

func (f *fakeDownloader) Status(id string) (model.Snapshot, bool) {
	s, ok := f.snapshots[id]
	return s, ok
}

func (f *fakeDownloader) List() []model.Snapshot {
	out := make([]model.Snapshot, 0, len(f.snapshots))
	for _, s := range f.snapshots {
		out = append(out, s)
	}
	return out
}

func (f *fakeDownloader) Probe(ctx context.Context, url string) (*model.MediaInfo, error) {
	return f.info, f.probeErr
}

func (f *fakeDownloader) Stats() download.Stats {
	return download.Stats{Workers: download.PoolStats{Size: 3, Active: 1, Pending: 2}, Jobs: len(f.snapshots)}
}

type fakePlaylists struct {
	playlist *model.Playlist
	err      error
}

func (f *fakePlaylists) ParsePlaylist(ctx context.Context, url string) (*model.Playlist, error) {
	return f.playlist, f.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(jobs download.Downloader, playlists PlaylistLister, dir string, limiter *RateLimiter) *gin.Engine {
	return NewRouter(NewHandler(jobs, playlists, dir, nil), RouterConfig{
		AllowedOrigins: []string{"*"},
		Limiter:        limiter,
	})
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateJob(t *testing.T) {
	jobs := &fakeDownloader{}
	router := newTestRouter(jobs, nil, t.TempDir(), nil)

	for _, path := range []string{"/jobs", "/api/jobs"} {
		t.Run(path, func(t *testing.T) {
			w := doRequest(router, http.MethodPost, path,
				`{"url":"https://youtu.be/abc","mode":"audio","audio_format":"wav","start_time":"0:10"}`)
			require.Equal(t, http.StatusOK, w.Code)

			var resp map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp["job_id"])
		})
	}

	require.Len(t, jobs.submitted, 2)
	assert.Equal(t, model.ModeAudio, jobs.submitted[0].Mode)
	assert.Equal(t, "wav", jobs.submitted[0].AudioFormat)
	assert.Equal(t, "0:10", jobs.submitted[0].StartTime)
}

func TestCreateJobErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed body", `{"url":`, nil, http.StatusBadRequest},
		{"validation error", `{"url":"x","mode":"video"}`, &download.ValidationError{Field: "url", Reason: "is required"}, http.StatusBadRequest},
		{"pool closed", `{"url":"https://youtu.be/a","mode":"video"}`, fmt.Errorf("failed to queue job: %w", download.ErrPoolClosed), http.StatusServiceUnavailable},
		{"unexpected", `{"url":"https://youtu.be/a","mode":"video"}`, errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(&fakeDownloader{submitErr: tt.err}, nil, t.TempDir(), nil)
			w := doRequest(router, http.MethodPost, "/jobs", tt.body)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"error"`)
		})
	}
}

func TestGetJob(t *testing.T) {
	jobs := &fakeDownloader{snapshots: map[string]model.Snapshot{
		"abc": {ID: "abc", State: model.JobStateCompleted, Progress: 100, Filename: "a.mp4", DownloadURL: "/downloads/a.mp4", CreatedAt: time.Now()},
	}}
	router := newTestRouter(jobs, nil, t.TempDir(), nil)

	w := doRequest(router, http.MethodGet, "/api/jobs/abc", "")
	require.Equal(t, http.StatusOK, w.Code)

	var snap map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, "abc", snap["job_id"])
	assert.Equal(t, "completed", snap["state"])
	assert.Equal(t, float64(100), snap["progress"])
	assert.Equal(t, "/downloads/a.mp4", snap["download_url"])
	assert.NotContains(t, snap, "message")

	w = doRequest(router, http.MethodGet, "/jobs/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListJobs(t *testing.T) {
	jobs := &fakeDownloader{snapshots: map[string]model.Snapshot{
		"a": {ID: "a", State: model.JobStateQueued},
		"b": {ID: "b", State: model.JobStateRunning},
	}}
	router := newTestRouter(jobs, nil, t.TempDir(), nil)

	w := doRequest(router, http.MethodGet, "/api/jobs", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []model.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)
}

func TestVideoInfo(t *testing.T) {
	jobs := &fakeDownloader{info: &model.MediaInfo{Title: "Clip", Duration: 125, Thumbnail: "https://i.ytimg.com/t.jpg"}}
	router := newTestRouter(jobs, nil, t.TempDir(), nil)

	w := doRequest(router, http.MethodPost, "/api/video-info", `{"url":"https://youtu.be/abc"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Clip", resp["title"])
	assert.Equal(t, float64(125), resp["duration"])
	assert.Equal(t, "02:05", resp["duration_string"])

	w = doRequest(router, http.MethodPost, "/api/video-info", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	failing := newTestRouter(&fakeDownloader{probeErr: errors.New("ERROR: Video unavailable")}, nil, t.TempDir(), nil)
	w = doRequest(failing, http.MethodPost, "/api/video-info", `{"url":"https://youtu.be/abc"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Video unavailable")
}

func TestPlaylist(t *testing.T) {
	playlists := &fakePlaylists{playlist: &model.Playlist{
		ID:    "PL1",
		Title: "Mix Playlist",
		Entries: []*model.PlaylistEntry{
			{ID: "a", Title: "A", URL: "https://www.youtube.com/watch?v=a"},
		},
	}}
	router := newTestRouter(&fakeDownloader{}, playlists, t.TempDir(), nil)

	w := doRequest(router, http.MethodGet, "/api/playlist?url=https%3A%2F%2Fwww.youtube.com%2Fplaylist%3Flist%3DPL1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"PL1"`)

	w = doRequest(router, http.MethodGet, "/api/playlist", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	router = newTestRouter(&fakeDownloader{}, &fakePlaylists{err: errors.New("invalid playlist URL")}, t.TempDir(), nil)
	w = doRequest(router, http.MethodGet, "/api/playlist?url=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	router = newTestRouter(&fakeDownloader{}, nil, t.TempDir(), nil)
	w = doRequest(router, http.MethodGet, "/api/playlist?url=x", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestDownloadFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "My Clip.mp4"), []byte("video-bytes"), 0644))
	router := newTestRouter(&fakeDownloader{}, nil, dir, nil)

	w := doRequest(router, http.MethodGet, "/downloads/My%20Clip.mp4", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "video-bytes", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	w = doRequest(router, http.MethodGet, "/downloads/missing.mp4", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodGet, "/downloads/..%2F..%2Fetc%2Fpasswd", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&fakeDownloader{}, nil, t.TempDir(), nil)

	w := doRequest(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status  string             `json:"status"`
		Workers download.PoolStats `json:"workers"`
		Redis   string             `json:"redis"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "disabled", resp.Redis)
	assert.Equal(t, 3, resp.Workers.Size)
	assert.Equal(t, 2, resp.Workers.Pending)
}

func TestCORS(t *testing.T) {
	handler := NewHandler(&fakeDownloader{}, nil, t.TempDir(), nil)
	router := NewRouter(handler, RouterConfig{AllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/jobs", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitedSubmit(t *testing.T) {
	router := newTestRouter(&fakeDownloader{}, nil, t.TempDir(), NewRateLimiter(2, nil))

	body := `{"url":"https://youtu.be/abc","mode":"video"}`
	for i := 0; i < 2; i++ {
		w := doRequest(router, http.MethodPost, "/jobs", body)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doRequest(router, http.MethodPost, "/jobs", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// reads are not limited
	w = doRequest(router, http.MethodGet, "/jobs/none", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
