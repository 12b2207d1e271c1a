package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ytget/yt-downloader-server/internal/download"
	"github.com/ytget/yt-downloader-server/internal/model"
	"github.com/ytget/yt-downloader-server/internal/platform"
)

// PlaylistLister resolves a playlist URL into its entries
type PlaylistLister interface {
	ParsePlaylist(ctx context.Context, url string) (*model.Playlist, error)
}

// Handler serves the job API
type Handler struct {
	jobs        download.Downloader
	playlists   PlaylistLister
	downloadDir string
	redis       *redis.Client
}

// NewHandler creates a handler. playlists and redisClient may be nil.
func NewHandler(jobs download.Downloader, playlists PlaylistLister, downloadDir string, redisClient *redis.Client) *Handler {
	return &Handler{
		jobs:        jobs,
		playlists:   playlists,
		downloadDir: downloadDir,
		redis:       redisClient,
	}
}

type createJobResponse struct {
	JobID string `json:"job_id"`
}

type videoInfoRequest struct {
	URL string `json:"url" binding:"required"`
}

// CreateJob validates and queues a download
func (h *Handler) CreateJob(c *gin.Context) {
	var req model.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	id, err := h.jobs.Submit(req)
	if err != nil {
		c.JSON(submitErrorStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, createJobResponse{JobID: id})
}

// GetJob returns a job snapshot
func (h *Handler) GetJob(c *gin.Context) {
	snapshot, ok := h.jobs.Status(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// ListJobs returns all retained jobs, oldest first
func (h *Handler) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, h.jobs.List())
}

// VideoInfo probes a URL for its title, duration and thumbnail
func (h *Handler) VideoInfo(c *gin.Context) {
	var req videoInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	info, err := h.jobs.Probe(c.Request.Context(), req.URL)
	if err != nil {
		log.Printf("WARN: video info for %s failed: %v", req.URL, err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"title":           info.Title,
		"duration":        info.Duration,
		"duration_string": info.DurationString(),
		"thumbnail":       info.Thumbnail,
	})
}

// Playlist lists the entries of a playlist URL
func (h *Handler) Playlist(c *gin.Context) {
	if h.playlists == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "playlist listing is not available"})
		return
	}

	url := strings.TrimSpace(c.Query("url"))
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	playlist, err := h.playlists.ParsePlaylist(c.Request.Context(), url)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, playlist)
}

// DownloadFile serves a finished artifact from the download directory
func (h *Handler) DownloadFile(c *gin.Context) {
	name := c.Param("filename")
	path, err := platform.ResolveInDir(h.downloadDir, name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "file not found"})
		return
	}
	c.FileAttachment(path, name)
}

// Health reports worker and Redis state
func (h *Handler) Health(c *gin.Context) {
	status := "ok"
	redisState := "disabled"
	if h.redis != nil {
		if err := platform.PingRedis(c.Request.Context(), h.redis); err != nil {
			status = "degraded"
			redisState = err.Error()
		} else {
			redisState = "ok"
		}
	}

	stats := h.jobs.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"workers": stats.Workers,
		"jobs":    stats.Jobs,
		"redis":   redisState,
	})
}

func submitErrorStatus(err error) int {
	var verr *download.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, download.ErrPoolClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
