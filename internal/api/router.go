package api

import (
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ytget/yt-downloader-server/internal/download"
)

// RouterConfig configures the HTTP routes
type RouterConfig struct {
	AllowedOrigins []string
	// TrustedProxies lists peers whose X-Forwarded-For and X-Real-IP
	// headers are believed. Empty trusts none.
	TrustedProxies []string
	Limiter        *RateLimiter
}

// NewRouter wires the handler into a gin engine. Job routes are served both
// at the root and under /api.
func NewRouter(h *Handler, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Printf("WARN: invalid trusted proxies %v, trusting none: %v", cfg.TrustedProxies, err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Logger(), gin.Recovery(), CORS(cfg.AllowedOrigins))

	limit := RateLimit(cfg.Limiter)

	for _, prefix := range []string{"", "/api"} {
		jobs := router.Group(prefix + "/jobs")
		jobs.POST("", limit, h.CreateJob)
		jobs.GET("", h.ListJobs)
		jobs.GET("/:id", h.GetJob)
	}

	api := router.Group("/api")
	api.POST("/video-info", limit, h.VideoInfo)
	api.GET("/playlist", h.Playlist)

	router.GET(strings.TrimSuffix(download.DownloadsRoute, "/")+"/:filename", h.DownloadFile)
	router.GET("/health", h.Health)

	return router
}
