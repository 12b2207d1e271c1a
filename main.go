package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ytget/yt-downloader-server/internal/api"
	"github.com/ytget/yt-downloader-server/internal/config"
	"github.com/ytget/yt-downloader-server/internal/download"
	"github.com/ytget/yt-downloader-server/internal/platform"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	ReadHeaderTimeout = 10 * time.Second
	InstallTimeout    = 2 * time.Minute
)

func main() {
	log.Printf("INFO: yt-downloader-server v%s starting", version)

	if err := config.LoadEnvFile(os.Getenv("ENV_FILE")); err != nil {
		log.Printf("WARN: %v", err)
	}
	settings := config.NewSettings()

	downloadsDir := settings.GetDownloadDirectory()
	if err := platform.CreateDirectoryIfNotExists(downloadsDir); err != nil {
		log.Fatalf("ERROR: failed to ensure downloads dir %s: %v", downloadsDir, err)
	}

	engine := platform.NewEngine(settings.GetYtDlpPath(), settings.GetFFmpegPath())
	if settings.GetYtDlpAutoInstall() {
		ctx, cancel := context.WithTimeout(context.Background(), InstallTimeout)
		if err := engine.Install(ctx); err != nil {
			log.Printf("WARN: %v", err)
		}
		cancel()
	}

	service := download.NewService(engine, download.Config{
		DownloadDir:   downloadsDir,
		CookieFile:    settings.GetCookieFile(),
		MaxParallel:   settings.GetMaxWorkers(),
		JobTTL:        settings.GetJobTTL(),
		JobTimeout:    settings.GetJobTimeout(),
		PublicBaseURL: settings.GetPublicBaseURL(),
	})

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	defer stopJanitor()
	service.StartJanitor(janitorCtx)

	redisClient := platform.NewRedisClient(settings.GetRedisAddr(), settings.GetRedisPassword(), settings.GetRedisDB())
	if redisClient != nil {
		defer redisClient.Close()
		if err := platform.PingRedis(context.Background(), redisClient); err != nil {
			log.Printf("WARN: redis at %s is not reachable, rate limiting falls back to memory: %v", settings.GetRedisAddr(), err)
		} else {
			log.Printf("INFO: connected to redis at %s", settings.GetRedisAddr())
		}
	}

	handler := api.NewHandler(service, platform.NewPlaylistService(), downloadsDir, redisClient)
	router := api.NewRouter(handler, api.RouterConfig{
		AllowedOrigins: settings.GetAllowedOrigins(),
		TrustedProxies: settings.GetTrustedProxies(),
		Limiter:        api.NewRateLimiter(settings.GetRateLimitRPM(), redisClient),
	})

	srv := &http.Server{
		Addr:              settings.GetListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: ReadHeaderTimeout,
	}

	go func() {
		log.Printf("INFO: listening on %s with %d workers, downloads in %s", srv.Addr, settings.GetMaxWorkers(), downloadsDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ERROR: listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("INFO: shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), settings.GetShutdownTimeout())
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("ERROR: server shutdown failed: %v", err)
	}
	if err := service.Shutdown(ctx); err != nil {
		log.Printf("WARN: running jobs did not finish before shutdown: %v", err)
	}

	log.Println("INFO: server exited")
}
