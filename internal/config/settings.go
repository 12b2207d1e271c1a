package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings keys, read from the environment
const (
	KeyListenAddr      = "LISTEN_ADDR"
	KeyDownloadDir     = "DOWNLOAD_DIR"
	KeyCookieFile      = "COOKIE_FILE"
	KeyMaxWorkers      = "MAX_WORKERS"
	KeyYtDlpPath       = "YTDLP_PATH"
	KeyYtDlpInstall    = "YTDLP_AUTO_INSTALL"
	KeyFFmpegPath      = "FFMPEG_PATH"
	KeyAllowedOrigins  = "ALLOWED_ORIGINS"
	KeyRateLimitRPM    = "RATE_LIMIT_RPM"
	KeyRedisAddr       = "REDIS_ADDR"
	KeyRedisPassword   = "REDIS_PASSWORD"
	KeyRedisDB         = "REDIS_DB"
	KeyJobTTL          = "JOB_TTL"
	KeyJobTimeout      = "JOB_TIMEOUT"
	KeyPublicBaseURL   = "PUBLIC_BASE_URL"
	KeyShutdownTimeout = "SHUTDOWN_TIMEOUT"
	KeyTrustedProxies  = "TRUSTED_PROXIES"
)

// Default values
const (
	DefaultListenAddr      = ":8000"
	DefaultDownloadDir     = "downloads"
	DefaultCookieFile      = "cookies.txt"
	DefaultMaxWorkers      = 3
	MaxWorkersLimit        = 16
	DefaultAllowedOrigins  = "*"
	DefaultRateLimitRPM    = 60
	DefaultJobTTL          = 24 * time.Hour
	DefaultJobTimeout      = 0
	DefaultShutdownTimeout = 30 * time.Second
	DefaultEnvFile         = ".env"
)

// Settings manages application configuration
type Settings struct {
	lookup func(string) (string, bool)
}

// NewSettings creates a settings manager over the process environment
func NewSettings() *Settings {
	return &Settings{lookup: os.LookupEnv}
}

// NewSettingsFromMap creates a settings manager over a fixed set of values
func NewSettingsFromMap(values map[string]string) *Settings {
	return &Settings{lookup: func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}}
}

// LoadEnvFile loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// GetListenAddr returns the HTTP listen address
func (s *Settings) GetListenAddr() string {
	return s.stringOr(KeyListenAddr, DefaultListenAddr)
}

// GetDownloadDirectory returns the configured download directory
func (s *Settings) GetDownloadDirectory() string {
	return s.stringOr(KeyDownloadDir, DefaultDownloadDir)
}

// GetCookieFile returns the cookie jar path. The file is optional.
func (s *Settings) GetCookieFile() string {
	return s.stringOr(KeyCookieFile, DefaultCookieFile)
}

// GetMaxWorkers returns the worker pool size, clamped to [1, MaxWorkersLimit]
func (s *Settings) GetMaxWorkers() int {
	value := s.intOr(KeyMaxWorkers, DefaultMaxWorkers)
	if value < 1 {
		return DefaultMaxWorkers
	}
	if value > MaxWorkersLimit {
		return MaxWorkersLimit
	}
	return value
}

// GetYtDlpPath returns the yt-dlp executable, empty for PATH lookup
func (s *Settings) GetYtDlpPath() string {
	return s.stringOr(KeyYtDlpPath, "")
}

// GetYtDlpAutoInstall reports whether yt-dlp should be fetched at startup
func (s *Settings) GetYtDlpAutoInstall() bool {
	return s.boolOr(KeyYtDlpInstall, false)
}

// GetFFmpegPath returns the ffmpeg location, empty for PATH lookup
func (s *Settings) GetFFmpegPath() string {
	return s.stringOr(KeyFFmpegPath, "")
}

// GetAllowedOrigins returns the CORS origins
func (s *Settings) GetAllowedOrigins() []string {
	origins := splitAndClean(s.stringOr(KeyAllowedOrigins, DefaultAllowedOrigins))
	if len(origins) == 0 {
		return []string{DefaultAllowedOrigins}
	}
	return origins
}

// GetTrustedProxies returns the proxy IPs or CIDRs whose forwarding headers
// are honored. Empty means client IPs always come from the connection.
func (s *Settings) GetTrustedProxies() []string {
	return splitAndClean(s.stringOr(KeyTrustedProxies, ""))
}

// GetRateLimitRPM returns requests per minute per client; 0 disables limiting
func (s *Settings) GetRateLimitRPM() int {
	value := s.intOr(KeyRateLimitRPM, DefaultRateLimitRPM)
	if value < 0 {
		return DefaultRateLimitRPM
	}
	return value
}

// GetRedisAddr returns the Redis address; empty means in-memory limiting
func (s *Settings) GetRedisAddr() string {
	return s.stringOr(KeyRedisAddr, "")
}

// GetRedisPassword returns the Redis password
func (s *Settings) GetRedisPassword() string {
	return s.stringOr(KeyRedisPassword, "")
}

// GetRedisDB returns the Redis database index
func (s *Settings) GetRedisDB() int {
	value := s.intOr(KeyRedisDB, 0)
	if value < 0 {
		return 0
	}
	return value
}

// GetJobTTL returns how long finished jobs stay queryable; 0 keeps them
func (s *Settings) GetJobTTL() time.Duration {
	return s.durationOr(KeyJobTTL, DefaultJobTTL)
}

// GetJobTimeout returns the per-job extraction limit; 0 means none
func (s *Settings) GetJobTimeout() time.Duration {
	return s.durationOr(KeyJobTimeout, DefaultJobTimeout)
}

// GetPublicBaseURL returns the prefix for download links
func (s *Settings) GetPublicBaseURL() string {
	return strings.TrimRight(s.stringOr(KeyPublicBaseURL, ""), "/")
}

// GetShutdownTimeout returns how long shutdown waits for running jobs
func (s *Settings) GetShutdownTimeout() time.Duration {
	value := s.durationOr(KeyShutdownTimeout, DefaultShutdownTimeout)
	if value <= 0 {
		return DefaultShutdownTimeout
	}
	return value
}

func (s *Settings) stringOr(key, fallback string) string {
	if v, ok := s.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (s *Settings) intOr(key string, fallback int) int {
	v := s.stringOr(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s *Settings) boolOr(key string, fallback bool) bool {
	v := s.stringOr(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// durationOr accepts Go durations ("90s", "24h") or plain seconds
func (s *Settings) durationOr(key string, fallback time.Duration) time.Duration {
	v := s.stringOr(key, "")
	if v == "" {
		return fallback
	}
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 {
			return fallback
		}
		return time.Duration(n) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// splitAndClean splits a comma-separated list and trims spaces; empty entries are removed
func splitAndClean(csv string) []string {
	var out []string
	for _, p := range strings.Split(csv, ",") {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
