package download

import (
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ytget/yt-downloader-server/internal/model"
)

// Quality tiers for video mode
const (
	DefaultQuality   = "720p"
	DefaultMaxHeight = 720
)

var qualityHeights = map[string]int{
	"1080p": 1080,
	"720p":  720,
	"480p":  480,
	"360p":  360,
}

// Audio codecs and their target quality. "0" asks the encoder for its best
// setting, which is lossless for wav.
const (
	DefaultAudioFormat  = "mp3"
	DefaultAudioQuality = "192K"
)

var audioQualities = map[string]string{
	"wav": "0",
	"mp3": "320K",
	"m4a": "256K",
}

// Engine tuning
const (
	OutputTemplate      = "%(title)s.%(ext)s"
	MergeOutputFormat   = "mp4"
	AudioOnlyFormat     = "bestaudio/best"
	ConcurrentFragments = 5
	NetworkRetries      = 5
	FragmentRetries     = 5
	YouTubeExtractorArg = "youtube:player_client=android"
)

// Browser-like headers sent with every request
var DefaultHeaders = map[string]string{
	"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Accept-Language": "en-US,en;q=0.9",
	"Referer":         "https://www.youtube.com/",
}

// ValidationError reports a malformed request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Plan is a validated request, ready to be turned into engine options
type Plan struct {
	URL         string
	Mode        model.Mode
	MaxHeight   int
	AudioFormat string
	// Start and End are trim markers in seconds; nil when not supplied
	Start *float64
	End   *float64
}

// Env holds the filesystem locations the options depend on
type Env struct {
	DownloadDir string
	CookieFile  string
}

// NewPlan validates req and normalizes its fields
func NewPlan(req model.Request) (Plan, error) {
	plan := Plan{
		URL:       strings.TrimSpace(req.URL),
		Mode:      model.Mode(strings.ToLower(strings.TrimSpace(string(req.Mode)))),
		MaxHeight: DefaultMaxHeight,
	}

	if err := validateURL(plan.URL); err != nil {
		return Plan{}, err
	}

	switch plan.Mode {
	case model.ModeVideo:
		if height, ok := qualityHeights[strings.ToLower(strings.TrimSpace(req.Quality))]; ok {
			plan.MaxHeight = height
		}
	case model.ModeAudio:
		format := strings.ToLower(strings.TrimSpace(req.AudioFormat))
		if format == "" {
			format = DefaultAudioFormat
		}
		if _, ok := audioQualities[format]; !ok {
			return Plan{}, &ValidationError{Field: "audio_format", Reason: fmt.Sprintf("unsupported format %q", req.AudioFormat)}
		}
		plan.AudioFormat = format
	default:
		return Plan{}, &ValidationError{Field: "mode", Reason: fmt.Sprintf("must be %q or %q", model.ModeVideo, model.ModeAudio)}
	}

	var err error
	if plan.Start, err = parseMarker("start_time", req.StartTime); err != nil {
		return Plan{}, err
	}
	if plan.End, err = parseMarker("end_time", req.EndTime); err != nil {
		return Plan{}, err
	}
	if plan.Start != nil && plan.End != nil && *plan.End <= *plan.Start {
		return Plan{}, &ValidationError{Field: "end_time", Reason: "must be after start_time"}
	}

	return plan, nil
}

// HasTrim reports whether a time range was requested
func (p Plan) HasTrim() bool {
	return p.Start != nil || p.End != nil
}

// NeedsDuration reports whether the trim end depends on the source duration
func (p Plan) NeedsDuration() bool {
	return p.HasTrim() && p.End == nil
}

// TrimRange returns the effective range in seconds. A missing start is 0 and
// a missing end is the source duration, or +Inf when the duration is unknown.
func (p Plan) TrimRange(duration float64) (start, end float64, ok bool) {
	if !p.HasTrim() {
		return 0, 0, false
	}

	if p.Start != nil {
		start = *p.Start
	}
	switch {
	case p.End != nil:
		end = *p.End
	case duration > 0:
		end = duration
	default:
		end = math.Inf(1)
	}
	return start, end, true
}

// BuildOptions translates a plan into engine options. The only side effect is
// checking whether the cookie file exists.
func BuildOptions(plan Plan, env Env, duration float64, hook model.ProgressFunc) model.ExtractOptions {
	opts := model.ExtractOptions{
		OutputTemplate:      filepath.Join(env.DownloadDir, OutputTemplate),
		ConcurrentFragments: ConcurrentFragments,
		Retries:             NetworkRetries,
		FragmentRetries:     FragmentRetries,
		NoPlaylist:          true,
		Headers:             make(map[string]string, len(DefaultHeaders)),
		ExtractorArgs:       YouTubeExtractorArg,
		Progress:            hook,
	}
	for k, v := range DefaultHeaders {
		opts.Headers[k] = v
	}

	switch plan.Mode {
	case model.ModeAudio:
		opts.Format = AudioOnlyFormat
		opts.ExtractAudio = true
		opts.AudioFormat = plan.AudioFormat
		opts.AudioQuality = AudioQualityFor(plan.AudioFormat)
	default:
		opts.Format = VideoFormat(plan.MaxHeight)
		opts.MergeOutputFormat = MergeOutputFormat
	}

	if start, end, ok := plan.TrimRange(duration); ok {
		opts.DownloadSections = FormatSections(start, end)
		opts.ForceKeyframesAtCuts = true
	}

	if env.CookieFile != "" {
		if info, err := os.Stat(env.CookieFile); err == nil && !info.IsDir() {
			opts.CookieFile = env.CookieFile
		}
	}

	return opts
}

// VideoFormat returns the format selector for a height cap: merged mp4+m4a,
// then a single mp4 stream, then anything under the cap.
func VideoFormat(maxHeight int) string {
	if maxHeight <= 0 {
		maxHeight = DefaultMaxHeight
	}
	return fmt.Sprintf(
		"bestvideo[height<=?%[1]d][ext=mp4]+bestaudio[ext=m4a]/best[height<=?%[1]d][ext=mp4]/best[height<=?%[1]d]",
		maxHeight,
	)
}

// AudioQualityFor returns the post-processing quality for a codec
func AudioQualityFor(codec string) string {
	if q, ok := audioQualities[strings.ToLower(codec)]; ok {
		return q
	}
	return DefaultAudioQuality
}

// FormatSections renders a range as a download-sections directive
func FormatSections(start, end float64) string {
	endStr := "inf"
	if !math.IsInf(end, 1) {
		endStr = strconv.FormatFloat(end, 'f', -1, 64)
	}
	return "*" + strconv.FormatFloat(start, 'f', -1, 64) + "-" + endStr
}

// ParseTimestamp converts SS, MM:SS or HH:MM:SS into seconds. Every component
// may carry a fraction.
func ParseTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty timestamp")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("too many components in %q", s)
	}

	var seconds float64
	for _, part := range parts {
		if !isDecimal(part) {
			return 0, fmt.Errorf("malformed component %q in %q", part, s)
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("malformed component %q in %q: %w", part, s, err)
		}
		seconds = seconds*60 + v
	}
	return seconds, nil
}

func parseMarker(field, value string) (*float64, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	v, err := ParseTimestamp(value)
	if err != nil {
		return nil, &ValidationError{Field: field, Reason: err.Error()}
	}
	return &v, nil
}

// isDecimal accepts plain non-negative decimals like "5", "05.25" or ".5"
func isDecimal(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func validateURL(raw string) error {
	if raw == "" {
		return &ValidationError{Field: "url", Reason: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Reason: err.Error()}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "url", Reason: "must be an absolute http(s) URL"}
	}
	return nil
}
