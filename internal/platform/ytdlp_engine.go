package platform

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/ytget/yt-downloader-server/internal/model"
)

// Engine tuning
const (
	ProgressInterval = 500 * time.Millisecond
	// AfterMoveTemplate prints the full info dict once the file is in place
	AfterMoveTemplate = "after_move:%()j"
)

// Engine runs yt-dlp through go-ytdlp
type Engine struct {
	executable     string
	ffmpegLocation string
}

// NewEngine creates an engine. Empty paths use the binaries found on PATH
// or installed by go-ytdlp.
func NewEngine(executable, ffmpegLocation string) *Engine {
	return &Engine{
		executable:     executable,
		ffmpegLocation: ffmpegLocation,
	}
}

// Install makes sure a yt-dlp binary is available when no explicit
// executable is configured
func (e *Engine) Install(ctx context.Context) error {
	if e.executable != "" {
		return nil
	}
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return nil
}

// Extract downloads url according to opts and reports where the file went
func (e *Engine) Extract(ctx context.Context, url string, opts model.ExtractOptions) (*model.ExtractResult, error) {
	dl := e.command().
		Output(opts.OutputTemplate).
		Print(AfterMoveTemplate).
		Progress()

	if opts.Format != "" {
		dl.Format(opts.Format)
	}
	if opts.MergeOutputFormat != "" {
		dl.MergeOutputFormat(opts.MergeOutputFormat)
	}
	if opts.ExtractAudio {
		dl.ExtractAudio()
		if opts.AudioFormat != "" {
			dl.AudioFormat(opts.AudioFormat)
		}
		if opts.AudioQuality != "" {
			dl.AudioQuality(opts.AudioQuality)
		}
	}
	if opts.DownloadSections != "" {
		dl.DownloadSections(opts.DownloadSections)
	}
	if opts.ForceKeyframesAtCuts {
		dl.ForceKeyframesAtCuts()
	}
	if opts.ConcurrentFragments > 0 {
		dl.ConcurrentFragments(opts.ConcurrentFragments)
	}
	if opts.Retries > 0 {
		dl.Retries(strconv.Itoa(opts.Retries))
	}
	if opts.FragmentRetries > 0 {
		dl.FragmentRetries(strconv.Itoa(opts.FragmentRetries))
	}
	if opts.NoPlaylist {
		dl.NoPlaylist()
	}
	for _, header := range formatHeaders(opts.Headers) {
		dl.AddHeaders(header)
	}
	if opts.ExtractorArgs != "" {
		dl.ExtractorArgs(opts.ExtractorArgs)
	}
	if opts.CookieFile != "" {
		dl.Cookies(opts.CookieFile)
	}
	if opts.Progress != nil {
		hook := opts.Progress
		dl.ProgressFunc(ProgressInterval, func(update ytdlp.ProgressUpdate) {
			hook(model.ProgressEvent{
				Phase:      phaseFor(update.Status),
				BytesDone:  int64(update.DownloadedBytes),
				BytesTotal: int64(update.TotalBytes),
			})
		})
	}

	result, err := dl.Run(ctx, url)
	if err != nil {
		return nil, runError(ctx, result, err)
	}

	info, err := parseInfoLines(result.Stdout)
	if err != nil {
		return nil, err
	}
	return info.extractResult(), nil
}

// Probe reads title, duration and thumbnail without downloading
func (e *Engine) Probe(ctx context.Context, url string) (*model.MediaInfo, error) {
	result, err := e.command().
		SkipDownload().
		DumpJSON().
		NoPlaylist().
		Run(ctx, url)
	if err != nil {
		return nil, runError(ctx, result, err)
	}

	info, err := parseInfoLines(result.Stdout)
	if err != nil {
		return nil, err
	}
	return info.mediaInfo(), nil
}

func (e *Engine) command() *ytdlp.Command {
	dl := ytdlp.New().NoWarnings()
	if e.executable != "" {
		dl.SetExecutable(e.executable)
	}
	if e.ffmpegLocation != "" {
		dl.FFmpegLocation(e.ffmpegLocation)
	}
	return dl
}

// runError turns a failed run into an error carrying yt-dlp's own message
func runError(ctx context.Context, result *ytdlp.Result, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if result != nil {
		if msg := lastErrorLine(result.Stderr); msg != "" {
			log.Printf("WARN: yt-dlp exited with code %d", result.ExitCode)
			return errors.New(msg)
		}
	}
	return err
}

// formatHeaders renders headers as "Key:Value" in a stable order
func formatHeaders(headers map[string]string) []string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+":"+headers[k])
	}
	return out
}

func phaseFor(status ytdlp.ProgressStatus) model.ProgressPhase {
	switch status {
	case ytdlp.ProgressStatusStarting:
		return model.PhaseStarting
	case ytdlp.ProgressStatusDownloading:
		return model.PhaseDownloading
	case ytdlp.ProgressStatusPostProcessing:
		return model.PhasePostProcessing
	case ytdlp.ProgressStatusFinished:
		return model.PhaseFinished
	default:
		return model.PhaseError
	}
}
