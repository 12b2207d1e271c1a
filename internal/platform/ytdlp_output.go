package platform

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/ytget/yt-downloader-server/internal/model"
)

// ErrNoInfo is returned when yt-dlp printed no info dict
var ErrNoInfo = errors.New("yt-dlp returned no media information")

const errorPrefix = "ERROR:"

type requestedDownload struct {
	Filepath string `json:"filepath"`
	Filename string `json:"_filename"`
}

// infoJSON is the subset of the yt-dlp info dict the server reads
type infoJSON struct {
	Title              string              `json:"title"`
	Duration           float64             `json:"duration"`
	Thumbnail          string              `json:"thumbnail"`
	Filepath           string              `json:"filepath"`
	Filename           string              `json:"_filename"`
	RequestedDownloads []requestedDownload `json:"requested_downloads"`
}

// parseInfoLines returns the last info dict found in yt-dlp stdout.
// Non-JSON lines are skipped.
func parseInfoLines(stdout string) (*infoJSON, error) {
	var found *infoJSON
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var info infoJSON
		if err := json.Unmarshal([]byte(line), &info); err != nil {
			continue
		}
		found = &info
	}
	if found == nil {
		return nil, ErrNoInfo
	}
	return found, nil
}

func (i *infoJSON) extractResult() *model.ExtractResult {
	res := &model.ExtractResult{
		Title:            i.Title,
		Filepath:         i.Filepath,
		PreparedFilename: i.Filename,
	}
	for _, rd := range i.RequestedDownloads {
		path := rd.Filepath
		if path == "" {
			path = rd.Filename
		}
		if path != "" {
			res.RequestedPaths = append(res.RequestedPaths, path)
		}
	}
	return res
}

func (i *infoJSON) mediaInfo() *model.MediaInfo {
	return &model.MediaInfo{
		Title:     i.Title,
		Duration:  i.Duration,
		Thumbnail: i.Thumbnail,
	}
}

// lastErrorLine returns the last "ERROR:" line of yt-dlp stderr
func lastErrorLine(stderr string) string {
	lines := strings.Split(stderr, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, errorPrefix) {
			return line
		}
	}
	return ""
}
