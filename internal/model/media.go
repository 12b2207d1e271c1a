package model

import (
	"fmt"
	"math"
)

// MediaInfo is the metadata returned by a probe without downloading
type MediaInfo struct {
	Title     string  `json:"title"`
	Duration  float64 `json:"duration"`
	Thumbnail string  `json:"thumbnail"`
}

// PlaylistEntry represents a single video in a playlist
type PlaylistEntry struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Playlist represents a YouTube playlist with its entries
type Playlist struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	URL     string           `json:"url"`
	Entries []*PlaylistEntry `json:"entries"`
}

// Len returns the number of entries
func (p *Playlist) Len() int {
	return len(p.Entries)
}

// DurationString returns the duration formatted as hh:mm:ss or mm:ss
func (m MediaInfo) DurationString() string {
	if m.Duration <= 0 {
		return "—"
	}

	total := int(math.Round(m.Duration))
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
