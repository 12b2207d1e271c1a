package platform

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/yt-downloader-server/internal/model"
)

// Timeout constants
const (
	DefaultParseTimeout = 60 * time.Second
)

// URL parameters
const (
	PlaylistParam    = "list="
	PlaylistQueryKey = "list"
)

// Default values
const (
	DefaultPlaylistName = "Unknown Playlist"
)

// URL templates
const (
	YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"
)

// Playlist title constants
const (
	MinPrefixLength = 10
	PlaylistSuffix  = " Playlist"
)

type playlistFetcher func(ctx context.Context, playlistID string) ([]*model.PlaylistEntry, error)

// PlaylistService lists the entries of a YouTube playlist without downloading
type PlaylistService struct {
	timeout time.Duration
	fetch   playlistFetcher
}

// NewPlaylistService creates a new playlist service
func NewPlaylistService() *PlaylistService {
	return &PlaylistService{
		timeout: DefaultParseTimeout,
		fetch:   fetchPlaylistEntries,
	}
}

// SetTimeout sets the timeout for listing operations
func (p *PlaylistService) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// ParsePlaylist resolves a playlist URL into its entries
func (p *PlaylistService) ParsePlaylist(ctx context.Context, rawURL string) (*model.Playlist, error) {
	if !isValidPlaylistURL(rawURL) {
		return nil, fmt.Errorf("invalid playlist URL: %s", rawURL)
	}

	playlistID := extractPlaylistID(rawURL)
	if playlistID == "" {
		return nil, fmt.Errorf("could not extract playlist ID from URL: %s", rawURL)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	entries, err := p.fetch(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", err)
	}

	return &model.Playlist{
		ID:      playlistID,
		Title:   extractPlaylistTitle(entries),
		URL:     rawURL,
		Entries: entries,
	}, nil
}

func fetchPlaylistEntries(ctx context.Context, playlistID string) ([]*model.PlaylistEntry, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}

	entries := make([]*model.PlaylistEntry, 0, len(items))
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		entries = append(entries, &model.PlaylistEntry{
			ID:    it.VideoID,
			Title: it.Title,
			URL:   fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
		})
	}
	return entries, nil
}

// isValidPlaylistURL checks if the URL carries a playlist parameter
func isValidPlaylistURL(rawURL string) bool {
	return strings.Contains(rawURL, PlaylistParam)
}

// extractPlaylistID returns the first list parameter of the URL
func extractPlaylistID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get(PlaylistQueryKey)
}

// extractPlaylistTitle derives a title from the common prefix of the first
// two entries, falling back to the first entry title
func extractPlaylistTitle(entries []*model.PlaylistEntry) string {
	if len(entries) == 0 {
		return DefaultPlaylistName
	}
	if len(entries) > 1 {
		commonPrefix := findCommonPrefix(entries[0].Title, entries[1].Title)
		if len(commonPrefix) > MinPrefixLength {
			return strings.TrimSpace(commonPrefix) + PlaylistSuffix
		}
	}
	return entries[0].Title + PlaylistSuffix
}

// findCommonPrefix finds the common prefix between two strings, never
// splitting a multi-byte character
func findCommonPrefix(s1, s2 string) string {
	minLen := min(len(s1), len(s2))
	i := 0
	for i < minLen && s1[i] == s2[i] {
		i++
	}
	for i > 0 && i < len(s1) && !utf8.RuneStart(s1[i]) {
		i--
	}
	return s1[:i]
}
