package platform

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseInfoLines(t *testing.T) {
	stdout := `[youtube] Extracting URL
not json
{"title": "First", "duration": 10}
{broken json
{"title": "Clip", "duration": 212.5, "thumbnail": "https://i.ytimg.com/vi/abc/hq.jpg", "filepath": "/srv/Clip.mp4", "_filename": "/srv/Clip.webm", "requested_downloads": [{"filepath": "/srv/Clip.mp4"}, {"_filename": "/srv/Clip.m4a"}, {}]}
`

	info, err := parseInfoLines(stdout)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Title != "Clip" {
		t.Errorf("expected last info dict, got title %q", info.Title)
	}

	res := info.extractResult()
	if want := []string{"/srv/Clip.mp4", "/srv/Clip.m4a"}; !reflect.DeepEqual(res.RequestedPaths, want) {
		t.Errorf("expected requested paths %v, got %v", want, res.RequestedPaths)
	}
	if res.Filepath != "/srv/Clip.mp4" || res.PreparedFilename != "/srv/Clip.webm" {
		t.Errorf("unexpected paths %+v", res)
	}

	media := info.mediaInfo()
	if media.Duration != 212.5 || media.Thumbnail == "" || media.Title != "Clip" {
		t.Errorf("unexpected media info %+v", media)
	}
}

func TestParseInfoLinesEmpty(t *testing.T) {
	for _, stdout := range []string{"", "\n\n", "[download] 100%", "{not json}"} {
		if _, err := parseInfoLines(stdout); !errors.Is(err, ErrNoInfo) {
			t.Errorf("expected ErrNoInfo for %q, got %v", stdout, err)
		}
	}
}

func TestLastErrorLine(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   string
	}{
		{"empty", "", ""},
		{"no error", "WARNING: slow\n", ""},
		{"single", "ERROR: Unsupported URL: https://example.com\n", "ERROR: Unsupported URL: https://example.com"},
		{"last wins", "ERROR: first\nWARNING: x\nERROR: second\n", "ERROR: second"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lastErrorLine(tt.stderr); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
