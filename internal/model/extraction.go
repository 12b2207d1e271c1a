package model

// Mode selects what the engine keeps from the source
type Mode string

const (
	ModeVideo Mode = "video"
	ModeAudio Mode = "audio"
)

// Request is a download request as submitted by a client
type Request struct {
	URL         string `json:"url"`
	Mode        Mode   `json:"mode"`
	Quality     string `json:"quality,omitempty"`
	AudioFormat string `json:"audio_format,omitempty"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
}

// ExtractOptions is the declarative configuration consumed by the extraction
// engine. Zero values mean "engine default".
type ExtractOptions struct {
	OutputTemplate    string
	Format            string
	MergeOutputFormat string

	ExtractAudio bool
	AudioFormat  string
	AudioQuality string

	// DownloadSections restricts the download to a time range ("*10-40")
	DownloadSections     string
	ForceKeyframesAtCuts bool

	ConcurrentFragments int
	Retries             int
	FragmentRetries     int
	NoPlaylist          bool

	Headers       map[string]string
	ExtractorArgs string
	CookieFile    string

	Progress ProgressFunc
}

// ExtractResult describes where the engine put the artifact
type ExtractResult struct {
	Title string
	// RequestedPaths holds the final path of each requested download, in order
	RequestedPaths []string
	// Filepath is the aggregate path reported for the whole item
	Filepath string
	// PreparedFilename is the path computed from the output template
	PreparedFilename string
}
