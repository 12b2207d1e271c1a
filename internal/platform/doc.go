package platform

// Package platform contains the external tooling glue: the yt-dlp engine
// adapter, playlist listing via the ytdlp library, and filesystem helpers for
// locating artifacts in the download directory.
