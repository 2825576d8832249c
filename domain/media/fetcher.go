package media

import "context"

// SourceInfo describes a remote video without downloading it
type SourceInfo struct {
	Title     string `json:"title"`
	Duration  int    `json:"duration"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Channel   string `json:"channel,omitempty"`
}

// Fetcher acquires source media from a remote video platform.
// This is a port that can be implemented by different infrastructure adapters.
type Fetcher interface {
	// Validate reports whether the URL refers to an accessible video.
	// It performs no download and has no side effects.
	Validate(ctx context.Context, url string) bool

	// Describe probes the video's metadata without downloading it
	Describe(ctx context.Context, url string) (*SourceInfo, error)

	// FetchAudio downloads the video's audio track into destDir and
	// returns the path of the resulting file
	FetchAudio(ctx context.Context, url, destDir string) (string, error)
}
