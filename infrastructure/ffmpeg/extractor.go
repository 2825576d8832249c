// Package ffmpeg adapts the ffmpeg command line tool to the segment
// extractor port.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/milordsutrix/tool-tubecutter/domain/media"
)

// Extractor implements media.SegmentExtractor using ffmpeg
type Extractor struct {
	ffmpegPath string
	bitrate    string
	runner     CommandRunner
}

// ExtractorOption is a functional option for configuring Extractor
type ExtractorOption func(*Extractor)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) ExtractorOption {
	return func(e *Extractor) {
		e.ffmpegPath = path
	}
}

// WithBitrate sets the MP3 output bitrate (default 192k)
func WithBitrate(bitrate string) ExtractorOption {
	return func(e *Extractor) {
		if bitrate != "" {
			e.bitrate = bitrate
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) ExtractorOption {
	return func(e *Extractor) {
		e.runner = runner
	}
}

// NewExtractor creates a new ffmpeg-based segment extractor
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		ffmpegPath: "ffmpeg",
		bitrate:    "192k",
		runner:     &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Extract implements media.SegmentExtractor
func (e *Extractor) Extract(ctx context.Context, seg media.Segment) (int64, error) {
	duration := seg.EndSeconds - seg.StartSeconds
	args := []string{
		"-i", seg.InputPath,
		"-ss", strconv.Itoa(seg.StartSeconds),
		"-t", strconv.Itoa(duration),
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", e.bitrate,
		"-y", // Overwrite output file if it exists
		seg.OutputPath,
	}

	if err := e.runner.Run(ctx, e.ffmpegPath, args...); err != nil {
		return 0, fmt.Errorf("ffmpeg segment extraction failed: %w", err)
	}

	info, err := os.Stat(seg.OutputPath)
	if err != nil {
		return 0, fmt.Errorf("failed to stat extracted segment: %w", err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("extracted segment is empty: %s", seg.OutputPath)
	}

	return info.Size(), nil
}

// VerifyInstalled checks that ffmpeg is available
func (e *Extractor) VerifyInstalled(ctx context.Context) error {
	_, err := e.runner.Output(ctx, e.ffmpegPath, "-version")
	if err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// Ensure Extractor implements media.SegmentExtractor
var _ media.SegmentExtractor = (*Extractor)(nil)
