// Package ytdlp adapts the yt-dlp command line tool to the media fetcher
// port.
package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/milordsutrix/tool-tubecutter/domain/media"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/logging"
)

// Fetcher implements media.Fetcher using yt-dlp
type Fetcher struct {
	ytdlpPath string
	runner    CommandRunner
	logger    zerolog.Logger
}

// FetcherOption is a functional option for configuring Fetcher
type FetcherOption func(*Fetcher)

// WithYTDLPPath sets a custom yt-dlp executable path
func WithYTDLPPath(path string) FetcherOption {
	return func(f *Fetcher) {
		f.ytdlpPath = path
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) FetcherOption {
	return func(f *Fetcher) {
		f.runner = runner
	}
}

// NewFetcher creates a new yt-dlp based fetcher
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		ytdlpPath: "yt-dlp",
		runner:    &ExecCommandRunner{},
		logger:    logging.WithComponent("ytdlp"),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Validate implements media.Fetcher
func (f *Fetcher) Validate(ctx context.Context, url string) bool {
	_, err := f.runner.Output(ctx, f.ytdlpPath, "--quiet", "--no-download", "--print", "id", url)
	return err == nil
}

// Describe implements media.Fetcher
func (f *Fetcher) Describe(ctx context.Context, url string) (*media.SourceInfo, error) {
	out, err := f.runner.Output(ctx, f.ytdlpPath,
		"--quiet", "--no-download",
		"--print", "%(title)s|%(duration)s|%(thumbnail)s|%(uploader)s",
		url)
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}

	parts := strings.SplitN(strings.TrimSpace(string(out)), "|", 4)
	if len(parts) < 2 {
		return nil, fmt.Errorf("unexpected yt-dlp output: %q", string(out))
	}

	info := &media.SourceInfo{Title: parts[0]}
	if info.Title == "" || info.Title == "NA" {
		info.Title = "Unknown Title"
	}
	if d, err := strconv.Atoi(parts[1]); err == nil {
		info.Duration = d
	}
	if len(parts) > 2 && parts[2] != "NA" {
		info.Thumbnail = parts[2]
	}
	if len(parts) > 3 && parts[3] != "NA" {
		info.Channel = parts[3]
	}

	return info, nil
}

// fetchStrategy is one way of invoking yt-dlp to obtain an MP3. Strategies
// are tried in order and the first success short-circuits; the fetch fails
// only once every strategy has been exhausted.
type fetchStrategy struct {
	name string
	args func(url, outputPath string) []string
}

var fetchStrategies = []fetchStrategy{
	{
		name: "best-quality",
		args: func(url, outputPath string) []string {
			return []string{
				"-x",
				"--audio-format", "mp3",
				"--audio-quality", "0",
				"-o", outputPath,
				url,
			}
		},
	},
	{
		name: "plain-extract",
		args: func(url, outputPath string) []string {
			return []string{
				"-x",
				"--audio-format", "mp3",
				"-o", outputPath,
				url,
			}
		},
	},
}

// FetchAudio implements media.Fetcher. The output filename is generated here
// rather than derived from the video title, so concurrent fetches into the
// same directory can never collide.
func (f *Fetcher) FetchAudio(ctx context.Context, url, destDir string) (string, error) {
	base := filepath.Join(destDir, "source-"+uuid.NewString())
	outputPath := base + ".mp3"

	var lastErr error
	for _, strategy := range fetchStrategies {
		// yt-dlp substitutes the extension itself
		err := f.runner.Run(ctx, f.ytdlpPath, strategy.args(url, base+".%(ext)s")...)
		if err == nil {
			if _, statErr := os.Stat(outputPath); statErr == nil {
				return outputPath, nil
			}
			err = fmt.Errorf("yt-dlp reported success but %s is missing", outputPath)
		}
		f.logger.Warn().Str("strategy", strategy.name).Str("url", url).Err(err).
			Msg("fetch strategy failed")
		lastErr = err
	}

	return "", fmt.Errorf("failed to download audio: %w", lastErr)
}

// VerifyInstalled checks that yt-dlp is available
func (f *Fetcher) VerifyInstalled(ctx context.Context) error {
	_, err := f.runner.Output(ctx, f.ytdlpPath, "--version")
	if err != nil {
		return fmt.Errorf("yt-dlp not found or not executable: %w", err)
	}
	return nil
}

// Ensure Fetcher implements media.Fetcher
var _ media.Fetcher = (*Fetcher)(nil)
