// Package process implements the processing orchestrator: it validates
// incoming requests, materializes videos, jobs and selections, and drives
// the background extraction pipeline.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/milordsutrix/tool-tubecutter/domain/media"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/logging"
)

// Service orchestrates the complete video-to-selections workflow
type Service struct {
	repo      media.Repository
	fetcher   media.Fetcher
	extractor media.SegmentExtractor
	archiver  media.Archiver
	workDir   string
	logger    zerolog.Logger
}

// NewService creates a new process service. All extraction outputs, fetched
// sources, uploads and archives live under workDir.
func NewService(
	repo media.Repository,
	fetcher media.Fetcher,
	extractor media.SegmentExtractor,
	archiver media.Archiver,
	workDir string,
) *Service {
	return &Service{
		repo:      repo,
		fetcher:   fetcher,
		extractor: extractor,
		archiver:  archiver,
		workDir:   workDir,
		logger:    logging.WithComponent("process"),
	}
}

// ValidateSource reports whether the URL refers to an accessible video
func (s *Service) ValidateSource(ctx context.Context, url string) bool {
	return s.fetcher.Validate(ctx, url)
}

// DescribeSource probes a video's metadata without downloading it
func (s *Service) DescribeSource(ctx context.Context, url string) (*media.SourceInfo, error) {
	return s.fetcher.Describe(ctx, url)
}

// SubmitResult is returned as soon as a processing request is accepted,
// before any extraction has happened
type SubmitResult struct {
	Job        *media.Job         `json:"job"`
	Video      *media.Video       `json:"video"`
	Selections []*media.Selection `json:"selections"`
}

// Submit validates a processing request, resolves or creates the video,
// atomically creates the job and its selections, and hands off to the
// background pipeline. It returns immediately; the caller polls JobStatus
// for progress.
func (s *Service) Submit(ctx context.Context, req media.ProcessRequest) (*SubmitResult, error) {
	ranges, err := req.Validate()
	if err != nil {
		return nil, err
	}

	video, err := s.resolveVideo(ctx, req)
	if err != nil {
		return nil, err
	}

	job, selections, err := s.repo.CreateJobWithSelections(ctx, video.ID, ranges)
	if err != nil {
		return nil, err
	}

	// The pipeline outlives the request: it runs on a fresh context and
	// cannot be cancelled once started.
	go s.runPipeline(context.Background(), job.ID, video.ID)

	return &SubmitResult{Job: job, Video: video, Selections: selections}, nil
}

func (s *Service) resolveVideo(ctx context.Context, req media.ProcessRequest) (*media.Video, error) {
	switch req.SourceType {
	case media.SourceYouTube:
		video, err := s.repo.GetVideoByURL(ctx, req.YouTubeURL)
		if err == nil {
			return video, nil
		}
		if !errors.Is(err, media.ErrNotFound) {
			return nil, err
		}

		info, err := s.fetcher.Describe(ctx, req.YouTubeURL)
		if err != nil {
			return nil, fmt.Errorf("failed to get video info: %w", err)
		}
		return s.repo.CreateVideo(ctx, &media.Video{
			SourceType: media.SourceYouTube,
			YouTubeURL: req.YouTubeURL,
			Title:      info.Title,
			Duration:   info.Duration,
			Thumbnail:  info.Thumbnail,
			Channel:    info.Channel,
		})
	case media.SourceUpload:
		return s.repo.GetVideo(ctx, req.UploadedVideoID)
	default:
		return nil, fmt.Errorf("%w: unknown source type %q", media.ErrInvalidRequest, req.SourceType)
	}
}

// RegisterUpload creates a video record for a directly uploaded audio file
func (s *Service) RegisterUpload(ctx context.Context, localPath, title string, duration int) (*media.Video, error) {
	return s.repo.CreateVideo(ctx, &media.Video{
		SourceType: media.SourceUpload,
		LocalPath:  localPath,
		Title:      title,
		Duration:   duration,
	})
}

// JobStatusResult is the triple the polling API reads
type JobStatusResult struct {
	Job        *media.Job         `json:"job"`
	Video      *media.Video       `json:"video"`
	Selections []*media.Selection `json:"selections"`
}

// JobStatus assembles a job, its video and all of its selections
func (s *Service) JobStatus(ctx context.Context, jobID string) (*JobStatusResult, error) {
	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	video, err := s.repo.GetVideo(ctx, job.VideoID)
	if err != nil {
		return nil, err
	}
	selections, err := s.repo.ListSelectionsByVideoID(ctx, job.VideoID)
	if err != nil {
		return nil, err
	}
	return &JobStatusResult{Job: job, Video: video, Selections: selections}, nil
}

// Selection returns one selection by id
func (s *Service) Selection(ctx context.Context, id string) (*media.Selection, error) {
	return s.repo.GetSelection(ctx, id)
}

// ArchiveCompleted bundles a video's completed selections into a zip under
// the working directory and returns the archive path. The archive is
// ephemeral: the caller deletes it after streaming it out.
func (s *Service) ArchiveCompleted(ctx context.Context, videoID string) (string, error) {
	selections, err := s.repo.ListSelectionsByVideoID(ctx, videoID)
	if err != nil {
		return "", err
	}

	// Entry names come from the title-derived filenames; duplicates get a
	// numeric suffix so no entry shadows another inside the archive.
	var entries []media.ArchiveEntry
	seen := make(map[string]int)
	for _, sel := range selections {
		if sel.Status != media.StatusCompleted || sel.FilePath == "" {
			continue
		}
		name := sel.Filename
		seen[name]++
		if n := seen[name]; n > 1 {
			ext := filepath.Ext(name)
			name = fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), n, ext)
		}
		entries = append(entries, media.ArchiveEntry{Path: sel.FilePath, Name: name})
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: no completed selections for video %s", media.ErrNotFound, videoID)
	}

	archivePath := filepath.Join(s.workDir, videoID+"-all.zip")
	if err := s.archiver.Bundle(ctx, entries, archivePath); err != nil {
		os.Remove(archivePath)
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	return archivePath, nil
}
