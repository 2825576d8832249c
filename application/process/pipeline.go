package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/milordsutrix/tool-tubecutter/domain/media"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/metrics"
)

// Progress checkpoints. Acquiring the source accounts for the first 30%,
// the selection loop for the next 60%, and completion for the rest.
const (
	progressStarted = 10
	progressFetched = 30
	progressSpan    = 60
)

// runPipeline executes the background pipeline for one job. A failure to
// obtain the source asset, or any error outside the selection loop, makes
// the job terminal-error; a failing selection marks only that selection and
// the loop continues.
func (s *Service) runPipeline(ctx context.Context, jobID, videoID string) {
	logger := s.logger.With().Str("jobId", jobID).Str("videoId", videoID).Logger()
	metrics.JobsStarted.Inc()

	if err := s.execute(ctx, logger, jobID, videoID); err != nil {
		logger.Error().Err(err).Msg("pipeline failed")
		msg := err.Error()
		if _, updErr := s.repo.UpdateJob(ctx, jobID, media.JobUpdate{
			Status: statusPtr(media.StatusError),
			Error:  &msg,
		}); updErr != nil {
			logger.Error().Err(updErr).Msg("failed to record job error")
		}
		metrics.JobsFinished.WithLabelValues(string(media.StatusError)).Inc()
		return
	}

	metrics.JobsFinished.WithLabelValues(string(media.StatusCompleted)).Inc()
	logger.Info().Msg("pipeline completed")
}

func (s *Service) execute(ctx context.Context, logger zerolog.Logger, jobID, videoID string) error {
	if _, err := s.repo.UpdateJob(ctx, jobID, media.JobUpdate{
		Status:   statusPtr(media.StatusProcessing),
		Progress: intPtr(progressStarted),
	}); err != nil {
		return err
	}

	video, err := s.repo.GetVideo(ctx, videoID)
	if err != nil {
		return err
	}

	audioPath, fetched, err := s.acquireSource(ctx, video)
	if err != nil {
		return err
	}

	if _, err := s.repo.UpdateJob(ctx, jobID, media.JobUpdate{Progress: intPtr(progressFetched)}); err != nil {
		return err
	}

	selections, err := s.repo.ListSelectionsByVideoID(ctx, videoID)
	if err != nil {
		return err
	}

	total := len(selections)
	for i, sel := range selections {
		s.extractSelection(ctx, logger, audioPath, sel)

		progress := progressFetched + ((i+1)*progressSpan)/total
		if _, err := s.repo.UpdateJob(ctx, jobID, media.JobUpdate{Progress: intPtr(progress)}); err != nil {
			return err
		}
	}

	// A fetched copy is a cache of one: drop it once the run succeeds.
	// Uploaded sources are never deleted here.
	if fetched {
		if err := os.Remove(audioPath); err != nil {
			logger.Warn().Str("path", audioPath).Err(err).Msg("failed to remove fetched source")
		}
		if _, err := s.repo.UpdateVideo(ctx, videoID, media.VideoUpdate{LocalPath: strPtr("")}); err != nil {
			logger.Warn().Err(err).Msg("failed to clear fetched source path")
		}
	}

	if _, err := s.repo.UpdateJob(ctx, jobID, media.JobUpdate{
		Status:   statusPtr(media.StatusCompleted),
		Progress: intPtr(100),
	}); err != nil {
		return err
	}

	return nil
}

// acquireSource returns the local audio path for a video, fetching it for
// remote origins. The second return value reports whether the path is a
// fetched copy that should be cleaned up after the run.
func (s *Service) acquireSource(ctx context.Context, video *media.Video) (string, bool, error) {
	switch video.SourceType {
	case media.SourceYouTube:
		audioPath, err := s.fetcher.FetchAudio(ctx, video.YouTubeURL, s.workDir)
		if err != nil {
			return "", false, err
		}
		if _, err := s.repo.UpdateVideo(ctx, video.ID, media.VideoUpdate{LocalPath: &audioPath}); err != nil {
			return "", false, err
		}
		return audioPath, true, nil
	case media.SourceUpload:
		if video.LocalPath == "" {
			return "", false, fmt.Errorf("uploaded video %s has no source file", video.ID)
		}
		if _, err := os.Stat(video.LocalPath); err != nil {
			return "", false, fmt.Errorf("uploaded source file missing: %w", err)
		}
		return video.LocalPath, false, nil
	default:
		return "", false, fmt.Errorf("unknown source type %q", video.SourceType)
	}
}

// extractSelection cuts one selection out of the source. Failures are
// terminal for the selection only; the job keeps going.
func (s *Service) extractSelection(ctx context.Context, logger zerolog.Logger, audioPath string, sel *media.Selection) {
	if _, err := s.repo.UpdateSelection(ctx, sel.ID, media.SelectionUpdate{
		Status: statusPtr(media.StatusProcessing),
	}); err != nil {
		logger.Error().Str("selectionId", sel.ID).Err(err).Msg("failed to mark selection processing")
		return
	}

	finalPath, size, err := s.cutSegment(ctx, audioPath, sel)
	if err != nil {
		logger.Warn().Str("selectionId", sel.ID).Err(err).Msg("selection extraction failed")
		if _, updErr := s.repo.UpdateSelection(ctx, sel.ID, media.SelectionUpdate{
			Status: statusPtr(media.StatusError),
		}); updErr != nil {
			logger.Error().Str("selectionId", sel.ID).Err(updErr).Msg("failed to record selection error")
		}
		metrics.SelectionsFinished.WithLabelValues(string(media.StatusError)).Inc()
		return
	}

	filename := media.OutputFilename(sel.Title)
	if _, err := s.repo.UpdateSelection(ctx, sel.ID, media.SelectionUpdate{
		Status:   statusPtr(media.StatusCompleted),
		Filename: &filename,
		FilePath: &finalPath,
		FileSize: &size,
	}); err != nil {
		logger.Error().Str("selectionId", sel.ID).Err(err).Msg("failed to record selection result")
		return
	}
	metrics.SelectionsFinished.WithLabelValues(string(media.StatusCompleted)).Inc()
}

// cutSegment extracts one selection to a selection-id scoped path. Outputs
// stay keyed by selection id on disk, so same-titled selections never write
// to the same file; the title-derived filename is only the outward download
// name.
func (s *Service) cutSegment(ctx context.Context, audioPath string, sel *media.Selection) (string, int64, error) {
	outputPath := filepath.Join(s.workDir, sel.ID+media.OutputExtension)
	size, err := s.extractor.Extract(ctx, media.Segment{
		InputPath:    audioPath,
		OutputPath:   outputPath,
		StartSeconds: sel.StartTime,
		EndSeconds:   sel.EndTime,
	})
	if err != nil {
		return "", 0, err
	}
	return outputPath, size, nil
}

func statusPtr(s media.Status) *media.Status { return &s }
func intPtr(i int) *int                      { return &i }
func strPtr(s string) *string                { return &s }
