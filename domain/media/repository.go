package media

import "context"

// VideoUpdate is a partial update applied to a video
type VideoUpdate struct {
	LocalPath *string
}

// JobUpdate is a partial update applied to a job
type JobUpdate struct {
	Status   *Status
	Progress *int
	Error    *string
}

// SelectionUpdate is a partial update applied to a selection
type SelectionUpdate struct {
	Status   *Status
	Filename *string
	FilePath *string
	FileSize *int64
}

// Repository owns entity storage for videos, jobs and selections.
// This is a port that can be implemented by different storage backends;
// every update is an atomic replace of one record, and updates to unknown
// ids return ErrNotFound rather than creating anything.
type Repository interface {
	// GetVideo returns the video with the given id
	GetVideo(ctx context.Context, id string) (*Video, error)

	// GetVideoByURL returns the video created for an exact YouTube URL match
	GetVideoByURL(ctx context.Context, url string) (*Video, error)

	// CreateVideo stores a new video, assigning its id and pending status
	CreateVideo(ctx context.Context, v *Video) (*Video, error)

	// UpdateVideo applies a partial update to a video
	UpdateVideo(ctx context.Context, id string, update VideoUpdate) (*Video, error)

	// GetJob returns the job with the given id
	GetJob(ctx context.Context, id string) (*Job, error)

	// GetJobByVideoID returns the most recent job for a video
	GetJobByVideoID(ctx context.Context, videoID string) (*Job, error)

	// CreateJobWithSelections atomically creates one pending job and all of
	// its pending selections. Nothing is persisted if the video already has
	// a non-terminal job; that case returns ErrActiveJob.
	CreateJobWithSelections(ctx context.Context, videoID string, ranges []TimeRange) (*Job, []*Selection, error)

	// UpdateJob applies a partial update to a job
	UpdateJob(ctx context.Context, id string, update JobUpdate) (*Job, error)

	// GetSelection returns the selection with the given id
	GetSelection(ctx context.Context, id string) (*Selection, error)

	// ListSelectionsByVideoID returns a video's selections in creation order
	ListSelectionsByVideoID(ctx context.Context, videoID string) ([]*Selection, error)

	// UpdateSelection applies a partial update to a selection
	UpdateSelection(ctx context.Context, id string, update SelectionUpdate) (*Selection, error)
}
