package media

import "errors"

var (
	// ErrNotFound is returned when a video, job or selection does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidRequest is returned when a processing request fails validation
	ErrInvalidRequest = errors.New("invalid request")

	// ErrActiveJob is returned when a video already has a non-terminal job.
	// Pipelines over one video are never run concurrently; the caller must
	// wait for the running job to finish before resubmitting.
	ErrActiveJob = errors.New("video already has an active job")
)
