// Package memstore provides the in-memory storage backend.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/milordsutrix/tool-tubecutter/domain/distribution"
	"github.com/milordsutrix/tool-tubecutter/domain/media"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/logging"
)

// Store holds all entity state for the lifetime of the process. Every method
// takes the store lock, so each operation is one atomic replace-of-record;
// the orchestrator's interleaved pipelines never observe partial updates.
type Store struct {
	mu sync.RWMutex

	videos     map[string]*media.Video
	jobs       map[string]*media.Job
	selections map[string]*media.Selection

	// creation order of jobs and of each video's selections
	jobOrder       []string
	selectionOrder map[string][]string

	authStates map[string]*distribution.AuthState
	ttl        time.Duration

	now    func() time.Time
	logger zerolog.Logger
}

// New creates an empty store. Handshake records older than ttl are rejected
// on consumption and purged by Sweep.
func New(ttl time.Duration) *Store {
	return &Store{
		videos:         make(map[string]*media.Video),
		jobs:           make(map[string]*media.Job),
		selections:     make(map[string]*media.Selection),
		selectionOrder: make(map[string][]string),
		authStates:     make(map[string]*distribution.AuthState),
		ttl:            ttl,
		now:            time.Now,
		logger:         logging.WithComponent("memstore"),
	}
}

// GetVideo implements media.Repository
func (s *Store) GetVideo(ctx context.Context, id string) (*media.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, media.ErrNotFound
	}
	return copyVideo(v), nil
}

// GetVideoByURL implements media.Repository
func (s *Store) GetVideoByURL(ctx context.Context, url string) (*media.Video, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.videos {
		if v.SourceType == media.SourceYouTube && v.YouTubeURL == url {
			return copyVideo(v), nil
		}
	}
	return nil, media.ErrNotFound
}

// CreateVideo implements media.Repository
func (s *Store) CreateVideo(ctx context.Context, v *media.Video) (*media.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := copyVideo(v)
	stored.ID = uuid.NewString()
	stored.Status = media.StatusPending
	s.videos[stored.ID] = stored
	return copyVideo(stored), nil
}

// UpdateVideo implements media.Repository
func (s *Store) UpdateVideo(ctx context.Context, id string, update media.VideoUpdate) (*media.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.videos[id]
	if !ok {
		return nil, media.ErrNotFound
	}
	updated := copyVideo(v)
	if update.LocalPath != nil {
		updated.LocalPath = *update.LocalPath
	}
	s.videos[id] = updated
	return copyVideo(updated), nil
}

// GetJob implements media.Repository
func (s *Store) GetJob(ctx context.Context, id string) (*media.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, media.ErrNotFound
	}
	return copyJob(j), nil
}

// GetJobByVideoID implements media.Repository
func (s *Store) GetJobByVideoID(ctx context.Context, videoID string) (*media.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.jobOrder) - 1; i >= 0; i-- {
		j := s.jobs[s.jobOrder[i]]
		if j.VideoID == videoID {
			return copyJob(j), nil
		}
	}
	return nil, media.ErrNotFound
}

// CreateJobWithSelections implements media.Repository. The job and all of its
// selections are created under one lock acquisition, and nothing is created
// if the video still has a non-terminal job.
func (s *Store) CreateJobWithSelections(ctx context.Context, videoID string, ranges []media.TimeRange) (*media.Job, []*media.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.videos[videoID]; !ok {
		return nil, nil, media.ErrNotFound
	}
	for _, id := range s.jobOrder {
		j := s.jobs[id]
		if j.VideoID == videoID && !j.Status.Terminal() {
			return nil, nil, media.ErrActiveJob
		}
	}

	job := &media.Job{
		ID:      uuid.NewString(),
		VideoID: videoID,
		Status:  media.StatusPending,
	}
	s.jobs[job.ID] = job
	s.jobOrder = append(s.jobOrder, job.ID)

	selections := make([]*media.Selection, 0, len(ranges))
	for _, r := range ranges {
		sel := &media.Selection{
			ID:        uuid.NewString(),
			VideoID:   videoID,
			StartTime: r.Start.TotalSeconds(),
			EndTime:   r.End.TotalSeconds(),
			Title:     r.Title,
			Status:    media.StatusPending,
		}
		s.selections[sel.ID] = sel
		s.selectionOrder[videoID] = append(s.selectionOrder[videoID], sel.ID)
		selections = append(selections, copySelection(sel))
	}

	return copyJob(job), selections, nil
}

// UpdateJob implements media.Repository
func (s *Store) UpdateJob(ctx context.Context, id string, update media.JobUpdate) (*media.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, media.ErrNotFound
	}
	updated := copyJob(j)
	if update.Status != nil {
		updated.Status = *update.Status
	}
	if update.Progress != nil {
		updated.Progress = *update.Progress
	}
	if update.Error != nil {
		updated.Error = *update.Error
	}
	s.jobs[id] = updated
	return copyJob(updated), nil
}

// GetSelection implements media.Repository
func (s *Store) GetSelection(ctx context.Context, id string) (*media.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sel, ok := s.selections[id]
	if !ok {
		return nil, media.ErrNotFound
	}
	return copySelection(sel), nil
}

// ListSelectionsByVideoID implements media.Repository
func (s *Store) ListSelectionsByVideoID(ctx context.Context, videoID string) ([]*media.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.selectionOrder[videoID]
	out := make([]*media.Selection, 0, len(ids))
	for _, id := range ids {
		out = append(out, copySelection(s.selections[id]))
	}
	return out, nil
}

// UpdateSelection implements media.Repository
func (s *Store) UpdateSelection(ctx context.Context, id string, update media.SelectionUpdate) (*media.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[id]
	if !ok {
		return nil, media.ErrNotFound
	}
	updated := copySelection(sel)
	if update.Status != nil {
		updated.Status = *update.Status
	}
	if update.Filename != nil {
		updated.Filename = *update.Filename
	}
	if update.FilePath != nil {
		updated.FilePath = *update.FilePath
	}
	if update.FileSize != nil {
		updated.FileSize = *update.FileSize
	}
	s.selections[id] = updated
	return copySelection(updated), nil
}

// CreateAuthState implements distribution.HandshakeStore
func (s *Store) CreateAuthState(ctx context.Context, selectionID string) (*distribution.AuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := &distribution.AuthState{
		State:       uuid.NewString(),
		SelectionID: selectionID,
		CreatedAt:   s.now(),
	}
	s.authStates[st.State] = st
	return copyAuthState(st), nil
}

// ConsumeAuthState implements distribution.HandshakeStore. The record is
// deleted before any other check so a token can never be used twice.
func (s *Store) ConsumeAuthState(ctx context.Context, state string) (*distribution.AuthState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.authStates[state]
	if !ok {
		return nil, distribution.ErrInvalidState
	}
	delete(s.authStates, state)
	if st.Expired(s.now(), s.ttl) {
		return nil, distribution.ErrInvalidState
	}
	return copyAuthState(st), nil
}

// Sweep periodically purges expired handshake records until ctx is done
func (s *Store) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

func (s *Store) sweepOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for state, st := range s.authStates {
		if st.Expired(now, s.ttl) {
			delete(s.authStates, state)
			s.logger.Debug().Str("state", state).Msg("purged expired auth state")
		}
	}
}

func copyVideo(v *media.Video) *media.Video {
	c := *v
	return &c
}

func copyJob(j *media.Job) *media.Job {
	c := *j
	return &c
}

func copySelection(sel *media.Selection) *media.Selection {
	c := *sel
	return &c
}

func copyAuthState(st *distribution.AuthState) *distribution.AuthState {
	c := *st
	return &c
}

// Ensure Store implements both storage ports
var (
	_ media.Repository            = (*Store)(nil)
	_ distribution.HandshakeStore = (*Store)(nil)
)
