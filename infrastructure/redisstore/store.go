// Package redisstore provides the redis-backed storage backend.
//
// Keys:
//
//	video:<id>            JSON(Video)
//	video:url:<url>       video id for natural-key lookup
//	job:<id>              JSON(Job)
//	jobs:video:<videoID>  list of job ids, creation order
//	job:active:<videoID>  id of the video's non-terminal job, if any
//	selection:<id>        JSON(Selection)
//	selections:<videoID>  list of selection ids, creation order
//	authstate:<state>     JSON(AuthState), expiry handled by redis TTL
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/milordsutrix/tool-tubecutter/domain/distribution"
	"github.com/milordsutrix/tool-tubecutter/domain/media"
)

// activeJobTTL bounds how long an active-job claim survives without the
// owning pipeline reporting progress. Redis outlives the process, so a
// crash mid-pipeline must not block the video from resubmission forever;
// every job update refreshes the claim.
const activeJobTTL = 2 * time.Hour

// Store implements the storage ports on top of a redis client
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a store backed by the given redis client. Handshake records
// are written with the given TTL; redis purges them itself, so no sweep
// goroutine is needed for this backend.
func New(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func videoKey(id string) string           { return "video:" + id }
func videoURLKey(url string) string       { return "video:url:" + url }
func jobKey(id string) string             { return "job:" + id }
func jobsByVideoKey(id string) string     { return "jobs:video:" + id }
func activeJobKey(id string) string       { return "job:active:" + id }
func selectionKey(id string) string       { return "selection:" + id }
func selectionsKey(videoID string) string { return "selections:" + videoID }
func authStateKey(state string) string    { return "authstate:" + state }

// videoRecord and selectionRecord re-expose fields that are hidden from API
// responses but must survive a round trip through redis
type videoRecord struct {
	media.Video
	LocalPath string `json:"localPath,omitempty"`
}

type selectionRecord struct {
	media.Selection
	FilePath string `json:"filePath,omitempty"`
}

// GetVideo implements media.Repository
func (s *Store) GetVideo(ctx context.Context, id string) (*media.Video, error) {
	var r videoRecord
	if err := s.getJSON(ctx, videoKey(id), &r); err != nil {
		return nil, err
	}
	r.Video.LocalPath = r.LocalPath
	return &r.Video, nil
}

// GetVideoByURL implements media.Repository
func (s *Store) GetVideoByURL(ctx context.Context, url string) (*media.Video, error) {
	id, err := s.client.Get(ctx, videoURLKey(url)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, media.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis lookup failed: %w", err)
	}
	return s.GetVideo(ctx, id)
}

// CreateVideo implements media.Repository
func (s *Store) CreateVideo(ctx context.Context, v *media.Video) (*media.Video, error) {
	stored := *v
	stored.ID = uuid.NewString()
	stored.Status = media.StatusPending

	b, err := json.Marshal(videoRecord{Video: stored, LocalPath: stored.LocalPath})
	if err != nil {
		return nil, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, videoKey(stored.ID), b, 0)
	if stored.SourceType == media.SourceYouTube {
		pipe.Set(ctx, videoURLKey(stored.YouTubeURL), stored.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("redis create video failed: %w", err)
	}
	return &stored, nil
}

// UpdateVideo implements media.Repository
func (s *Store) UpdateVideo(ctx context.Context, id string, update media.VideoUpdate) (*media.Video, error) {
	v, err := s.GetVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.LocalPath != nil {
		v.LocalPath = *update.LocalPath
	}
	if err := s.setJSON(ctx, videoKey(id), videoRecord{Video: *v, LocalPath: v.LocalPath}); err != nil {
		return nil, err
	}
	return v, nil
}

// GetJob implements media.Repository
func (s *Store) GetJob(ctx context.Context, id string) (*media.Job, error) {
	var j media.Job
	if err := s.getJSON(ctx, jobKey(id), &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// GetJobByVideoID implements media.Repository
func (s *Store) GetJobByVideoID(ctx context.Context, videoID string) (*media.Job, error) {
	ids, err := s.client.LRange(ctx, jobsByVideoKey(videoID), -1, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lookup failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, media.ErrNotFound
	}
	return s.GetJob(ctx, ids[0])
}

// CreateJobWithSelections implements media.Repository. The active-job marker
// is claimed with SETNX first so two concurrent submissions for one video
// cannot both create a job; all records are then written in one transaction.
func (s *Store) CreateJobWithSelections(ctx context.Context, videoID string, ranges []media.TimeRange) (*media.Job, []*media.Selection, error) {
	if _, err := s.GetVideo(ctx, videoID); err != nil {
		return nil, nil, err
	}

	job := &media.Job{
		ID:      uuid.NewString(),
		VideoID: videoID,
		Status:  media.StatusPending,
	}

	claimed, err := s.client.SetNX(ctx, activeJobKey(videoID), job.ID, activeJobTTL).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("redis claim failed: %w", err)
	}
	if !claimed {
		return nil, nil, media.ErrActiveJob
	}

	jobBytes, err := json.Marshal(job)
	if err != nil {
		return nil, nil, err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, jobKey(job.ID), jobBytes, 0)
	pipe.RPush(ctx, jobsByVideoKey(videoID), job.ID)

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
		selBytes, err := json.Marshal(selectionRecord{Selection: *sel})
		if err != nil {
			return nil, nil, err
		}
		pipe.Set(ctx, selectionKey(sel.ID), selBytes, 0)
		pipe.RPush(ctx, selectionsKey(videoID), sel.ID)
		selections = append(selections, sel)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.client.Del(ctx, activeJobKey(videoID))
		return nil, nil, fmt.Errorf("redis create job failed: %w", err)
	}
	return job, selections, nil
}

// UpdateJob implements media.Repository. Reaching a terminal status releases
// the video's active-job marker so a new job may be submitted.
func (s *Store) UpdateJob(ctx context.Context, id string, update media.JobUpdate) (*media.Job, error) {
	j, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Status != nil {
		j.Status = *update.Status
	}
	if update.Progress != nil {
		j.Progress = *update.Progress
	}
	if update.Error != nil {
		j.Error = *update.Error
	}
	if err := s.setJSON(ctx, jobKey(id), j); err != nil {
		return nil, err
	}
	if j.Status.Terminal() {
		s.client.Del(ctx, activeJobKey(j.VideoID))
	} else {
		s.client.Expire(ctx, activeJobKey(j.VideoID), activeJobTTL)
	}
	return j, nil
}

// GetSelection implements media.Repository
func (s *Store) GetSelection(ctx context.Context, id string) (*media.Selection, error) {
	var r selectionRecord
	if err := s.getJSON(ctx, selectionKey(id), &r); err != nil {
		return nil, err
	}
	r.Selection.FilePath = r.FilePath
	return &r.Selection, nil
}

// ListSelectionsByVideoID implements media.Repository
func (s *Store) ListSelectionsByVideoID(ctx context.Context, videoID string) ([]*media.Selection, error) {
	ids, err := s.client.LRange(ctx, selectionsKey(videoID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lookup failed: %w", err)
	}
	out := make([]*media.Selection, 0, len(ids))
	for _, id := range ids {
		sel, err := s.GetSelection(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, sel)
	}
	return out, nil
}

// UpdateSelection implements media.Repository
func (s *Store) UpdateSelection(ctx context.Context, id string, update media.SelectionUpdate) (*media.Selection, error) {
	sel, err := s.GetSelection(ctx, id)
	if err != nil {
		return nil, err
	}
	if update.Status != nil {
		sel.Status = *update.Status
	}
	if update.Filename != nil {
		sel.Filename = *update.Filename
	}
	if update.FilePath != nil {
		sel.FilePath = *update.FilePath
	}
	if update.FileSize != nil {
		sel.FileSize = *update.FileSize
	}
	if err := s.setJSON(ctx, selectionKey(id), selectionRecord{Selection: *sel, FilePath: sel.FilePath}); err != nil {
		return nil, err
	}
	return sel, nil
}

// CreateAuthState implements distribution.HandshakeStore
func (s *Store) CreateAuthState(ctx context.Context, selectionID string) (*distribution.AuthState, error) {
	st := &distribution.AuthState{
		State:       uuid.NewString(),
		SelectionID: selectionID,
		CreatedAt:   time.Now(),
	}
	b, err := json.Marshal(st)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, authStateKey(st.State), b, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis create auth state failed: %w", err)
	}
	return st, nil
}

// ConsumeAuthState implements distribution.HandshakeStore
func (s *Store) ConsumeAuthState(ctx context.Context, state string) (*distribution.AuthState, error) {
	val, err := s.client.GetDel(ctx, authStateKey(state)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, distribution.ErrInvalidState
	}
	if err != nil {
		return nil, fmt.Errorf("redis consume auth state failed: %w", err)
	}
	var st distribution.AuthState
	if err := json.Unmarshal(val, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) getJSON(ctx context.Context, key string, dst any) error {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return media.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis lookup failed: %w", err)
	}
	return json.Unmarshal(val, dst)
}

func (s *Store) setJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, b, 0).Err(); err != nil {
		return fmt.Errorf("redis write failed: %w", err)
	}
	return nil
}

// Ensure Store implements both storage ports
var (
	_ media.Repository            = (*Store)(nil)
	_ distribution.HandshakeStore = (*Store)(nil)
)
