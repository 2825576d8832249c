// Package distribution implements the remote upload side-flow: a
// per-selection OAuth consent handshake followed by a detached upload whose
// outcome is delivered over the notification channel.
package distribution

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/milordsutrix/tool-tubecutter/domain/distribution"
	"github.com/milordsutrix/tool-tubecutter/domain/media"
	"github.com/milordsutrix/tool-tubecutter/domain/notification"
	"github.com/milordsutrix/tool-tubecutter/infrastructure/logging"
)

// UploadService coordinates the remote upload side-flow
type UploadService struct {
	repo       media.Repository
	handshakes distribution.HandshakeStore
	provider   distribution.Provider
	pusher     notification.Pusher
	logger     zerolog.Logger
}

// NewUploadService creates a new upload side-flow service
func NewUploadService(
	repo media.Repository,
	handshakes distribution.HandshakeStore,
	provider distribution.Provider,
	pusher notification.Pusher,
) *UploadService {
	return &UploadService{
		repo:       repo,
		handshakes: handshakes,
		provider:   provider,
		pusher:     pusher,
		logger:     logging.WithComponent("upload"),
	}
}

// Initiate starts the consent flow for uploading one completed selection
// and returns the authorization URL the user must visit
func (s *UploadService) Initiate(ctx context.Context, selectionID string) (string, error) {
	sel, err := s.repo.GetSelection(ctx, selectionID)
	if err != nil {
		return "", err
	}
	if sel.Status != media.StatusCompleted || sel.FilePath == "" {
		return "", fmt.Errorf("%w: selection %s has no completed output", media.ErrInvalidRequest, selectionID)
	}

	state, err := s.handshakes.CreateAuthState(ctx, selectionID)
	if err != nil {
		return "", err
	}
	return s.provider.AuthURL(state.State), nil
}

// Callback handles the provider's redirect after user consent. The
// handshake is consumed and the code exchanged synchronously; the upload
// itself runs detached, and its outcome is reported only through the
// notification channel.
func (s *UploadService) Callback(ctx context.Context, code, state string) error {
	handshake, err := s.handshakes.ConsumeAuthState(ctx, state)
	if err != nil {
		return err
	}

	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return err
	}

	sel, err := s.repo.GetSelection(ctx, handshake.SelectionID)
	if err != nil {
		return err
	}
	job, err := s.repo.GetJobByVideoID(ctx, sel.VideoID)
	if err != nil {
		return err
	}

	go s.upload(context.Background(), job.ID, sel, token)
	return nil
}

// upload pushes one artifact to the provider. By the time this runs the
// synchronous caller is gone, so failures can only go to the notification
// channel; if no client is registered for the job the outcome is dropped.
func (s *UploadService) upload(ctx context.Context, jobID string, sel *media.Selection, token *oauth2.Token) {
	logger := s.logger.With().Str("jobId", jobID).Str("selectionId", sel.ID).Logger()

	remote, err := s.provider.Upload(ctx, token, sel.FilePath, sel.Filename)
	if err != nil {
		logger.Warn().Err(err).Msg("remote upload failed")
		s.pusher.Send(jobID, notification.EventUploadFailure, notification.UploadEvent{
			SelectionID: sel.ID,
			FileName:    sel.Filename,
			Error:       err.Error(),
		})
		return
	}

	logger.Info().Str("remoteId", remote.ID).Msg("remote upload finished")
	s.pusher.Send(jobID, notification.EventUploadSuccess, notification.UploadEvent{
		SelectionID: sel.ID,
		FileName:    remote.Name,
	})
}
