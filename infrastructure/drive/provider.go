// Package drive adapts Google Drive to the remote storage provider port.
package drive

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/milordsutrix/tool-tubecutter/domain/distribution"
)

const uploadMimeType = "audio/mpeg"

// Provider implements distribution.Provider using the Google Drive API with
// a per-user OAuth consent flow. Each upload builds its own authenticated
// client from the token obtained in that user's consent, so no credentials
// are shared between flows.
type Provider struct {
	config *oauth2.Config
}

// NewProvider creates a Drive provider from OAuth client settings
func NewProvider(clientID, clientSecret, redirectURL string) *Provider {
	return &Provider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{driveapi.DriveFileScope},
			Endpoint:     google.Endpoint,
		},
	}
}

// AuthURL implements distribution.Provider. Offline access with a forced
// consent prompt guarantees a refresh token is issued.
func (p *Provider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange implements distribution.Provider
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("unable to exchange auth code: %w", err)
	}
	return token, nil
}

// Upload implements distribution.Provider
func (p *Provider) Upload(ctx context.Context, token *oauth2.Token, localPath, fileName string) (*distribution.RemoteFile, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("unable to open upload source: %w", err)
	}
	defer f.Close()

	client := p.config.Client(ctx, token)
	srv, err := driveapi.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create drive service: %w", err)
	}

	created, err := srv.Files.Create(&driveapi.File{Name: fileName}).
		Media(f, googleapi.ContentType(uploadMimeType)).
		Fields("id, name, mimeType").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive upload failed: %w", err)
	}

	return &distribution.RemoteFile{
		ID:       created.Id,
		Name:     created.Name,
		MimeType: created.MimeType,
	}, nil
}

// Ensure Provider implements distribution.Provider
var _ distribution.Provider = (*Provider)(nil)
