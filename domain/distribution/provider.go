package distribution

import (
	"context"

	"golang.org/x/oauth2"
)

// RemoteFile represents metadata about a file stored with the remote provider
type RemoteFile struct {
	ID       string
	Name     string
	MimeType string
}

// Provider defines the interface for a cloud storage provider with an
// OAuth consent flow. This is a port that can be implemented by different
// infrastructure adapters.
type Provider interface {
	// AuthURL returns the consent URL the user must visit. The state value
	// is round-tripped through the provider and returned on the callback.
	AuthURL(state string) string

	// Exchange trades an authorization code for an access token
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)

	// Upload stores a local file with the provider under the given name
	Upload(ctx context.Context, token *oauth2.Token, localPath, fileName string) (*RemoteFile, error)
}
