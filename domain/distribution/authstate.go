package distribution

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidState is returned when a callback carries a state token that is
// unknown, already consumed or expired
var ErrInvalidState = errors.New("invalid or expired authorization state")

// AuthState is a short-lived, single-use correlation record binding one
// OAuth consent flow to the selection it authorizes uploading
type AuthState struct {
	State       string
	SelectionID string
	CreatedAt   time.Time
}

// Expired reports whether the state is older than the given TTL at time now
func (a *AuthState) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(a.CreatedAt) > ttl
}

// HandshakeStore owns storage for in-flight authorization states.
// This is a port that can be implemented by different storage backends.
type HandshakeStore interface {
	// CreateAuthState creates a new state record for a selection and
	// returns it with a freshly generated random token
	CreateAuthState(ctx context.Context, selectionID string) (*AuthState, error)

	// ConsumeAuthState looks up a state token, deletes it, and returns the
	// record. A token can be consumed at most once; unknown or expired
	// tokens return ErrInvalidState.
	ConsumeAuthState(ctx context.Context, state string) (*AuthState, error)
}
