package server

import (
	"errors"
	"fmt"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
)

// ErrUnauthenticated means the handshake carried no session token at all.
var ErrUnauthenticated = errors.New("server: no session token presented")

// ErrUnauthorized means a token was presented but does not resolve to a
// usable user (unknown token, deleted user, or banned user).
var ErrUnauthorized = errors.New("server: session not authorized")

// Authenticator validates inbound real-time connections against the session
// registry before admission. The resolved identity is attached to the
// connection for its whole lifetime and never re-validated: revoking a
// session does not disconnect an already-admitted connection.
type Authenticator struct {
	store store.DataStore
}

// NewAuthenticator creates an authenticator backed by the given store.
func NewAuthenticator(st store.DataStore) *Authenticator {
	return &Authenticator{store: st}
}

// Authenticate resolves a claimed session token to its user.
func (a *Authenticator) Authenticate(token string) (*model.User, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	username, err := a.store.ResolveSession(token)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("server: resolve session: %w", err)
	}

	user, err := a.store.GetUser(username)
	if err != nil {
		return nil, fmt.Errorf("server: load user: %w", err)
	}
	if user == nil || user.Banned {
		return nil, ErrUnauthorized
	}
	return user, nil
}
