package store

import (
	"errors"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
)

// ErrSessionNotFound is returned by ResolveSession for unknown tokens.
var ErrSessionNotFound = errors.New("store: session not found")

// ErrUserExists is returned by CreateUser when the username is taken.
var ErrUserExists = errors.New("store: user already exists")

// DataStore defines the persistence interface for users, sessions, and the
// secret-info blob. Every mutating call is durable before it returns.
// Implementations include the default SQLite store and an in-memory store
// for testing.
type DataStore interface {
	// Close closes the underlying storage connection.
	Close() error

	// ---- Users (identity store) ----

	// CreateUser creates a new user. Returns ErrUserExists if the username is taken.
	CreateUser(user *model.User) error

	// GetUser retrieves a user by username. Returns (nil, nil) if not found.
	GetUser(username string) (*model.User, error)

	// ListUsers returns all users ordered by username.
	ListUsers() ([]model.User, error)

	// SetRole changes a user's role.
	SetRole(username string, role model.Role) error

	// SetBanned sets or clears a user's ban flag.
	SetBanned(username string, banned bool) error

	// SetWarned sets or clears a user's warning flag.
	SetWarned(username string, warned bool) error

	// UpdateProfile replaces a user's profile fields.
	UpdateProfile(username string, profile model.Profile) error

	// SetPasswordHash stores a new password hash for a user.
	SetPasswordHash(username, hash string) error

	// DeleteUser removes a user and all of their sessions.
	DeleteUser(username string) error

	// ---- Sessions (session registry) ----

	// BindSession adds a session token to a user's session set. Idempotent:
	// binding an already-bound token is a no-op.
	BindSession(username, token string) error

	// UnbindSession removes a session token. No-op if the token is absent.
	UnbindSession(username, token string) error

	// ResolveSession returns the username owning a session token, or
	// ErrSessionNotFound.
	ResolveSession(token string) (string, error)

	// SessionsFor returns all session tokens bound to a username.
	SessionsFor(username string) ([]string, error)

	// ---- Secret info ----

	// SecretInfo returns the server-wide secret text.
	SecretInfo() (string, error)

	// SetSecretInfo replaces the server-wide secret text.
	SetSecretInfo(text string) error
}
