// Package store provides SQLite-backed persistence for users, sessions, and
// the secret-info blob. Session tokens live in their own table keyed by token,
// so resolving a token to its owner is an index lookup rather than a scan over
// every user's session set.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// Store provides database access for all portal entities.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}

	ctx := context.Background()

	// Enable WAL mode for better concurrent read performance
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable FK: %w", err)
	}
	// Set busy timeout to avoid "database is locked" under concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set busy_timeout: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		username      TEXT    PRIMARY KEY CHECK(length(username) > 0 AND length(username) <= 32),
		role          INTEGER NOT NULL DEFAULT 0 CHECK(role >= 0 AND role <= 2),
		banned        INTEGER NOT NULL DEFAULT 0,
		warned        INTEGER NOT NULL DEFAULT 0,
		name          TEXT    NOT NULL DEFAULT '',
		email         TEXT    NOT NULL DEFAULT '',
		password_hash TEXT    NOT NULL DEFAULT '',
		created_at    TEXT    NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS sessions (
		token      TEXT PRIMARY KEY,
		username   TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_username ON sessions(username);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT ''
	);
	`
	ctx := context.Background()
	if err := s.ensureSchemaMigrations(ctx); err != nil {
		return err
	}
	currentVersion, err := s.getSchemaVersion(ctx)
	if err != nil {
		return err
	}

	migrations := []struct {
		version      int
		statements   []string
		ignoreErrors bool
	}{
		{
			version:    1,
			statements: []string{schema},
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.statements {
			if err := s.execMigration(ctx, stmt, m.ignoreErrors); err != nil {
				return err
			}
		}
		if err := s.setSchemaVersion(ctx, m.version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) ensureSchemaMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("store: create schema_migrations: %w", err)
	}
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("store: check schema_migrations: %w", err)
	}
	if count == 0 {
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (0)"); err != nil {
			return fmt.Errorf("store: init schema_migrations: %w", err)
		}
	}
	return nil
}

func (s *Store) getSchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("store: read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) setSchemaVersion(ctx context.Context, version int) error {
	if _, err := s.db.ExecContext(ctx, "UPDATE schema_migrations SET version = ?", version); err != nil {
		return fmt.Errorf("store: update schema version: %w", err)
	}
	return nil
}

func (s *Store) execMigration(ctx context.Context, stmt string, ignoreErrors bool) error {
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		if ignoreErrors {
			return nil
		}
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func formatDBTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func parseDBTime(value string) (time.Time, error) {
	return time.ParseInLocation(dbTimeLayout, value, time.UTC)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ---- Users ----

// CreateUser creates a new user. It validates the username and role before
// inserting and fills in CreatedAt.
func (s *Store) CreateUser(user *model.User) error {
	if err := model.ValidateUsername(user.Username); err != nil {
		return fmt.Errorf("store: create user: %w", err)
	}
	if !user.Role.Valid() {
		return fmt.Errorf("store: create user: %w", model.ErrInvalidRole)
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(context.Background(),
		"INSERT INTO users (username, role, banned, warned, name, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		user.Username, int(user.Role), boolToInt(user.Banned), boolToInt(user.Warned),
		user.Profile.Name, user.Profile.Email, user.PasswordHash, formatDBTime(now))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") || strings.Contains(err.Error(), "PRIMARY KEY") {
			return fmt.Errorf("store: create user %q: %w", user.Username, ErrUserExists)
		}
		return fmt.Errorf("store: create user: %w", err)
	}
	user.CreatedAt = now
	return nil
}

const userColumns = "username, role, banned, warned, name, email, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	u := &model.User{}
	var roleInt, bannedInt, warnedInt int
	var createdAt string
	err := row.Scan(&u.Username, &roleInt, &bannedInt, &warnedInt,
		&u.Profile.Name, &u.Profile.Email, &u.PasswordHash, &createdAt)
	if err != nil {
		return nil, err
	}
	u.Role = model.Role(roleInt)
	u.Banned = bannedInt != 0
	u.Warned = warnedInt != 0
	u.CreatedAt, err = parseDBTime(createdAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetUser retrieves a user by username.
func (s *Store) GetUser(username string) (*model.User, error) {
	row := s.db.QueryRowContext(context.Background(),
		"SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all users ordered by username.
func (s *Store) ListUsers() ([]model.User, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT "+userColumns+" FROM users ORDER BY username")
	if err != nil {
		return nil, fmt.Errorf("store: list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// SetRole changes a user's role.
func (s *Store) SetRole(username string, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("store: set role: %w", model.ErrInvalidRole)
	}
	_, err := s.db.ExecContext(context.Background(),
		"UPDATE users SET role = ? WHERE username = ?", int(role), username)
	if err != nil {
		return fmt.Errorf("store: set role: %w", err)
	}
	return nil
}

// SetBanned sets or clears a user's ban flag.
func (s *Store) SetBanned(username string, banned bool) error {
	_, err := s.db.ExecContext(context.Background(),
		"UPDATE users SET banned = ? WHERE username = ?", boolToInt(banned), username)
	if err != nil {
		return fmt.Errorf("store: set banned: %w", err)
	}
	return nil
}

// SetWarned sets or clears a user's warning flag.
func (s *Store) SetWarned(username string, warned bool) error {
	_, err := s.db.ExecContext(context.Background(),
		"UPDATE users SET warned = ? WHERE username = ?", boolToInt(warned), username)
	if err != nil {
		return fmt.Errorf("store: set warned: %w", err)
	}
	return nil
}

// UpdateProfile replaces a user's profile fields.
func (s *Store) UpdateProfile(username string, profile model.Profile) error {
	_, err := s.db.ExecContext(context.Background(),
		"UPDATE users SET name = ?, email = ? WHERE username = ?",
		profile.Name, profile.Email, username)
	if err != nil {
		return fmt.Errorf("store: update profile: %w", err)
	}
	return nil
}

// SetPasswordHash stores a new password hash for a user.
func (s *Store) SetPasswordHash(username, hash string) error {
	_, err := s.db.ExecContext(context.Background(),
		"UPDATE users SET password_hash = ? WHERE username = ?", hash, username)
	if err != nil {
		return fmt.Errorf("store: set password hash: %w", err)
	}
	return nil
}

// DeleteUser removes a user. Their sessions are removed by the FK cascade.
func (s *Store) DeleteUser(username string) error {
	_, err := s.db.ExecContext(context.Background(),
		"DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("store: delete user: %w", err)
	}
	return nil
}

// ---- Sessions ----

// BindSession adds a session token to a user's session set. The token column
// is the primary key, so a token can only ever belong to one user; re-binding
// an existing token is a no-op.
func (s *Store) BindSession(username, token string) error {
	_, err := s.db.ExecContext(context.Background(),
		"INSERT INTO sessions (token, username, created_at) VALUES (?, ?, ?) ON CONFLICT(token) DO NOTHING",
		token, username, formatDBTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("store: bind session: %w", err)
	}
	return nil
}

// UnbindSession removes a session token. No-op if absent.
func (s *Store) UnbindSession(username, token string) error {
	_, err := s.db.ExecContext(context.Background(),
		"DELETE FROM sessions WHERE token = ? AND username = ?", token, username)
	if err != nil {
		return fmt.Errorf("store: unbind session: %w", err)
	}
	return nil
}

// ResolveSession returns the username owning a session token.
func (s *Store) ResolveSession(token string) (string, error) {
	var username string
	err := s.db.QueryRowContext(context.Background(),
		"SELECT username FROM sessions WHERE token = ?", token).Scan(&username)
	if err == sql.ErrNoRows {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: resolve session: %w", err)
	}
	return username, nil
}

// SessionsFor returns all session tokens bound to a username.
func (s *Store) SessionsFor(username string) ([]string, error) {
	rows, err := s.db.QueryContext(context.Background(),
		"SELECT token FROM sessions WHERE username = ? ORDER BY created_at, token", username)
	if err != nil {
		return nil, fmt.Errorf("store: sessions for: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tokens []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// ---- Secret info ----

const secretInfoKey = "secret_info"

// SecretInfo returns the server-wide secret text. Empty string if never set.
func (s *Store) SecretInfo() (string, error) {
	var value string
	err := s.db.QueryRowContext(context.Background(),
		"SELECT value FROM settings WHERE key = ?", secretInfoKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: secret info: %w", err)
	}
	return value, nil
}

// SetSecretInfo replaces the server-wide secret text.
func (s *Store) SetSecretInfo(text string) error {
	_, err := s.db.ExecContext(context.Background(),
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		secretInfoKey, text)
	if err != nil {
		return fmt.Errorf("store: set secret info: %w", err)
	}
	return nil
}

// Compile-time check: *Store implements DataStore.
var _ DataStore = (*Store)(nil)
