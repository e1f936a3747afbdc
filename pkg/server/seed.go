package server

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/auth"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
)

// defaultSecretInfo is installed on first boot and editable by admins.
const defaultSecretInfo = "Welcome to Blox Studios' secret area."

// EnsureSeedUsers creates the built-in accounts if they do not exist yet.
// The admin account gets a known default password; staff accounts start with
// no password and set one on first login.
func EnsureSeedUsers(st store.DataStore) error {
	adminHash, err := auth.HashPassword("adminpass")
	if err != nil {
		return fmt.Errorf("server: hash seed password: %w", err)
	}

	seeds := []model.User{
		{
			Username:     "admin",
			Role:         model.RoleAdmin,
			PasswordHash: adminHash,
			Profile:      model.Profile{Name: "Administrator", Email: "admin@blox.com"},
		},
		{
			Username: "staff1",
			Role:     model.RoleStaff,
			Profile:  model.Profile{Name: "Staff One"},
		},
		{
			Username: "staff2",
			Role:     model.RoleStaff,
			Profile:  model.Profile{Name: "Staff Two"},
		},
	}

	for i := range seeds {
		existing, err := st.GetUser(seeds[i].Username)
		if err != nil {
			return fmt.Errorf("server: check seed user: %w", err)
		}
		if existing != nil {
			continue
		}
		if err := st.CreateUser(&seeds[i]); err != nil {
			return fmt.Errorf("server: create seed user %q: %w", seeds[i].Username, err)
		}
		slog.Info("seed user created", "user", seeds[i].Username, "role", seeds[i].Role)
	}

	secret, err := st.SecretInfo()
	if err != nil {
		return fmt.Errorf("server: read secret info: %w", err)
	}
	if secret == "" {
		if err := st.SetSecretInfo(defaultSecretInfo); err != nil {
			return fmt.Errorf("server: set default secret info: %w", err)
		}
	}
	return nil
}

// userEntry is one user in a YAML users file.
type userEntry struct {
	Username string `yaml:"username"`
	Role     string `yaml:"role"`
	Password string `yaml:"password,omitempty"` // plaintext on import, hashed before storage
	Banned   bool   `yaml:"banned,omitempty"`
	Warned   bool   `yaml:"warned,omitempty"`
	Name     string `yaml:"name,omitempty"`
	Email    string `yaml:"email,omitempty"`
}

type usersFile struct {
	Users []userEntry `yaml:"users"`
}

// LoadUsersFromYAML creates every user listed in the YAML file at path.
// Existing users are skipped, not overwritten.
func LoadUsersFromYAML(st store.DataStore, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from server config
	if err != nil {
		return fmt.Errorf("server: read users file: %w", err)
	}

	var f usersFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("server: parse users file: %w", err)
	}

	for _, e := range f.Users {
		// ParseRole falls back to basic; reject typos in the file instead.
		role := model.ParseRole(e.Role)
		if e.Role != "" && role.String() != e.Role {
			return fmt.Errorf("server: users file entry %q: %w", e.Username, model.ErrInvalidRole)
		}

		existing, err := st.GetUser(e.Username)
		if err != nil {
			return fmt.Errorf("server: check user %q: %w", e.Username, err)
		}
		if existing != nil {
			slog.Debug("users file entry already exists, skipping", "user", e.Username)
			continue
		}

		var hash string
		if e.Password != "" {
			if hash, err = auth.HashPassword(e.Password); err != nil {
				return fmt.Errorf("server: hash password for %q: %w", e.Username, err)
			}
		}

		u := model.User{
			Username:     e.Username,
			Role:         role,
			PasswordHash: hash,
			Banned:       e.Banned,
			Warned:       e.Warned,
			Profile:      model.Profile{Name: e.Name, Email: e.Email},
		}
		if err := st.CreateUser(&u); err != nil {
			return fmt.Errorf("server: create user %q: %w", e.Username, err)
		}
		slog.Info("user imported", "user", e.Username, "role", role)
	}
	return nil
}

// ExportUsersYAML writes all users to w in the users-file format.
// Password hashes are never exported.
func ExportUsersYAML(st store.DataStore, w io.Writer) error {
	users, err := st.ListUsers()
	if err != nil {
		return fmt.Errorf("server: list users: %w", err)
	}

	f := usersFile{Users: make([]userEntry, 0, len(users))}
	for _, u := range users {
		f.Users = append(f.Users, userEntry{
			Username: u.Username,
			Role:     u.Role.String(),
			Banned:   u.Banned,
			Warned:   u.Warned,
			Name:     u.Profile.Name,
			Email:    u.Profile.Email,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&f); err != nil {
		return fmt.Errorf("server: encode users: %w", err)
	}
	return enc.Close()
}
