package server

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/auth"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
)

func TestEnsureSeedUsers(t *testing.T) {
	st := store.NewMemory()
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, EnsureSeedUsers(st))

	admin, err := st.GetUser("admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.NoError(t, auth.VerifyPassword(admin.PasswordHash, "adminpass"))

	for _, name := range []string{"staff1", "staff2"} {
		u, err := st.GetUser(name)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, model.RoleStaff, u.Role)
		assert.Empty(t, u.PasswordHash, "staff accounts set a password on first login")
	}

	secret, err := st.SecretInfo()
	require.NoError(t, err)
	assert.Equal(t, defaultSecretInfo, secret)

	// Idempotent: a second run changes nothing.
	require.NoError(t, st.SetRole("staff1", model.RoleBasic))
	require.NoError(t, EnsureSeedUsers(st))
	u, err := st.GetUser("staff1")
	require.NoError(t, err)
	assert.Equal(t, model.RoleBasic, u.Role, "existing users must not be overwritten")
}

func TestLoadUsersFromYAML(t *testing.T) {
	st := store.NewMemory()
	t.Cleanup(func() { _ = st.Close() })

	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: dave
    role: staff
    password: davepass
    name: Dave D.
    email: dave@blox.com
  - username: eve
    role: basic
    warned: true
`), 0o600))

	require.NoError(t, LoadUsersFromYAML(st, path))

	dave, err := st.GetUser("dave")
	require.NoError(t, err)
	require.NotNil(t, dave)
	assert.Equal(t, model.RoleStaff, dave.Role)
	assert.Equal(t, "Dave D.", dave.Profile.Name)
	assert.NoError(t, auth.VerifyPassword(dave.PasswordHash, "davepass"))

	eve, err := st.GetUser("eve")
	require.NoError(t, err)
	require.NotNil(t, eve)
	assert.True(t, eve.Warned)
	assert.Empty(t, eve.PasswordHash)

	// Existing users are skipped on re-import.
	require.NoError(t, st.SetBanned("eve", true))
	require.NoError(t, LoadUsersFromYAML(st, path))
	eve, err = st.GetUser("eve")
	require.NoError(t, err)
	assert.True(t, eve.Banned)
}

func TestLoadUsersFromYAMLBadRole(t *testing.T) {
	st := store.NewMemory()
	t.Cleanup(func() { _ = st.Close() })

	path := filepath.Join(t.TempDir(), "users.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - username: frank
    role: superuser
`), 0o600))

	assert.Error(t, LoadUsersFromYAML(st, path))
}

func TestExportUsersYAML(t *testing.T) {
	st := store.NewMemory()
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, EnsureSeedUsers(st))

	var buf bytes.Buffer
	require.NoError(t, ExportUsersYAML(st, &buf))

	out := buf.String()
	assert.Contains(t, out, "username: admin")
	assert.Contains(t, out, "role: admin")
	assert.Contains(t, out, "username: staff1")
	assert.NotContains(t, out, "password", "hashes must never be exported")
}
