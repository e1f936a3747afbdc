package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyjavascript-microsoft/BloxStudios/pkg/model"
	"github.com/pyjavascript-microsoft/BloxStudios/pkg/store"
)

func TestAuthenticate(t *testing.T) {
	st := store.NewMemory()
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.CreateUser(&model.User{Username: "alice", Role: model.RoleBasic}))
	require.NoError(t, st.CreateUser(&model.User{Username: "mallory", Role: model.RoleBasic, Banned: true}))
	require.NoError(t, st.BindSession("alice", "tok-alice"))
	require.NoError(t, st.BindSession("mallory", "tok-mallory"))

	a := NewAuthenticator(st)

	t.Run("empty token", func(t *testing.T) {
		_, err := a.Authenticate("")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := a.Authenticate("tok-nobody")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("banned user", func(t *testing.T) {
		_, err := a.Authenticate("tok-mallory")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("valid token", func(t *testing.T) {
		user, err := a.Authenticate("tok-alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("deleted user", func(t *testing.T) {
		require.NoError(t, st.CreateUser(&model.User{Username: "temp", Role: model.RoleBasic}))
		require.NoError(t, st.BindSession("temp", "tok-temp"))
		require.NoError(t, st.DeleteUser("temp"))

		_, err := a.Authenticate("tok-temp")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
