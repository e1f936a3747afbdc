package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("adminpass")
	req.NoError(err)
	req.NotEmpty(hash)
	req.NotEqual("adminpass", hash)

	req.NoError(VerifyPassword(hash, "adminpass"))
	req.ErrorIs(VerifyPassword(hash, "wrongpass"), ErrInvalidCredentials)
	req.ErrorIs(VerifyPassword("", "adminpass"), ErrInvalidCredentials)
}

func TestHashPasswordTooShort(t *testing.T) {
	_, err := HashPassword("abc")
	require.ErrorIs(t, err, ErrPasswordTooShort)

	_, err = HashPassword("")
	require.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestNewSessionToken(t *testing.T) {
	req := require.New(t)

	a := NewSessionToken()
	b := NewSessionToken()
	req.NotEqual(a, b)

	_, err := uuid.Parse(a)
	req.NoError(err)
}
