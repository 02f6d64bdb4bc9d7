package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordHashing(t *testing.T) {
	t.Run("HashAndVerify", func(t *testing.T) {
		hash, err := HashPassword("correct horse battery staple")
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(hash, "$argon2id$"))
		require.NotContains(t, hash, "correct horse")

		ok, err := VerifyPassword("correct horse battery staple", hash)
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("WrongPasswordFails", func(t *testing.T) {
		hash, err := HashPassword("secret123")
		require.NoError(t, err)
		ok, err := VerifyPassword("secret124", hash)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("SaltsDiffer", func(t *testing.T) {
		h1, err := HashPassword("secret123")
		require.NoError(t, err)
		h2, err := HashPassword("secret123")
		require.NoError(t, err)
		require.NotEqual(t, h1, h2)
	})

	t.Run("MalformedHash", func(t *testing.T) {
		_, err := VerifyPassword("x", "not-a-hash")
		require.ErrorIs(t, err, ErrHashMalformed)
		_, err = VerifyPassword("x", "$bcrypt$whatever")
		require.ErrorIs(t, err, ErrHashMalformed)
	})
}

func TestNewUserInputValidate(t *testing.T) {
	require.ErrorIs(t, NewUserInput{}.Validate(), ErrFieldsRequired)
	require.ErrorIs(t, NewUserInput{Username: "a", Email: "a@b.c", Password: "short"}.Validate(), ErrPasswordTooShort)
	require.NoError(t, NewUserInput{Username: "a", Email: "a@b.c", Password: "longenough"}.Validate())
}

func TestParseRole(t *testing.T) {
	for _, s := range []string{"admin", " Admin ", "MANAGER", "cashier"} {
		_, err := ParseRole(s)
		require.NoError(t, err, s)
	}
	_, err := ParseRole("superuser")
	require.ErrorIs(t, err, ErrInvalidRole)
}
