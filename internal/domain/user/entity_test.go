package user

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewUser(t *testing.T) {
	t.Run("ValidCredentials_ShouldHashPassword", func(t *testing.T) {
		u, err := NewUser("hungry_hippo", "hungry123", bcrypt.MinCost)

		require.NoError(t, err)
		assert.Equal(t, "hungry_hippo", u.Username())
		assert.NotEqual(t, "hungry123", u.PasswordHash())
		assert.True(t, u.CheckPassword("hungry123"))
		assert.False(t, u.CheckPassword("wrong"))
		assert.False(t, u.CreatedAt().IsZero())
	})

	t.Run("InvalidUsername_ShouldFail", func(t *testing.T) {
		for _, name := range []string{"", "ab", "has space", "dash-name", strings.Repeat("a", 31)} {
			_, err := NewUser(name, "longenough", bcrypt.MinCost)
			assert.ErrorIs(t, err, ErrInvalidUsername, name)
		}
	})

	t.Run("PasswordBounds_ShouldFail", func(t *testing.T) {
		_, err := NewUser("someone", "short", bcrypt.MinCost)
		assert.ErrorIs(t, err, ErrPasswordTooShort)

		_, err = NewUser("someone", strings.Repeat("p", 73), bcrypt.MinCost)
		assert.ErrorIs(t, err, ErrPasswordTooLong)
	})
}

func TestPasswordMatches_MalformedHash(t *testing.T) {
	assert.False(t, PasswordMatches("not-a-bcrypt-hash", "hungry"))
}

func TestReconstruct(t *testing.T) {
	testTime := time.Date(2025, 6, 24, 8, 0, 0, 0, time.UTC)
	u := Reconstruct(4, "ana", "hash", testTime)

	assert.Equal(t, int64(4), u.ID())
	assert.Equal(t, "ana", u.Username())
	assert.Equal(t, testTime, u.CreatedAt())
}
