package auth

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/justestif/go-movie-watchlist/internal/dbtest"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(dbtest.Open(t), WithCost(bcrypt.MinCost))
}

func TestFind_Unprovisioned(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Find(context.Background())
	assert.ErrorIs(t, err, ErrNoAccount)
}

func TestProvision(t *testing.T) {
	ctx := context.Background()

	t.Run("stores a hash, never the plaintext", func(t *testing.T) {
		store := newTestStore(t)

		account, err := store.Provision(ctx, "admin", "secret")
		require.NoError(t, err)
		assert.Equal(t, "admin", account.Username)
		assert.NotEqual(t, "secret", account.PasswordHash)
		assert.True(t, strings.HasPrefix(account.PasswordHash, "$2"), "expected a bcrypt hash")
		assert.True(t, store.Verify(account, "secret"))
	})

	t.Run("second call overwrites the same account", func(t *testing.T) {
		store := newTestStore(t)

		first, err := store.Provision(ctx, "admin", "secret")
		require.NoError(t, err)
		second, err := store.Provision(ctx, "root", "hunter2")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		found, err := store.Find(ctx)
		require.NoError(t, err)
		assert.Equal(t, "root", found.Username)
		assert.False(t, store.Verify(found, "secret"))
		assert.True(t, store.Verify(found, "hunter2"))
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		store := newTestStore(t)

		tests := []struct {
			name     string
			username string
			password string
		}{
			{name: "blank username", username: "  ", password: "secret"},
			{name: "blank password", username: "admin", password: ""},
			{name: "long username", username: strings.Repeat("a", MaxUsernameLength+1), password: "secret"},
			{name: "password beyond bcrypt limit", username: "admin", password: strings.Repeat("p", 73)},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := store.Provision(ctx, tt.username, tt.password)
				assert.ErrorIs(t, err, ErrInvalidInput)
			})
		}

		_, err := store.Find(ctx)
		assert.ErrorIs(t, err, ErrNoAccount, "nothing may be written on invalid input")
	})
}

func TestVerify_NilAccount(t *testing.T) {
	store := newTestStore(t)
	assert.False(t, store.Verify(nil, "anything"))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("fails closed without an account", func(t *testing.T) {
		store := newTestStore(t)

		_, err := store.Authenticate(ctx, "admin", "secret")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	store := newTestStore(t)
	_, err := store.Provision(ctx, "admin", "secret")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "correct credentials", username: "admin", password: "secret"},
		{name: "surrounding whitespace in username", username: " admin ", password: "secret"},
		{name: "wrong password", username: "admin", password: "wrong", wantErr: ErrInvalidCredentials},
		{name: "unknown user", username: "guest", password: "secret", wantErr: ErrInvalidCredentials},
		{name: "both wrong", username: "guest", password: "wrong", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			account, err := store.Authenticate(ctx, tt.username, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, account)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "admin", account.Username)
		})
	}
}
