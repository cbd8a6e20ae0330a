package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"series-tracker/models"
	"series-tracker/store"
)

func newTestAuth(t *testing.T) (*AuthService, *store.MemoryStore) {
	t.Helper()
	users := store.NewMemoryStore()
	auth := NewAuthService(users, NewMemoryTokenStore(), AuthConfig{
		TokenTTL:                time.Hour,
		SignInAttemptsPerMinute: 3,
		HashCost:                bcrypt.MinCost,
	})
	return auth, users
}

func TestSignUpThenSignIn(t *testing.T) {
	auth, users := newTestAuth(t)
	ctx := context.Background()

	registered, err := auth.SignUp(ctx, "  Ana@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", registered.Email)
	assert.NotEmpty(t, registered.UserID)
	assert.NotEmpty(t, registered.Token)

	stored, err := users.UserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	signedIn, err := auth.SignIn(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.UserID, signedIn.UserID)
	assert.NotEqual(t, registered.Token, signedIn.Token)

	p, err := auth.Authenticate(ctx, signedIn.Token)
	require.NoError(t, err)
	assert.Equal(t, Principal{UserID: registered.UserID, Email: "ana@example.com"}, p)
}

func TestSignUpValidation(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "secret1"},
		{"bad email", "not-an-email", "secret1"},
		{"display name", "Ana <ana@example.com>", "secret1"},
		{"short password", "ana@example.com", "12345"},
		{"short multibyte password", "ana@example.com", "ñññ"},
		{"password over bcrypt limit", "ana@example.com", strings.Repeat("x", 73)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.SignUp(ctx, tt.email, tt.password)
			assert.ErrorIs(t, err, models.ErrInvalidInput)
		})
	}
}

func TestSignUpDuplicate(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.SignUp(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)
	_, err = auth.SignUp(ctx, "ANA@example.com", "secret2")
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.SignUp(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	_, err = auth.SignIn(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = auth.SignIn(ctx, "bob@example.com", "secret1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSignInThrottledPerEmail(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.SignUp(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = auth.SignIn(ctx, "ana@example.com", "wrong-password")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	}
	_, err = auth.SignIn(ctx, "ana@example.com", "secret1")
	assert.ErrorIs(t, err, models.ErrRateLimited)

	// other accounts are unaffected
	_, err = auth.SignUp(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)
	_, err = auth.SignIn(ctx, "bob@example.com", "secret1")
	assert.NoError(t, err)
}

func TestSignOutRevokesToken(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	id, err := auth.SignUp(ctx, "ana@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, auth.SignOut(ctx, id.Token))
	_, err = auth.Authenticate(ctx, id.Token)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = auth.Authenticate(ctx, "")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSignUpAcceptsMultibytePassword(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := auth.SignUp(ctx, "ana@example.com", "ññññññ")
	require.NoError(t, err)
	_, err = auth.SignIn(ctx, "ana@example.com", "ññññññ")
	assert.NoError(t, err)
}

func TestSignInUnknownEmailChecksDummyHash(t *testing.T) {
	auth, _ := newTestAuth(t)
	require.NotEmpty(t, auth.dummyHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword(auth.dummyHash, []byte("not-a-password")))

	_, err := auth.SignIn(context.Background(), "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSignInLimitersAreDropped(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }

	for i := 0; i < 500; i++ {
		_, err := auth.SignIn(ctx, fmt.Sprintf("user%d@example.com", i), "wrong-password")
		require.ErrorIs(t, err, models.ErrUnauthorized)
	}
	assert.Len(t, auth.limiters, 500)

	// a minute later every limiter has refilled
	now = now.Add(time.Minute)
	_, err := auth.SignIn(ctx, "last@example.com", "wrong-password")
	require.ErrorIs(t, err, models.ErrUnauthorized)
	assert.Len(t, auth.limiters, 1)
}

func TestSignInLimiterKeptWhileThrottled(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_, _ = auth.SignIn(ctx, "ana@example.com", "wrong-password")
	}
	now = now.Add(time.Second)
	_, err := auth.SignIn(ctx, "bob@example.com", "wrong-password")
	require.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = auth.SignIn(ctx, "ana@example.com", "wrong-password")
	assert.ErrorIs(t, err, models.ErrRateLimited)
}
