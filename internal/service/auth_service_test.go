package service

import (
	"context"
	"testing"
	"time"

	"cosmicwatch/internal/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T, f *fixture) (AuthService, *auth.JWTManager) {
	t.Helper()
	tokens, err := auth.NewJWTManager("test-secret", time.Hour)
	require.NoError(t, err)
	return NewAuthService(f.users, tokens, auth.NewPasswordHasher(bcrypt.MinCost)), tokens
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, tokens := newAuthService(t, f)

	registered, err := svc.Register(ctx, "  Astro@Example.com ", "supersecret")
	require.NoError(t, err)
	assert.Equal(t, "astro@example.com", registered.User.Email)
	assert.Equal(t, "bearer", registered.TokenType)

	claims, err := tokens.ValidateToken(registered.AccessToken)
	require.NoError(t, err)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, id)

	_, err = svc.Register(ctx, "astro@example.com", "anothersecret")
	assert.ErrorIs(t, err, ErrConflict)

	loggedIn, err := svc.Login(ctx, "astro@example.com", "supersecret")
	require.NoError(t, err)
	assert.NotEmpty(t, loggedIn.AccessToken)

	_, err = svc.Login(ctx, "astro@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Login(ctx, "nobody@example.com", "supersecret")
	assert.ErrorIs(t, err, ErrUnauthorized)

	user, err := svc.Authenticate(ctx, loggedIn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	svc, _ := newAuthService(t, f)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "supersecret")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Register(ctx, "short@example.com", "short")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuthService_InactiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc, _ := newAuthService(t, f)

	registered, err := svc.Register(ctx, "gone@example.com", "supersecret")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(ctx, registered.User.ID))

	_, err = svc.Login(ctx, "gone@example.com", "supersecret")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Authenticate(ctx, registered.AccessToken)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestAuthService_AuthenticateRejectsGarbage(t *testing.T) {
	f := newFixture(t)
	svc, tokens := newAuthService(t, f)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrUnauthorized)

	orphan, err := tokens.GenerateToken(9999, "ghost@example.com")
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, orphan)
	assert.ErrorIs(t, err, ErrUnauthorized)
}
