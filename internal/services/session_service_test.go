package services_test

import (
	"context"
	"testing"
	"time"

	"storefront/internal/repositories"
	"storefront/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_FollowsSignInAndOut(t *testing.T) {
	ctx := context.Background()
	auth := services.NewAuthService(repositories.NewMemoryAccountRepository(), "secret", time.Hour)
	_, err := auth.CreateAccount(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	sessions := services.NewSessionService(auth)
	sessions.Start(ctx)
	defer sessions.Stop()
	assert.False(t, sessions.LoggedIn().Get())

	session, err := auth.SignIn(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	assert.True(t, sessions.LoggedIn().Get())
	assert.Equal(t, session, sessions.Session().Get())

	sessions.SignOut()
	assert.False(t, sessions.LoggedIn().Get())
	assert.Nil(t, sessions.Session().Get())

	sessions.Stop()
	_, err = auth.SignIn(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	assert.False(t, sessions.LoggedIn().Get())

	// Starting again picks up the current session straight away.
	sessions.Start(ctx)
	assert.True(t, sessions.LoggedIn().Get())
}

func TestSessionService_IndependentInstances(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	auth := services.NewAuthService(repositories.NewMemoryAccountRepository(), "secret", time.Hour)
	_, err := auth.CreateAccount(context.Background(), "ada@example.com", "password123")
	require.NoError(t, err)

	a := services.NewSessionService(auth)
	b := services.NewSessionService(auth)
	a.Start(ctx)
	b.Start(context.Background())
	defer b.Stop()

	cancel()
	// Give the detach goroutine a moment.
	time.Sleep(50 * time.Millisecond)

	_, err = auth.SignIn(context.Background(), "ada@example.com", "password123")
	require.NoError(t, err)
	assert.False(t, a.LoggedIn().Get())
	assert.True(t, b.LoggedIn().Get())

	until, cancelUntil := context.WithTimeout(context.Background(), time.Second)
	defer cancelUntil()
	loggedIn, err := b.LoggedIn().Until(until, func(v bool) bool { return v })
	require.NoError(t, err)
	assert.True(t, loggedIn)
}
