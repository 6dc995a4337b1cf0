package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndLogin(t *testing.T) {
	setupServices(t)
	ctx := context.Background()
	us := NewUserService()

	user, err := us.Register(ctx, "Alice Smith", "  Alice@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.NotEqual(t, "secret1", user.Password)

	_, err = us.Register(ctx, "Other", "ALICE@example.com", "secret2")
	assert.ErrorIs(t, err, ErrUserExists)

	token, logged, err := us.Login(ctx, "alice@EXAMPLE.com", "secret1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, logged.ID)

	claims, err := Tokens.Validate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())
}

func TestRegisterValidation(t *testing.T) {
	setupServices(t)
	us := NewUserService()

	_, err := us.Register(context.Background(), "Bob", "", "secret1")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = us.Register(context.Background(), "Bob", "bob@example.com", "123")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = us.Register(context.Background(), "   ", "blank@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLoginInvalidCredentials(t *testing.T) {
	setupServices(t)
	ctx := context.Background()
	us := NewUserService()
	_, err := us.Register(ctx, "Carol", "carol@example.com", "secret1")
	require.NoError(t, err)

	_, _, err = us.Login(ctx, "carol@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = us.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogoutRevokesToken(t *testing.T) {
	setupServices(t)
	ctx := context.Background()
	us := NewUserService()
	_, err := us.Register(ctx, "Dave", "dave@example.com", "secret1")
	require.NoError(t, err)

	token, _, err := us.Login(ctx, "dave@example.com", "secret1")
	require.NoError(t, err)
	claims, err := Tokens.Validate(ctx, token)
	require.NoError(t, err)

	require.NoError(t, us.Logout(ctx, claims))
	_, err = Tokens.Validate(ctx, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSearchUsers(t *testing.T) {
	setupServices(t)
	ctx := context.Background()
	us := NewUserService()

	register := func(name, email string) int64 {
		user, err := us.Register(ctx, name, email, "password123")
		require.NoError(t, err)
		return user.ID
	}
	caller := register("Caller Person", "caller@example.com")
	ann := register("Ann Lee", "lee@example.com")
	register("Boris Petrov", "boris@example.com")
	percent := register("100% Real", "real@example.com")

	found, err := us.SearchUsers(ctx, caller, "ANN")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, ann, found[0].ID)

	// поиск по части email
	found, err = us.SearchUsers(ctx, caller, "boris@")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Boris Petrov", found[0].Fullname)

	// % ищется буквально
	found, err = us.SearchUsers(ctx, caller, "0%")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, percent, found[0].ID)

	all, err := us.SearchUsers(ctx, caller, "  ")
	require.NoError(t, err)
	assert.Len(t, all, 3)
	for _, u := range all {
		assert.NotEqual(t, caller, u.ID)
	}
}

func TestGetUserNotFound(t *testing.T) {
	setupServices(t)
	_, err := NewUserService().GetUser(context.Background(), 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
