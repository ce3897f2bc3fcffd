package postgres

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
)

// seedUser inserts a user with unique credentials for a test.
func seedUser(t *testing.T, prefix string) *domain.User {
	t.Helper()
	require.NotNil(t, testPool, "testPool is nil. TestMain may not have run.")

	suffix := uuid.New().String()[:8]
	repo := NewUserRepository(testPool)
	user, err := repo.Create(context.Background(), &domain.User{
		Username:     fmt.Sprintf("%s_%s", prefix, suffix),
		Email:        fmt.Sprintf("%s_%s@example.com", prefix, suffix),
		FullName:     "Test User",
		PasswordHash: "hashedpassword",
		IsActive:     true,
	})
	require.NoError(t, err, "failed to seed user")
	return user
}

func TestUserRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	created := seedUser(t, "creategetuser")

	foundByUsername, err := repo.GetByUsername(ctx, created.Username)
	require.NoError(t, err)
	assert.Equal(t, created.ID, foundByUsername.ID)
	assert.Equal(t, created.Email, foundByUsername.Email)
	assert.True(t, foundByUsername.IsActive)

	foundByEmail, err := repo.GetByEmail(ctx, created.Email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, foundByEmail.ID)

	foundByID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Username, foundByID.Username)
}

func TestUserRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	_, err := repo.GetByUsername(ctx, "no_such_user")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = repo.GetByEmail(ctx, "nonexistent@example.com")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	existing := seedUser(t, "dupuser")

	_, err := repo.Create(ctx, &domain.User{
		Username:     existing.Username,
		Email:        "different@example.com",
		PasswordHash: "hashedpassword",
		IsActive:     true,
	})
	assert.ErrorIs(t, err, apperrors.ErrUserExists)
}

func TestUserRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(testPool)

	seedUser(t, "listuser_a")
	seedUser(t, "listuser_b")

	users, err := repo.List(ctx, 1000)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(users), 2)
}
