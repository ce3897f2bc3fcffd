package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
	"github.com/trackline/issue-board-backend/internal/core/mocks"
	"github.com/trackline/issue-board-backend/internal/core/services"
)

func validRegistration() domain.UserRegistrationParams {
	return domain.UserRegistrationParams{
		Username: "alice",
		Email:    "alice@example.com",
		FullName: "Alice Smith",
		Password: "secret123",
	}
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByUsername", ctx, "alice").Return(nil, apperrors.ErrUserNotFound)
		mockRepo.On("GetByEmail", ctx, "alice@example.com").Return(nil, apperrors.ErrUserNotFound)
		mockRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Run(func(args mock.Arguments) {
				user := args.Get(1).(*domain.User)
				assert.Equal(t, "alice", user.Username)
				assert.Equal(t, "alice@example.com", user.Email)
				assert.True(t, user.IsActive)
				// Password must never be stored in the clear.
				assert.NotEqual(t, "secret123", user.PasswordHash)
			}).
			Return(&domain.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com", IsActive: true}, nil)

		user, err := svc.Register(ctx, validRegistration())

		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate username", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByUsername", ctx, "alice").
			Return(&domain.User{ID: uuid.New(), Username: "alice"}, nil)

		user, err := svc.Register(ctx, validRegistration())

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("duplicate email", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByUsername", ctx, "alice").Return(nil, apperrors.ErrUserNotFound)
		mockRepo.On("GetByEmail", ctx, "alice@example.com").
			Return(&domain.User{ID: uuid.New(), Email: "alice@example.com"}, nil)

		user, err := svc.Register(ctx, validRegistration())

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrUserExists)
		mockRepo.AssertNotCalled(t, "Create")
	})

	t.Run("validation failures", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		cases := []struct {
			name   string
			mutate func(*domain.UserRegistrationParams)
		}{
			{"username too short", func(p *domain.UserRegistrationParams) { p.Username = "ab" }},
			{"bad email", func(p *domain.UserRegistrationParams) { p.Email = "not-an-email" }},
			{"password too short", func(p *domain.UserRegistrationParams) { p.Password = "short" }},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				params := validRegistration()
				tc.mutate(&params)

				user, err := svc.Register(ctx, params)

				assert.Nil(t, user)
				var verrs *apperrors.ValidationErrors
				assert.ErrorAs(t, err, &verrs)
			})
		}
		mockRepo.AssertNotCalled(t, "Create")
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	activeUser := func() *domain.User {
		return &domain.User{
			ID:           uuid.New(),
			Username:     "alice",
			PasswordHash: string(hash),
			IsActive:     true,
		}
	}

	t.Run("success", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByUsername", ctx, "alice").Return(activeUser(), nil)

		user, err := svc.Login(ctx, "alice", "secret123")

		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("wrong password", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByUsername", ctx, "alice").Return(activeUser(), nil)

		user, err := svc.Login(ctx, "alice", "wrong")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("unknown username maps to invalid credentials", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		mockRepo.On("GetByUsername", ctx, "ghost").Return(nil, apperrors.ErrUserNotFound)

		user, err := svc.Login(ctx, "ghost", "secret123")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
	})

	t.Run("inactive account", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		user := activeUser()
		user.IsActive = false
		mockRepo.On("GetByUsername", ctx, "alice").Return(user, nil)

		got, err := svc.Login(ctx, "alice", "secret123")

		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrUserInactive)
	})

	t.Run("missing credentials", func(t *testing.T) {
		mockRepo := mocks.NewMockUserRepository()
		svc := services.NewAuthService(mockRepo)

		_, err := svc.Login(ctx, "", "secret123")
		assert.ErrorIs(t, err, apperrors.ErrUsernameRequired)

		_, err = svc.Login(ctx, "alice", "")
		assert.ErrorIs(t, err, apperrors.ErrPasswordRequired)
	})
}
