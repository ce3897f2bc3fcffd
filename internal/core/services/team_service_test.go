package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
	"github.com/trackline/issue-board-backend/internal/core/mocks"
	"github.com/trackline/issue-board-backend/internal/core/services"
)

type teamServiceFixture struct {
	teamRepo  *mocks.MockTeamRepository
	userRepo  *mocks.MockUserRepository
	publisher *mocks.MockNotificationPublisher
	svc       *services.TeamService
}

func newTeamServiceFixture() *teamServiceFixture {
	f := &teamServiceFixture{
		teamRepo:  mocks.NewMockTeamRepository(),
		userRepo:  mocks.NewMockUserRepository(),
		publisher: mocks.NewMockNotificationPublisher(),
	}
	f.svc = services.NewTeamService(f.teamRepo, f.userRepo, f.publisher, mocks.NewMockTransactionManager())
	return f
}

func TestTeamService_CreateTeam(t *testing.T) {
	ctx := context.Background()
	creatorID := uuid.New()

	t.Run("creator becomes admin member", func(t *testing.T) {
		f := newTeamServiceFixture()
		teamID := uuid.New()

		f.teamRepo.On("Create", ctx, mock.AnythingOfType("*domain.Team")).
			Return(&domain.Team{ID: teamID, Name: "platform", CreatedBy: creatorID, IsActive: true}, nil)
		f.userRepo.On("GetByID", ctx, creatorID).
			Return(&domain.User{ID: creatorID, Username: "alice"}, nil)
		f.teamRepo.On("AddMember", ctx, mock.MatchedBy(func(m *domain.TeamMember) bool {
			return m.TeamID == teamID && m.UserID == creatorID && m.Role == domain.RoleAdmin
		})).Return(&domain.TeamMember{TeamID: teamID, UserID: creatorID, Role: domain.RoleAdmin}, nil)

		team, err := f.svc.CreateTeam(ctx, "platform", "infra crew", creatorID)

		require.NoError(t, err)
		assert.Equal(t, "platform", team.Name)
		f.teamRepo.AssertExpectations(t)
	})

	t.Run("empty name rejected", func(t *testing.T) {
		f := newTeamServiceFixture()

		team, err := f.svc.CreateTeam(ctx, "", "", creatorID)

		assert.Nil(t, team)
		assert.ErrorIs(t, err, apperrors.ErrTeamNameRequired)
		f.teamRepo.AssertNotCalled(t, "Create")
	})
}

func TestTeamService_GetTeam(t *testing.T) {
	ctx := context.Background()
	teamID := uuid.New()
	viewerID := uuid.New()

	t.Run("returns team with members and viewer role", func(t *testing.T) {
		f := newTeamServiceFixture()

		members := []*domain.TeamMember{
			{TeamID: teamID, UserID: viewerID, Role: domain.RoleAdmin, IsActive: true},
			{TeamID: teamID, UserID: uuid.New(), Role: domain.RoleMember, IsActive: true},
		}
		f.teamRepo.On("GetMember", ctx, teamID, viewerID).Return(members[0], nil)
		f.teamRepo.On("GetByID", ctx, teamID).
			Return(&domain.Team{ID: teamID, Name: "platform"}, nil)
		f.teamRepo.On("ListMembers", ctx, teamID).Return(members, nil)

		got, err := f.svc.GetTeam(ctx, teamID, viewerID)

		require.NoError(t, err)
		assert.Equal(t, "platform", got.Name)
		assert.Len(t, got.Members, 2)
		assert.Equal(t, domain.RoleAdmin, got.UserRole)
	})

	t.Run("non-member denied", func(t *testing.T) {
		f := newTeamServiceFixture()

		f.teamRepo.On("GetMember", ctx, teamID, viewerID).
			Return(nil, apperrors.ErrNotTeamMember)

		got, err := f.svc.GetTeam(ctx, teamID, viewerID)

		assert.Nil(t, got)
		assert.ErrorIs(t, err, apperrors.ErrNotTeamMember)
	})
}

func TestTeamService_AddMember(t *testing.T) {
	ctx := context.Background()
	teamID := uuid.New()
	adminID := uuid.New()

	admin := &domain.TeamMember{
		TeamID: teamID, UserID: adminID, Username: "alice",
		Role: domain.RoleAdmin, IsActive: true,
	}

	t.Run("admin adds member and invite goes out", func(t *testing.T) {
		f := newTeamServiceFixture()
		newUserID := uuid.New()

		f.teamRepo.On("GetMember", ctx, teamID, adminID).Return(admin, nil)
		f.userRepo.On("GetByUsername", ctx, "bob").
			Return(&domain.User{ID: newUserID, Username: "bob"}, nil)
		f.teamRepo.On("GetMember", ctx, teamID, newUserID).
			Return(nil, apperrors.ErrNotTeamMember)
		f.teamRepo.On("AddMember", ctx, mock.MatchedBy(func(m *domain.TeamMember) bool {
			return m.UserID == newUserID && m.Role == domain.RoleMember && m.AddedBy == adminID
		})).Return(&domain.TeamMember{TeamID: teamID, UserID: newUserID, Role: domain.RoleMember}, nil)
		team := &domain.Team{ID: teamID, Name: "platform"}
		f.teamRepo.On("GetByID", ctx, teamID).Return(team, nil)
		f.publisher.On("NotifyTeamInvite", mock.Anything, team, newUserID, adminID, "alice").Return(1)

		member, err := f.svc.AddMember(ctx, teamID, adminID, "bob", "")
		f.svc.Shutdown()

		require.NoError(t, err)
		assert.Equal(t, newUserID, member.UserID)
		f.publisher.AssertExpectations(t)
	})

	t.Run("non-admin cannot add", func(t *testing.T) {
		f := newTeamServiceFixture()

		f.teamRepo.On("GetMember", ctx, teamID, adminID).
			Return(&domain.TeamMember{TeamID: teamID, UserID: adminID, Role: domain.RoleMember, IsActive: true}, nil)

		member, err := f.svc.AddMember(ctx, teamID, adminID, "bob", "")

		assert.Nil(t, member)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.teamRepo.AssertNotCalled(t, "AddMember")
	})

	t.Run("unknown role rejected", func(t *testing.T) {
		f := newTeamServiceFixture()

		f.teamRepo.On("GetMember", ctx, teamID, adminID).Return(admin, nil)

		member, err := f.svc.AddMember(ctx, teamID, adminID, "bob", "owner")

		assert.Nil(t, member)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTeamRole)
	})

	t.Run("unknown username", func(t *testing.T) {
		f := newTeamServiceFixture()

		f.teamRepo.On("GetMember", ctx, teamID, adminID).Return(admin, nil)
		f.userRepo.On("GetByUsername", ctx, "ghost").
			Return(nil, apperrors.ErrUserNotFound)

		member, err := f.svc.AddMember(ctx, teamID, adminID, "ghost", "")

		assert.Nil(t, member)
		assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
	})

	t.Run("duplicate member rejected", func(t *testing.T) {
		f := newTeamServiceFixture()
		existingID := uuid.New()

		f.teamRepo.On("GetMember", ctx, teamID, adminID).Return(admin, nil)
		f.userRepo.On("GetByUsername", ctx, "bob").
			Return(&domain.User{ID: existingID, Username: "bob"}, nil)
		f.teamRepo.On("GetMember", ctx, teamID, existingID).
			Return(&domain.TeamMember{TeamID: teamID, UserID: existingID, Role: domain.RoleMember, IsActive: true}, nil)

		member, err := f.svc.AddMember(ctx, teamID, adminID, "bob", "")

		assert.Nil(t, member)
		assert.ErrorIs(t, err, apperrors.ErrAlreadyTeamMember)
		f.teamRepo.AssertNotCalled(t, "AddMember")
	})
}

func TestTeamService_RemoveMember(t *testing.T) {
	ctx := context.Background()
	teamID := uuid.New()
	adminID := uuid.New()
	memberID := uuid.New()

	admin := &domain.TeamMember{TeamID: teamID, UserID: adminID, Role: domain.RoleAdmin, IsActive: true}
	member := &domain.TeamMember{TeamID: teamID, UserID: memberID, Role: domain.RoleMember, IsActive: true}

	t.Run("admin removes member", func(t *testing.T) {
		f := newTeamServiceFixture()

		f.teamRepo.On("GetMember", ctx, teamID, adminID).Return(admin, nil)
		f.teamRepo.On("GetMember", ctx, teamID, memberID).Return(member, nil)
		f.teamRepo.On("RemoveMember", ctx, teamID, memberID).Return(nil)

		err := f.svc.RemoveMember(ctx, teamID, adminID, memberID)

		require.NoError(t, err)
		f.teamRepo.AssertExpectations(t)
	})

	t.Run("member removes self", func(t *testing.T) {
		f := newTeamServiceFixture()

		f.teamRepo.On("GetMember", ctx, teamID, memberID).Return(member, nil)
		f.teamRepo.On("RemoveMember", ctx, teamID, memberID).Return(nil)

		err := f.svc.RemoveMember(ctx, teamID, memberID, memberID)

		require.NoError(t, err)
	})

	t.Run("member cannot remove someone else", func(t *testing.T) {
		f := newTeamServiceFixture()
		otherID := uuid.New()

		f.teamRepo.On("GetMember", ctx, teamID, memberID).Return(member, nil)

		err := f.svc.RemoveMember(ctx, teamID, memberID, otherID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		f.teamRepo.AssertNotCalled(t, "RemoveMember")
	})
}
