package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
)

// seedTeam inserts a team owned by creator with creator as admin member.
func seedTeam(t *testing.T, creator *domain.User) *domain.Team {
	t.Helper()
	ctx := context.Background()
	repo := NewTeamRepository(testPool)

	team, err := repo.Create(ctx, &domain.Team{
		Name:        "team-" + uuid.New().String()[:8],
		Description: "integration test team",
		CreatedBy:   creator.ID,
		IsActive:    true,
	})
	require.NoError(t, err)

	_, err = repo.AddMember(ctx, &domain.TeamMember{
		TeamID:   team.ID,
		UserID:   creator.ID,
		Role:     domain.RoleAdmin,
		AddedBy:  creator.ID,
		AddedAt:  time.Now().UTC(),
		IsActive: true,
	})
	require.NoError(t, err)
	return team
}

func TestTeamRepository_CreateGet(t *testing.T) {
	ctx := context.Background()
	repo := NewTeamRepository(testPool)

	creator := seedUser(t, "teamcreator")
	team := seedTeam(t, creator)

	found, err := repo.GetByID(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, team.Name, found.Name)
	assert.Equal(t, creator.ID, found.CreatedBy)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)
}

func TestTeamRepository_Membership(t *testing.T) {
	ctx := context.Background()
	repo := NewTeamRepository(testPool)

	creator := seedUser(t, "membercreator")
	other := seedUser(t, "memberother")
	team := seedTeam(t, creator)

	t.Run("creator is admin member", func(t *testing.T) {
		member, err := repo.GetMember(ctx, team.ID, creator.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleAdmin, member.Role)
		assert.Equal(t, creator.Username, member.Username)
	})

	t.Run("add and list members", func(t *testing.T) {
		added, err := repo.AddMember(ctx, &domain.TeamMember{
			TeamID:   team.ID,
			UserID:   other.ID,
			Role:     domain.RoleMember,
			AddedBy:  creator.ID,
			AddedAt:  time.Now().UTC(),
			IsActive: true,
		})
		require.NoError(t, err)
		assert.Equal(t, other.Username, added.Username)

		members, err := repo.ListMembers(ctx, team.ID)
		require.NoError(t, err)
		assert.Len(t, members, 2)
	})

	t.Run("duplicate member rejected", func(t *testing.T) {
		_, err := repo.AddMember(ctx, &domain.TeamMember{
			TeamID:   team.ID,
			UserID:   other.ID,
			Role:     domain.RoleMember,
			AddedBy:  creator.ID,
			AddedAt:  time.Now().UTC(),
			IsActive: true,
		})
		assert.ErrorIs(t, err, apperrors.ErrAlreadyTeamMember)
	})

	t.Run("teams visible via membership", func(t *testing.T) {
		teams, err := repo.ListByUserID(ctx, other.ID)
		require.NoError(t, err)
		require.Len(t, teams, 1)
		assert.Equal(t, team.ID, teams[0].ID)
	})

	t.Run("remove member", func(t *testing.T) {
		require.NoError(t, repo.RemoveMember(ctx, team.ID, other.ID))

		_, err := repo.GetMember(ctx, team.ID, other.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotTeamMember)

		err = repo.RemoveMember(ctx, team.ID, other.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotTeamMember)
	})
}

func TestTransactionManager_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	repo := NewTeamRepository(testPool)
	txm := NewTransactionManager(testPool)

	creator := seedUser(t, "txcreator")

	var teamID uuid.UUID
	err := txm.WithTransaction(ctx, func(ctx context.Context) error {
		team, err := repo.Create(ctx, &domain.Team{
			Name:      "tx-team-" + uuid.New().String()[:8],
			CreatedBy: creator.ID,
			IsActive:  true,
		})
		if err != nil {
			return err
		}
		teamID = team.ID
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = repo.GetByID(ctx, teamID)
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)
}
