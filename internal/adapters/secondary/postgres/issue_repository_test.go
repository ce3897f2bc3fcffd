package postgres

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
)

func TestIssueRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewIssueRepository(testPool)

	creator := seedUser(t, "issuecreator")
	assignee := seedUser(t, "issueassignee")
	team := seedTeam(t, creator)

	created, err := repo.Create(ctx, &domain.Issue{
		TeamID:      team.ID,
		Title:       "Search returns stale results",
		Description: "Index lags behind writes",
		Status:      domain.StatusOpen,
		Priority:    domain.PriorityHigh,
		Tags:        []string{"search", "backend"},
		CreatedBy:   creator.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, []string{"search", "backend"}, created.Tags)
	assert.Nil(t, created.AssignedTo)

	t.Run("get by id", func(t *testing.T) {
		found, err := repo.GetByID(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.Title, found.Title)
		assert.Equal(t, domain.StatusOpen, found.Status)
	})

	t.Run("update assigns and transitions", func(t *testing.T) {
		created.Status = domain.StatusInProgress
		created.AssignedTo = &assignee.ID
		created.Tags = []string{"search"}

		updated, err := repo.Update(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusInProgress, updated.Status)
		require.NotNil(t, updated.AssignedTo)
		assert.Equal(t, assignee.ID, *updated.AssignedTo)
		assert.Equal(t, []string{"search"}, updated.Tags)
		assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	})

	t.Run("list by team", func(t *testing.T) {
		issues, err := repo.ListByTeam(ctx, team.ID, 100)
		require.NoError(t, err)
		require.Len(t, issues, 1)
		assert.Equal(t, created.ID, issues[0].ID)
	})

	t.Run("list by assignee", func(t *testing.T) {
		issues, err := repo.ListByAssignee(ctx, assignee.ID, 100)
		require.NoError(t, err)
		require.Len(t, issues, 1)

		none, err := repo.ListByAssignee(ctx, creator.ID, 100)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, created.ID))

		_, err := repo.GetByID(ctx, created.ID)
		assert.ErrorIs(t, err, apperrors.ErrIssueNotFound)

		err = repo.Delete(ctx, created.ID)
		assert.ErrorIs(t, err, apperrors.ErrIssueNotFound)
	})
}
