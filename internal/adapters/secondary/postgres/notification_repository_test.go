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

func TestNotificationRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewNotificationRepository(testPool)

	recipient := seedUser(t, "notifrecipient")
	actor := seedUser(t, "notifactor")

	first, err := repo.Create(ctx, domain.NewNotification(
		recipient.ID,
		domain.NotificationTeamInvite,
		"Added to Team",
		"You have been added to team 'platform' by alice",
	).WithRelatedUser(actor.ID))
	require.NoError(t, err)
	assert.False(t, first.IsRead)
	require.NotNil(t, first.RelatedUserID)
	assert.Equal(t, actor.ID, *first.RelatedUserID)

	second, err := repo.Create(ctx, domain.NewNotification(
		recipient.ID,
		domain.NotificationIssueUpdated,
		"Issue Updated",
		"Issue 'x' has been updated",
	))
	require.NoError(t, err)

	t.Run("list newest first", func(t *testing.T) {
		all, err := repo.ListByUser(ctx, recipient.ID, false, 50)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID)
	})

	t.Run("unread count and filter", func(t *testing.T) {
		count, err := repo.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)

		unread, err := repo.ListByUser(ctx, recipient.ID, true, 50)
		require.NoError(t, err)
		assert.Len(t, unread, 2)
	})

	t.Run("mark one read", func(t *testing.T) {
		require.NoError(t, repo.MarkRead(ctx, first.ID, recipient.ID))

		unread, err := repo.ListByUser(ctx, recipient.ID, true, 50)
		require.NoError(t, err)
		require.Len(t, unread, 1)
		assert.Equal(t, second.ID, unread[0].ID)
	})

	t.Run("cannot mark someone else's row", func(t *testing.T) {
		err := repo.MarkRead(ctx, second.ID, actor.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)
	})

	t.Run("mark all read returns count", func(t *testing.T) {
		n, err := repo.MarkAllRead(ctx, recipient.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		count, err := repo.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), count)
	})

	t.Run("unknown id", func(t *testing.T) {
		err := repo.MarkRead(ctx, uuid.New(), recipient.ID)
		assert.ErrorIs(t, err, apperrors.ErrNotificationNotFound)
	})
}
