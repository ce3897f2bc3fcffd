package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	"github.com/trackline/issue-board-backend/internal/core/mocks"
	"github.com/trackline/issue-board-backend/internal/core/ports"
	"github.com/trackline/issue-board-backend/internal/core/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func issueAssignedTo(teamID, creatorID, assigneeID uuid.UUID) *domain.Issue {
	issue, _ := domain.NewIssue(domain.IssueParams{
		TeamID:    teamID,
		Title:     "Broken build on main",
		Priority:  domain.PriorityHigh,
		CreatedBy: creatorID,
	})
	issue.ID = uuid.New()
	issue.AssignedTo = &assigneeID
	return issue
}

func TestNotificationService_Publish(t *testing.T) {
	ctx := context.Background()

	t.Run("sums deliveries across targets", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		userA := uuid.New()
		userB := uuid.New()
		event := domain.NewTeamInviteEvent("platform", "alice")

		mockBroadcaster.On("SendToUser", userA, event).Return(2)
		mockBroadcaster.On("SendToUser", userB, event).Return(1)

		delivered := svc.Publish(ctx, []uuid.UUID{userA, userB}, event)

		assert.Equal(t, 3, delivered)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("zero deliveries when all targets offline", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		userA := uuid.New()
		event := domain.NewTeamInviteEvent("platform", "alice")
		mockBroadcaster.On("SendToUser", userA, event).Return(0)

		delivered := svc.Publish(ctx, []uuid.UUID{userA}, event)

		assert.Equal(t, 0, delivered)
	})

	t.Run("no targets", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		event := domain.NewTeamInviteEvent("platform", "alice")
		delivered := svc.Publish(ctx, nil, event)

		assert.Equal(t, 0, delivered)
		mockBroadcaster.AssertNotCalled(t, "SendToUser")
	})
}

func TestNotificationService_NotifyIssueAssigned(t *testing.T) {
	ctx := context.Background()
	teamID := uuid.New()
	creatorID := uuid.New()
	assigneeID := uuid.New()

	t.Run("persists row and pushes to assignee", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		issue := issueAssignedTo(teamID, creatorID, assigneeID)

		mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Run(func(args mock.Arguments) {
				n := args.Get(1).(*domain.Notification)
				assert.Equal(t, assigneeID, n.UserID)
				assert.Equal(t, domain.NotificationIssueAssigned, n.Type)
				require.NotNil(t, n.IssueID)
				assert.Equal(t, issue.ID, *n.IssueID)
				assert.False(t, n.IsRead)
			}).
			Return(&domain.Notification{ID: uuid.New()}, nil)
		mockBroadcaster.On("SendToUser", assigneeID, mock.AnythingOfType("domain.Event")).Return(1)

		delivered := svc.NotifyIssueAssigned(ctx, issue, "alice")

		assert.Equal(t, 1, delivered)
		mockNotifRepo.AssertExpectations(t)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("no-op without assignee", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		issue := issueAssignedTo(teamID, creatorID, assigneeID)
		issue.AssignedTo = nil

		delivered := svc.NotifyIssueAssigned(ctx, issue, "alice")

		assert.Equal(t, 0, delivered)
		mockNotifRepo.AssertNotCalled(t, "Create")
		mockBroadcaster.AssertNotCalled(t, "SendToUser")
	})

	t.Run("persistence failure still pushes live event", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		issue := issueAssignedTo(teamID, creatorID, assigneeID)

		mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Return(nil, errors.New("db down"))
		mockBroadcaster.On("SendToUser", assigneeID, mock.AnythingOfType("domain.Event")).Return(1)

		delivered := svc.NotifyIssueAssigned(ctx, issue, "alice")

		assert.Equal(t, 1, delivered)
		mockBroadcaster.AssertExpectations(t)
	})
}

func TestNotificationService_EmailFallback(t *testing.T) {
	ctx := context.Background()
	teamID := uuid.New()
	creatorID := uuid.New()
	assigneeID := uuid.New()

	t.Run("offline assignee gets an email", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		mockEmail := mocks.NewMockEmailNotifier()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, mockEmail, testLogger())

		issue := issueAssignedTo(teamID, creatorID, assigneeID)

		mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Return(&domain.Notification{ID: uuid.New()}, nil)
		mockBroadcaster.On("SendToUser", assigneeID, mock.AnythingOfType("domain.Event")).Return(0)
		mockEmail.On("Notify", ctx, mock.MatchedBy(func(params ports.EmailNotificationParams) bool {
			return params.RecipientUserID == assigneeID && params.Subject == "New Issue Assigned"
		})).Return()

		delivered := svc.NotifyIssueAssigned(ctx, issue, "alice")

		assert.Equal(t, 0, delivered)
		mockEmail.AssertExpectations(t)
	})

	t.Run("online assignee gets no email", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		mockEmail := mocks.NewMockEmailNotifier()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, mockEmail, testLogger())

		issue := issueAssignedTo(teamID, creatorID, assigneeID)

		mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Return(&domain.Notification{ID: uuid.New()}, nil)
		mockBroadcaster.On("SendToUser", assigneeID, mock.AnythingOfType("domain.Event")).Return(1)

		delivered := svc.NotifyIssueAssigned(ctx, issue, "alice")

		assert.Equal(t, 1, delivered)
		mockEmail.AssertNotCalled(t, "Notify")
	})
}

func TestNotificationService_NotifyIssueStatusChanged(t *testing.T) {
	ctx := context.Background()
	teamID := uuid.New()
	creatorID := uuid.New()
	assigneeID := uuid.New()

	t.Run("event carries old and new status", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		issue := issueAssignedTo(teamID, creatorID, assigneeID)
		issue.Status = domain.StatusInProgress

		mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
			Return(&domain.Notification{ID: uuid.New()}, nil)
		mockBroadcaster.On("SendToUser", assigneeID, mock.MatchedBy(func(event domain.Event) bool {
			return event.Data.EventType == domain.NotificationIssueStatusChanged &&
				event.Data.Issue != nil &&
				event.Data.Issue.Status == string(domain.StatusInProgress) &&
				strings.Contains(event.Data.Message, string(domain.StatusOpen))
		})).Return(2)

		delivered := svc.NotifyIssueStatusChanged(ctx, issue, "bob", domain.StatusOpen)

		assert.Equal(t, 2, delivered)
		mockBroadcaster.AssertExpectations(t)
	})

	t.Run("no-op without assignee", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		issue := issueAssignedTo(teamID, creatorID, assigneeID)
		issue.AssignedTo = nil

		delivered := svc.NotifyIssueStatusChanged(ctx, issue, "bob", domain.StatusOpen)

		assert.Equal(t, 0, delivered)
		mockNotifRepo.AssertNotCalled(t, "Create")
	})
}

func TestNotificationService_NotifyTeamInvite(t *testing.T) {
	ctx := context.Background()

	mockNotifRepo := mocks.NewMockNotificationRepository()
	mockTeamRepo := mocks.NewMockTeamRepository()
	mockBroadcaster := mocks.NewMockEventBroadcaster()
	svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

	team := &domain.Team{ID: uuid.New(), Name: "platform"}
	invitee := uuid.New()
	inviter := uuid.New()

	mockNotifRepo.On("Create", ctx, mock.AnythingOfType("*domain.Notification")).
		Run(func(args mock.Arguments) {
			n := args.Get(1).(*domain.Notification)
			assert.Equal(t, invitee, n.UserID)
			assert.Equal(t, domain.NotificationTeamInvite, n.Type)
			require.NotNil(t, n.RelatedUserID)
			assert.Equal(t, inviter, *n.RelatedUserID)
		}).
		Return(&domain.Notification{ID: uuid.New()}, nil)
	mockBroadcaster.On("SendToUser", invitee, mock.MatchedBy(func(event domain.Event) bool {
		return event.Data.EventType == domain.NotificationTeamInvite
	})).Return(1)

	delivered := svc.NotifyTeamInvite(ctx, team, invitee, inviter, "alice")

	assert.Equal(t, 1, delivered)
	mockNotifRepo.AssertExpectations(t)
	mockBroadcaster.AssertExpectations(t)
}

func TestNotificationService_BroadcastKanbanUpdate(t *testing.T) {
	ctx := context.Background()
	teamID := uuid.New()
	creatorID := uuid.New()

	t.Run("targets active members only, nothing persisted", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		issue, _ := domain.NewIssue(domain.IssueParams{
			TeamID:    teamID,
			Title:     "Flaky e2e suite",
			Priority:  domain.PriorityMedium,
			CreatedBy: creatorID,
		})
		issue.ID = uuid.New()

		active1 := uuid.New()
		active2 := uuid.New()
		inactive := uuid.New()
		mockTeamRepo.On("ListMembers", ctx, teamID).Return([]*domain.TeamMember{
			{TeamID: teamID, UserID: active1, IsActive: true},
			{TeamID: teamID, UserID: inactive, IsActive: false},
			{TeamID: teamID, UserID: active2, IsActive: true},
		}, nil)
		mockBroadcaster.On("SendToUser", active1, mock.MatchedBy(func(event domain.Event) bool {
			return event.Data.EventType == domain.NotificationKanbanUpdate &&
				event.Data.Action == domain.KanbanActionStatusChanged
		})).Return(1)
		mockBroadcaster.On("SendToUser", active2, mock.AnythingOfType("domain.Event")).Return(0)

		delivered := svc.BroadcastKanbanUpdate(ctx, issue, domain.KanbanActionStatusChanged)

		assert.Equal(t, 1, delivered)
		mockNotifRepo.AssertNotCalled(t, "Create")
		mockBroadcaster.AssertNotCalled(t, "SendToUser", inactive, mock.Anything)
		mockTeamRepo.AssertExpectations(t)
	})

	t.Run("member lookup failure yields zero", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		issue, _ := domain.NewIssue(domain.IssueParams{
			TeamID:    teamID,
			Title:     "Flaky e2e suite",
			Priority:  domain.PriorityMedium,
			CreatedBy: creatorID,
		})

		mockTeamRepo.On("ListMembers", ctx, teamID).Return(nil, errors.New("db down"))

		delivered := svc.BroadcastKanbanUpdate(ctx, issue, domain.KanbanActionUpdated)

		assert.Equal(t, 0, delivered)
		mockBroadcaster.AssertNotCalled(t, "SendToUser")
	})
}

func TestNotificationService_Queries(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("list unread", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		expected := []*domain.Notification{{ID: uuid.New(), UserID: userID}}
		mockNotifRepo.On("ListByUser", ctx, userID, true, 50).Return(expected, nil)

		got, err := svc.ListNotifications(ctx, userID, true, 50)

		require.NoError(t, err)
		assert.Equal(t, expected, got)
	})

	t.Run("mark all read returns count", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		mockNotifRepo.On("MarkAllRead", ctx, userID).Return(int64(4), nil)

		n, err := svc.MarkAllRead(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})

	t.Run("count unread", func(t *testing.T) {
		mockNotifRepo := mocks.NewMockNotificationRepository()
		mockTeamRepo := mocks.NewMockTeamRepository()
		mockBroadcaster := mocks.NewMockEventBroadcaster()
		svc := services.NewNotificationService(mockNotifRepo, mockTeamRepo, mockBroadcaster, nil, testLogger())

		mockNotifRepo.On("CountUnread", ctx, userID).Return(int64(2), nil)

		n, err := svc.CountUnread(ctx, userID)

		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}
