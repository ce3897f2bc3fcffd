package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

// NotificationService is the event publisher: it writes the durable
// notification record and fans the live event out to the target users'
// connections. Live delivery is best effort and never fails the mutation
// that triggered it; the persisted row is the source of truth.
type NotificationService struct {
	notifRepo   ports.NotificationRepository
	teamRepo    ports.TeamRepository
	broadcaster ports.EventBroadcaster
	email       ports.EmailNotifier // optional offline fallback
	logger      *slog.Logger
}

var _ ports.NotificationService = (*NotificationService)(nil)

// NewNotificationService creates a new notification service. email may be nil,
// in which case notifications for offline users are durable-only.
func NewNotificationService(
	notifRepo ports.NotificationRepository,
	teamRepo ports.TeamRepository,
	broadcaster ports.EventBroadcaster,
	email ports.EmailNotifier,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		notifRepo:   notifRepo,
		teamRepo:    teamRepo,
		broadcaster: broadcaster,
		email:       email,
		logger:      logger.With("component", "notification_service"),
	}
}

// emailFallback forwards the notification to the email notifier when no live
// connection received it.
func (s *NotificationService) emailFallback(ctx context.Context, delivered int, notification *domain.Notification) {
	if delivered > 0 || s.email == nil {
		return
	}
	s.email.Notify(ctx, ports.EmailNotificationParams{
		RecipientUserID: notification.UserID,
		Subject:         notification.Title,
		Message:         notification.Message,
		IssueID:         notification.IssueID,
	})
}

// Publish fans event out to every live connection of each target user and
// returns the number of successful pushes. 0 is valid: the users are simply
// offline and will see the durable notification on next fetch.
func (s *NotificationService) Publish(ctx context.Context, targets []uuid.UUID, event domain.Event) int {
	delivered := 0
	for _, userID := range targets {
		delivered += s.broadcaster.SendToUser(userID, event)
	}
	return delivered
}

// persist writes the durable record. Persistence failures are logged, never
// propagated: the triggering mutation has already succeeded.
func (s *NotificationService) persist(ctx context.Context, notification *domain.Notification) {
	if _, err := s.notifRepo.Create(ctx, notification); err != nil {
		s.logger.Error("failed to persist notification",
			"user_id", notification.UserID,
			"type", notification.Type,
			"error", err,
		)
	}
}

// NotifyIssueAssigned records and pushes an assignment notification to the
// issue's assignee.
func (s *NotificationService) NotifyIssueAssigned(ctx context.Context, issue *domain.Issue, assignerUsername string) int {
	if issue.AssignedTo == nil {
		return 0
	}
	assigneeID := *issue.AssignedTo

	notification := domain.NewNotification(
		assigneeID,
		domain.NotificationIssueAssigned,
		"New Issue Assigned",
		fmt.Sprintf("You have been assigned to issue: %s by %s", issue.Title, assignerUsername),
	).WithIssue(issue.ID)
	s.persist(ctx, notification)

	delivered := s.Publish(ctx, []uuid.UUID{assigneeID}, domain.NewIssueAssignedEvent(issue, assignerUsername))
	s.emailFallback(ctx, delivered, notification)
	return delivered
}

// NotifyIssueStatusChanged records and pushes a status-change notification to
// the assignee, if any.
func (s *NotificationService) NotifyIssueStatusChanged(ctx context.Context, issue *domain.Issue, actorUsername string, oldStatus domain.IssueStatus) int {
	if issue.AssignedTo == nil {
		return 0
	}
	assigneeID := *issue.AssignedTo

	notification := domain.NewNotification(
		assigneeID,
		domain.NotificationIssueStatusChanged,
		"Issue Status Changed",
		fmt.Sprintf("Issue '%s' status changed from %s to %s by %s", issue.Title, oldStatus, issue.Status, actorUsername),
	).WithIssue(issue.ID)
	s.persist(ctx, notification)

	return s.Publish(ctx, []uuid.UUID{assigneeID}, domain.NewIssueStatusChangedEvent(issue, actorUsername, oldStatus))
}

// NotifyIssueUpdated records and pushes a general update notification to the
// assignee, if any.
func (s *NotificationService) NotifyIssueUpdated(ctx context.Context, issue *domain.Issue, actorUsername, changes string) int {
	if issue.AssignedTo == nil {
		return 0
	}
	assigneeID := *issue.AssignedTo

	notification := domain.NewNotification(
		assigneeID,
		domain.NotificationIssueUpdated,
		"Issue Updated",
		fmt.Sprintf("Issue '%s' has been updated by %s. Changes: %s", issue.Title, actorUsername, changes),
	).WithIssue(issue.ID)
	s.persist(ctx, notification)

	return s.Publish(ctx, []uuid.UUID{assigneeID}, domain.NewIssueUpdatedEvent(issue, actorUsername, changes))
}

// NotifyTeamInvite records and pushes a team-invitation notification.
func (s *NotificationService) NotifyTeamInvite(ctx context.Context, team *domain.Team, userID, inviterID uuid.UUID, inviterUsername string) int {
	notification := domain.NewNotification(
		userID,
		domain.NotificationTeamInvite,
		"Added to Team",
		fmt.Sprintf("You have been added to team '%s' by %s", team.Name, inviterUsername),
	).WithRelatedUser(inviterID)
	s.persist(ctx, notification)

	delivered := s.Publish(ctx, []uuid.UUID{userID}, domain.NewTeamInviteEvent(team.Name, inviterUsername))
	s.emailFallback(ctx, delivered, notification)
	return delivered
}

// BroadcastKanbanUpdate pushes a board-sync event to every active member of
// the issue's team. These are live-only: board state is reconstructable from
// the issues table, so no notification row is written.
func (s *NotificationService) BroadcastKanbanUpdate(ctx context.Context, issue *domain.Issue, action string) int {
	members, err := s.teamRepo.ListMembers(ctx, issue.TeamID)
	if err != nil {
		s.logger.Error("failed to resolve team members for kanban broadcast",
			"team_id", issue.TeamID,
			"error", err,
		)
		return 0
	}

	event := domain.NewKanbanUpdateEvent(issue, action)
	targets := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		if member.IsActive {
			targets = append(targets, member.UserID)
		}
	}
	return s.Publish(ctx, targets, event)
}

// ListNotifications returns the user's durable notifications, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	return s.notifRepo.ListByUser(ctx, userID, unreadOnly, limit)
}

// MarkRead flags one notification as read for its recipient.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error {
	return s.notifRepo.MarkRead(ctx, notificationID, userID)
}

// MarkAllRead flags all of the user's notifications as read and returns how
// many were updated.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifRepo.MarkAllRead(ctx, userID)
}

// CountUnread returns the user's unread notification count.
func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.notifRepo.CountUnread(ctx, userID)
}
