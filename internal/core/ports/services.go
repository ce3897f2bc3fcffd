package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/trackline/issue-board-backend/internal/core/domain"
)

// AuthService defines the port for authentication business logic.
type AuthService interface {
	Register(ctx context.Context, params domain.UserRegistrationParams) (*domain.User, error)
	Login(ctx context.Context, username, password string) (*domain.User, error)
}

// CreateIssueParams defines the required input for creating a new issue.
type CreateIssueParams struct {
	TeamID      uuid.UUID
	Title       string
	Description string
	Priority    domain.IssuePriority
	Tags        []string
	AssigneeID  *uuid.UUID
	ActorID     uuid.UUID
}

// UpdateIssueParams defines the input for patching an issue. Nil fields are
// left untouched; SetAssignee distinguishes "assign to AssigneeID" (which may
// be nil, meaning unassign) from "don't touch the assignee".
type UpdateIssueParams struct {
	IssueID     uuid.UUID
	ActorID     uuid.UUID
	Title       *string
	Description *string
	Status      *domain.IssueStatus
	Priority    *domain.IssuePriority
	Tags        []string
	SetAssignee bool
	AssigneeID  *uuid.UUID
}

// IssueService defines the core business operations for managing issues.
type IssueService interface {
	CreateIssue(ctx context.Context, params CreateIssueParams) (*domain.Issue, error)
	GetIssue(ctx context.Context, issueID, viewerID uuid.UUID) (*domain.Issue, error)
	UpdateIssue(ctx context.Context, params UpdateIssueParams) (*domain.Issue, error)
	DeleteIssue(ctx context.Context, issueID, actorID uuid.UUID) error
	ListTeamIssues(ctx context.Context, teamID, viewerID uuid.UUID, limit int) ([]*domain.Issue, error)
	ListAssignedIssues(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Issue, error)
	Shutdown()
}

// TeamService defines the port for team management.
type TeamService interface {
	CreateTeam(ctx context.Context, name, description string, creatorID uuid.UUID) (*domain.Team, error)
	GetTeam(ctx context.Context, teamID, viewerID uuid.UUID) (*domain.TeamWithMembers, error)
	ListUserTeams(ctx context.Context, userID uuid.UUID) ([]*domain.Team, error)
	AddMember(ctx context.Context, teamID, actorID uuid.UUID, username, role string) (*domain.TeamMember, error)
	RemoveMember(ctx context.Context, teamID, actorID, userID uuid.UUID) error
	Shutdown()
}

// NotificationPublisher is the port exposed to issue/team mutation paths.
// Publishing is best effort: it never fails the triggering mutation, and its
// return value is the number of live connections the event reached.
type NotificationPublisher interface {
	// Publish fans event out to every live connection of each target user.
	Publish(ctx context.Context, targets []uuid.UUID, event domain.Event) int

	NotifyIssueAssigned(ctx context.Context, issue *domain.Issue, assignerUsername string) int
	NotifyIssueStatusChanged(ctx context.Context, issue *domain.Issue, actorUsername string, oldStatus domain.IssueStatus) int
	NotifyIssueUpdated(ctx context.Context, issue *domain.Issue, actorUsername, changes string) int
	NotifyTeamInvite(ctx context.Context, team *domain.Team, userID uuid.UUID, inviterID uuid.UUID, inviterUsername string) int
	// BroadcastKanbanUpdate pushes a board-sync event to all active members of
	// the issue's team. Live-only; nothing is persisted.
	BroadcastKanbanUpdate(ctx context.Context, issue *domain.Issue, action string) int
}

// NotificationService adds recipient-facing queries on top of publishing.
type NotificationService interface {
	NotificationPublisher

	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, notificationID, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}

// EventBroadcaster is the port the publisher uses to reach live connections.
// Implemented by the websocket hub.
type EventBroadcaster interface {
	// SendToUser attempts delivery to every live connection of the user and
	// returns how many sends succeeded. 0 means the user is offline.
	SendToUser(userID uuid.UUID, event domain.Event) int
	IsUserConnected(userID uuid.UUID) bool
}

// EmailNotificationParams describes an email to a single recipient.
type EmailNotificationParams struct {
	RecipientUserID uuid.UUID
	Subject         string
	Message         string
	IssueID         *uuid.UUID
}

// EmailNotifier is the port for out-of-band notification delivery, used as a
// fallback when the recipient has no live websocket connection. Delivery is
// fire-and-forget; implementations handle their own errors.
type EmailNotifier interface {
	Notify(ctx context.Context, params EmailNotificationParams)
}

// TransactionManager defines the port for running atomic operations.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserLookupService resolves users for assignment pickers and member adds.
type UserLookupService interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	ListUsers(ctx context.Context, limit int) ([]*domain.User, error)
}
