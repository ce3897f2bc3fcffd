package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/trackline/issue-board-backend/internal/core/domain"
)

// UserRepository defines the persistence port for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, limit int) ([]*domain.User, error)
}

// TeamRepository defines the persistence port for teams and memberships.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) (*domain.Team, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Team, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*domain.Team, error)

	AddMember(ctx context.Context, member *domain.TeamMember) (*domain.TeamMember, error)
	RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error
	GetMember(ctx context.Context, teamID, userID uuid.UUID) (*domain.TeamMember, error)
	ListMembers(ctx context.Context, teamID uuid.UUID) ([]*domain.TeamMember, error)
}

// IssueRepository defines the persistence port for issues.
type IssueRepository interface {
	Create(ctx context.Context, issue *domain.Issue) (*domain.Issue, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Issue, error)
	Update(ctx context.Context, issue *domain.Issue) (*domain.Issue, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTeam(ctx context.Context, teamID uuid.UUID, limit int) ([]*domain.Issue, error)
	ListByAssignee(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Issue, error)
}

// NotificationRepository defines the persistence port for the durable
// notification store. Live websocket delivery is best effort; rows written
// here survive regardless of delivery outcome.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
}
