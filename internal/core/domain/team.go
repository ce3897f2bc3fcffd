package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
)

// Team member roles.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

const MaxTeamNameLength = 100

// Team groups users and owns a board of issues.
type Team struct {
	ID          uuid.UUID
	Name        string
	Description string
	CreatedBy   uuid.UUID
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TeamMember is a user's membership in a team.
type TeamMember struct {
	ID       uuid.UUID
	TeamID   uuid.UUID
	UserID   uuid.UUID
	Username string
	Role     string
	AddedBy  uuid.UUID
	AddedAt  time.Time
	IsActive bool
}

// TeamWithMembers bundles a team with its active members for detail views.
type TeamWithMembers struct {
	Team
	Members  []*TeamMember
	UserRole string // the requesting user's role in this team
}

// NewTeam creates a valid new team. The creator is expected to be added
// as an admin member in the same transaction.
func NewTeam(name, description string, createdBy uuid.UUID) (*Team, error) {
	if name == "" {
		return nil, apperrors.ErrTeamNameRequired
	}
	if len(name) > MaxTeamNameLength {
		return nil, apperrors.ErrTeamNameTooLong
	}

	now := time.Now().UTC()
	return &Team{
		Name:        name,
		Description: description,
		CreatedBy:   createdBy,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ValidRole reports whether role is a recognized team role.
func ValidRole(role string) bool {
	return role == RoleMember || role == RoleAdmin
}

// IsAdmin reports whether the member holds the admin role.
func (m *TeamMember) IsAdmin() bool {
	return m.Role == RoleAdmin
}
