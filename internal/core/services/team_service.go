package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

// TeamService implements team and membership management.
type TeamService struct {
	teamRepo  ports.TeamRepository
	userRepo  ports.UserRepository
	publisher ports.NotificationPublisher
	txm       ports.TransactionManager
	wg        sync.WaitGroup
}

var _ ports.TeamService = (*TeamService)(nil)

// NewTeamService creates a new team service.
func NewTeamService(
	teamRepo ports.TeamRepository,
	userRepo ports.UserRepository,
	publisher ports.NotificationPublisher,
	txm ports.TransactionManager,
) *TeamService {
	return &TeamService{
		teamRepo:  teamRepo,
		userRepo:  userRepo,
		publisher: publisher,
		txm:       txm,
	}
}

// CreateTeam creates a team and enrolls the creator as its admin, atomically.
func (s *TeamService) CreateTeam(ctx context.Context, name, description string, creatorID uuid.UUID) (*domain.Team, error) {
	team, err := domain.NewTeam(name, description, creatorID)
	if err != nil {
		return nil, err
	}

	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	var created *domain.Team
	err = s.txm.WithTransaction(ctx, func(ctx context.Context) error {
		created, err = s.teamRepo.Create(ctx, team)
		if err != nil {
			return err
		}

		_, err = s.teamRepo.AddMember(ctx, &domain.TeamMember{
			TeamID:   created.ID,
			UserID:   creatorID,
			Username: creator.Username,
			Role:     domain.RoleAdmin,
			AddedBy:  creatorID,
			AddedAt:  time.Now().UTC(),
			IsActive: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// GetTeam returns the team with its active members. The viewer must be a
// member.
func (s *TeamService) GetTeam(ctx context.Context, teamID, viewerID uuid.UUID) (*domain.TeamWithMembers, error) {
	member, err := s.teamRepo.GetMember(ctx, teamID, viewerID)
	if err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}

	members, err := s.teamRepo.ListMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}

	return &domain.TeamWithMembers{
		Team:     *team,
		Members:  members,
		UserRole: member.Role,
	}, nil
}

// ListUserTeams returns the teams the user belongs to.
func (s *TeamService) ListUserTeams(ctx context.Context, userID uuid.UUID) ([]*domain.Team, error) {
	return s.teamRepo.ListByUserID(ctx, userID)
}

// AddMember adds a user (looked up by username) to the team. Only team
// admins may add members. The new member gets a TEAM_INVITE notification.
func (s *TeamService) AddMember(ctx context.Context, teamID, actorID uuid.UUID, username, role string) (*domain.TeamMember, error) {
	actor, err := s.teamRepo.GetMember(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}

	if role == "" {
		role = domain.RoleMember
	}
	if !domain.ValidRole(role) {
		return nil, apperrors.ErrInvalidTeamRole
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if _, err := s.teamRepo.GetMember(ctx, teamID, user.ID); err == nil {
		return nil, apperrors.ErrAlreadyTeamMember
	}

	member, err := s.teamRepo.AddMember(ctx, &domain.TeamMember{
		TeamID:   teamID,
		UserID:   user.ID,
		Username: user.Username,
		Role:     role,
		AddedBy:  actorID,
		AddedAt:  time.Now().UTC(),
		IsActive: true,
	})
	if err != nil {
		return nil, err
	}

	team, err := s.teamRepo.GetByID(ctx, teamID)
	if err != nil {
		return member, nil
	}

	inviterName := actor.Username
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.publisher.NotifyTeamInvite(context.Background(), team, user.ID, actorID, inviterName)
	}()

	return member, nil
}

// RemoveMember removes a user from the team. Admins can remove anyone;
// members can remove only themselves.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, actorID, userID uuid.UUID) error {
	actor, err := s.teamRepo.GetMember(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && actorID != userID {
		return apperrors.ErrForbidden
	}

	if _, err := s.teamRepo.GetMember(ctx, teamID, userID); err != nil {
		return err
	}

	return s.teamRepo.RemoveMember(ctx, teamID, userID)
}

// Shutdown waits for in-flight background notifications to finish.
func (s *TeamService) Shutdown() {
	s.wg.Wait()
}
