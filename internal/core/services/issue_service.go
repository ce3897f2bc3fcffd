package services

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

// IssueService implements business logic for issue management. Mutations that
// affect other users trigger best-effort notifications in the background; a
// notification failure never fails the mutation.
type IssueService struct {
	issueRepo ports.IssueRepository
	teamRepo  ports.TeamRepository
	userRepo  ports.UserRepository
	publisher ports.NotificationPublisher
	wg        sync.WaitGroup
}

var _ ports.IssueService = (*IssueService)(nil)

// NewIssueService creates a new issue service.
func NewIssueService(
	issueRepo ports.IssueRepository,
	teamRepo ports.TeamRepository,
	userRepo ports.UserRepository,
	publisher ports.NotificationPublisher,
) *IssueService {
	return &IssueService{
		issueRepo: issueRepo,
		teamRepo:  teamRepo,
		userRepo:  userRepo,
		publisher: publisher,
	}
}

// requireMembership returns the actor's membership in the team, or
// ErrNotTeamMember / ErrForbidden when absent or inactive.
func (s *IssueService) requireMembership(ctx context.Context, teamID, userID uuid.UUID) (*domain.TeamMember, error) {
	member, err := s.teamRepo.GetMember(ctx, teamID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, apperrors.ErrForbidden
	}
	return member, nil
}

// actorUsername resolves the acting user's name for notification messages.
func (s *IssueService) actorUsername(ctx context.Context, actorID uuid.UUID) string {
	user, err := s.userRepo.GetByID(ctx, actorID)
	if err != nil {
		return "unknown"
	}
	return user.Username
}

// CreateIssue handles the use case for submitting a new issue.
func (s *IssueService) CreateIssue(ctx context.Context, params ports.CreateIssueParams) (*domain.Issue, error) {
	// 1. Actor must be a member of the target team.
	if _, err := s.requireMembership(ctx, params.TeamID, params.ActorID); err != nil {
		return nil, err
	}

	// 2. Create domain entity with validation.
	issue, err := domain.NewIssue(domain.IssueParams{
		TeamID:      params.TeamID,
		Title:       params.Title,
		Description: params.Description,
		Priority:    params.Priority,
		Tags:        params.Tags,
		CreatedBy:   params.ActorID,
	})
	if err != nil {
		return nil, err
	}

	// 3. Optional initial assignment; the assignee must belong to the team.
	if params.AssigneeID != nil {
		if _, err := s.requireMembership(ctx, params.TeamID, *params.AssigneeID); err != nil {
			return nil, err
		}
		if err := issue.Assign(*params.AssigneeID); err != nil {
			return nil, err
		}
	}

	// 4. Persist.
	created, err := s.issueRepo.Create(ctx, issue)
	if err != nil {
		return nil, err
	}

	// 5. Notify in the background.
	actorName := s.actorUsername(ctx, params.ActorID)
	s.async(func(ctx context.Context) {
		if created.AssignedTo != nil {
			s.publisher.NotifyIssueAssigned(ctx, created, actorName)
		}
		s.publisher.BroadcastKanbanUpdate(ctx, created, domain.KanbanActionUpdated)
	})

	return created, nil
}

// GetIssue retrieves an issue, requiring team membership to view it.
func (s *IssueService) GetIssue(ctx context.Context, issueID, viewerID uuid.UUID) (*domain.Issue, error) {
	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return nil, err
	}
	if _, err := s.requireMembership(ctx, issue.TeamID, viewerID); err != nil {
		return nil, err
	}
	return issue, nil
}

// UpdateIssue applies a patch to an issue. Only the creator or the current
// assignee may update.
func (s *IssueService) UpdateIssue(ctx context.Context, params ports.UpdateIssueParams) (*domain.Issue, error) {
	issue, err := s.issueRepo.GetByID(ctx, params.IssueID)
	if err != nil {
		return nil, err
	}

	if !issue.IsCreatedBy(params.ActorID) && !issue.IsAssignedTo(params.ActorID) {
		return nil, apperrors.ErrForbidden
	}

	prevAssignee := issue.AssignedTo
	prevStatus := issue.Status
	var changes []string

	if params.Title != nil && *params.Title != issue.Title {
		if *params.Title == "" {
			return nil, apperrors.ErrTitleRequired
		}
		if len(*params.Title) > domain.MaxIssueTitleLength {
			return nil, apperrors.ErrTitleTooLong
		}
		issue.Title = *params.Title
		changes = append(changes, "title")
	}

	if params.Description != nil && *params.Description != issue.Description {
		if len(*params.Description) > domain.MaxIssueDescriptionLength {
			return nil, apperrors.ErrDescriptionTooLong
		}
		issue.Description = *params.Description
		changes = append(changes, "description")
	}

	if params.Priority != nil && *params.Priority != issue.Priority {
		if !domain.ValidPriority(*params.Priority) {
			return nil, apperrors.ErrInvalidPriority
		}
		issue.Priority = *params.Priority
		changes = append(changes, "priority")
	}

	if params.Tags != nil {
		issue.Tags = params.Tags
		changes = append(changes, "tags")
	}

	if params.Status != nil && *params.Status != issue.Status {
		if err := issue.UpdateStatus(*params.Status); err != nil {
			return nil, err
		}
		changes = append(changes, "status")
	}

	if params.SetAssignee {
		if params.AssigneeID == nil {
			issue.Unassign()
			changes = append(changes, "assignee")
		} else if !issue.IsAssignedTo(*params.AssigneeID) {
			if _, err := s.requireMembership(ctx, issue.TeamID, *params.AssigneeID); err != nil {
				return nil, err
			}
			if err := issue.Assign(*params.AssigneeID); err != nil {
				return nil, err
			}
			changes = append(changes, "assignee")
		}
	}

	updated, err := s.issueRepo.Update(ctx, issue)
	if err != nil {
		return nil, err
	}

	s.notifyUpdate(ctx, updated, params.ActorID, prevAssignee, prevStatus, changes)
	return updated, nil
}

// notifyUpdate picks the most specific notification for the change set and
// pushes a board sync, all in the background.
func (s *IssueService) notifyUpdate(ctx context.Context, issue *domain.Issue, actorID uuid.UUID, prevAssignee *uuid.UUID, prevStatus domain.IssueStatus, changes []string) {
	if len(changes) == 0 {
		return
	}

	actorName := s.actorUsername(ctx, actorID)
	assigneeChanged := issue.AssignedTo != nil &&
		(prevAssignee == nil || *prevAssignee != *issue.AssignedTo)
	statusChanged := issue.Status != prevStatus
	changed := strings.Join(changes, ", ")

	s.async(func(ctx context.Context) {
		switch {
		case assigneeChanged:
			s.publisher.NotifyIssueAssigned(ctx, issue, actorName)
			s.publisher.BroadcastKanbanUpdate(ctx, issue, domain.KanbanActionAssigned)
		case statusChanged:
			s.publisher.NotifyIssueStatusChanged(ctx, issue, actorName, prevStatus)
			s.publisher.BroadcastKanbanUpdate(ctx, issue, domain.KanbanActionStatusChanged)
		default:
			// Don't notify an actor about their own edit.
			if issue.AssignedTo != nil && *issue.AssignedTo != actorID {
				s.publisher.NotifyIssueUpdated(ctx, issue, actorName, changed)
			}
			s.publisher.BroadcastKanbanUpdate(ctx, issue, domain.KanbanActionUpdated)
		}
	})
}

// DeleteIssue removes an issue. Only the creator may delete.
func (s *IssueService) DeleteIssue(ctx context.Context, issueID, actorID uuid.UUID) error {
	issue, err := s.issueRepo.GetByID(ctx, issueID)
	if err != nil {
		return err
	}
	if !issue.IsCreatedBy(actorID) {
		return apperrors.ErrForbidden
	}

	if err := s.issueRepo.Delete(ctx, issueID); err != nil {
		return err
	}

	s.async(func(ctx context.Context) {
		s.publisher.BroadcastKanbanUpdate(ctx, issue, domain.KanbanActionDeleted)
	})
	return nil
}

// ListTeamIssues returns the team's issues, requiring membership.
func (s *IssueService) ListTeamIssues(ctx context.Context, teamID, viewerID uuid.UUID, limit int) ([]*domain.Issue, error) {
	if _, err := s.requireMembership(ctx, teamID, viewerID); err != nil {
		return nil, err
	}
	return s.issueRepo.ListByTeam(ctx, teamID, limit)
}

// ListAssignedIssues returns issues currently assigned to the user.
func (s *IssueService) ListAssignedIssues(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Issue, error) {
	return s.issueRepo.ListByAssignee(ctx, userID, limit)
}

// async runs fn on a background context; the HTTP request that triggered the
// mutation may already be done by the time notifications go out.
func (s *IssueService) async(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(context.Background())
	}()
}

// Shutdown waits for in-flight background notifications to finish.
func (s *IssueService) Shutdown() {
	s.wg.Wait()
}
