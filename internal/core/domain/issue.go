package domain

import (
	"time"

	"github.com/google/uuid"

	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
)

// IssueStatus represents the workflow state of an issue.
type IssueStatus string

const (
	StatusOpen       IssueStatus = "OPEN"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusClosed     IssueStatus = "CLOSED"
)

// IssuePriority represents the urgency of an issue.
type IssuePriority string

const (
	PriorityLow    IssuePriority = "LOW"
	PriorityMedium IssuePriority = "MEDIUM"
	PriorityHigh   IssuePriority = "HIGH"
	PriorityUrgent IssuePriority = "URGENT"
)

// Maximum field lengths for issues.
const (
	MaxIssueTitleLength       = 200
	MaxIssueDescriptionLength = 10000
)

// Issue is the core domain entity of the board.
type Issue struct {
	ID          uuid.UUID
	TeamID      uuid.UUID
	Title       string
	Description string
	Status      IssueStatus
	Priority    IssuePriority
	Tags        []string
	CreatedBy   uuid.UUID
	AssignedTo  *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IssueParams holds the input for creating a new issue.
type IssueParams struct {
	TeamID      uuid.UUID
	Title       string
	Description string
	Priority    IssuePriority
	Tags        []string
	CreatedBy   uuid.UUID
}

// ValidStatus reports whether s is a recognized issue status.
func ValidStatus(s IssueStatus) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusClosed:
		return true
	}
	return false
}

// ValidPriority reports whether p is a recognized issue priority.
func ValidPriority(p IssuePriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// NewIssue is a factory function to create a valid new issue.
func NewIssue(params IssueParams) (*Issue, error) {
	if params.Title == "" {
		return nil, apperrors.ErrTitleRequired
	}
	if len(params.Title) > MaxIssueTitleLength {
		return nil, apperrors.ErrTitleTooLong
	}
	if len(params.Description) > MaxIssueDescriptionLength {
		return nil, apperrors.ErrDescriptionTooLong
	}
	if params.TeamID == uuid.Nil {
		return nil, apperrors.ErrTeamIDRequired
	}

	priority := params.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !ValidPriority(priority) {
		return nil, apperrors.ErrInvalidPriority
	}

	tags := params.Tags
	if tags == nil {
		tags = []string{}
	}

	now := time.Now().UTC()
	return &Issue{
		TeamID:      params.TeamID,
		Title:       params.Title,
		Description: params.Description,
		Status:      StatusOpen,
		Priority:    priority,
		Tags:        tags,
		CreatedBy:   params.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// UpdateStatus changes the issue's status, enforcing the workflow rules.
// Closed issues can be reopened but not moved straight to IN_PROGRESS.
func (i *Issue) UpdateStatus(newStatus IssueStatus) error {
	validTransitions := map[IssueStatus][]IssueStatus{
		StatusOpen:       {StatusInProgress, StatusClosed},
		StatusInProgress: {StatusOpen, StatusClosed},
		StatusClosed:     {StatusOpen},
	}

	if !ValidStatus(newStatus) {
		return apperrors.ErrInvalidStatus
	}
	if newStatus == i.Status {
		return nil
	}

	for _, s := range validTransitions[i.Status] {
		if s == newStatus {
			i.Status = newStatus
			i.UpdatedAt = time.Now().UTC()
			return nil
		}
	}

	return apperrors.ErrInvalidStatusTransition
}

// Assign sets or changes the assignee of the issue.
func (i *Issue) Assign(assigneeID uuid.UUID) error {
	if i.Status == StatusClosed {
		return apperrors.ErrCannotAssignClosed
	}
	i.AssignedTo = &assigneeID
	i.UpdatedAt = time.Now().UTC()
	return nil
}

// Unassign clears the assignee.
func (i *Issue) Unassign() {
	i.AssignedTo = nil
	i.UpdatedAt = time.Now().UTC()
}

// IsCreatedBy reports whether the given user created the issue.
func (i *Issue) IsCreatedBy(userID uuid.UUID) bool {
	return i.CreatedBy == userID
}

// IsAssignedTo reports whether the issue is currently assigned to the given user.
func (i *Issue) IsAssignedTo(userID uuid.UUID) bool {
	return i.AssignedTo != nil && *i.AssignedTo == userID
}
