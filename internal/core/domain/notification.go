package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies a persisted notification.
type NotificationType string

const (
	NotificationIssueAssigned      NotificationType = "ISSUE_ASSIGNED"
	NotificationIssueUpdated       NotificationType = "ISSUE_UPDATED"
	NotificationIssueStatusChanged NotificationType = "ISSUE_STATUS_CHANGED"
	NotificationIssueComment       NotificationType = "ISSUE_COMMENT"
	NotificationKanbanUpdate       NotificationType = "KANBAN_UPDATE"
	NotificationTeamInvite         NotificationType = "TEAM_INVITE"
)

// Notification is the durable record of an event addressed to one user.
// The live websocket push is best effort; this row is the source of truth.
type Notification struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Type          NotificationType
	Title         string
	Message       string
	IssueID       *uuid.UUID
	RelatedUserID *uuid.UUID
	IsRead        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewNotification builds an unread notification addressed to userID.
func NewNotification(userID uuid.UUID, typ NotificationType, title, message string) *Notification {
	now := time.Now().UTC()
	return &Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		IsRead:    false,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// WithIssue attaches the related issue reference.
func (n *Notification) WithIssue(issueID uuid.UUID) *Notification {
	n.IssueID = &issueID
	return n
}

// WithRelatedUser attaches the user that caused the notification.
func (n *Notification) WithRelatedUser(userID uuid.UUID) *Notification {
	n.RelatedUserID = &userID
	return n
}
