package domain

import (
	"fmt"
	"time"
)

// Kanban board actions carried by KANBAN_UPDATE events.
const (
	KanbanActionAssigned      = "assigned"
	KanbanActionStatusChanged = "status_changed"
	KanbanActionUpdated       = "updated"
	KanbanActionDeleted       = "deleted"
)

// EventTypeNotification is the only top-level websocket message type the
// server emits. Heartbeat frames are the bare strings "ping"/"pong" and are
// deliberately not JSON; both framings must be tolerated by either side.
const EventTypeNotification = "notification"

// Event is the JSON payload sent over a live websocket connection.
type Event struct {
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

// EventData is the notification body inside a wire event.
type EventData struct {
	EventType NotificationType `json:"event_type"`
	Issue     *IssueSnapshot   `json:"issue,omitempty"`
	Action    string           `json:"action,omitempty"`
	Assigner  string           `json:"assigner,omitempty"`
	Message   string           `json:"message,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
}

// IssueSnapshot matches the API response shape for issues.
type IssueSnapshot struct {
	ID          string   `json:"id"`
	TeamID      string   `json:"team_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	CreatedBy   string   `json:"created_by"`
	AssignedTo  *string  `json:"assigned_to,omitempty"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// NewIssueSnapshot builds a wire snapshot from a domain issue.
func NewIssueSnapshot(issue *Issue) *IssueSnapshot {
	var assignedTo *string
	if issue.AssignedTo != nil {
		value := issue.AssignedTo.String()
		assignedTo = &value
	}

	tags := issue.Tags
	if tags == nil {
		tags = []string{}
	}

	return &IssueSnapshot{
		ID:          issue.ID.String(),
		TeamID:      issue.TeamID.String(),
		Title:       issue.Title,
		Description: issue.Description,
		Status:      string(issue.Status),
		Priority:    string(issue.Priority),
		Tags:        tags,
		CreatedBy:   issue.CreatedBy.String(),
		AssignedTo:  assignedTo,
		CreatedAt:   issue.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   issue.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// NewIssueAssignedEvent builds the live event pushed to a newly assigned user.
func NewIssueAssignedEvent(issue *Issue, assignerUsername string) Event {
	return Event{
		Type: EventTypeNotification,
		Data: EventData{
			EventType: NotificationIssueAssigned,
			Issue:     NewIssueSnapshot(issue),
			Assigner:  assignerUsername,
			Message:   fmt.Sprintf("You have been assigned to issue: %s", issue.Title),
			Timestamp: issue.UpdatedAt.UTC().Format(time.RFC3339),
		},
	}
}

// NewIssueStatusChangedEvent builds the live event for a status transition.
func NewIssueStatusChangedEvent(issue *Issue, actorUsername string, oldStatus IssueStatus) Event {
	return Event{
		Type: EventTypeNotification,
		Data: EventData{
			EventType: NotificationIssueStatusChanged,
			Issue:     NewIssueSnapshot(issue),
			Assigner:  actorUsername,
			Message:   fmt.Sprintf("Issue '%s' status changed from %s to %s", issue.Title, oldStatus, issue.Status),
			Timestamp: issue.UpdatedAt.UTC().Format(time.RFC3339),
		},
	}
}

// NewIssueUpdatedEvent builds the live event for a general issue update.
func NewIssueUpdatedEvent(issue *Issue, actorUsername, changes string) Event {
	return Event{
		Type: EventTypeNotification,
		Data: EventData{
			EventType: NotificationIssueUpdated,
			Issue:     NewIssueSnapshot(issue),
			Assigner:  actorUsername,
			Message:   fmt.Sprintf("Issue '%s' has been updated by %s. Changes: %s", issue.Title, actorUsername, changes),
			Timestamp: issue.UpdatedAt.UTC().Format(time.RFC3339),
		},
	}
}

// NewKanbanUpdateEvent builds the board-synchronization event broadcast to
// team members. These are live-only; no durable notification row is written.
func NewKanbanUpdateEvent(issue *Issue, action string) Event {
	return Event{
		Type: EventTypeNotification,
		Data: EventData{
			EventType: NotificationKanbanUpdate,
			Issue:     NewIssueSnapshot(issue),
			Action:    action,
			Timestamp: issue.UpdatedAt.UTC().Format(time.RFC3339),
		},
	}
}

// NewTeamInviteEvent builds the live event pushed to a user added to a team.
func NewTeamInviteEvent(teamName, inviterUsername string) Event {
	return Event{
		Type: EventTypeNotification,
		Data: EventData{
			EventType: NotificationTeamInvite,
			Message:   fmt.Sprintf("You have been added to team '%s' by %s", teamName, inviterUsername),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}
}
