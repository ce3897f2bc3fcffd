package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/trackline/issue-board-backend/internal/adapters/primary/http/middleware"
	"github.com/trackline/issue-board-backend/internal/adapters/primary/validation"
	"github.com/trackline/issue-board-backend/internal/auth"
	"github.com/trackline/issue-board-backend/internal/core/domain"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

const maxIssuesPerPage = 100

// IssueHandler handles HTTP requests for issues
type IssueHandler struct {
	issueService ports.IssueService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewIssueHandler creates a new issue handler
func NewIssueHandler(
	issueService ports.IssueService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *IssueHandler {
	return &IssueHandler{
		issueService: issueService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "issue"),
	}
}

// Router sets up a new chi Router for all issue-related routes.
func (h *IssueHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all issue endpoints.
func (h *IssueHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandleCreateIssue)

	// Routes for a specific issue
	r.Route("/{issueID}", func(r chi.Router) {
		r.Get("/", h.HandleGetIssue)
		r.Patch("/", h.HandleUpdateIssue)
		r.Delete("/", h.HandleDeleteIssue)
		r.Patch("/status", h.HandleUpdateStatus)
		r.Patch("/assignee", h.HandleAssignIssue)
	})
}

// --- Request/Response DTOs ---

// CreateIssueRequest defines the expected JSON body for creating an issue
type CreateIssueRequest struct {
	TeamID      string   `json:"teamId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	AssigneeID  string   `json:"assigneeId"`
}

// Validate validates the create issue request
func (r *CreateIssueRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("teamId", r.TeamID).
		UUID("teamId", r.TeamID)

	v.Required("title", r.Title).
		MaxLength("title", r.Title, domain.MaxIssueTitleLength)

	v.MaxLength("description", r.Description, domain.MaxIssueDescriptionLength)

	if r.Priority != "" {
		v.OneOf("priority", r.Priority, []string{"LOW", "MEDIUM", "HIGH", "URGENT"})
	}

	if r.AssigneeID != "" {
		v.UUID("assigneeId", r.AssigneeID)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateIssueRequest defines the expected JSON body for a general issue patch.
// Omitted fields are left untouched.
type UpdateIssueRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Priority    *string  `json:"priority"`
	Tags        []string `json:"tags"`
}

// Validate validates the update issue request
func (r *UpdateIssueRequest) Validate() error {
	v := validation.NewValidator()

	if r.Title != nil {
		v.Required("title", *r.Title).
			MaxLength("title", *r.Title, domain.MaxIssueTitleLength)
	}

	if r.Description != nil {
		v.MaxLength("description", *r.Description, domain.MaxIssueDescriptionLength)
	}

	if r.Priority != nil {
		v.OneOf("priority", *r.Priority, []string{"LOW", "MEDIUM", "HIGH", "URGENT"})
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// UpdateStatusRequest defines the expected JSON body for status updates
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Validate validates the update status request
func (r *UpdateStatusRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("status", r.Status).
		OneOf("status", r.Status, []string{"OPEN", "IN_PROGRESS", "CLOSED"})

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AssignIssueRequest defines the expected JSON body for assigning an issue.
// An empty assigneeId unassigns the issue.
type AssignIssueRequest struct {
	AssigneeID string `json:"assigneeId"`
}

// Validate validates the assign issue request
func (r *AssignIssueRequest) Validate() error {
	v := validation.NewValidator()

	if r.AssigneeID != "" {
		v.UUID("assigneeId", r.AssigneeID)
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// IssueDTO defines the JSON response for issues.
type IssueDTO struct {
	ID          string   `json:"id"`
	TeamID      string   `json:"teamId"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	CreatedBy   string   `json:"createdBy"`
	AssignedTo  *string  `json:"assignedTo"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func toIssueDTO(issue *domain.Issue) IssueDTO {
	var assignedTo *string
	if issue.AssignedTo != nil {
		value := issue.AssignedTo.String()
		assignedTo = &value
	}

	tags := issue.Tags
	if tags == nil {
		tags = []string{}
	}

	return IssueDTO{
		ID:          issue.ID.String(),
		TeamID:      issue.TeamID.String(),
		Title:       issue.Title,
		Description: issue.Description,
		Status:      string(issue.Status),
		Priority:    string(issue.Priority),
		Tags:        tags,
		CreatedBy:   issue.CreatedBy.String(),
		AssignedTo:  assignedTo,
		CreatedAt:   issue.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   issue.UpdatedAt.Format(time.RFC3339),
	}
}

func toIssueDTOs(issues []*domain.Issue) []IssueDTO {
	response := make([]IssueDTO, 0, len(issues))
	for _, issue := range issues {
		response = append(response, toIssueDTO(issue))
	}
	return response
}

// --- Handlers ---

// HandleCreateIssue handles POST /issues
func (h *IssueHandler) HandleCreateIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateIssueRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	teamID, err := uuid.Parse(req.TeamID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	var assigneeID *uuid.UUID
	if req.AssigneeID != "" {
		parsed, err := uuid.Parse(req.AssigneeID)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		assigneeID = &parsed
	}

	params := ports.CreateIssueParams{
		TeamID:      teamID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    domain.IssuePriority(req.Priority),
		Tags:        req.Tags,
		AssigneeID:  assigneeID,
		ActorID:     claims.UserID,
	}

	issue, err := h.issueService.CreateIssue(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("issue created",
		"issue_id", issue.ID,
		"team_id", issue.TeamID,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toIssueDTO(issue))
}

// HandleGetIssue handles GET /issues/{issueID}
func (h *IssueHandler) HandleGetIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	issueID, err := parseUUIDParam(r, "issueID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	issue, err := h.issueService.GetIssue(r.Context(), issueID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toIssueDTO(issue))
}

// HandleUpdateIssue handles PATCH /issues/{issueID}
func (h *IssueHandler) HandleUpdateIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	issueID, err := parseUUIDParam(r, "issueID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateIssueRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateIssueParams{
		IssueID:     issueID,
		ActorID:     claims.UserID,
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	}
	if req.Priority != nil {
		priority := domain.IssuePriority(*req.Priority)
		params.Priority = &priority
	}

	issue, err := h.issueService.UpdateIssue(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("issue updated",
		"issue_id", issueID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toIssueDTO(issue))
}

// HandleUpdateStatus handles PATCH /issues/{issueID}/status
func (h *IssueHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	issueID, err := parseUUIDParam(r, "issueID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[UpdateStatusRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	status := domain.IssueStatus(req.Status)
	params := ports.UpdateIssueParams{
		IssueID: issueID,
		ActorID: claims.UserID,
		Status:  &status,
	}

	issue, err := h.issueService.UpdateIssue(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("issue status updated",
		"issue_id", issueID,
		"new_status", req.Status,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toIssueDTO(issue))
}

// HandleAssignIssue handles PATCH /issues/{issueID}/assignee
func (h *IssueHandler) HandleAssignIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	issueID, err := parseUUIDParam(r, "issueID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AssignIssueRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	params := ports.UpdateIssueParams{
		IssueID:     issueID,
		ActorID:     claims.UserID,
		SetAssignee: true,
	}
	if req.AssigneeID != "" {
		assigneeID, err := uuid.Parse(req.AssigneeID)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		params.AssigneeID = &assigneeID
	}

	issue, err := h.issueService.UpdateIssue(r.Context(), params)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("issue assignee updated",
		"issue_id", issueID,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, toIssueDTO(issue))
}

// HandleDeleteIssue handles DELETE /issues/{issueID}
func (h *IssueHandler) HandleDeleteIssue(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	issueID, err := parseUUIDParam(r, "issueID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.issueService.DeleteIssue(r.Context(), issueID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("issue deleted",
		"issue_id", issueID,
		"user_id", claims.UserID,
	)

	WriteNoContent(w)
}

// HandleListTeamIssues handles GET /teams/{teamID}/issues
func (h *IssueHandler) HandleListTeamIssues(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	teamID, err := parseUUIDParam(r, "teamID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	limit := validation.ParseIntQueryParam(r, "limit", maxIssuesPerPage)
	if limit <= 0 || limit > maxIssuesPerPage {
		limit = maxIssuesPerPage
	}

	issues, err := h.issueService.ListTeamIssues(r.Context(), teamID, claims.UserID, limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toIssueDTOs(issues))
}

// --- Helper methods ---

// getClaims extracts and validates user claims from the request context
func (h *IssueHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims, ok := mw.GetClaims(r.Context())
	if !ok {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error: "Not authorized",
			Code:  "UNAUTHORIZED",
		})
		return nil, false
	}
	return claims, true
}

// parseUUIDParam extracts and validates a UUID path parameter.
func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	value := chi.URLParam(r, name)
	id, err := uuid.Parse(value)
	if err != nil {
		v := validation.NewValidator()
		v.Custom(name, false, "Must be a valid UUID")
		return uuid.Nil, v.Errors()
	}
	return id, nil
}
