package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/trackline/issue-board-backend/internal/adapters/primary/http/middleware"
	"github.com/trackline/issue-board-backend/internal/adapters/primary/validation"
	"github.com/trackline/issue-board-backend/internal/auth"
	"github.com/trackline/issue-board-backend/internal/core/domain"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

// TeamHandler handles HTTP requests for teams and memberships
type TeamHandler struct {
	teamService  ports.TeamService
	issueHandler *IssueHandler
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewTeamHandler creates a new team handler
func NewTeamHandler(
	teamService ports.TeamService,
	issueHandler *IssueHandler,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *TeamHandler {
	return &TeamHandler{
		teamService:  teamService,
		issueHandler: issueHandler,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "team"),
	}
}

// Router sets up a new chi Router for all team-related routes.
func (h *TeamHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all team endpoints.
func (h *TeamHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListTeams)
	r.Post("/", h.HandleCreateTeam)

	// Routes for a specific team
	r.Route("/{teamID}", func(r chi.Router) {
		r.Get("/", h.HandleGetTeam)
		r.Post("/members", h.HandleAddMember)
		r.Delete("/members/{userID}", h.HandleRemoveMember)

		if h.issueHandler != nil {
			r.Get("/issues", h.issueHandler.HandleListTeamIssues)
		}
	})
}

// --- Request/Response DTOs ---

// CreateTeamRequest defines the expected JSON body for creating a team
type CreateTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate validates the create team request
func (r *CreateTeamRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("name", r.Name).
		MaxLength("name", r.Name, domain.MaxTeamNameLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// AddMemberRequest defines the expected JSON body for adding a team member
type AddMemberRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Validate validates the add member request
func (r *AddMemberRequest) Validate() error {
	v := validation.NewValidator()

	v.Required("username", r.Username)

	if r.Role != "" {
		v.OneOf("role", r.Role, []string{domain.RoleMember, domain.RoleAdmin})
	}

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// TeamDTO defines the JSON response for teams.
type TeamDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	CreatedBy   string `json:"createdBy"`
	CreatedAt   string `json:"createdAt"`
}

// TeamMemberDTO defines the JSON response for team members.
type TeamMemberDTO struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
	AddedAt  string `json:"addedAt"`
}

// TeamDetailDTO is the detail view of a team with its members.
type TeamDetailDTO struct {
	TeamDTO
	Members  []TeamMemberDTO `json:"members"`
	UserRole string          `json:"userRole"`
}

func toTeamDTO(team *domain.Team) TeamDTO {
	return TeamDTO{
		ID:          team.ID.String(),
		Name:        team.Name,
		Description: team.Description,
		CreatedBy:   team.CreatedBy.String(),
		CreatedAt:   team.CreatedAt.Format(time.RFC3339),
	}
}

func toTeamDTOs(teams []*domain.Team) []TeamDTO {
	response := make([]TeamDTO, 0, len(teams))
	for _, team := range teams {
		response = append(response, toTeamDTO(team))
	}
	return response
}

func toTeamMemberDTO(member *domain.TeamMember) TeamMemberDTO {
	return TeamMemberDTO{
		UserID:   member.UserID.String(),
		Username: member.Username,
		Role:     member.Role,
		AddedAt:  member.AddedAt.Format(time.RFC3339),
	}
}

func toTeamDetailDTO(team *domain.TeamWithMembers) TeamDetailDTO {
	members := make([]TeamMemberDTO, 0, len(team.Members))
	for _, member := range team.Members {
		members = append(members, toTeamMemberDTO(member))
	}

	return TeamDetailDTO{
		TeamDTO:  toTeamDTO(&team.Team),
		Members:  members,
		UserRole: team.UserRole,
	}
}

// --- Handlers ---

// HandleListTeams handles GET /teams
func (h *TeamHandler) HandleListTeams(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	teams, err := h.teamService.ListUserTeams(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toTeamDTOs(teams))
}

// HandleCreateTeam handles POST /teams
func (h *TeamHandler) HandleCreateTeam(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	req, err := validation.DecodeAndValidate[CreateTeamRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	team, err := h.teamService.CreateTeam(r.Context(), req.Name, req.Description, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("team created",
		"team_id", team.ID,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toTeamDTO(team))
}

// HandleGetTeam handles GET /teams/{teamID}
func (h *TeamHandler) HandleGetTeam(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	teamID, err := parseUUIDParam(r, "teamID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), teamID, claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toTeamDetailDTO(team))
}

// HandleAddMember handles POST /teams/{teamID}/members
func (h *TeamHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	teamID, err := parseUUIDParam(r, "teamID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	req, err := validation.DecodeAndValidate[AddMemberRequest](r)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := req.Validate(); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	role := req.Role
	if role == "" {
		role = domain.RoleMember
	}

	member, err := h.teamService.AddMember(r.Context(), teamID, claims.UserID, req.Username, role)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("team member added",
		"team_id", teamID,
		"member_id", member.UserID,
		"role", member.Role,
		"user_id", claims.UserID,
	)

	WriteCreated(w, toTeamMemberDTO(member))
}

// HandleRemoveMember handles DELETE /teams/{teamID}/members/{userID}
func (h *TeamHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	teamID, err := parseUUIDParam(r, "teamID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.teamService.RemoveMember(r.Context(), teamID, claims.UserID, userID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("team member removed",
		"team_id", teamID,
		"member_id", userID,
		"user_id", claims.UserID,
	)

	WriteNoContent(w)
}

// getClaims extracts and validates user claims from the request context
func (h *TeamHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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
