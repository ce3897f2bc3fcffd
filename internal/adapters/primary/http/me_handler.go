package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/trackline/issue-board-backend/internal/adapters/primary/http/middleware"
	"github.com/trackline/issue-board-backend/internal/adapters/primary/validation"
	"github.com/trackline/issue-board-backend/internal/auth"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

const maxAssignedIssuesLimit = 100

// MeHandler serves the authenticated user's own profile and work queue
type MeHandler struct {
	userLookup   ports.UserLookupService
	issueService ports.IssueService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewMeHandler creates a new me handler
func NewMeHandler(
	userLookup ports.UserLookupService,
	issueService ports.IssueService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *MeHandler {
	return &MeHandler{
		userLookup:   userLookup,
		issueService: issueService,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "me"),
	}
}

// Router sets up a new chi Router for the /me routes.
func (h *MeHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all /me endpoints.
func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleGetProfile)
	r.Get("/issues", h.HandleListAssignedIssues)
}

// HandleGetProfile handles GET /me
func (h *MeHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	user, err := h.userLookup.GetByUsername(r.Context(), claims.Username)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toUserDTO(user))
}

// HandleListAssignedIssues handles GET /me/issues
func (h *MeHandler) HandleListAssignedIssues(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	limit := validation.ParseIntQueryParam(r, "limit", maxAssignedIssuesLimit)
	if limit <= 0 || limit > maxAssignedIssuesLimit {
		limit = maxAssignedIssuesLimit
	}

	issues, err := h.issueService.ListAssignedIssues(r.Context(), claims.UserID, limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toIssueDTOs(issues))
}

// getClaims extracts and validates user claims from the request context
func (h *MeHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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
