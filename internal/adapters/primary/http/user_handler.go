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

const maxUsersPerPage = 100

// UserHandler serves user lookups for assignment pickers and member adds
type UserHandler struct {
	userLookup   ports.UserLookupService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	userLookup ports.UserLookupService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		userLookup:   userLookup,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "user"),
	}
}

// Router sets up a new chi Router for the user routes.
func (h *UserHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all user endpoints.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListUsers)
	r.Get("/{username}", h.HandleGetUser)
}

// HandleListUsers handles GET /users
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.getClaims(w, r); !ok {
		return
	}

	limit := validation.ParseIntQueryParam(r, "limit", maxUsersPerPage)
	if limit <= 0 || limit > maxUsersPerPage {
		limit = maxUsersPerPage
	}

	users, err := h.userLookup.ListUsers(r.Context(), limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	response := make([]UserDTO, 0, len(users))
	for _, user := range users {
		response = append(response, toUserDTO(user))
	}

	WriteList(w, response)
}

// HandleGetUser handles GET /users/{username}
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.getClaims(w, r); !ok {
		return
	}

	username := chi.URLParam(r, "username")
	user, err := h.userLookup.GetByUsername(r.Context(), username)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toUserDTO(user))
}

// getClaims extracts and validates user claims from the request context
func (h *UserHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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
