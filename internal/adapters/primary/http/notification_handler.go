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

const (
	defaultNotificationsLimit = 50
	maxNotificationsLimit     = 200
)

// NotificationHandler handles HTTP requests for the notification inbox
type NotificationHandler struct {
	notificationService ports.NotificationService
	errorHandler        *ErrorHandler
	logger              *slog.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(
	notificationService ports.NotificationService,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		errorHandler:        errorHandler,
		logger:              logger.With("handler", "notification"),
	}
}

// Router sets up a new chi Router for all notification routes.
func (h *NotificationHandler) Router() http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes sets up the routing for all notification endpoints.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleListNotifications)
	r.Get("/unread-count", h.HandleUnreadCount)
	r.Put("/read-all", h.HandleMarkAllRead)
	r.Put("/{notificationID}/read", h.HandleMarkRead)
}

// --- Response DTOs ---

// NotificationDTO defines the JSON response for notifications.
type NotificationDTO struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Title         string  `json:"title"`
	Message       string  `json:"message"`
	IssueID       *string `json:"issueId"`
	RelatedUserID *string `json:"relatedUserId"`
	IsRead        bool    `json:"isRead"`
	CreatedAt     string  `json:"createdAt"`
}

func toNotificationDTO(n *domain.Notification) NotificationDTO {
	var issueID *string
	if n.IssueID != nil {
		value := n.IssueID.String()
		issueID = &value
	}

	var relatedUserID *string
	if n.RelatedUserID != nil {
		value := n.RelatedUserID.String()
		relatedUserID = &value
	}

	return NotificationDTO{
		ID:            n.ID.String(),
		Type:          string(n.Type),
		Title:         n.Title,
		Message:       n.Message,
		IssueID:       issueID,
		RelatedUserID: relatedUserID,
		IsRead:        n.IsRead,
		CreatedAt:     n.CreatedAt.Format(time.RFC3339),
	}
}

func toNotificationDTOs(notifications []*domain.Notification) []NotificationDTO {
	response := make([]NotificationDTO, 0, len(notifications))
	for _, n := range notifications {
		response = append(response, toNotificationDTO(n))
	}
	return response
}

// UnreadCountResponse carries the unread notification count.
type UnreadCountResponse struct {
	Count int64 `json:"count"`
}

// MarkAllReadResponse carries the number of notifications marked as read.
type MarkAllReadResponse struct {
	MarkedRead int64 `json:"markedRead"`
}

// --- Handlers ---

// HandleListNotifications handles GET /notifications
func (h *NotificationHandler) HandleListNotifications(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	unreadOnly := validation.ParseBoolQueryParam(r, "unreadOnly", false)
	limit := validation.ParseIntQueryParam(r, "limit", defaultNotificationsLimit)
	if limit <= 0 || limit > maxNotificationsLimit {
		limit = defaultNotificationsLimit
	}

	notifications, err := h.notificationService.ListNotifications(r.Context(), claims.UserID, unreadOnly, limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteList(w, toNotificationDTOs(notifications))
}

// HandleUnreadCount handles GET /notifications/unread-count
func (h *NotificationHandler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	count, err := h.notificationService.CountUnread(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, UnreadCountResponse{Count: count})
}

// HandleMarkRead handles PUT /notifications/{notificationID}/read
func (h *NotificationHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	notificationID, err := parseUUIDParam(r, "notificationID")
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), notificationID, claims.UserID); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	WriteNoContent(w)
}

// HandleMarkAllRead handles PUT /notifications/read-all
func (h *NotificationHandler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.getClaims(w, r)
	if !ok {
		return
	}

	marked, err := h.notificationService.MarkAllRead(r.Context(), claims.UserID)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.Info("notifications marked read",
		"count", marked,
		"user_id", claims.UserID,
	)

	WriteJSON(w, http.StatusOK, MarkAllReadResponse{MarkedRead: marked})
}

// getClaims extracts and validates user claims from the request context
func (h *NotificationHandler) getClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
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
