package email

import (
	"context"
	"log/slog"

	"github.com/trackline/issue-board-backend/internal/core/ports"
)

// MockSMTPNotifier is a secondary adapter that mocks sending emails. It is
// used as the offline fallback: the notification service calls it when a
// recipient has no live websocket connection.
type MockSMTPNotifier struct {
	userRepo ports.UserRepository
	logger   *slog.Logger
}

var _ ports.EmailNotifier = (*MockSMTPNotifier)(nil)

// NewMockSMTPNotifier creates a new mock notifier.
// It requires a UserRepository to fetch recipient details.
func NewMockSMTPNotifier(userRepo ports.UserRepository, logger *slog.Logger) ports.EmailNotifier {
	return &MockSMTPNotifier{
		userRepo: userRepo,
		logger:   logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification to the console instead of sending an email.
func (n *MockSMTPNotifier) Notify(ctx context.Context, params ports.EmailNotificationParams) {
	// Use a new background context in case the original request context is cancelled.
	notifyCtx := context.Background()

	user, err := n.userRepo.GetByID(notifyCtx, params.RecipientUserID)
	if err != nil {
		n.logger.Error("failed to get user for email notification",
			"user_id", params.RecipientUserID,
			"error", err,
		)
		return
	}

	attrs := []any{
		"to_name", user.FullName,
		"to_email", user.Email,
		"subject", params.Subject,
	}
	if params.IssueID != nil {
		attrs = append(attrs, "issue_id", *params.IssueID)
	}
	n.logger.Info("mock email sent", attrs...)
}
