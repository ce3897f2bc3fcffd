package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trackline/issue-board-backend/internal/core/domain"
	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
	"github.com/trackline/issue-board-backend/internal/core/ports"
)

const notificationColumns = "id, user_id, type, title, message, issue_id, related_user_id, is_read, created_at, updated_at"

type NotificationRepository struct {
	pool *pgxpool.Pool
}

var _ ports.NotificationRepository = (*NotificationRepository)(nil)

func NewNotificationRepository(pool *pgxpool.Pool) ports.NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.IssueID,
		&n.RelatedUserID,
		&n.IsRead,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) (*domain.Notification, error) {
	q := GetDBTX(ctx, r.pool)
	return scanNotification(q.QueryRow(ctx, `
		INSERT INTO notifications (user_id, type, title, message, issue_id, related_user_id, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+notificationColumns,
		notification.UserID, notification.Type, notification.Title, notification.Message,
		notification.IssueID, notification.RelatedUserID, notification.IsRead,
	))
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]*domain.Notification, error) {
	q := GetDBTX(ctx, r.pool)
	rows, err := q.Query(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC
		LIMIT $3`,
		userID, unreadOnly, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	q := GetDBTX(ctx, r.pool)
	// The user_id guard means a recipient can only touch their own rows.
	tag, err := q.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, updated_at = now()
		WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	q := GetDBTX(ctx, r.pool)
	tag, err := q.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE, updated_at = now()
		WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	q := GetDBTX(ctx, r.pool)
	var count int64
	err := q.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
