package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/qau-se/cfms-api/internal/models"
)

// NotificationRepository persists per-user workflow notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification row.
func (r *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notifications (id, user_id, type, title, message, folder_id, is_read, acknowledged_at, created_at)
VALUES (:id, :user_id, :type, :title, :message, :folder_id, :is_read, :acknowledged_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first, plus total.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, limit, offset int) ([]models.Notification, int, error) {
	if limit <= 0 {
		limit = 20
	}
	clause := "WHERE user_id = $1"
	if unreadOnly {
		clause += " AND is_read = FALSE"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications "+clause, userID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := fmt.Sprintf(`SELECT id, user_id, type, title, message, folder_id, is_read, acknowledged_at, created_at
FROM notifications %s ORDER BY created_at DESC LIMIT $2 OFFSET $3`, clause)
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, userID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead acknowledges a single notification owned by the user.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	const query = `UPDATE notifications SET is_read = TRUE, acknowledged_at = $3
WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead acknowledges every unread notification of the user.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	const query = `UPDATE notifications SET is_read = TRUE, acknowledged_at = $2
WHERE user_id = $1 AND is_read = FALSE`
	if _, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}
