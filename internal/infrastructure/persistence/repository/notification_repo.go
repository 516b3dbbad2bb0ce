package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores an in-app notification
func (r *NotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, mission_id, title, message, type, read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.MissionID, n.Title, n.Message, n.Type, n.Read, n.CreatedAt.UTC())
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.String("user_id", n.UserID),
			zap.String("mission_id", n.MissionID),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListByUserID returns the newest notifications of a user
func (r *NotificationRepository) ListByUserID(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error) {
	query := `
		SELECT id, user_id, mission_id, title, message, type, read, created_at
		FROM notifications
		WHERE user_id = ?`
	args := []interface{}{userID}
	if unreadOnly {
		query += " AND read = 0"
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	list := []*entity.Notification{}
	for rows.Next() {
		var n entity.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.MissionID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, &n)
	}
	return list, rows.Err()
}

// MarkRead flags a notification as read. Only its recipient may do so.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		r.logger.Error("Failed to mark notification read", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark read: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("notification %s: %w", id, port.ErrNotFound)
	}
	return nil
}

// getExecutor returns appropriate executor based on context
func (r *NotificationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
