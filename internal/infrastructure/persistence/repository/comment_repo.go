package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
)

// CommentRepository implements port.CommentRepository
type CommentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sql.DB, logger *zap.Logger) port.CommentRepository {
	return &CommentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a comment
func (r *CommentRepository) Create(ctx context.Context, c *entity.MissionComment) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.getExecutor(ctx).ExecContext(ctx,
		`INSERT INTO mission_comments (id, mission_id, user_id, comment, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.MissionID, c.UserID, c.Comment, c.CreatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create comment", zap.String("mission_id", c.MissionID), zap.Error(err))
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// ListByMissionID returns the comments of a mission, oldest first
func (r *CommentRepository) ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionComment, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `
		SELECT id, mission_id, user_id, comment, created_at
		FROM mission_comments
		WHERE mission_id = ?
		ORDER BY created_at ASC, rowid ASC
	`, missionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*entity.MissionComment{}
	for rows.Next() {
		var c entity.MissionComment
		if err := rows.Scan(&c.ID, &c.MissionID, &c.UserID, &c.Comment, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *CommentRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.CommentRepository = (*CommentRepository)(nil)
