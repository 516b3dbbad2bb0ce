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

// ParticipantRepository implements port.ParticipantRepository
type ParticipantRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewParticipantRepository creates a new participant repository
func NewParticipantRepository(db *sql.DB, logger *zap.Logger) port.ParticipantRepository {
	return &ParticipantRepository{
		db:     db,
		logger: logger,
	}
}

// Replace deletes the current participants of a mission and inserts the given list.
// Callers run it inside a transaction.
func (r *ParticipantRepository) Replace(ctx context.Context, missionID string, participants []*entity.MissionParticipant) error {
	exec := r.getExecutor(ctx)

	if _, err := exec.ExecContext(ctx, `DELETE FROM mission_participants WHERE mission_id = ?`, missionID); err != nil {
		r.logger.Error("Failed to clear participants", zap.String("mission_id", missionID), zap.Error(err))
		return fmt.Errorf("failed to clear participants: %w", err)
	}

	query := `
		INSERT INTO mission_participants (id, mission_id, agent_id, is_primary, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now().UTC()
	for _, p := range participants {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.MissionID = missionID
		if _, err := exec.ExecContext(ctx, query, p.ID, missionID, p.AgentID, p.IsPrimary, p.CreatedAt.UTC()); err != nil {
			r.logger.Error("Failed to insert participant",
				zap.String("mission_id", missionID),
				zap.String("agent_id", p.AgentID),
				zap.Error(err))
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}
	return nil
}

// ListByMissionID returns the participants of a mission, primary first
func (r *ParticipantRepository) ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionParticipant, error) {
	query := `
		SELECT id, mission_id, agent_id, is_primary, created_at
		FROM mission_participants
		WHERE mission_id = ?
		ORDER BY is_primary DESC, rowid ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, missionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := []*entity.MissionParticipant{}
	for rows.Next() {
		var p entity.MissionParticipant
		if err := rows.Scan(&p.ID, &p.MissionID, &p.AgentID, &p.IsPrimary, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, &p)
	}
	return participants, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *ParticipantRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.ParticipantRepository = (*ParticipantRepository)(nil)
