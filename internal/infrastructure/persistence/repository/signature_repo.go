package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
)

// SignatureRepository implements port.SignatureRepository. It only inserts.
type SignatureRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSignatureRepository creates a new signature repository
func NewSignatureRepository(db *sql.DB, logger *zap.Logger) port.SignatureRepository {
	return &SignatureRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a signature
func (r *SignatureRepository) Create(ctx context.Context, s *entity.MissionSignature) error {
	query := `
		INSERT INTO mission_signatures (id, mission_id, signer_id, signer_role, action, comment, signed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		s.ID,
		s.MissionID,
		s.SignerID,
		string(s.SignerRole),
		string(s.Action),
		s.Comment,
		s.SignedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create signature",
			zap.String("mission_id", s.MissionID),
			zap.String("signer_id", s.SignerID),
			zap.Error(err))
		return fmt.Errorf("failed to create signature: %w", err)
	}
	return nil
}

// ListByMissionID returns the signatures of a mission in signing order
func (r *SignatureRepository) ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionSignature, error) {
	query := `
		SELECT id, mission_id, signer_id, signer_role, action, comment, signed_at
		FROM mission_signatures
		WHERE mission_id = ?
		ORDER BY signed_at ASC, rowid ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, missionID)
	if err != nil {
		r.logger.Error("Failed to list signatures", zap.String("mission_id", missionID), zap.Error(err))
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	defer rows.Close()

	signatures := []*entity.MissionSignature{}
	for rows.Next() {
		var (
			s      entity.MissionSignature
			role   string
			action string
		)
		if err := rows.Scan(&s.ID, &s.MissionID, &s.SignerID, &role, &action, &s.Comment, &s.SignedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signature: %w", err)
		}
		s.SignerRole = workflow.Role(role)
		s.Action = workflow.SignatureAction(action)
		signatures = append(signatures, &s)
	}
	return signatures, rows.Err()
}

// getExecutor returns appropriate executor based on context
func (r *SignatureRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

// Verify interface compliance
var _ port.SignatureRepository = (*SignatureRepository)(nil)
