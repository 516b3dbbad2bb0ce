package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
)

const missionColumns = `
	id, reference, agent_id, title, description, destination,
	start_date, end_date, estimated_amount, actual_amount, status,
	rejection_reason, project_id, payment_method, payment_proof_url,
	payment_date, created_at, updated_at`

// MissionRepository implements port.MissionRepository
type MissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMissionRepository creates a new mission repository
func NewMissionRepository(db *sql.DB, logger *zap.Logger) port.MissionRepository {
	return &MissionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new mission order
func (r *MissionRepository) Create(ctx context.Context, m *entity.MissionOrder) error {
	query := `
		INSERT INTO mission_orders (` + missionColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		m.ID,
		m.Reference,
		m.AgentID,
		m.Title,
		m.Description,
		m.Destination,
		m.StartDate.UTC(),
		m.EndDate.UTC(),
		m.EstimatedAmount,
		nullFloat(m.ActualAmount),
		string(m.Status),
		m.RejectionReason,
		nullString(m.ProjectID),
		m.PaymentMethod,
		m.PaymentProofURL,
		nullTime(m.PaymentDate),
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create mission",
			zap.String("reference", m.Reference),
			zap.Error(err))
		return fmt.Errorf("failed to create mission: %w", err)
	}
	return nil
}

// GetByID retrieves a mission by id
func (r *MissionRepository) GetByID(ctx context.Context, id string) (*entity.MissionOrder, error) {
	return r.getOne(ctx, "id", id)
}

// GetByReference retrieves a mission by its human-readable reference
func (r *MissionRepository) GetByReference(ctx context.Context, reference string) (*entity.MissionOrder, error) {
	return r.getOne(ctx, "reference", reference)
}

func (r *MissionRepository) getOne(ctx context.Context, column, value string) (*entity.MissionOrder, error) {
	query := `SELECT ` + missionColumns + ` FROM mission_orders WHERE ` + column + ` = ?`

	m, err := scanMission(r.getExecutor(ctx).QueryRowContext(ctx, query, value))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get mission",
			zap.String(column, value),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get mission: %w", err)
	}
	return m, nil
}

// UpdateDraft rewrites the editable fields of a draft mission
func (r *MissionRepository) UpdateDraft(ctx context.Context, m *entity.MissionOrder) error {
	query := `
		UPDATE mission_orders
		SET title = ?, description = ?, destination = ?, start_date = ?, end_date = ?,
			estimated_amount = ?, project_id = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	m.UpdatedAt = time.Now().UTC()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		m.Title,
		m.Description,
		m.Destination,
		m.StartDate.UTC(),
		m.EndDate.UTC(),
		m.EstimatedAmount,
		nullString(m.ProjectID),
		m.UpdatedAt,
		m.ID,
		string(workflow.StateDraft),
	)
	if err != nil {
		r.logger.Error("Failed to update mission", zap.String("mission_id", m.ID), zap.Error(err))
		return fmt.Errorf("failed to update mission: %w", err)
	}
	return r.expectOne(ctx, result, m.ID)
}

// UpdateStatus applies a transition only if the row still has status from
func (r *MissionRepository) UpdateStatus(ctx context.Context, id string, from, to workflow.State, reason string) error {
	query := `
		UPDATE mission_orders
		SET status = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(to), reason, time.Now().UTC(), id, string(from))
	if err != nil {
		r.logger.Error("Failed to update mission status",
			zap.String("mission_id", id),
			zap.String("from", from.String()),
			zap.String("to", to.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update status: %w", err)
	}
	return r.expectOne(ctx, result, id)
}

// MarkPaid moves an approved mission to paid
func (r *MissionRepository) MarkPaid(ctx context.Context, id string, payment port.PaymentUpdate) error {
	query := `
		UPDATE mission_orders
		SET status = ?, actual_amount = ?, payment_method = ?, payment_proof_url = ?,
			payment_date = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		string(workflow.StatePaid),
		payment.ActualAmount,
		payment.Method,
		payment.ProofURL,
		payment.PaidAt.UTC(),
		time.Now().UTC(),
		id,
		string(workflow.StateApproved),
	)
	if err != nil {
		r.logger.Error("Failed to mark mission paid", zap.String("mission_id", id), zap.Error(err))
		return fmt.Errorf("failed to mark paid: %w", err)
	}
	return r.expectOne(ctx, result, id)
}

// DeleteDraft removes a draft mission; expenses, participants and comments cascade
func (r *MissionRepository) DeleteDraft(ctx context.Context, id string) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx,
		`DELETE FROM mission_orders WHERE id = ? AND status = ?`,
		id, string(workflow.StateDraft))
	if err != nil {
		r.logger.Error("Failed to delete mission", zap.String("mission_id", id), zap.Error(err))
		return fmt.Errorf("failed to delete mission: %w", err)
	}
	return r.expectOne(ctx, result, id)
}

// List returns missions matching filter, newest first
func (r *MissionRepository) List(ctx context.Context, filter port.MissionFilter) ([]*entity.MissionOrder, error) {
	var (
		where []string
		args  []interface{}
	)

	switch filter.Status {
	case "", "all":
	case port.StatusFilterPending:
		where = append(where, "status IN (?, ?, ?)")
		for _, stage := range workflow.Chain {
			args = append(args, string(stage.Status))
		}
	default:
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.AgentID != "" {
		where = append(where, "agent_id = ?")
		args = append(args, filter.AgentID)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + strings.ToLower(q) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(reference) LIKE ? OR LOWER(destination) LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + missionColumns + ` FROM mission_orders`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	}

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list missions", zap.Error(err))
		return nil, fmt.Errorf("failed to list missions: %w", err)
	}
	defer rows.Close()

	missions := []*entity.MissionOrder{}
	for rows.Next() {
		m, err := scanMission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mission: %w", err)
		}
		missions = append(missions, m)
	}
	return missions, rows.Err()
}

// Stats computes the dashboard aggregates. Approved counts approved and paid missions.
func (r *MissionRepository) Stats(ctx context.Context) (*port.MissionStats, error) {
	exec := r.getExecutor(ctx)
	stats := &port.MissionStats{Monthly: []port.MonthlyTotal{}}

	err := exec.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'draft' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('pending_service', 'pending_director', 'pending_finance') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN ('approved', 'paid') THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'paid' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(estimated_amount), 0)
		FROM mission_orders
	`).Scan(
		&stats.Total,
		&stats.Draft,
		&stats.Pending,
		&stats.Approved,
		&stats.Rejected,
		&stats.Paid,
		&stats.TotalEstimated,
	)
	if err != nil {
		r.logger.Error("Failed to compute mission stats", zap.Error(err))
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	err = exec.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(accommodation_total), 0),
			COALESCE(SUM(per_diem_total), 0),
			COALESCE(SUM(transport_total), 0),
			COALESCE(SUM(fuel_total), 0),
			COALESCE(SUM(other_expenses), 0)
		FROM mission_expenses
	`).Scan(
		&stats.ByCategory.Accommodation,
		&stats.ByCategory.PerDiem,
		&stats.ByCategory.Transport,
		&stats.ByCategory.Fuel,
		&stats.ByCategory.Other,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute expense totals: %w", err)
	}

	rows, err := exec.QueryContext(ctx, `
		SELECT substr(start_date, 1, 7) AS month, COUNT(*), COALESCE(SUM(estimated_amount), 0)
		FROM mission_orders
		GROUP BY month
		ORDER BY month
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute monthly totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mt port.MonthlyTotal
		if err := rows.Scan(&mt.Month, &mt.Count, &mt.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan monthly total: %w", err)
		}
		stats.Monthly = append(stats.Monthly, mt)
	}
	return stats, rows.Err()
}

// expectOne turns a zero-row conditioned write into ErrNotFound or ErrConflict
func (r *MissionRepository) expectOne(ctx context.Context, result sql.Result, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists int
	err = r.getExecutor(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM mission_orders WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check mission: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("mission %s: %w", id, port.ErrNotFound)
	}
	r.logger.Info("Conditioned mission write lost", zap.String("mission_id", id))
	return fmt.Errorf("mission %s: %w", id, workflow.ErrConflict)
}

// getExecutor returns appropriate executor based on context
func (r *MissionRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

func scanMission(s scanner) (*entity.MissionOrder, error) {
	var (
		m           entity.MissionOrder
		status      string
		actual      sql.NullFloat64
		projectID   sql.NullString
		paymentDate sql.NullTime
	)

	err := s.Scan(
		&m.ID,
		&m.Reference,
		&m.AgentID,
		&m.Title,
		&m.Description,
		&m.Destination,
		&m.StartDate,
		&m.EndDate,
		&m.EstimatedAmount,
		&actual,
		&status,
		&m.RejectionReason,
		&projectID,
		&m.PaymentMethod,
		&m.PaymentProofURL,
		&paymentDate,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Status = workflow.State(status)
	if actual.Valid {
		m.ActualAmount = &actual.Float64
	}
	if projectID.Valid {
		m.ProjectID = &projectID.String
	}
	if paymentDate.Valid {
		m.PaymentDate = &paymentDate.Time
	}
	return &m, nil
}

// Verify interface compliance
var _ port.MissionRepository = (*MissionRepository)(nil)
