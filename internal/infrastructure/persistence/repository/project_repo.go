package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/infrastructure/persistence/sqlite"
)

const projectColumns = `
	id, code, name, description, total_budget, spent_budget, status,
	start_date, end_date, created_by, created_at, updated_at`

// ProjectRepository implements port.ProjectRepository
type ProjectRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *sql.DB, logger *zap.Logger) port.ProjectRepository {
	return &ProjectRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a project
func (r *ProjectRepository) Create(ctx context.Context, p *entity.Project) error {
	query := `INSERT INTO projects (` + projectColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		p.ID, p.Code, p.Name, p.Description, p.TotalBudget, p.SpentBudget, p.Status,
		nullTime(p.StartDate), nullTime(p.EndDate), p.CreatedBy, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create project", zap.String("code", p.Code), zap.Error(err))
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by id
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*entity.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = ?`

	p, err := scanProject(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get project", zap.String("project_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return p, nil
}

// List returns all projects ordered by code
func (r *ProjectRepository) List(ctx context.Context) ([]*entity.Project, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*entity.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// AddSpent increases the spent budget of a project
func (r *ProjectRepository) AddSpent(ctx context.Context, id string, amount float64) error {
	result, err := r.getExecutor(ctx).ExecContext(ctx,
		`UPDATE projects SET spent_budget = spent_budget + ?, updated_at = ? WHERE id = ?`,
		amount, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update project spending", zap.String("project_id", id), zap.Error(err))
		return fmt.Errorf("failed to update spent budget: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("project %s: %w", id, port.ErrNotFound)
	}
	return nil
}

// getExecutor returns appropriate executor based on context
func (r *ProjectRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFor(ctx, r.db)
}

func scanProject(s scanner) (*entity.Project, error) {
	var (
		p          entity.Project
		start, end sql.NullTime
	)
	err := s.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.TotalBudget, &p.SpentBudget, &p.Status,
		&start, &end, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if start.Valid {
		p.StartDate = &start.Time
	}
	if end.Valid {
		p.EndDate = &end.Time
	}
	return &p, nil
}

// Verify interface compliance
var _ port.ProjectRepository = (*ProjectRepository)(nil)
