package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// CreateProjectInput describes a new budget line
type CreateProjectInput struct {
	Code        string
	Name        string
	Description string
	TotalBudget float64
	StartDate   *time.Time
	EndDate     *time.Time
}

// ProjectSummary is a project with its derived budget figures
type ProjectSummary struct {
	*entity.Project
	UsagePercent float64 `json:"usage_percent"`
	Remaining    float64 `json:"remaining"`
	BudgetLevel  string  `json:"budget_level"`
}

// ProjectService exposes the read-mostly project budget view
type ProjectService interface {
	Create(ctx context.Context, actor workflow.Actor, in CreateProjectInput) (*ProjectSummary, error)
	Get(ctx context.Context, id string) (*ProjectSummary, error)
	List(ctx context.Context) ([]*ProjectSummary, error)
}

type projectServiceImpl struct {
	projectRepo port.ProjectRepository
	logger      Logger
}

// NewProjectService creates a new ProjectService
func NewProjectService(projectRepo port.ProjectRepository, logger Logger) ProjectService {
	return &projectServiceImpl{
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// Create registers a project; admin or finance only
func (s *projectServiceImpl) Create(ctx context.Context, actor workflow.Actor, in CreateProjectInput) (*ProjectSummary, error) {
	if !actor.Roles.HasAny(workflow.RoleAdmin, workflow.RoleFinance) {
		return nil, fmt.Errorf("%w: admin or finance role required to create projects", workflow.ErrUnauthorized)
	}

	project := &entity.Project{
		ID:          uuid.NewString(),
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		TotalBudget: in.TotalBudget,
		Status:      entity.ProjectStatusActive,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedBy:   actor.ID,
		CreatedAt:   time.Now().UTC(),
	}
	project.UpdatedAt = project.CreatedAt

	switch {
	case project.Code == "":
		return nil, workflow.NewValidationError("code", "is required")
	case project.Name == "":
		return nil, workflow.NewValidationError("name", "is required")
	case project.TotalBudget < 0:
		return nil, workflow.NewValidationError("total_budget", "must not be negative")
	case project.StartDate != nil && project.EndDate != nil && project.StartDate.After(*project.EndDate):
		return nil, workflow.NewValidationError("end_date", "must not be before start_date")
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		s.logger.Error("Failed to create project", "error", err, "code", project.Code)
		return nil, fmt.Errorf("create project: %w", err)
	}

	s.logger.Info("Project created", "project_id", project.ID, "code", project.Code, "budget", project.TotalBudget)
	return summarize(project), nil
}

// Get returns one project with its budget figures
func (s *projectServiceImpl) Get(ctx context.Context, id string) (*ProjectSummary, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	return summarize(project), nil
}

// List returns all projects
func (s *projectServiceImpl) List(ctx context.Context) ([]*ProjectSummary, error) {
	projects, err := s.projectRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]*ProjectSummary, len(projects))
	for i, p := range projects {
		out[i] = summarize(p)
	}
	return out, nil
}

func summarize(p *entity.Project) *ProjectSummary {
	return &ProjectSummary{
		Project:      p,
		UsagePercent: p.UsagePercent(),
		Remaining:    p.Remaining(),
		BudgetLevel:  p.BudgetLevel(),
	}
}
