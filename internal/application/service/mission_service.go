package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/mission-orders/internal/application/dispatcher"
	"github.com/garyjia/mission-orders/internal/application/port"
	appwf "github.com/garyjia/mission-orders/internal/application/workflow"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/event"
	"github.com/garyjia/mission-orders/internal/domain/expense"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MissionInput holds the editable fields of a mission order
type MissionInput struct {
	Title          string
	Description    string
	Destination    string
	StartDate      time.Time
	EndDate        time.Time
	ProjectID      string
	Expenses       expense.Input
	ParticipantIDs []string
}

// CreateMissionInput is a new mission; Submit sends it straight into approval
type CreateMissionInput struct {
	MissionInput
	Submit bool
}

// MissionDetail is a mission with everything shown on its detail page
type MissionDetail struct {
	Mission      *entity.MissionOrder         `json:"mission"`
	Expense      *entity.MissionExpense       `json:"expense,omitempty"`
	Signatures   []*entity.MissionSignature   `json:"signatures"`
	Participants []*entity.MissionParticipant `json:"participants"`
}

// MissionService manages the mission order lifecycle outside approval decisions
type MissionService interface {
	// Create stores a draft and submits it when asked. If submission fails the
	// committed draft is returned together with the error.
	Create(ctx context.Context, actor workflow.Actor, in CreateMissionInput) (*entity.MissionOrder, error)
	Update(ctx context.Context, actor workflow.Actor, id string, in MissionInput) (*entity.MissionOrder, error)
	Delete(ctx context.Context, actor workflow.Actor, id string) error
	Get(ctx context.Context, id string) (*MissionDetail, error)
	List(ctx context.Context, filter port.MissionFilter) ([]*entity.MissionOrder, error)
	Stats(ctx context.Context) (*port.MissionStats, error)
	AddComment(ctx context.Context, actor workflow.Actor, missionID, text string) (*entity.MissionComment, error)
	ListComments(ctx context.Context, missionID string) ([]*entity.MissionComment, error)
}

type missionServiceImpl struct {
	missionRepo     port.MissionRepository
	expenseRepo     port.ExpenseRepository
	participantRepo port.ParticipantRepository
	signatureRepo   port.SignatureRepository
	commentRepo     port.CommentRepository
	projectRepo     port.ProjectRepository
	references      port.ReferenceGenerator
	engine          appwf.WorkflowEngine
	txManager       port.TransactionManager
	dispatcher      dispatcher.Dispatcher
	logger          Logger
	now             func() time.Time
}

// MissionRepositories groups the stores the mission service reads and writes
type MissionRepositories struct {
	Missions     port.MissionRepository
	Expenses     port.ExpenseRepository
	Participants port.ParticipantRepository
	Signatures   port.SignatureRepository
	Comments     port.CommentRepository
	Projects     port.ProjectRepository
}

// NewMissionService creates a new MissionService. d may be nil.
func NewMissionService(
	repos MissionRepositories,
	references port.ReferenceGenerator,
	engine appwf.WorkflowEngine,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
) MissionService {
	return &missionServiceImpl{
		missionRepo:     repos.Missions,
		expenseRepo:     repos.Expenses,
		participantRepo: repos.Participants,
		signatureRepo:   repos.Signatures,
		commentRepo:     repos.Comments,
		projectRepo:     repos.Projects,
		references:      references,
		engine:          engine,
		txManager:       txManager,
		dispatcher:      d,
		logger:          logger,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

// Create saves a new draft and optionally submits it
func (s *missionServiceImpl) Create(ctx context.Context, actor workflow.Actor, in CreateMissionInput) (*entity.MissionOrder, error) {
	if !actor.Roles.Has(workflow.RoleAgent) {
		return nil, fmt.Errorf("%w: agent role required to create missions", workflow.ErrUnauthorized)
	}

	now := s.now()
	breakdown := expense.Compute(in.Expenses)
	if err := breakdown.Validate(); err != nil {
		return nil, err
	}
	mission := &entity.MissionOrder{
		ID:              uuid.NewString(),
		AgentID:         actor.ID,
		Status:          workflow.StateDraft,
		EstimatedAmount: breakdown.Total,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	applyInput(mission, in.MissionInput)

	if err := mission.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkProject(ctx, mission.ProjectID); err != nil {
		return nil, err
	}

	reference, err := s.references.Generate(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("generate reference: %w", err)
	}
	mission.Reference = reference

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.missionRepo.Create(txCtx, mission); err != nil {
			return fmt.Errorf("create mission: %w", err)
		}
		if err := s.expenseRepo.Upsert(txCtx, breakdown.Expense(mission.ID)); err != nil {
			return fmt.Errorf("save expenses: %w", err)
		}
		if err := s.participantRepo.Replace(txCtx, mission.ID, participants(mission, in.ParticipantIDs, now)); err != nil {
			return fmt.Errorf("save participants: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create mission", "error", err, "agent_id", actor.ID)
		return nil, err
	}

	s.logger.Info("Mission created",
		"mission_id", mission.ID,
		"reference", mission.Reference,
		"estimated_amount", mission.EstimatedAmount,
	)
	s.publish(ctx, event.TypeMissionCreated, mission, actor)

	if !in.Submit {
		return mission, nil
	}

	submitted, err := s.engine.Submit(ctx, mission.ID, actor)
	if err != nil {
		s.logger.Error("Mission saved as draft but not submitted", "error", err, "mission_id", mission.ID)
		return mission, fmt.Errorf("mission %s saved as draft, submit failed: %w", mission.Reference, err)
	}
	return submitted, nil
}

// Update rewrites an owner's draft and recomputes its estimate
func (s *missionServiceImpl) Update(ctx context.Context, actor workflow.Actor, id string, in MissionInput) (*entity.MissionOrder, error) {
	mission, err := s.ownedMission(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !mission.IsEditable() {
		return nil, fmt.Errorf("%w: mission %s is %s and can no longer be edited", workflow.ErrInvalidTransition, mission.Reference, mission.Status)
	}

	now := s.now()
	breakdown := expense.Compute(in.Expenses)
	if err := breakdown.Validate(); err != nil {
		return nil, err
	}
	updated := *mission
	applyInput(&updated, in)
	updated.EstimatedAmount = breakdown.Total
	updated.UpdatedAt = now

	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkProject(ctx, updated.ProjectID); err != nil {
		return nil, err
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.missionRepo.UpdateDraft(txCtx, &updated); err != nil {
			return fmt.Errorf("update mission: %w", err)
		}
		if err := s.expenseRepo.Upsert(txCtx, breakdown.Expense(updated.ID)); err != nil {
			return fmt.Errorf("save expenses: %w", err)
		}
		if err := s.participantRepo.Replace(txCtx, updated.ID, participants(&updated, in.ParticipantIDs, now)); err != nil {
			return fmt.Errorf("save participants: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to update mission", "error", err, "mission_id", id)
		return nil, err
	}

	s.logger.Info("Mission updated", "mission_id", id, "estimated_amount", updated.EstimatedAmount)
	return &updated, nil
}

// Delete removes an owner's draft
func (s *missionServiceImpl) Delete(ctx context.Context, actor workflow.Actor, id string) error {
	mission, err := s.ownedMission(ctx, actor, id)
	if err != nil {
		return err
	}
	if _, err := appwf.BuildMissionStateMachine(mission, actor).Target(ctx, workflow.TriggerDelete); err != nil {
		return fmt.Errorf("delete mission %s: %w", mission.Reference, err)
	}

	if err := s.missionRepo.DeleteDraft(ctx, id); err != nil {
		s.logger.Error("Failed to delete mission", "error", err, "mission_id", id)
		return fmt.Errorf("delete mission: %w", err)
	}

	s.logger.Info("Mission deleted", "mission_id", id, "reference", mission.Reference)
	s.publish(ctx, event.TypeMissionDeleted, mission, actor)
	return nil
}

// Get loads a mission with its expense, signatures and participants
func (s *missionServiceImpl) Get(ctx context.Context, id string) (*MissionDetail, error) {
	mission, err := s.missionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get mission %s: %w", id, err)
	}

	detail := &MissionDetail{Mission: mission}

	detail.Expense, err = s.expenseRepo.GetByMissionID(ctx, id)
	if err != nil && !errors.Is(err, port.ErrNotFound) {
		return nil, fmt.Errorf("get expenses: %w", err)
	}
	if detail.Signatures, err = s.signatureRepo.ListByMissionID(ctx, id); err != nil {
		return nil, fmt.Errorf("list signatures: %w", err)
	}
	if detail.Participants, err = s.participantRepo.ListByMissionID(ctx, id); err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	return detail, nil
}

// List returns missions matching filter, newest first
func (s *missionServiceImpl) List(ctx context.Context, filter port.MissionFilter) ([]*entity.MissionOrder, error) {
	switch filter.Status {
	case "", "all":
		filter.Status = ""
	case port.StatusFilterPending:
	default:
		if !workflow.State(filter.Status).IsValid() {
			return nil, workflow.NewValidationError("status", "unknown status filter "+filter.Status)
		}
	}
	filter.Query = strings.TrimSpace(filter.Query)
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	missions, err := s.missionRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list missions", "error", err)
		return nil, fmt.Errorf("list missions: %w", err)
	}
	return missions, nil
}

// Stats returns dashboard aggregates
func (s *missionServiceImpl) Stats(ctx context.Context) (*port.MissionStats, error) {
	stats, err := s.missionRepo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("mission stats: %w", err)
	}
	return stats, nil
}

// AddComment attaches a remark to a mission
func (s *missionServiceImpl) AddComment(ctx context.Context, actor workflow.Actor, missionID, text string) (*entity.MissionComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, workflow.NewValidationError("comment", "must not be empty")
	}
	if _, err := s.missionRepo.GetByID(ctx, missionID); err != nil {
		return nil, fmt.Errorf("get mission %s: %w", missionID, err)
	}

	comment := &entity.MissionComment{
		ID:        uuid.NewString(),
		MissionID: missionID,
		UserID:    actor.ID,
		Comment:   text,
		CreatedAt: s.now(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// ListComments returns the comments of a mission, oldest first
func (s *missionServiceImpl) ListComments(ctx context.Context, missionID string) ([]*entity.MissionComment, error) {
	comments, err := s.commentRepo.ListByMissionID(ctx, missionID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}

func (s *missionServiceImpl) ownedMission(ctx context.Context, actor workflow.Actor, id string) (*entity.MissionOrder, error) {
	mission, err := s.missionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get mission %s: %w", id, err)
	}
	if !mission.IsOwnedBy(actor.ID) {
		return nil, fmt.Errorf("%w: mission %s belongs to another agent", workflow.ErrUnauthorized, mission.Reference)
	}
	return mission, nil
}

func (s *missionServiceImpl) checkProject(ctx context.Context, projectID *string) error {
	if projectID == nil {
		return nil
	}
	if _, err := s.projectRepo.GetByID(ctx, *projectID); err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return workflow.NewValidationError("project_id", "unknown project")
		}
		return fmt.Errorf("get project: %w", err)
	}
	return nil
}

func (s *missionServiceImpl) publish(ctx context.Context, typ event.Type, mission *entity.MissionOrder, actor workflow.Actor) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(typ, mission.ID, mission.Reference, map[string]interface{}{
		event.KeyActorID: actor.ID,
		event.KeyAgentID: mission.AgentID,
		event.KeyTitle:   mission.Title,
		event.KeyAmount:  mission.EstimatedAmount,
	}))
}

func applyInput(m *entity.MissionOrder, in MissionInput) {
	m.Title = strings.TrimSpace(in.Title)
	m.Description = strings.TrimSpace(in.Description)
	m.Destination = strings.TrimSpace(in.Destination)
	m.StartDate = in.StartDate
	m.EndDate = in.EndDate
	m.ProjectID = nil
	if p := strings.TrimSpace(in.ProjectID); p != "" {
		m.ProjectID = &p
	}
}

// participants puts the owner first as primary, then distinct extra agents
func participants(m *entity.MissionOrder, extra []string, now time.Time) []*entity.MissionParticipant {
	seen := map[string]bool{m.AgentID: true}
	out := []*entity.MissionParticipant{{
		ID:        uuid.NewString(),
		MissionID: m.ID,
		AgentID:   m.AgentID,
		IsPrimary: true,
		CreatedAt: now,
	}}
	for _, id := range extra {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, &entity.MissionParticipant{
			ID:        uuid.NewString(),
			MissionID: m.ID,
			AgentID:   id,
			CreatedAt: now,
		})
	}
	return out
}
