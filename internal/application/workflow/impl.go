package workflow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/mission-orders/internal/application/dispatcher"
	"github.com/garyjia/mission-orders/internal/application/port"
	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/event"
	domainwf "github.com/garyjia/mission-orders/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	missionRepo   port.MissionRepository
	signatureRepo port.SignatureRepository
	projectRepo   port.ProjectRepository
	txManager     port.TransactionManager
	dispatcher    dispatcher.Dispatcher
	locks         *MissionLocks
	logger        Logger
	now           func() time.Time
	newID         func() string
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithMissionLocks serializes actions on the same mission inside this process.
// Needed only when the mission repository cannot condition writes on status.
func WithMissionLocks(locks *MissionLocks) EngineOption {
	return func(e *engineImpl) {
		e.locks = locks
	}
}

// WithLogger sets the engine logger
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// WithClock overrides the time source used for signatures
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	missionRepo port.MissionRepository,
	signatureRepo port.SignatureRepository,
	projectRepo port.ProjectRepository,
	txManager port.TransactionManager,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		missionRepo:   missionRepo,
		signatureRepo: signatureRepo,
		projectRepo:   projectRepo,
		txManager:     txManager,
		now:           func() time.Time { return time.Now().UTC() },
		newID:         uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit moves an owner's draft into the first approval stage
func (e *engineImpl) Submit(ctx context.Context, missionID string, actor domainwf.Actor) (*entity.MissionOrder, error) {
	defer e.lock(missionID)()

	mission, err := e.load(ctx, missionID)
	if err != nil {
		return nil, err
	}
	to, err := BuildMissionStateMachine(mission, actor).Target(ctx, domainwf.TriggerSubmit)
	if err != nil {
		return nil, fmt.Errorf("submit mission %s: %w", mission.Reference, err)
	}

	if err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return e.missionRepo.UpdateStatus(txCtx, missionID, mission.Status, to, "")
	}); err != nil {
		e.logError("Submit failed", mission, err)
		return nil, fmt.Errorf("failed to submit mission: %w", err)
	}

	updated := e.advance(mission, to, "")
	e.logInfo("Mission submitted", updated, actor)
	e.emit(ctx, event.TypeMissionSubmitted, updated, mission.Status, actor, nil)

	return updated, nil
}

// Approve signs the current stage and advances to the next one
func (e *engineImpl) Approve(ctx context.Context, missionID string, actor domainwf.Actor, in ActionInput) (*entity.MissionOrder, error) {
	return e.decide(ctx, missionID, actor, domainwf.TriggerApprove, in)
}

// Reject signs the current stage and terminates the workflow
func (e *engineImpl) Reject(ctx context.Context, missionID string, actor domainwf.Actor, in ActionInput) (*entity.MissionOrder, error) {
	return e.decide(ctx, missionID, actor, domainwf.TriggerReject, in)
}

// decide runs read, decide and a conditioned write for approve and reject
func (e *engineImpl) decide(ctx context.Context, missionID string, actor domainwf.Actor, trigger domainwf.Trigger, in ActionInput) (*entity.MissionOrder, error) {
	defer e.lock(missionID)()

	mission, err := e.load(ctx, missionID)
	if err != nil {
		return nil, err
	}
	if in.ExpectedStatus != "" && in.ExpectedStatus != mission.Status {
		return nil, fmt.Errorf("%w: expected status %s, mission is %s", domainwf.ErrConflict, in.ExpectedStatus, mission.Status)
	}

	decision, err := domainwf.Decide(mission.Status, trigger, actor.Roles)
	if err != nil {
		return nil, err
	}

	comment := strings.TrimSpace(in.Comment)
	reason := ""
	if decision.Action == domainwf.ActionRejected {
		if comment, err = domainwf.RequireComment(in.Comment); err != nil {
			return nil, err
		}
		reason = comment
	}

	signature := &entity.MissionSignature{
		ID:         e.newID(),
		MissionID:  missionID,
		SignerID:   actor.ID,
		SignerRole: decision.SignerRole,
		Action:     decision.Action,
		Comment:    comment,
		SignedAt:   e.now(),
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.missionRepo.UpdateStatus(txCtx, missionID, decision.From, decision.To, reason); err != nil {
			return fmt.Errorf("failed to update mission status: %w", err)
		}
		if err := e.signatureRepo.Create(txCtx, signature); err != nil {
			return fmt.Errorf("failed to record signature: %w", err)
		}
		return nil
	})
	if err != nil {
		e.logError("Stage decision failed", mission, err)
		return nil, err
	}

	updated := e.advance(mission, decision.To, reason)
	e.logInfo("Stage decided", updated, actor, "action", decision.Action, "signer_role", decision.SignerRole)

	payload := map[string]interface{}{
		event.KeySignerRole: decision.SignerRole.String(),
		event.KeyComment:    comment,
	}
	switch {
	case decision.To == domainwf.StateRejected:
		e.emit(ctx, event.TypeMissionRejected, updated, decision.From, actor, payload)
	case decision.To == domainwf.StateApproved:
		e.emit(ctx, event.TypeMissionApproved, updated, decision.From, actor, payload)
	default:
		e.emit(ctx, event.TypeStageApproved, updated, decision.From, actor, payload)
	}

	return updated, nil
}

// MarkPaid records payment of an approved mission and charges its project
func (e *engineImpl) MarkPaid(ctx context.Context, missionID string, actor domainwf.Actor, in PaymentInput) (*entity.MissionOrder, error) {
	if math.IsNaN(in.ActualAmount) || math.IsInf(in.ActualAmount, 0) || in.ActualAmount < 0 {
		return nil, domainwf.NewValidationError("actual_amount", "must be a non-negative amount")
	}

	defer e.lock(missionID)()

	mission, err := e.load(ctx, missionID)
	if err != nil {
		return nil, err
	}
	to, err := BuildMissionStateMachine(mission, actor).Target(ctx, domainwf.TriggerMarkPaid)
	if err != nil {
		return nil, fmt.Errorf("record payment of mission %s: %w", mission.Reference, err)
	}

	payment := port.PaymentUpdate{
		ActualAmount: in.ActualAmount,
		Method:       strings.TrimSpace(in.Method),
		ProofURL:     strings.TrimSpace(in.ProofURL),
		PaidAt:       e.now(),
	}

	err = e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := e.missionRepo.MarkPaid(txCtx, missionID, payment); err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		if mission.ProjectID != nil && e.projectRepo != nil {
			if err := e.projectRepo.AddSpent(txCtx, *mission.ProjectID, payment.ActualAmount); err != nil {
				return fmt.Errorf("failed to update project budget: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		e.logError("Payment failed", mission, err)
		return nil, err
	}

	updated := e.advance(mission, to, "")
	updated.ActualAmount = &payment.ActualAmount
	updated.PaymentMethod = payment.Method
	updated.PaymentProofURL = payment.ProofURL
	updated.PaymentDate = &payment.PaidAt

	e.logInfo("Mission paid", updated, actor, "amount", payment.ActualAmount)
	e.emit(ctx, event.TypeMissionPaid, updated, mission.Status, actor, map[string]interface{}{
		event.KeyAmount: payment.ActualAmount,
	})

	return updated, nil
}

// CanAct reports whether actor may approve or reject the mission now
func (e *engineImpl) CanAct(mission *entity.MissionOrder, actor domainwf.Actor) bool {
	return mission != nil && domainwf.CanAct(mission.Status, actor.Roles)
}

// AvailableActions lists the triggers actor may fire on the mission
func (e *engineImpl) AvailableActions(mission *entity.MissionOrder, actor domainwf.Actor) []domainwf.Trigger {
	if mission == nil {
		return nil
	}

	machine := BuildMissionStateMachine(mission, actor)
	actions := []domainwf.Trigger{}
	for _, trigger := range machine.PermittedTriggers() {
		if _, err := machine.Target(context.Background(), trigger); err == nil {
			actions = append(actions, trigger)
		}
	}
	return actions
}

// History returns the signatures of a mission in signing order
func (e *engineImpl) History(ctx context.Context, missionID string) ([]*entity.MissionSignature, error) {
	if _, err := e.load(ctx, missionID); err != nil {
		return nil, err
	}
	signatures, err := e.signatureRepo.ListByMissionID(ctx, missionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signatures: %w", err)
	}
	return signatures, nil
}

func (e *engineImpl) load(ctx context.Context, missionID string) (*entity.MissionOrder, error) {
	mission, err := e.missionRepo.GetByID(ctx, missionID)
	if err != nil {
		if errors.Is(err, port.ErrNotFound) {
			return nil, fmt.Errorf("mission %s: %w", missionID, err)
		}
		return nil, fmt.Errorf("failed to fetch mission: %w", err)
	}
	return mission, nil
}

func (e *engineImpl) lock(missionID string) func() {
	if e.locks == nil {
		return func() {}
	}
	return e.locks.Lock(missionID)
}

// advance returns a copy of mission in its new status
func (e *engineImpl) advance(mission *entity.MissionOrder, to domainwf.State, reason string) *entity.MissionOrder {
	updated := *mission
	updated.Status = to
	updated.RejectionReason = reason
	updated.UpdatedAt = e.now()
	return &updated
}

// emit publishes the specific event plus a generic status change
func (e *engineImpl) emit(ctx context.Context, typ event.Type, mission *entity.MissionOrder, from domainwf.State, actor domainwf.Actor, extra map[string]interface{}) {
	if e.dispatcher == nil {
		return
	}

	payload := map[string]interface{}{
		event.KeyFromStatus: from.String(),
		event.KeyToStatus:   mission.Status.String(),
		event.KeyActorID:    actor.ID,
		event.KeyAgentID:    mission.AgentID,
		event.KeyTitle:      mission.Title,
		event.KeyAmount:     mission.EstimatedAmount,
	}
	for k, v := range extra {
		payload[k] = v
	}

	evt := event.NewEvent(typ, mission.ID, mission.Reference, payload)
	e.dispatcher.DispatchAsync(ctx, evt)

	statusEvent := event.NewEventWithCorrelation(event.TypeStatusChanged, mission.ID, mission.Reference, payload, evt.CorrelationID)
	e.dispatcher.DispatchAsync(ctx, statusEvent)
}

func (e *engineImpl) logInfo(msg string, mission *entity.MissionOrder, actor domainwf.Actor, keysAndValues ...interface{}) {
	if e.logger == nil {
		return
	}
	kv := append([]interface{}{
		"mission_id", mission.ID,
		"reference", mission.Reference,
		"status", mission.Status,
		"actor_id", actor.ID,
	}, keysAndValues...)
	e.logger.Info(msg, kv...)
}

func (e *engineImpl) logError(msg string, mission *entity.MissionOrder, err error) {
	if e.logger == nil {
		return
	}
	e.logger.Error(msg,
		"mission_id", mission.ID,
		"reference", mission.Reference,
		"status", mission.Status,
		"error", err,
	)
}
