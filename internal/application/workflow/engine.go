package workflow

import (
	"context"

	"github.com/garyjia/mission-orders/internal/domain/entity"
	domainwf "github.com/garyjia/mission-orders/internal/domain/workflow"
)

// ActionInput carries the optional fields of an approve or reject action
type ActionInput struct {
	// Comment is optional on approval and mandatory on rejection
	Comment string
	// ExpectedStatus, when set, is the status the caller last saw.
	// A mismatch fails with ErrConflict instead of acting on stale state.
	ExpectedStatus domainwf.State
}

// PaymentInput records how an approved mission was paid
type PaymentInput struct {
	ActualAmount float64
	Method       string
	ProofURL     string
}

// WorkflowEngine drives mission orders through the approval chain.
// The acting user is always passed explicitly; the engine keeps no session state.
type WorkflowEngine interface {
	// Submit moves an owner's draft into the first approval stage
	Submit(ctx context.Context, missionID string, actor domainwf.Actor) (*entity.MissionOrder, error)

	// Approve signs the current stage and advances to the next one
	Approve(ctx context.Context, missionID string, actor domainwf.Actor, in ActionInput) (*entity.MissionOrder, error)

	// Reject signs the current stage and terminates the workflow
	Reject(ctx context.Context, missionID string, actor domainwf.Actor, in ActionInput) (*entity.MissionOrder, error)

	// MarkPaid records payment of an approved mission
	MarkPaid(ctx context.Context, missionID string, actor domainwf.Actor, in PaymentInput) (*entity.MissionOrder, error)

	// CanAct reports whether actor may approve or reject the mission now
	CanAct(mission *entity.MissionOrder, actor domainwf.Actor) bool

	// AvailableActions lists the triggers actor may fire on the mission
	AvailableActions(mission *entity.MissionOrder, actor domainwf.Actor) []domainwf.Trigger

	// History returns the signatures of a mission in signing order
	History(ctx context.Context, missionID string) ([]*entity.MissionSignature, error)
}
