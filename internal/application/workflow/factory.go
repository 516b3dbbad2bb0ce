package workflow

import (
	"context"

	"github.com/garyjia/mission-orders/internal/domain/entity"
	domainwf "github.com/garyjia/mission-orders/internal/domain/workflow"
)

// BuildMissionStateMachine creates the lifecycle machine of mission as seen by actor.
// The approval stages come from domainwf.Chain. Guards limit submit and delete to
// the owner, approve and reject to the stage role, and payment to finance or admin.
func BuildMissionStateMachine(mission *entity.MissionOrder, actor domainwf.Actor) domainwf.StateMachine {
	isOwner := func(context.Context) bool { return mission.IsOwnedBy(actor.ID) }
	canPay := func(context.Context) bool {
		return actor.Roles.HasAny(domainwf.RoleFinance, domainwf.RoleAdmin)
	}

	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		PermitIf(domainwf.TriggerSubmit, domainwf.Chain[0].Status, isOwner).
		PermitReentryIf(domainwf.TriggerDelete, isOwner)

	for _, stage := range domainwf.Chain {
		next, _ := domainwf.NextStatus(stage.Status)
		holdsRole := func(context.Context) bool { return domainwf.CanAct(stage.Status, actor.Roles) }
		builder.Configure(stage.Status).
			PermitIf(domainwf.TriggerApprove, next, holdsRole).
			PermitIf(domainwf.TriggerReject, domainwf.StateRejected, holdsRole)
	}

	builder.Configure(domainwf.StateApproved).
		PermitIf(domainwf.TriggerMarkPaid, domainwf.StatePaid, canPay)

	// REJECTED and PAID are terminal states - no outgoing transitions

	return builder.Build(mission.Status)
}
