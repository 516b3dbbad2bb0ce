package event

// Type identifies the type of domain event
type Type string

const (
	TypeMissionCreated   Type = "mission.created"
	TypeMissionSubmitted Type = "mission.submitted"
	TypeStageApproved    Type = "mission.stage_approved"
	TypeMissionApproved  Type = "mission.approved"
	TypeMissionRejected  Type = "mission.rejected"
	TypeMissionPaid      Type = "mission.paid"
	TypeMissionDeleted   Type = "mission.deleted"
	TypeStatusChanged    Type = "mission.status_changed"
)

// Payload keys shared by publishers and handlers
const (
	KeyFromStatus = "from_status"
	KeyToStatus   = "to_status"
	KeyActorID    = "actor_id"
	KeyAgentID    = "agent_id"
	KeySignerRole = "signer_role"
	KeyComment    = "comment"
	KeyTitle      = "title"
	KeyAmount     = "amount"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeMissionCreated,
		TypeMissionSubmitted,
		TypeStageApproved,
		TypeMissionApproved,
		TypeMissionRejected,
		TypeMissionPaid,
		TypeMissionDeleted,
		TypeStatusChanged:
		return true
	default:
		return false
	}
}
