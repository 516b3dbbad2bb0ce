package entity

import "time"

// MissionParticipant links an agent to a mission. The owner is the primary participant.
type MissionParticipant struct {
	ID        string    `json:"id"`
	MissionID string    `json:"mission_id"`
	AgentID   string    `json:"agent_id"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}
