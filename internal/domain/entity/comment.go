package entity

import "time"

// MissionComment is a free-text remark attached to a mission
type MissionComment struct {
	ID        string    `json:"id"`
	MissionID string    `json:"mission_id"`
	UserID    string    `json:"user_id"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
