package entity

import "time"

// Notification types
const (
	NotificationTypeActionRequired = "action_required"
	NotificationTypeApproved       = "approved"
	NotificationTypeRejected       = "rejected"
	NotificationTypePaid           = "paid"
	NotificationTypeInfo           = "info"
)

// Notification is an in-app message for one user
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MissionID string    `json:"mission_id,omitempty"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
