package entity

import (
	"time"

	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// User is a staff member profile
type User struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Email      string    `json:"email"`
	Department string    `json:"department,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	LarkOpenID string    `json:"lark_open_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserRole is one role assignment
type UserRole struct {
	UserID    string        `json:"user_id"`
	Role      workflow.Role `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
}
