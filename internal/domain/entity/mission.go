package entity

import (
	"math"
	"strings"
	"time"

	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// MissionOrder is a travel and expense authorization request
type MissionOrder struct {
	ID              string         `json:"id"`
	Reference       string         `json:"reference"`
	AgentID         string         `json:"agent_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description,omitempty"`
	Destination     string         `json:"destination"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         time.Time      `json:"end_date"`
	EstimatedAmount float64        `json:"estimated_amount"`
	ActualAmount    *float64       `json:"actual_amount,omitempty"`
	Status          workflow.State `json:"status"`
	RejectionReason string         `json:"rejection_reason,omitempty"`
	ProjectID       *string        `json:"project_id,omitempty"`
	PaymentMethod   string         `json:"payment_method,omitempty"`
	PaymentProofURL string         `json:"payment_proof_url,omitempty"`
	PaymentDate     *time.Time     `json:"payment_date,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Validate checks the field invariants of a mission order
func (m *MissionOrder) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return workflow.NewValidationError("title", "is required")
	}
	if strings.TrimSpace(m.Destination) == "" {
		return workflow.NewValidationError("destination", "is required")
	}
	if m.StartDate.IsZero() || m.EndDate.IsZero() {
		return workflow.NewValidationError("dates", "start and end dates are required")
	}
	if m.StartDate.After(m.EndDate) {
		return workflow.NewValidationError("end_date", "must not be before start_date")
	}
	if math.IsNaN(m.EstimatedAmount) || math.IsInf(m.EstimatedAmount, 0) {
		return workflow.NewValidationError("estimated_amount", "must be a finite amount")
	}
	if m.EstimatedAmount < 0 {
		return workflow.NewValidationError("estimated_amount", "must not be negative")
	}
	if !m.Status.IsValid() {
		return workflow.NewValidationError("status", "unknown status "+string(m.Status))
	}
	if (m.Status == workflow.StateRejected) != (m.RejectionReason != "") {
		return workflow.NewValidationError("rejection_reason", "must be set only on rejected missions")
	}
	return nil
}

// IsOwnedBy reports whether userID created the mission
func (m *MissionOrder) IsOwnedBy(userID string) bool {
	return userID != "" && m.AgentID == userID
}

// IsEditable reports whether the mission fields may still change
func (m *MissionOrder) IsEditable() bool {
	return m.Status == workflow.StateDraft
}

// DurationDays is the inclusive number of days covered by the mission
func (m *MissionOrder) DurationDays() int {
	if m.EndDate.Before(m.StartDate) {
		return 0
	}
	start := m.StartDate.Truncate(24 * time.Hour)
	end := m.EndDate.Truncate(24 * time.Hour)
	return int(end.Sub(start).Hours()/24) + 1
}
