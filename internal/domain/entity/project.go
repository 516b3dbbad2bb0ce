package entity

import "time"

// Project statuses
const (
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
	ProjectStatusSuspended = "suspended"
)

// Budget usage levels
const (
	BudgetLevelOK       = "ok"
	BudgetLevelWarning  = "warning"
	BudgetLevelCritical = "critical"
)

// Project carries the budget a mission may be charged to
type Project struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	TotalBudget float64    `json:"total_budget"`
	SpentBudget float64    `json:"spent_budget"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UsagePercent returns spent over total as a percentage, 0 when there is no budget
func (p *Project) UsagePercent() float64 {
	if p.TotalBudget <= 0 {
		return 0
	}
	return p.SpentBudget / p.TotalBudget * 100
}

// Remaining returns the unspent budget
func (p *Project) Remaining() float64 {
	return p.TotalBudget - p.SpentBudget
}

// BudgetLevel classifies usage: critical from 90%, warning from 70%
func (p *Project) BudgetLevel() string {
	usage := p.UsagePercent()
	switch {
	case usage >= 90:
		return BudgetLevelCritical
	case usage >= 70:
		return BudgetLevelWarning
	default:
		return BudgetLevelOK
	}
}
