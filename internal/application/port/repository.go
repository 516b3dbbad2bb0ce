package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/mission-orders/internal/domain/entity"
	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// ErrNotFound is returned by repositories when no row matches
var ErrNotFound = errors.New("not found")

// MissionFilter narrows mission listings
type MissionFilter struct {
	// Status is "", "all", "pending" (any approval stage) or a single status
	Status string
	// Query matches title, reference or destination case-insensitively
	Query   string
	AgentID string
	Limit   int
	Offset  int
}

// StatusFilterPending selects the three approval stages
const StatusFilterPending = "pending"

// PaymentUpdate carries the fields written when an approved mission is paid
type PaymentUpdate struct {
	ActualAmount float64
	Method       string
	ProofURL     string
	PaidAt       time.Time
}

// MissionStats are dashboard aggregates over all missions
type MissionStats struct {
	Total          int                  `json:"total"`
	Draft          int                  `json:"draft"`
	Pending        int                  `json:"pending"`
	Approved       int                  `json:"approved"`
	Rejected       int                  `json:"rejected"`
	Paid           int                  `json:"paid"`
	TotalEstimated float64              `json:"total_estimated"`
	ByCategory     entity.ExpenseTotals `json:"by_category"`
	Monthly        []MonthlyTotal       `json:"monthly"`
}

// MonthlyTotal is the estimated amount of missions starting in one month
type MonthlyTotal struct {
	Month  string  `json:"month"`
	Count  int     `json:"count"`
	Amount float64 `json:"amount"`
}

// MissionRepository defines persistence operations for MissionOrder.
// Every state-changing write is conditioned on the status the caller read and
// returns workflow.ErrConflict when the row no longer has that status.
type MissionRepository interface {
	Create(ctx context.Context, mission *entity.MissionOrder) error
	GetByID(ctx context.Context, id string) (*entity.MissionOrder, error)
	GetByReference(ctx context.Context, reference string) (*entity.MissionOrder, error)

	// UpdateDraft rewrites the editable fields of a mission still in draft
	UpdateDraft(ctx context.Context, mission *entity.MissionOrder) error

	// UpdateStatus moves a mission from one status to another. reason is stored
	// as rejection_reason and must be empty unless to is rejected.
	UpdateStatus(ctx context.Context, id string, from, to workflow.State, reason string) error

	// MarkPaid moves an approved mission to paid and stores payment metadata
	MarkPaid(ctx context.Context, id string, payment PaymentUpdate) error

	// DeleteDraft removes a mission still in draft along with its dependent rows
	DeleteDraft(ctx context.Context, id string) error

	List(ctx context.Context, filter MissionFilter) ([]*entity.MissionOrder, error)
	Stats(ctx context.Context) (*MissionStats, error)
}

// ExpenseRepository defines persistence operations for MissionExpense
type ExpenseRepository interface {
	Upsert(ctx context.Context, expense *entity.MissionExpense) error
	GetByMissionID(ctx context.Context, missionID string) (*entity.MissionExpense, error)
}

// SignatureRepository is append-only: signatures are never updated or deleted
type SignatureRepository interface {
	Create(ctx context.Context, signature *entity.MissionSignature) error
	// ListByMissionID returns signatures ordered by signed_at ascending
	ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionSignature, error)
}

// ParticipantRepository defines persistence operations for MissionParticipant
type ParticipantRepository interface {
	// Replace swaps the full participant list of a mission
	Replace(ctx context.Context, missionID string, participants []*entity.MissionParticipant) error
	ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionParticipant, error)
}

// CommentRepository defines persistence operations for MissionComment
type CommentRepository interface {
	Create(ctx context.Context, comment *entity.MissionComment) error
	ListByMissionID(ctx context.Context, missionID string) ([]*entity.MissionComment, error)
}

// ProjectRepository defines persistence operations for Project
type ProjectRepository interface {
	Create(ctx context.Context, project *entity.Project) error
	GetByID(ctx context.Context, id string) (*entity.Project, error)
	List(ctx context.Context) ([]*entity.Project, error)
	// AddSpent increases the spent budget of a project
	AddSpent(ctx context.Context, id string, amount float64) error
}

// UserRepository defines persistence operations for User
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// UpdateProfile returns ErrNotFound when the user does not exist
	UpdateProfile(ctx context.Context, id string, profile ProfileUpdate) error
}

// ProfileUpdate holds the self-editable fields of a user profile
type ProfileUpdate struct {
	FullName   string
	Phone      string
	Department string
}

// RoleRepository is the identity and role provider. Lookups are authoritative
// and must not be cached across authorization decisions.
type RoleRepository interface {
	RolesFor(ctx context.Context, userID string) (workflow.RoleSet, error)
	Assign(ctx context.Context, userID string, role workflow.Role) error
	Revoke(ctx context.Context, userID string, role workflow.Role) error
	UsersWithRole(ctx context.Context, role workflow.Role) ([]string, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	ListByUserID(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
