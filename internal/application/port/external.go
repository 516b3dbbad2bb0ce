package port

import (
	"context"
	"time"

	"github.com/garyjia/mission-orders/internal/domain/entity"
)

// ReferenceGenerator produces unique human-readable mission references
type ReferenceGenerator interface {
	Generate(ctx context.Context, createdAt time.Time) (string, error)
}

// MissionDocument is everything a rendered mission order shows
type MissionDocument struct {
	Mission      *entity.MissionOrder
	Expense      *entity.MissionExpense
	Participants []*entity.MissionParticipant
	Signatures   []*entity.MissionSignature
	Project      *entity.Project
	// Names maps user ids to display names
	Names map[string]string
}

// DocumentRenderer turns a mission into a printable document
type DocumentRenderer interface {
	Render(ctx context.Context, doc *MissionDocument) ([]byte, error)
	ContentType() string
	FileExtension() string
}

// Recipient identifies the target of an external notification
type Recipient struct {
	UserID     string
	LarkOpenID string
}

// Notifier forwards a notification to an external messaging system
type Notifier interface {
	Notify(ctx context.Context, to Recipient, title, message string) error
}
