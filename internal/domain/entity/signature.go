package entity

import (
	"time"

	"github.com/garyjia/mission-orders/internal/domain/workflow"
)

// MissionSignature records one approve or reject decision. Rows are never updated or deleted.
type MissionSignature struct {
	ID         string                   `json:"id"`
	MissionID  string                   `json:"mission_id"`
	SignerID   string                   `json:"signer_id"`
	SignerRole workflow.Role            `json:"signer_role"`
	Action     workflow.SignatureAction `json:"action"`
	Comment    string                   `json:"comment,omitempty"`
	SignedAt   time.Time                `json:"signed_at"`
}
