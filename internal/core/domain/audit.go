package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction names an administrative operation recorded in the audit trail.
type AuditAction string

const (
	AuditActionAdjustBalance    AuditAction = "ADJUST_BALANCE"
	AuditActionProvisionWallets AuditAction = "PROVISION_WALLETS"
)

// AuditLog is one entry of the administrative audit trail. It sits next to
// the transaction log: ledger entries record balance effects, audit entries
// record who called which endpoint.
type AuditLog struct {
	ID           uuid.UUID   `json:"id"`
	ActorID      *uuid.UUID  `json:"actor_id,omitempty"`
	Action       AuditAction `json:"action"`
	ResourceType string      `json:"resource_type"`
	ResourceID   string      `json:"resource_id,omitempty"`
	Details      string      `json:"details,omitempty"` // JSON string
	IPAddress    string      `json:"ip_address"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewAuditLog stamps a new entry for actor. A nil actor is recorded as
// anonymous.
func NewAuditLog(actor *Actor, action AuditAction, resourceType, resourceID string) *AuditLog {
	entry := &AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now().UTC(),
	}
	if actor != nil {
		id := actor.ID
		entry.ActorID = &id
	}
	return entry
}
