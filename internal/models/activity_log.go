package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ActivityLog records a change made by an account. Superadmin actions outside any
// barangay carry no tenant.
type ActivityLog struct {
	ID         string            `gorm:"primaryKey;size:36" json:"id"`
	TenantID   *string           `gorm:"size:36;index" json:"tenantId"`
	ActorID    string            `gorm:"size:36;index" json:"actorId"`
	ActorEmail string            `gorm:"size:320" json:"actorEmail"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	Resource   string            `gorm:"size:64;index" json:"resource"`
	ResourceID string            `gorm:"size:36" json:"resourceId"`
	Details    datatypes.JSONMap `json:"details"`
	CreatedAt  time.Time         `gorm:"index" json:"createdAt"`
}

func (a *ActivityLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
