package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel provides shared fields for all persistent models.
type BaseModel struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate ensures UUID identifiers are generated automatically.
func (m *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// TenantModel is embedded by every record partitioned by barangay. TenantID is set once
// at creation and never reassigned.
type TenantModel struct {
	BaseModel
	TenantID string `gorm:"size:36;not null;index" json:"tenantId"`
}
