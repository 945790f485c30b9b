package models

import (
	"time"

	"github.com/charlesng35/barangay/internal/permissions"
)

// Invitation grants one email the right to create one account of Role in TenantID.
// ActiveCode mirrors Code while the invitation is unaccepted and is cleared on acceptance,
// so its unique index only constrains outstanding codes.
type Invitation struct {
	BaseModel

	Email      string           `gorm:"size:320;not null;index" json:"email"`
	Code       string           `gorm:"size:6;not null;index" json:"code"`
	ActiveCode *string          `gorm:"size:6;uniqueIndex" json:"-"`
	Role       permissions.Role `gorm:"size:32;not null" json:"role"`
	TenantID   *string          `gorm:"size:36;index" json:"tenantId"`
	InvitedBy  string           `gorm:"size:36;not null;index" json:"-"`
	ExpiresAt  time.Time        `gorm:"not null;index" json:"expiresAt"`
	Accepted   bool             `gorm:"not null;default:false" json:"accepted"`
	AcceptedAt *time.Time       `json:"acceptedAt"`
	AcceptedBy *string          `gorm:"size:36" json:"acceptedBy,omitempty"`
}

// IsExpired reports whether the invitation can no longer be used at now.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Status classifies the invitation for listings.
func (i *Invitation) Status(now time.Time) string {
	switch {
	case i.Accepted:
		return "accepted"
	case i.IsExpired(now):
		return "expired"
	default:
		return "pending"
	}
}
