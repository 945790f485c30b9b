package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/charlesng35/barangay/internal/permissions"
)

// Account metadata keys.
const (
	MetaProvenance   = "provenance"
	MetaSubjectID    = "subjectId"
	MetaPicture      = "picture"
	MetaInvitationID = "invitationId"
)

// Provenance values recorded on new accounts.
const (
	ProvenanceBootstrap  = "bootstrap"
	ProvenanceInvitation = "invitation"
)

// Account is a person signing in through the identity provider. A superadmin never has a
// tenant; every other onboarded account has one.
type Account struct {
	BaseModel

	Email       string            `gorm:"size:320;uniqueIndex;not null" json:"email"`
	Name        string            `gorm:"size:255" json:"name"`
	Role        permissions.Role  `gorm:"size:32;not null;index" json:"role"`
	TenantID    *string           `gorm:"size:36;index" json:"tenantId"`
	IsActive    bool              `gorm:"not null;default:true" json:"isActive"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	LastLoginAt *time.Time        `json:"lastLoginAt"`
}

// IsSuperadmin reports whether the account holds the cross-tenant role.
func (a *Account) IsSuperadmin() bool {
	return a != nil && a.Role == permissions.RoleSuperadmin
}
