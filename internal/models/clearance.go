package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Clearance statuses.
const (
	ClearanceStatusPending  = "pending"
	ClearanceStatusApproved = "approved"
	ClearanceStatusReleased = "released"
	ClearanceStatusRejected = "rejected"
)

// Clearance is a certificate issued to a resident of the same barangay.
type Clearance struct {
	TenantModel

	ClearanceNumber string          `gorm:"size:32;not null;index" json:"clearanceNumber"`
	ResidentID      string          `gorm:"size:36;not null;index" json:"residentId"`
	Type            string          `gorm:"size:64;not null" json:"type"`
	Purpose         string          `gorm:"size:512" json:"purpose"`
	Status          string          `gorm:"size:32;not null;default:pending;index" json:"status"`
	Fee             decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"fee"`
	IssuedAt        *time.Time      `json:"issuedAt"`
	ValidUntil      *time.Time      `json:"validUntil"`
	IssuedBy        string          `gorm:"size:36" json:"issuedBy"`
}
