package models

import "time"

// FirstAccountClaimID is the only primary key a BootstrapClaim may hold; the primary-key
// constraint allows exactly one superadmin bootstrap.
const FirstAccountClaimID = "first_account"

// BootstrapClaim is written in the same transaction as the bootstrap superadmin.
type BootstrapClaim struct {
	ID        string    `gorm:"primaryKey;size:32"`
	AccountID string    `gorm:"size:36;not null"`
	CreatedAt time.Time
}
