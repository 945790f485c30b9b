package models

import "time"

// RateCounter is a fixed-window request counter shared by every server instance.
type RateCounter struct {
	Key       string    `gorm:"column:counter_key;primaryKey;size:191"`
	Count     int64     `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}
