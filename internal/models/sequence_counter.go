package models

// SequenceCounter holds the last issued number for one (tenant, scope, year).
type SequenceCounter struct {
	TenantID string `gorm:"primaryKey;size:36"`
	Scope    string `gorm:"primaryKey;size:32"`
	Year     int    `gorm:"primaryKey;autoIncrement:false"`
	Value    int64  `gorm:"not null"`
}
