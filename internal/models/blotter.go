package models

import "time"

// Blotter statuses.
const (
	BlotterStatusOpen           = "open"
	BlotterStatusUnderMediation = "under_mediation"
	BlotterStatusSettled        = "settled"
	BlotterStatusEscalated      = "escalated"
	BlotterStatusClosed         = "closed"
)

// BlotterEntry records an incident reported to the barangay.
type BlotterEntry struct {
	TenantModel

	CaseNumber   string    `gorm:"size:32;not null;index" json:"caseNumber"`
	IncidentType string    `gorm:"size:128;not null" json:"incidentType"`
	IncidentDate time.Time `gorm:"not null;index" json:"incidentDate"`
	Location     string    `gorm:"size:512" json:"location"`
	Complainant  string    `gorm:"size:255;not null" json:"complainant"`
	Respondent   string    `gorm:"size:255" json:"respondent"`
	Narrative    string    `gorm:"type:text" json:"narrative"`
	Status       string    `gorm:"size:32;not null;default:open;index" json:"status"`
	RecordedBy   string    `gorm:"size:36" json:"recordedBy"`
}

// TableName keeps the historical table name.
func (BlotterEntry) TableName() string { return "blotter_entries" }
