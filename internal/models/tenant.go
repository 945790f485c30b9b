package models

import "strings"

// PlaceholderValue marks tenant fields awaiting setup by the barangay captain.
const PlaceholderValue = "To be configured"

// Tenant is one barangay. All operational records are partitioned by it.
type Tenant struct {
	BaseModel

	Name          string `gorm:"size:255;not null" json:"name"`
	Municipality  string `gorm:"size:255" json:"municipality"`
	Province      string `gorm:"size:255" json:"province"`
	Region        string `gorm:"size:255" json:"region"`
	Address       string `gorm:"size:512" json:"address"`
	ContactNumber string `gorm:"size:64" json:"contactNumber"`
	Email         string `gorm:"size:320" json:"email"`
	CaptainName   string `gorm:"size:255" json:"captainName"`
}

// IsConfigured reports whether the placeholder location fields have been replaced.
func (t *Tenant) IsConfigured() bool {
	if t == nil {
		return false
	}
	for _, field := range []string{t.Municipality, t.Province} {
		value := strings.TrimSpace(field)
		if value == "" || strings.EqualFold(value, PlaceholderValue) {
			return false
		}
	}
	return true
}
