package models

import "time"

// Resident is an entry in a barangay's resident registry.
type Resident struct {
	TenantModel

	ResidentNumber string     `gorm:"size:32;not null;index" json:"residentNumber"`
	FirstName      string     `gorm:"size:128;not null" json:"firstName"`
	MiddleName     string     `gorm:"size:128" json:"middleName"`
	LastName       string     `gorm:"size:128;not null;index" json:"lastName"`
	Suffix         string     `gorm:"size:16" json:"suffix"`
	BirthDate      *time.Time `json:"birthDate"`
	Gender         string     `gorm:"size:16" json:"gender"`
	CivilStatus    string     `gorm:"size:32" json:"civilStatus"`
	Address        string     `gorm:"size:512" json:"address"`
	Purok          string     `gorm:"size:64;index" json:"purok"`
	ContactNumber  string     `gorm:"size:64" json:"contactNumber"`
	Occupation     string     `gorm:"size:128" json:"occupation"`
	IsVoter        bool       `gorm:"not null;default:false" json:"isVoter"`
	Status         string     `gorm:"size:32;not null;default:active" json:"status"`
}

// FullName joins the name parts, skipping empty ones.
func (r *Resident) FullName() string {
	name := r.FirstName
	for _, part := range []string{r.MiddleName, r.LastName, r.Suffix} {
		if part != "" {
			name += " " + part
		}
	}
	return name
}
