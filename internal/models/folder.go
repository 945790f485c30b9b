package models

// Folder groups documents. Names are unique within a barangay.
type Folder struct {
	BaseModel

	TenantID    string `gorm:"size:36;not null;uniqueIndex:idx_folders_tenant_name" json:"tenantId"`
	Name        string `gorm:"size:255;not null;uniqueIndex:idx_folders_tenant_name" json:"name"`
	Description string `gorm:"size:1024" json:"description"`
	CreatedBy   string `gorm:"size:36" json:"createdBy"`
}
