package models

// Document is an uploaded file kept in object storage.
type Document struct {
	TenantModel

	DocumentNumber string  `gorm:"size:32;not null;index" json:"documentNumber"`
	Title          string  `gorm:"size:255;not null" json:"title"`
	Description    string  `gorm:"size:1024" json:"description"`
	FolderID       *string `gorm:"size:36;index" json:"folderId"`
	FileName       string  `gorm:"size:255;not null" json:"fileName"`
	ContentType    string  `gorm:"size:128" json:"contentType"`
	Size           int64   `json:"size"`
	StoragePath    string  `gorm:"size:1024;not null" json:"storagePath"`
	URL            string  `gorm:"size:2048" json:"url"`
	UploadedBy     string  `gorm:"size:36" json:"uploadedBy"`
}
