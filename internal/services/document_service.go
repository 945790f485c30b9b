package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/storage"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
)

// DownloadURL is the tenant-guarded route that streams a document's bytes.
func DownloadURL(documentID string) string {
	return "/api/documents/" + documentID + "/download"
}

// UploadInput describes a document upload.
type UploadInput struct {
	Title       string
	Description string
	FolderID    *string
	FileName    string
	ContentType string
	Body        io.Reader
	TenantID    *string
}

// DocumentInput carries the editable document metadata.
type DocumentInput struct {
	Title       string  `json:"title" validate:"required,notblank,max=255"`
	Description string  `json:"description" validate:"omitempty,max=1024"`
	FolderID    *string `json:"folderId"`
}

// DocumentFilters narrows document listings.
type DocumentFilters struct {
	ListOptions
	FolderID string
}

// DocumentService stores uploaded files and their metadata.
type DocumentService struct {
	recordBase
	store   scopedStore[models.Document]
	objects storage.ObjectStore
}

// NewDocumentService constructs a DocumentService.
func NewDocumentService(db *gorm.DB, objects storage.ObjectStore, activity *ActivityService, numbers *Numberer, opts ...RecordOption) (*DocumentService, error) {
	if db == nil {
		return nil, errors.New("document service: db is required")
	}
	if objects == nil {
		return nil, errors.New("document service: object store is required")
	}
	return &DocumentService{
		recordBase: newRecordBase(db, activity, numbers, opts),
		store:      scopedStore[models.Document]{db: db},
		objects:    objects,
	}, nil
}

// List returns documents in scope, newest first.
func (s *DocumentService) List(ctx context.Context, identity auth.Identity, filters DocumentFilters) ([]models.Document, int64, error) {
	return s.store.list(ensureContext(ctx), identity, filters.ListOptions, "created_at DESC", func(query *gorm.DB) *gorm.DB {
		query = searchColumns(filters.Search, "title", "document_number", "file_name")(query)
		switch folder := strings.TrimSpace(filters.FolderID); folder {
		case "":
		case "root":
			query = query.Where("folder_id IS NULL")
		default:
			query = query.Where("folder_id = ?", folder)
		}
		return query
	})
}

// Get returns one document in scope.
func (s *DocumentService) Get(ctx context.Context, identity auth.Identity, id string) (*models.Document, error) {
	return s.store.get(ensureContext(ctx), identity, id)
}

// Open returns the document and a reader for its stored bytes.
func (s *DocumentService) Open(ctx context.Context, identity auth.Identity, id string) (*models.Document, io.ReadCloser, error) {
	ctx = ensureContext(ctx)
	doc, err := s.store.get(ctx, identity, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.objects.Open(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, apperrors.Backend(err)
	}
	return doc, rc, nil
}

// Upload stores the file and records the document with its DOC number. The stored object
// is removed again when the record cannot be written.
func (s *DocumentService) Upload(ctx context.Context, identity auth.Identity, input UploadInput) (*models.Document, error) {
	ctx = ensureContext(ctx)
	title := strings.TrimSpace(input.Title)
	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" || input.Body == nil {
		return nil, apperrors.NewBadRequest("A file is required")
	}
	if title == "" {
		title = fileName
	}
	folderID := trimmedPtr(input.FolderID)

	tenantID, err := s.creationTenant(ctx, identity, input.TenantID)
	if err != nil {
		return nil, err
	}
	if err := folderInTenant(ctx, s.db, folderID, tenantID); err != nil {
		return nil, err
	}

	now := s.now()
	object, err := s.objects.Upload(ctx, storage.ObjectPath(tenantID, folderID, now, fileName), input.Body)
	if err != nil {
		return nil, apperrors.Backend(err)
	}

	id := uuid.NewString()
	doc := &models.Document{
		TenantModel: tenantModel(tenantID, now),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		FolderID:    folderID,
		FileName:    storage.SanitizeFilename(fileName),
		ContentType: strings.TrimSpace(input.ContentType),
		Size:        object.Size,
		StoragePath: object.Path,
		URL:         DownloadURL(id),
		UploadedBy:  identity.AccountID,
	}
	doc.ID = id

	err = s.createNumbered(ctx, identity, tenantID, DocDocument, "document", doc,
		func(number string) { doc.DocumentNumber = number },
		func() string { return doc.ID },
	)
	if err != nil {
		s.discard(object.Path)
		return nil, err
	}
	return doc, nil
}

// Update changes a document's title, description or folder. The stored object stays put.
func (s *DocumentService) Update(ctx context.Context, identity auth.Identity, id string, input DocumentInput) (*models.Document, error) {
	ctx = ensureContext(ctx)
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	folderID := trimmedPtr(input.FolderID)

	err := s.mutate(ctx, identity, &models.Document{}, id, ActivityEntry{Action: ActionUpdate, Resource: "document"}, func(tx *gorm.DB) error {
		var current models.Document
		if err := tx.Select("id", "tenant_id").Where("id = ?", id).Take(&current).Error; err != nil {
			return err
		}
		if err := folderInTenant(ctx, tx, folderID, current.TenantID); err != nil {
			return err
		}
		return tx.Model(&models.Document{}).Where("id = ?", id).Updates(map[string]any{
			"title":       title,
			"description": strings.TrimSpace(input.Description),
			"folder_id":   folderID,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.store.get(ctx, identity, id)
}

// Delete removes the document record and then its stored object.
func (s *DocumentService) Delete(ctx context.Context, identity auth.Identity, id string) error {
	ctx = ensureContext(ctx)
	var storagePath string
	err := s.mutate(ctx, identity, &models.Document{}, id, ActivityEntry{Action: ActionDelete, Resource: "document"}, func(tx *gorm.DB) error {
		var current models.Document
		if err := tx.Select("id", "storage_path").Where("id = ?", id).Take(&current).Error; err != nil {
			return err
		}
		storagePath = current.StoragePath
		return tx.Where("id = ?", id).Delete(&models.Document{}).Error
	})
	if err != nil {
		return err
	}
	if err := s.objects.Remove(ctx, storagePath); err != nil {
		logger.WithModule("documents").Warn("stored object not removed",
			zap.String("document_id", id),
			zap.String("path", storagePath),
			zap.Error(err),
		)
	}
	return nil
}

func (s *DocumentService) discard(path string) {
	if err := s.objects.Remove(context.Background(), path); err != nil {
		logger.WithModule("documents").Warn("orphaned upload not removed", zap.String("path", path), zap.Error(err))
	}
}
