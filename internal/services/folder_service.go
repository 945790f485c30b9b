package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

var errFolderNameTaken = apperrors.NewConflict("A folder with this name already exists")

// FolderInput carries the editable folder fields.
type FolderInput struct {
	Name        string  `json:"name" validate:"required,notblank,max=255"`
	Description string  `json:"description" validate:"omitempty,max=1024"`
	TenantID    *string `json:"tenantId"`
}

func (in FolderInput) normalised() (FolderInput, error) {
	out := in
	out.Name = strings.TrimSpace(out.Name)
	out.Description = strings.TrimSpace(out.Description)
	if out.Name == "" {
		return out, apperrors.NewBadRequest("name is required")
	}
	return out, nil
}

// FolderService groups documents. Folders carry no sequence number.
type FolderService struct {
	recordBase
	store scopedStore[models.Folder]
}

// NewFolderService constructs a FolderService.
func NewFolderService(db *gorm.DB, activity *ActivityService, opts ...RecordOption) (*FolderService, error) {
	if db == nil {
		return nil, errors.New("folder service: db is required")
	}
	return &FolderService{
		recordBase: newRecordBase(db, activity, nil, opts),
		store:      scopedStore[models.Folder]{db: db},
	}, nil
}

// List returns folders in scope ordered by name.
func (s *FolderService) List(ctx context.Context, identity auth.Identity, opts ListOptions) ([]models.Folder, int64, error) {
	return s.store.list(ensureContext(ctx), identity, opts, "name ASC", searchColumns(opts.Search, "name", "description"))
}

// Get returns one folder in scope.
func (s *FolderService) Get(ctx context.Context, identity auth.Identity, id string) (*models.Folder, error) {
	return s.store.get(ensureContext(ctx), identity, id)
}

// Create adds a folder. Names are unique within a tenant.
func (s *FolderService) Create(ctx context.Context, identity auth.Identity, input FolderInput) (*models.Folder, error) {
	ctx = ensureContext(ctx)
	input, err := input.normalised()
	if err != nil {
		return nil, err
	}
	tenantID, err := s.creationTenant(ctx, identity, input.TenantID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	folder := &models.Folder{
		BaseModel:   models.BaseModel{CreatedAt: now, UpdatedAt: now},
		TenantID:    tenantID,
		Name:        input.Name,
		Description: input.Description,
		CreatedBy:   identity.AccountID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(folder).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errFolderNameTaken
			}
			return storageError(err)
		}
		return s.record(ctx, tx, identity, ActivityEntry{
			Action:     ActionCreate,
			Resource:   "folder",
			ResourceID: folder.ID,
			TenantID:   &tenantID,
			Details:    map[string]any{"name": folder.Name},
		})
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// Update renames or re-describes a folder.
func (s *FolderService) Update(ctx context.Context, identity auth.Identity, id string, input FolderInput) (*models.Folder, error) {
	ctx = ensureContext(ctx)
	input, err := input.normalised()
	if err != nil {
		return nil, err
	}

	err = s.mutate(ctx, identity, &models.Folder{}, id, ActivityEntry{Action: ActionUpdate, Resource: "folder"}, func(tx *gorm.DB) error {
		err := tx.Model(&models.Folder{}).Where("id = ?", id).Updates(map[string]any{
			"name":        input.Name,
			"description": input.Description,
		}).Error
		if isUniqueConstraintError(err) {
			return errFolderNameTaken
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.store.get(ctx, identity, id)
}

// Delete removes an empty folder.
func (s *FolderService) Delete(ctx context.Context, identity auth.Identity, id string) error {
	return s.mutate(ensureContext(ctx), identity, &models.Folder{}, id, ActivityEntry{Action: ActionDelete, Resource: "folder"}, func(tx *gorm.DB) error {
		var documents int64
		if err := tx.Model(&models.Document{}).Where("folder_id = ?", id).Count(&documents).Error; err != nil {
			return err
		}
		if documents > 0 {
			return apperrors.NewConflict("Folder is not empty")
		}
		return tx.Where("id = ?", id).Delete(&models.Folder{}).Error
	})
}

// folderInTenant rejects references to folders outside tenantID the same way as
// references to folders that do not exist.
func folderInTenant(ctx context.Context, db *gorm.DB, folderID *string, tenantID string) error {
	if folderID == nil {
		return nil
	}
	var count int64
	err := db.WithContext(ctx).Model(&models.Folder{}).
		Where("id = ? AND tenant_id = ?", *folderID, tenantID).
		Count(&count).Error
	if err != nil {
		return storageError(err)
	}
	if count == 0 {
		return apperrors.ErrNotFound.WithMessage("Folder not found")
	}
	return nil
}
