package api

import (
	"errors"

	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/app"
	"github.com/charlesng35/barangay/internal/services"
	"github.com/charlesng35/barangay/internal/storage"
	"github.com/charlesng35/barangay/pkg/mail"
)

// Services bundles the domain services exposed over HTTP and shared with background jobs.
type Services struct {
	Activity    *services.ActivityService
	Invitations *services.InvitationService
	Accounts    *services.AccountService
	Tenants     *services.TenantService
	Residents   *services.ResidentService
	Clearances  *services.ClearanceService
	Blotter     *services.BlotterService
	Financial   *services.FinancialService
	Folders     *services.FolderService
	Documents   *services.DocumentService
}

// NewServices wires every domain service against one database handle.
func NewServices(db *gorm.DB, objects storage.ObjectStore, mailer mail.Mailer, cfg *app.Config) (*Services, error) {
	if db == nil {
		return nil, errors.New("services: database handle must be provided")
	}
	if objects == nil {
		return nil, errors.New("services: object store must be provided")
	}
	if cfg == nil {
		cfg = &app.Config{}
	}

	activity, err := services.NewActivityService(db)
	if err != nil {
		return nil, err
	}
	invitations, err := services.NewInvitationService(db, mailer, activity,
		services.WithInvitationExpiry(cfg.Invitations.Expiry),
		services.WithMaxCodeAttempts(cfg.Invitations.MaxCodeAttempts),
		services.WithAcceptURL(cfg.Invitations.AcceptURL),
	)
	if err != nil {
		return nil, err
	}
	accounts, err := services.NewAccountService(db, invitations, activity)
	if err != nil {
		return nil, err
	}
	tenants, err := services.NewTenantService(db, activity)
	if err != nil {
		return nil, err
	}

	numbers := services.NewNumberer()
	residents, err := services.NewResidentService(db, activity, numbers)
	if err != nil {
		return nil, err
	}
	clearances, err := services.NewClearanceService(db, activity, numbers)
	if err != nil {
		return nil, err
	}
	blotter, err := services.NewBlotterService(db, activity, numbers)
	if err != nil {
		return nil, err
	}
	financial, err := services.NewFinancialService(db, activity, numbers)
	if err != nil {
		return nil, err
	}
	folders, err := services.NewFolderService(db, activity)
	if err != nil {
		return nil, err
	}
	documents, err := services.NewDocumentService(db, objects, activity, numbers)
	if err != nil {
		return nil, err
	}

	return &Services{
		Activity:    activity,
		Invitations: invitations,
		Accounts:    accounts,
		Tenants:     tenants,
		Residents:   residents,
		Clearances:  clearances,
		Blotter:     blotter,
		Financial:   financial,
		Folders:     folders,
		Documents:   documents,
	}, nil
}
