package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
	"github.com/charlesng35/barangay/internal/tenancy"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/metrics"
)

var errBootstrapClaimed = errors.New("account service: bootstrap already claimed")

// AccountOption customises AccountService behaviour.
type AccountOption func(*AccountService)

// WithAccountClock injects a custom clock primarily for testing.
func WithAccountClock(clock func() time.Time) AccountOption {
	return func(s *AccountService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// SyncInput is the outcome of a provider login plus the invitation code carried through it.
type SyncInput struct {
	Profile        auth.Profile
	InvitationCode string
}

// AccountFilters narrows account listings.
type AccountFilters struct {
	ListOptions
	Role   string
	Active *bool
}

// AccountService provisions accounts from identity-provider logins and administers them.
type AccountService struct {
	db          *gorm.DB
	invitations *InvitationService
	activity    *ActivityService
	now         func() time.Time
}

// NewAccountService constructs an AccountService.
func NewAccountService(db *gorm.DB, invitations *InvitationService, activity *ActivityService, opts ...AccountOption) (*AccountService, error) {
	if db == nil {
		return nil, errors.New("account service: db is required")
	}
	if invitations == nil {
		return nil, errors.New("account service: invitation service is required")
	}

	service := &AccountService{
		db:          db,
		invitations: invitations,
		activity:    activity,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// IsFirstAccount reports whether no account exists yet.
func (s *AccountService) IsFirstAccount(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ensureContext(ctx)).Model(&models.Account{}).Count(&count).Error; err != nil {
		return false, storageError(err)
	}
	return count == 0, nil
}

// Sync returns the account for a provider profile, creating it on first login. The very
// first account becomes the superadmin; every later one needs an invitation.
func (s *AccountService) Sync(ctx context.Context, input SyncInput) (*models.Account, error) {
	ctx = ensureContext(ctx)
	profile := input.Profile
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if profile.Email == "" {
		return nil, apperrors.NewBadRequest("The identity provider did not return an email address")
	}

	existing, err := s.findByEmail(ctx, profile.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s.refresh(ctx, existing, profile)
	}

	first, err := s.IsFirstAccount(ctx)
	if err != nil {
		return nil, err
	}
	if first {
		account, err := s.bootstrap(ctx, profile)
		switch {
		case err == nil:
			return account, nil
		case errors.Is(err, errBootstrapClaimed):
			logger.WithModule("accounts").Warn("bootstrap race lost, falling back to invitation",
				zap.String("email", profile.Email),
			)
		default:
			return nil, err
		}
	}

	code := strings.TrimSpace(input.InvitationCode)
	if code == "" {
		return nil, apperrors.ErrInvitationRequired
	}
	return s.acceptInvitation(ctx, profile, code)
}

// List returns accounts in the identity's scope.
func (s *AccountService) List(ctx context.Context, identity auth.Identity, filters AccountFilters) ([]models.Account, int64, error) {
	store := scopedStore[models.Account]{db: s.db}
	return store.list(ensureContext(ctx), identity, filters.ListOptions, "created_at ASC", func(query *gorm.DB) *gorm.DB {
		query = searchColumns(filters.Search, "email", "name")(query)
		query = equalsIfSet("role", filters.Role)(query)
		if filters.Active != nil {
			query = query.Where("is_active = ?", *filters.Active)
		}
		return query
	})
}

// SetActive activates or deactivates an account. Accounts are never hard deleted.
func (s *AccountService) SetActive(ctx context.Context, identity auth.Identity, id string, active bool) (*models.Account, error) {
	ctx = ensureContext(ctx)
	if !identity.IsSuperadmin() && identity.Role != permissions.RoleBarangayCaptain {
		return nil, apperrors.NewForbidden("Only barangay captains can change account status")
	}
	id = strings.TrimSpace(id)
	if id == identity.AccountID {
		return nil, apperrors.NewBadRequest("You cannot change the status of your own account")
	}

	var account models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tenancy.Guard(ctx, tx, &models.Account{}, id, identity); err != nil {
			return err
		}
		if err := tx.Model(&models.Account{}).Where("id = ?", id).Update("is_active", active).Error; err != nil {
			return storageError(err)
		}
		if err := tx.Where("id = ?", id).Take(&account).Error; err != nil {
			return storageError(err)
		}
		action := ActionDeactivate
		if active {
			action = ActionActivate
		}
		return s.record(ctx, tx, identity, ActivityEntry{
			Action:     action,
			Resource:   "account",
			ResourceID: id,
			TenantID:   account.TenantID,
			Details:    map[string]any{"email": account.Email},
		})
	})
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (s *AccountService) findByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).Where("email = ?", email).Take(&account).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, storageError(err)
	}
	return &account, nil
}

func (s *AccountService) refresh(ctx context.Context, account *models.Account, profile auth.Profile) (*models.Account, error) {
	if !account.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	now := s.now().UTC()
	metadata := datatypes.JSONMap{}
	for k, v := range account.Metadata {
		metadata[k] = v
	}
	metadata[models.MetaSubjectID] = profile.SubjectID
	if profile.PictureURL != "" {
		metadata[models.MetaPicture] = profile.PictureURL
	}

	updates := map[string]any{
		"metadata":      metadata,
		"last_login_at": now,
	}
	if name := strings.TrimSpace(profile.DisplayName); name != "" {
		updates["name"] = name
		account.Name = name
	}
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", account.ID).Updates(updates).Error; err != nil {
		return nil, storageError(err)
	}

	account.Metadata = metadata
	account.LastLoginAt = &now
	return account, nil
}

// bootstrap creates the superadmin. The claim row's primary key admits a single winner;
// every other concurrent caller gets errBootstrapClaimed.
func (s *AccountService) bootstrap(ctx context.Context, profile auth.Profile) (*models.Account, error) {
	now := s.now().UTC()
	account := &models.Account{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		Email:     profile.Email,
		Name:      displayName(profile),
		Role:      permissions.RoleSuperadmin,
		IsActive:  true,
		Metadata: datatypes.JSONMap{
			models.MetaProvenance: models.ProvenanceBootstrap,
			models.MetaSubjectID:  profile.SubjectID,
			models.MetaPicture:    profile.PictureURL,
		},
		LastLoginAt: &now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := &models.BootstrapClaim{ID: models.FirstAccountClaimID, AccountID: account.ID}
		if err := tx.Create(claim).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errBootstrapClaimed
			}
			return storageError(err)
		}
		if err := tx.Create(account).Error; err != nil {
			if isUniqueConstraintError(err) {
				return errBootstrapClaimed
			}
			return storageError(err)
		}
		return s.record(ctx, tx, auth.IdentityFromAccount(account), ActivityEntry{
			Action:     ActionCreate,
			Resource:   "account",
			ResourceID: account.ID,
			Details:    map[string]any{"provenance": models.ProvenanceBootstrap},
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.AccountsProvisioned.WithLabelValues(models.ProvenanceBootstrap).Inc()
	logger.WithModule("accounts").Info("bootstrap superadmin created", zap.String("account_id", account.ID))
	return account, nil
}

// acceptInvitation consumes the invitation, creates the captain's placeholder tenant when
// needed and inserts the account, all in one transaction.
func (s *AccountService) acceptInvitation(ctx context.Context, profile auth.Profile, code string) (*models.Account, error) {
	now := s.now().UTC()
	account := &models.Account{
		BaseModel:   models.BaseModel{ID: uuid.NewString()},
		Email:       profile.Email,
		Name:        displayName(profile),
		IsActive:    true,
		LastLoginAt: &now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invitation, err := s.invitations.Accept(ctx, tx, code, account.ID)
		if err != nil {
			return err
		}
		if !strings.EqualFold(invitation.Email, profile.Email) {
			return apperrors.NewForbidden("This invitation was issued to a different email address")
		}

		tenantID := invitation.TenantID
		if tenantID == nil && invitation.Role == permissions.RoleBarangayCaptain {
			tenant := &models.Tenant{
				Name:         fmt.Sprintf("%s's Barangay", profile.FirstName()),
				Municipality: models.PlaceholderValue,
				Province:     models.PlaceholderValue,
				Email:        profile.Email,
				CaptainName:  account.Name,
			}
			if err := tx.Create(tenant).Error; err != nil {
				return storageError(err)
			}
			tenantID = &tenant.ID
		}
		if tenantID == nil {
			return apperrors.ErrTenantNotAssigned
		}

		account.Role = invitation.Role
		account.TenantID = tenantID
		account.Metadata = datatypes.JSONMap{
			models.MetaProvenance:   models.ProvenanceInvitation,
			models.MetaInvitationID: invitation.ID,
			models.MetaSubjectID:    profile.SubjectID,
			models.MetaPicture:      profile.PictureURL,
		}
		if err := tx.Create(account).Error; err != nil {
			if isUniqueConstraintError(err) {
				return apperrors.NewConflict("An account with this email already exists")
			}
			return storageError(err)
		}

		return s.record(ctx, tx, auth.IdentityFromAccount(account), ActivityEntry{
			Action:     ActionCreate,
			Resource:   "account",
			ResourceID: account.ID,
			Details: map[string]any{
				"provenance":   models.ProvenanceInvitation,
				"invitationId": invitation.ID,
				"role":         invitation.Role.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.AccountsProvisioned.WithLabelValues(models.ProvenanceInvitation).Inc()
	return account, nil
}

func (s *AccountService) record(ctx context.Context, tx *gorm.DB, identity auth.Identity, entry ActivityEntry) error {
	if s.activity == nil {
		return nil
	}
	return s.activity.Record(ctx, tx, identity, entry)
}

func displayName(profile auth.Profile) string {
	if name := strings.TrimSpace(profile.DisplayName); name != "" {
		return name
	}
	return profile.Email
}
