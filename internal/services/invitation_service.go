package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
	"github.com/charlesng35/barangay/internal/tenancy"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
	"github.com/charlesng35/barangay/pkg/logger"
	"github.com/charlesng35/barangay/pkg/mail"
	"github.com/charlesng35/barangay/pkg/metrics"
	"github.com/charlesng35/barangay/pkg/validator"
)

const (
	defaultInvitationExpiry = 7 * 24 * time.Hour
	defaultMaxCodeAttempts  = 10
	invitationCodeSpace     = 1_000_000
)

// InvitationOption customises InvitationService behaviour.
type InvitationOption func(*InvitationService)

// WithInvitationExpiry overrides the invitation lifetime.
func WithInvitationExpiry(d time.Duration) InvitationOption {
	return func(s *InvitationService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithMaxCodeAttempts bounds how many codes are drawn before giving up.
func WithMaxCodeAttempts(n int) InvitationOption {
	return func(s *InvitationService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithInvitationClock injects a custom clock primarily for testing.
func WithInvitationClock(clock func() time.Time) InvitationOption {
	return func(s *InvitationService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// WithAcceptURL configures the sign-in URL embedded in invitation emails.
func WithAcceptURL(raw string) InvitationOption {
	return func(s *InvitationService) {
		s.acceptURL = strings.TrimSpace(raw)
	}
}

// WithCodeSource replaces the random code generator.
func WithCodeSource(source func() (string, error)) InvitationOption {
	return func(s *InvitationService) {
		if source != nil {
			s.codes = source
		}
	}
}

// IssueInput is the request to invite someone.
type IssueInput struct {
	Email    string           `json:"email" validate:"required,email,max=320"`
	Role     permissions.Role `json:"role" validate:"required"`
	TenantID *string          `json:"tenantId"`
}

// InvitationView is what an unauthenticated invitee may learn about an invitation.
type InvitationView struct {
	Email      string           `json:"email"`
	Role       permissions.Role `json:"role"`
	TenantID   *string          `json:"tenantId"`
	TenantName string           `json:"tenantName,omitempty"`
	ExpiresAt  time.Time        `json:"expiresAt"`
}

// InvitationSummary decorates an invitation with its derived status.
type InvitationSummary struct {
	models.Invitation
	Status string `json:"status"`
}

// InvitationFilters narrows invitation listings.
type InvitationFilters struct {
	ListOptions
	Status string
}

// InvitationService issues, verifies and consumes invitation codes.
type InvitationService struct {
	db          *gorm.DB
	mailer      mail.Mailer
	activity    *ActivityService
	expiry      time.Duration
	maxAttempts int
	acceptURL   string
	now         func() time.Time
	codes       func() (string, error)
}

// NewInvitationService constructs an InvitationService with the provided dependencies.
func NewInvitationService(db *gorm.DB, mailer mail.Mailer, activity *ActivityService, opts ...InvitationOption) (*InvitationService, error) {
	if db == nil {
		return nil, errors.New("invitation service: db is required")
	}

	service := &InvitationService{
		db:          db,
		mailer:      mailer,
		activity:    activity,
		expiry:      defaultInvitationExpiry,
		maxAttempts: defaultMaxCodeAttempts,
		now:         time.Now,
		codes:       randomCode,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Issue creates an invitation on behalf of issuer.
func (s *InvitationService) Issue(ctx context.Context, issuer auth.Identity, input IssueInput) (*models.Invitation, error) {
	ctx = ensureContext(ctx)
	log := logger.WithModule("invitations")

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !validator.IsEmail(email) {
		return nil, apperrors.NewBadRequest("A valid email address is required")
	}
	role, ok := permissions.ParseRole(string(input.Role))
	if !ok {
		return nil, apperrors.NewBadRequest("Unknown role")
	}

	if !permissions.CanIssue(issuer.Role, role) {
		metrics.Invitations.WithLabelValues("denied").Inc()
		log.Warn("invitation denied",
			zap.String("issuer_id", issuer.AccountID),
			zap.String("issuer_role", issuer.Role.String()),
			zap.String("target_role", role.String()),
		)
		return nil, apperrors.NewForbidden(permissions.IssueDenial(issuer.Role))
	}

	tenantID, err := s.invitationTenant(ctx, issuer, input.TenantID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureAvailable(ctx, email); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var invitation *models.Invitation
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		code, err := s.codes()
		if err != nil {
			return nil, apperrors.ErrInternalServer.WithInternal(fmt.Errorf("invitation service: generate code: %w", err))
		}
		active := code
		candidate := &models.Invitation{
			BaseModel:  models.BaseModel{CreatedAt: now, UpdatedAt: now},
			Email:      email,
			Code:       code,
			ActiveCode: &active,
			Role:       role,
			TenantID:   tenantID,
			InvitedBy:  issuer.AccountID,
			ExpiresAt:  now.Add(s.expiry),
		}
		err = s.db.WithContext(ctx).Create(candidate).Error
		if err == nil {
			invitation = candidate
			break
		}
		if !isUniqueConstraintError(err) {
			return nil, storageError(err)
		}
		metrics.Invitations.WithLabelValues("collision").Inc()
		log.Debug("invitation code collision", zap.Int("attempt", attempt+1))
	}
	if invitation == nil {
		return nil, apperrors.ErrCodeGenerationExhausted
	}

	metrics.Invitations.WithLabelValues("issued").Inc()
	if s.activity != nil {
		if err := s.activity.Record(ctx, nil, issuer, ActivityEntry{
			Action:     ActionInvite,
			Resource:   "invitation",
			ResourceID: invitation.ID,
			TenantID:   tenantID,
			Details:    map[string]any{"email": email, "role": role.String()},
		}); err != nil {
			log.Warn("record invitation activity", zap.Error(err))
		}
	}
	s.deliver(ctx, invitation)

	return invitation, nil
}

// Verify classifies a code without consuming it.
func (s *InvitationService) Verify(ctx context.Context, code string) (*InvitationView, error) {
	ctx = ensureContext(ctx)

	invitation, err := s.lookup(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if err := s.usable(invitation); err != nil {
		return nil, err
	}

	view := &InvitationView{
		Email:     invitation.Email,
		Role:      invitation.Role,
		TenantID:  invitation.TenantID,
		ExpiresAt: invitation.ExpiresAt,
	}
	if invitation.TenantID != nil {
		var tenant models.Tenant
		err := s.db.WithContext(ctx).Select("id", "name").Where("id = ?", *invitation.TenantID).Take(&tenant).Error
		switch {
		case err == nil:
			view.TenantName = tenant.Name
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, storageError(err)
		}
	}
	return view, nil
}

// Accept consumes the invitation inside tx. The update is conditional on the invitation
// still being unaccepted, so of two concurrent acceptances exactly one succeeds and the
// other observes AlreadyUsed.
func (s *InvitationService) Accept(ctx context.Context, tx *gorm.DB, code, accountID string) (*models.Invitation, error) {
	if tx == nil {
		tx = s.db
	}
	db := tx.WithContext(ensureContext(ctx))

	invitation, err := s.lookup(ctx, db, code)
	if err != nil {
		return nil, err
	}
	if err := s.usable(invitation); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	res := db.Model(&models.Invitation{}).
		Where("id = ? AND accepted = ?", invitation.ID, false).
		Updates(map[string]any{
			"accepted":    true,
			"accepted_at": now,
			"accepted_by": accountID,
			"active_code": nil,
		})
	if res.Error != nil {
		return nil, storageError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrInvitationUsed
	}

	invitation.Accepted = true
	invitation.AcceptedAt = &now
	invitation.AcceptedBy = &accountID
	invitation.ActiveCode = nil
	metrics.Invitations.WithLabelValues("accepted").Inc()
	return invitation, nil
}

// List returns invitations in the identity's scope, newest first.
func (s *InvitationService) List(ctx context.Context, identity auth.Identity, filters InvitationFilters) ([]InvitationSummary, int64, error) {
	now := s.now().UTC()
	store := scopedStore[models.Invitation]{db: s.db}
	invitations, total, err := store.list(ensureContext(ctx), identity, filters.ListOptions, "created_at DESC", func(query *gorm.DB) *gorm.DB {
		query = searchColumns(filters.Search, "email")(query)
		switch strings.ToLower(strings.TrimSpace(filters.Status)) {
		case "pending":
			query = query.Where("accepted = ? AND expires_at >= ?", false, now)
		case "accepted":
			query = query.Where("accepted = ?", true)
		case "expired":
			query = query.Where("accepted = ? AND expires_at < ?", false, now)
		}
		return query
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]InvitationSummary, len(invitations))
	for i := range invitations {
		out[i] = InvitationSummary{Invitation: invitations[i], Status: invitations[i].Status(now)}
	}
	return out, total, nil
}

// Revoke deletes an unaccepted invitation in scope. The caller must be allowed to issue the
// invitation's role. Accepted invitations are kept as the provenance of their account.
func (s *InvitationService) Revoke(ctx context.Context, identity auth.Identity, id string) error {
	ctx = ensureContext(ctx)
	if !identity.IsSuperadmin() && len(permissions.IssuableRoles(identity.Role)) == 0 {
		return apperrors.NewForbidden(permissions.IssueDenial(identity.Role))
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tenancy.Guard(ctx, tx, &models.Invitation{}, id, identity); err != nil {
			return err
		}
		var invitation models.Invitation
		if err := tx.Select("id", "role").Take(&invitation, "id = ?", id).Error; err != nil {
			return storageError(err)
		}
		if !identity.IsSuperadmin() && !permissions.CanIssue(identity.Role, invitation.Role) {
			metrics.Invitations.WithLabelValues("denied").Inc()
			return apperrors.NewForbidden(permissions.IssueDenial(identity.Role))
		}
		res := tx.Where("id = ? AND accepted = ?", id, false).Delete(&models.Invitation{})
		if res.Error != nil {
			return storageError(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrInvitationUsed
		}
		metrics.Invitations.WithLabelValues("revoked").Inc()
		if s.activity == nil {
			return nil
		}
		return s.activity.Record(ctx, tx, identity, ActivityEntry{
			Action:     ActionRevoke,
			Resource:   "invitation",
			ResourceID: id,
		})
	})
}

// ReleaseExpiredCodes frees the codes of expired, unaccepted invitations so they can be
// drawn again. The invitations stay verifiable by their original code.
func (s *InvitationService) ReleaseExpiredCodes(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ensureContext(ctx)).
		Model(&models.Invitation{}).
		Where("accepted = ? AND active_code IS NOT NULL AND expires_at < ?", false, s.now().UTC()).
		Update("active_code", nil)
	if res.Error != nil {
		return 0, fmt.Errorf("invitation service: release expired codes: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *InvitationService) invitationTenant(ctx context.Context, issuer auth.Identity, override *string) (*string, error) {
	if issuer.IsSuperadmin() {
		override = trimmedPtr(override)
		if override == nil {
			return nil, nil
		}
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", *override).Count(&count).Error; err != nil {
			return nil, storageError(err)
		}
		if count == 0 {
			return nil, apperrors.ErrNotFound.WithMessage("Barangay not found")
		}
		return override, nil
	}

	tenantID, ok := issuer.Tenant()
	if !ok {
		return nil, apperrors.ErrTenantNotAssigned
	}
	if permissions.RequiresConfiguredTenant(issuer.Role) {
		var tenant models.Tenant
		err := s.db.WithContext(ctx).Where("id = ?", tenantID).Take(&tenant).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.ErrTenantSetupIncomplete
		case err != nil:
			return nil, storageError(err)
		}
		if !tenant.IsConfigured() {
			return nil, apperrors.ErrTenantSetupIncomplete
		}
	}
	return &tenantID, nil
}

func (s *InvitationService) ensureAvailable(ctx context.Context, email string) error {
	var accounts int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&accounts).Error; err != nil {
		return storageError(err)
	}
	if accounts > 0 {
		return apperrors.NewConflict("An account with this email already exists")
	}

	var outstanding int64
	err := s.db.WithContext(ctx).Model(&models.Invitation{}).
		Where("email = ? AND accepted = ? AND expires_at >= ?", email, false, s.now().UTC()).
		Count(&outstanding).Error
	if err != nil {
		return storageError(err)
	}
	if outstanding > 0 {
		return apperrors.NewConflict("An invitation is already pending for this email")
	}
	return nil
}

// lookup prefers the outstanding invitation holding code, falling back to the most recent
// consumed or released one so replays are classified rather than reported unknown.
func (s *InvitationService) lookup(ctx context.Context, db *gorm.DB, code string) (*models.Invitation, error) {
	code = strings.TrimSpace(code)
	if validator.ValidateVar(code, "invitecode") != nil {
		return nil, apperrors.ErrNotFound.WithMessage("Invitation not found")
	}

	var invitation models.Invitation
	err := db.WithContext(ctx).Where("active_code = ?", code).Take(&invitation).Error
	if err == nil {
		return &invitation, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storageError(err)
	}

	err = db.WithContext(ctx).Where("code = ?", code).Order("created_at DESC").First(&invitation).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.ErrNotFound.WithMessage("Invitation not found")
	case err != nil:
		return nil, storageError(err)
	}
	return &invitation, nil
}

func (s *InvitationService) usable(invitation *models.Invitation) error {
	if invitation.Accepted {
		return apperrors.ErrInvitationUsed
	}
	if invitation.IsExpired(s.now().UTC()) {
		return apperrors.ErrInvitationExpired
	}
	return nil
}

func (s *InvitationService) deliver(ctx context.Context, invitation *models.Invitation) {
	if s.mailer == nil {
		return
	}
	message := mail.Message{
		To:      invitation.Email,
		Subject: "You're invited to the barangay records system",
		Body:    s.invitationBody(invitation),
	}
	if err := s.mailer.Send(ctx, message); err != nil && !errors.Is(err, mail.ErrSMTPDisabled) {
		logger.WithModule("invitations").Warn("invitation email not delivered",
			zap.String("invitation_id", invitation.ID),
			zap.Error(err),
		)
	}
}

func (s *InvitationService) invitationBody(invitation *models.Invitation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nYou have been invited to join as %s.\n\n", invitation.Role.Label())
	fmt.Fprintf(&b, "Your invitation code is %s. It expires on %s.\n", invitation.Code, invitation.ExpiresAt.UTC().Format("January 2, 2006 15:04 MST"))
	if s.acceptURL != "" {
		link := s.acceptURL
		if parsed, err := url.Parse(s.acceptURL); err == nil {
			query := parsed.Query()
			query.Set("invitation", invitation.Code)
			parsed.RawQuery = query.Encode()
			link = parsed.String()
		}
		fmt.Fprintf(&b, "\nSign in to accept: %s\n", link)
	}
	b.WriteString("\nIf you were not expecting this invitation, you can ignore this message.\n")
	return b.String()
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(invitationCodeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
