package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/database/testutil"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
	"github.com/charlesng35/barangay/pkg/mail"
)

type fixture struct {
	t        *testing.T
	db       *gorm.DB
	activity *ActivityService
	numbers  *Numberer
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.MustOpenTestDB(t)
	activity, err := NewActivityService(db)
	require.NoError(t, err)
	f := &fixture{
		t:        t,
		db:       db,
		activity: activity,
		numbers:  NewNumberer(),
		now:      time.Date(2024, time.March, 15, 10, 0, 0, 0, time.UTC),
	}
	activity.now = f.clock
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) tenant(name string, configured bool) *models.Tenant {
	f.t.Helper()
	tenant := &models.Tenant{Name: name, Municipality: models.PlaceholderValue, Province: models.PlaceholderValue}
	if configured {
		tenant.Municipality = "Quezon City"
		tenant.Province = "Metro Manila"
	}
	require.NoError(f.t, f.db.Create(tenant).Error)
	return tenant
}

func (f *fixture) account(email string, role permissions.Role, tenantID *string) auth.Identity {
	f.t.Helper()
	account := &models.Account{
		BaseModel: models.BaseModel{ID: uuid.NewString()},
		Email:     email,
		Name:      email,
		Role:      role,
		TenantID:  tenantID,
		IsActive:  true,
	}
	require.NoError(f.t, f.db.Create(account).Error)
	return auth.IdentityFromAccount(account)
}

func (f *fixture) superadmin() auth.Identity {
	return f.account("root-"+uuid.NewString()[:8]+"@example.com", permissions.RoleSuperadmin, nil)
}

func (f *fixture) member(role permissions.Role, tenant *models.Tenant) auth.Identity {
	return f.account(string(role)+"-"+uuid.NewString()[:8]+"@example.com", role, &tenant.ID)
}

func (f *fixture) invitations(opts ...InvitationOption) *InvitationService {
	f.t.Helper()
	opts = append([]InvitationOption{WithInvitationClock(f.clock)}, opts...)
	svc, err := NewInvitationService(f.db, nil, f.activity, opts...)
	require.NoError(f.t, err)
	return svc
}

func (f *fixture) recordOpts() []RecordOption {
	return []RecordOption{WithRecordClock(f.clock)}
}

func (f *fixture) activityCount(resource, action string) int64 {
	f.t.Helper()
	var count int64
	require.NoError(f.t, f.db.Model(&models.ActivityLog{}).
		Where("resource = ? AND action = ?", resource, action).
		Count(&count).Error)
	return count
}

func strPtr(v string) *string { return &v }

type recordingMailer struct {
	mu       sync.Mutex
	messages []mail.Message
	err      error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return m.err
}

func (m *recordingMailer) sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.messages...)
}
