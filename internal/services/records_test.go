package services

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/permissions"
	"github.com/charlesng35/barangay/internal/storage"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

func TestListOptionsNormalised(t *testing.T) {
	opts := ListOptions{Search: "  juan ", Limit: 0, Offset: -4}.normalised()
	require.Equal(t, "juan", opts.Search)
	require.Equal(t, defaultPageSize, opts.Limit)
	require.Zero(t, opts.Offset)

	require.Equal(t, maxPageSize, ListOptions{Limit: 10_000}.normalised().Limit)
}

func TestEscapeLike(t *testing.T) {
	require.Equal(t, "100!%", escapeLike("100%"))
	require.Equal(t, "a!_b", escapeLike("a_b"))
	require.Equal(t, "wow!!", escapeLike("wow!"))
}

func TestResidentScopingAcrossTenants(t *testing.T) {
	f := newFixture(t)
	svc, err := NewResidentService(f.db, f.activity, f.numbers, f.recordOpts()...)
	require.NoError(t, err)

	alpha := f.tenant("Alpha", true)
	beta := f.tenant("Beta", true)
	captainA := f.member(permissions.RoleBarangayCaptain, alpha)
	captainB := f.member(permissions.RoleBarangayCaptain, beta)
	admin := f.superadmin()

	var firstA *models.Resident
	for i, name := range []string{"Cruz", "Santos", "Reyes"} {
		r, err := svc.Create(context.Background(), captainA, ResidentInput{FirstName: "Ana", LastName: name, Purok: "1"})
		require.NoError(t, err)
		if i == 0 {
			firstA = r
		}
	}
	for _, name := range []string{"Bautista", "Garcia", "Mendoza", "Torres", "Flores"} {
		_, err := svc.Create(context.Background(), captainB, ResidentInput{FirstName: "Ben", LastName: name, TenantID: &alpha.ID})
		require.NoError(t, err)
	}

	require.Equal(t, "RES-2024-0001", firstA.ResidentNumber)
	require.Equal(t, alpha.ID, firstA.TenantID)
	require.Equal(t, "active", firstA.Status)

	items, total, err := svc.List(context.Background(), captainA, ResidentFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 3, total)
	require.Equal(t, "Cruz", items[0].LastName)

	_, total, err = svc.List(context.Background(), captainB, ResidentFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 5, total, "a tenant-bound override is ignored")

	_, total, err = svc.List(context.Background(), admin, ResidentFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 8, total)

	_, total, err = svc.List(context.Background(), admin, ResidentFilters{ListOptions: ListOptions{Search: "SANTOS"}})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	_, err = svc.Get(context.Background(), captainB, firstA.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Update(context.Background(), captainB, firstA.ID, ResidentInput{FirstName: "X", LastName: "Y"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	err = svc.Delete(context.Background(), captainB, firstA.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	err = svc.Delete(context.Background(), captainB, "does-not-exist")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.EqualValues(t, 0, f.activityCount("resident", ActionUpdate))

	updated, err := svc.Update(context.Background(), captainA, firstA.ID, ResidentInput{FirstName: "Ana", LastName: "Cruz", Status: "moved"})
	require.NoError(t, err)
	require.Equal(t, "moved", updated.Status)
	require.Equal(t, "RES-2024-0001", updated.ResidentNumber)

	updated, err = svc.Update(context.Background(), admin, firstA.ID, ResidentInput{FirstName: "Ana", LastName: "Cruz"})
	require.NoError(t, err)
	require.Equal(t, alpha.ID, updated.TenantID)

	var logs []models.ActivityLog
	require.NoError(t, f.db.Where("resource = ? AND action = ?", "resident", ActionUpdate).Find(&logs).Error)
	require.Len(t, logs, 2)
	for _, log := range logs {
		require.Equal(t, alpha.ID, *log.TenantID, "activity is attributed to the record's tenant")
	}
}

func TestResidentCreationTenantRules(t *testing.T) {
	f := newFixture(t)
	svc, err := NewResidentService(f.db, f.activity, f.numbers, f.recordOpts()...)
	require.NoError(t, err)
	admin := f.superadmin()

	_, err = svc.Create(context.Background(), admin, ResidentInput{FirstName: "Ana", LastName: "Cruz"})
	requireAppError(t, err, apperrors.ErrTenantNotAssigned, "Select the barangay this record belongs to")

	_, err = svc.Create(context.Background(), admin, ResidentInput{FirstName: "Ana", LastName: "Cruz", TenantID: strPtr("ghost")})
	requireAppError(t, err, apperrors.ErrNotFound, "Barangay not found")

	tenant := f.tenant("Alpha", true)
	resident, err := svc.Create(context.Background(), admin, ResidentInput{FirstName: "Ana", LastName: "Cruz", TenantID: &tenant.ID})
	require.NoError(t, err)
	require.Equal(t, tenant.ID, resident.TenantID)

	_, err = svc.Create(context.Background(), admin, ResidentInput{FirstName: "  ", LastName: "Cruz", TenantID: &tenant.ID})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	orphan := f.account("orphan@example.com", permissions.RoleStaff, nil)
	_, err = svc.Create(context.Background(), orphan, ResidentInput{FirstName: "Ana", LastName: "Cruz"})
	require.ErrorIs(t, err, apperrors.ErrTenantNotAssigned)
	_, _, err = svc.List(context.Background(), orphan, ResidentFilters{})
	require.ErrorIs(t, err, apperrors.ErrTenantNotAssigned)
}

func TestClearanceLifecycle(t *testing.T) {
	f := newFixture(t)
	residents, err := NewResidentService(f.db, f.activity, f.numbers, f.recordOpts()...)
	require.NoError(t, err)
	svc, err := NewClearanceService(f.db, f.activity, f.numbers, f.recordOpts()...)
	require.NoError(t, err)

	alpha := f.tenant("Alpha", true)
	beta := f.tenant("Beta", true)
	secretary := f.member(permissions.RoleSecretary, alpha)
	other := f.member(permissions.RoleSecretary, beta)

	resident, err := residents.Create(context.Background(), secretary, ResidentInput{FirstName: "Ana", LastName: "Cruz"})
	require.NoError(t, err)
	outsider, err := residents.Create(context.Background(), other, ResidentInput{FirstName: "Ben", LastName: "Reyes"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), secretary, ClearanceInput{ResidentID: outsider.ID, Type: "barangay"})
	requireAppError(t, err, apperrors.ErrNotFound, "Resident not found")

	_, err = svc.Create(context.Background(), secretary, ClearanceInput{ResidentID: resident.ID, Type: "barangay", Fee: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	clearance, err := svc.Create(context.Background(), secretary, ClearanceInput{
		ResidentID: resident.ID,
		Type:       "barangay",
		Purpose:    "employment",
		Fee:        decimal.RequireFromString("50.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "CLR-2024-0001", clearance.ClearanceNumber)
	require.Equal(t, models.ClearanceStatusPending, clearance.Status)
	require.Nil(t, clearance.IssuedAt)

	released, err := svc.Update(context.Background(), secretary, clearance.ID, ClearanceInput{
		ResidentID: resident.ID,
		Type:       "barangay",
		Purpose:    "employment",
		Fee:        decimal.RequireFromString("50.00"),
		Status:     "released",
	})
	require.NoError(t, err)
	require.Equal(t, models.ClearanceStatusReleased, released.Status)
	require.NotNil(t, released.IssuedAt)
	require.True(t, released.IssuedAt.Equal(f.now))
	require.Equal(t, secretary.AccountID, released.IssuedBy)
	require.NotNil(t, released.ValidUntil)
	require.True(t, released.ValidUntil.Equal(f.now.Add(defaultClearanceValidity)))

	_, err = svc.Update(context.Background(), secretary, clearance.ID, ClearanceInput{ResidentID: outsider.ID, Type: "barangay"})
	requireAppError(t, err, apperrors.ErrNotFound, "Resident not found")

	png, err := svc.QRCode(context.Background(), secretary, clearance.ID, 0)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	_, err = svc.QRCode(context.Background(), other, clearance.ID, 128)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	err = residents.Delete(context.Background(), secretary, resident.ID)
	requireAppError(t, err, apperrors.ErrConflict, "Resident has clearances on record")

	require.NoError(t, svc.Delete(context.Background(), secretary, clearance.ID))
	require.NoError(t, residents.Delete(context.Background(), secretary, resident.ID))
	require.EqualValues(t, 1, f.activityCount("resident", ActionDelete))
}

func TestBlotterNumbering(t *testing.T) {
	f := newFixture(t)
	svc, err := NewBlotterService(f.db, f.activity, f.numbers, f.recordOpts()...)
	require.NoError(t, err)
	tenant := f.tenant("Alpha", true)
	officer := f.member(permissions.RolePeaceOrderOfficer, tenant)

	first, err := svc.Create(context.Background(), officer, BlotterInput{IncidentType: "noise", Complainant: "Ana Cruz"})
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), officer, BlotterInput{IncidentType: "theft", Complainant: "Ben Reyes"})
	require.NoError(t, err)

	require.Equal(t, "BLT-2024-0001", first.CaseNumber)
	require.Equal(t, "BLT-2024-0002", second.CaseNumber)
	require.Equal(t, models.BlotterStatusOpen, first.Status)
	require.True(t, first.IncidentDate.Equal(f.now))

	_, err = svc.Create(context.Background(), officer, BlotterInput{IncidentType: "noise"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	f.now = time.Date(2025, time.January, 2, 8, 0, 0, 0, time.UTC)
	third, err := svc.Create(context.Background(), officer, BlotterInput{IncidentType: "noise", Complainant: "Ana Cruz"})
	require.NoError(t, err)
	require.Equal(t, "BLT-2025-0001", third.CaseNumber)

	updated, err := svc.Update(context.Background(), officer, first.ID, BlotterInput{IncidentType: "noise", Complainant: "Ana Cruz", Status: "settled"})
	require.NoError(t, err)
	require.Equal(t, models.BlotterStatusSettled, updated.Status)
	require.Equal(t, "BLT-2024-0001", updated.CaseNumber)

	_, total, err := svc.List(context.Background(), officer, BlotterFilters{Status: models.BlotterStatusOpen})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)

	require.NoError(t, svc.Delete(context.Background(), officer, second.ID))
	fourth, err := svc.Create(context.Background(), officer, BlotterInput{IncidentType: "noise", Complainant: "Ana Cruz"})
	require.NoError(t, err)
	require.Equal(t, "BLT-2025-0002", fourth.CaseNumber, "numbers are never reused")
}

func TestFinancialTransactionsAndSummary(t *testing.T) {
	f := newFixture(t)
	svc, err := NewFinancialService(f.db, f.activity, f.numbers, f.recordOpts()...)
	require.NoError(t, err)
	alpha := f.tenant("Alpha", true)
	beta := f.tenant("Beta", true)
	treasurer := f.member(permissions.RoleTreasurer, alpha)
	otherTreasurer := f.member(permissions.RoleTreasurer, beta)
	admin := f.superadmin()

	fee, err := svc.Create(context.Background(), treasurer, TransactionInput{Type: "income", Category: "fees", Amount: decimal.RequireFromString("100.50")})
	require.NoError(t, err)
	supplies, err := svc.Create(context.Background(), treasurer, TransactionInput{Type: "EXPENSE", Category: "supplies", Amount: decimal.RequireFromString("50.10")})
	require.NoError(t, err)
	permit, err := svc.Create(context.Background(), treasurer, TransactionInput{Type: "income", Category: "permits", Amount: decimal.RequireFromString("200.25")})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), otherTreasurer, TransactionInput{Type: "income", Category: "fees", Amount: decimal.RequireFromString("999")})
	require.NoError(t, err)

	require.Equal(t, "INC-2024-0001", fee.TransactionNumber)
	require.Equal(t, "EXP-2024-0001", supplies.TransactionNumber)
	require.Equal(t, "INC-2024-0002", permit.TransactionNumber)

	_, err = svc.Create(context.Background(), treasurer, TransactionInput{Type: "income", Category: "fees", Amount: decimal.Zero})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
	_, err = svc.Create(context.Background(), treasurer, TransactionInput{Type: "donation", Category: "fees", Amount: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	summary, err := svc.Summary(context.Background(), treasurer, TransactionFilters{})
	require.NoError(t, err)
	require.True(t, summary.Income.Equal(decimal.RequireFromString("300.75")), summary.Income.String())
	require.True(t, summary.Expense.Equal(decimal.RequireFromString("50.10")), summary.Expense.String())
	require.True(t, summary.Balance.Equal(decimal.RequireFromString("250.65")), summary.Balance.String())
	require.EqualValues(t, 3, summary.Count)

	summary, err = svc.Summary(context.Background(), admin, TransactionFilters{Category: "fees"})
	require.NoError(t, err)
	require.True(t, summary.Income.Equal(decimal.RequireFromString("1099.50")), summary.Income.String())
	require.EqualValues(t, 2, summary.Count)

	_, err = svc.Update(context.Background(), treasurer, fee.ID, TransactionInput{Type: "expense", Category: "fees", Amount: decimal.NewFromInt(5)})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	updated, err := svc.Update(context.Background(), treasurer, fee.ID, TransactionInput{Type: "income", Category: "fees", Amount: decimal.RequireFromString("120")})
	require.NoError(t, err)
	require.True(t, updated.Amount.Equal(decimal.NewFromInt(120)))
	require.Equal(t, "INC-2024-0001", updated.TransactionNumber)

	_, total, err := svc.List(context.Background(), treasurer, TransactionFilters{Type: "income"})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)

	err = svc.Delete(context.Background(), otherTreasurer, fee.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.NoError(t, svc.Delete(context.Background(), treasurer, fee.ID))
}

func TestFoldersAndDocuments(t *testing.T) {
	f := newFixture(t)
	fs := afero.NewMemMapFs()
	objects, err := storage.New(fs)
	require.NoError(t, err)

	folders, err := NewFolderService(f.db, f.activity, f.recordOpts()...)
	require.NoError(t, err)
	docs, err := NewDocumentService(f.db, objects, f.activity, f.numbers, f.recordOpts()...)
	require.NoError(t, err)

	alpha := f.tenant("Alpha", true)
	beta := f.tenant("Beta", true)
	staff := f.member(permissions.RoleStaff, alpha)
	outsider := f.member(permissions.RoleStaff, beta)

	folder, err := folders.Create(context.Background(), staff, FolderInput{Name: "Ordinances"})
	require.NoError(t, err)
	_, err = folders.Create(context.Background(), staff, FolderInput{Name: "Ordinances"})
	requireAppError(t, err, apperrors.ErrConflict, "A folder with this name already exists")
	_, err = folders.Create(context.Background(), outsider, FolderInput{Name: "Ordinances"})
	require.NoError(t, err, "folder names are unique per barangay only")

	_, err = docs.Upload(context.Background(), outsider, UploadInput{
		FileName: "minutes.pdf",
		FolderID: &folder.ID,
		Body:     bytes.NewReader([]byte("x")),
	})
	requireAppError(t, err, apperrors.ErrNotFound, "Folder not found")

	doc, err := docs.Upload(context.Background(), staff, UploadInput{
		Title:       "Ordinance 12",
		FileName:    "ordinance 12.pdf",
		ContentType: "application/pdf",
		FolderID:    &folder.ID,
		Body:        bytes.NewReader([]byte("%PDF-1.7 body")),
	})
	require.NoError(t, err)
	require.Equal(t, "DOC-2024-0001", doc.DocumentNumber)
	require.Equal(t, "ordinance_12.pdf", doc.FileName)
	require.EqualValues(t, len("%PDF-1.7 body"), doc.Size)
	require.Equal(t, "/api/documents/"+doc.ID+"/download", doc.URL)

	exists, err := afero.Exists(fs, doc.StoragePath)
	require.NoError(t, err)
	require.True(t, exists)

	_, rc, err := docs.Open(context.Background(), staff, doc.ID)
	require.NoError(t, err)
	content, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	require.Equal(t, "%PDF-1.7 body", string(content))

	_, _, err = docs.Open(context.Background(), outsider, doc.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, total, err := docs.List(context.Background(), staff, DocumentFilters{FolderID: folder.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	_, total, err = docs.List(context.Background(), staff, DocumentFilters{FolderID: "root"})
	require.NoError(t, err)
	require.Zero(t, total)

	err = folders.Delete(context.Background(), staff, folder.ID)
	requireAppError(t, err, apperrors.ErrConflict, "Folder is not empty")

	moved, err := docs.Update(context.Background(), staff, doc.ID, DocumentInput{Title: "Ordinance No. 12"})
	require.NoError(t, err)
	require.Nil(t, moved.FolderID)
	require.Equal(t, "Ordinance No. 12", moved.Title)

	require.NoError(t, folders.Delete(context.Background(), staff, folder.ID))

	require.NoError(t, docs.Delete(context.Background(), staff, doc.ID))
	exists, err = afero.Exists(fs, doc.StoragePath)
	require.NoError(t, err)
	require.False(t, exists)
	require.EqualValues(t, 1, f.activityCount("document", ActionDelete))
}

func TestTenantService(t *testing.T) {
	f := newFixture(t)
	svc, err := NewTenantService(f.db, f.activity)
	require.NoError(t, err)
	admin := f.superadmin()

	created, err := svc.Create(context.Background(), admin, TenantInput{Name: "  Poblacion "})
	require.NoError(t, err)
	require.Equal(t, "Poblacion", created.Name)
	require.Equal(t, models.PlaceholderValue, created.Municipality)
	require.False(t, IsConfigured(created))

	other := f.tenant("Other", true)
	captain := f.member(permissions.RoleBarangayCaptain, created)
	staff := f.member(permissions.RoleStaff, created)

	_, err = svc.Create(context.Background(), captain, TenantInput{Name: "Rogue"})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	_, _, err = svc.List(context.Background(), captain, ListOptions{})
	requireAppError(t, err, apperrors.ErrForbidden, "Only superadmins can list barangays")

	tenants, total, err := svc.List(context.Background(), admin, ListOptions{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, "Other", tenants[0].Name)

	current, err := svc.Current(context.Background(), captain)
	require.NoError(t, err)
	require.Equal(t, created.ID, current.ID)

	_, err = svc.Get(context.Background(), captain, other.ID)
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Update(context.Background(), captain, other.ID, TenantInput{Name: "Hijacked"})
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = svc.Update(context.Background(), staff, created.ID, TenantInput{Name: "Staff Edit"})
	require.ErrorIs(t, err, apperrors.ErrForbidden)

	updated, err := svc.Update(context.Background(), captain, created.ID, TenantInput{
		Name:         "Poblacion",
		Municipality: "Tagbilaran",
		Province:     "Bohol",
	})
	require.NoError(t, err)
	require.True(t, updated.IsConfigured())

	_, err = svc.Current(context.Background(), admin)
	require.ErrorIs(t, err, apperrors.ErrTenantNotAssigned)
}

func TestActivityListAndCleanup(t *testing.T) {
	f := newFixture(t)
	alpha := f.tenant("Alpha", true)
	beta := f.tenant("Beta", true)
	captainA := f.member(permissions.RoleBarangayCaptain, alpha)
	captainB := f.member(permissions.RoleBarangayCaptain, beta)
	admin := f.superadmin()

	require.NoError(t, f.activity.Record(context.Background(), nil, captainA, ActivityEntry{Action: ActionCreate, Resource: "resident"}))
	require.NoError(t, f.activity.Record(context.Background(), nil, captainB, ActivityEntry{Action: ActionCreate, Resource: "resident"}))
	require.Error(t, f.activity.Record(context.Background(), nil, captainB, ActivityEntry{Resource: "resident"}))

	f.advance(100 * 24 * time.Hour)
	require.NoError(t, f.activity.Record(context.Background(), nil, captainA, ActivityEntry{Action: ActionUpdate, Resource: "resident"}))
	require.NoError(t, f.activity.Record(context.Background(), nil, admin, ActivityEntry{Action: ActionCreate, Resource: "tenant"}))

	logs, total, err := f.activity.List(context.Background(), captainA, ActivityFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Equal(t, ActionUpdate, logs[0].Action)

	_, total, err = f.activity.List(context.Background(), admin, ActivityFilters{})
	require.NoError(t, err)
	require.EqualValues(t, 4, total)

	_, total, err = f.activity.List(context.Background(), admin, ActivityFilters{Resource: "tenant"})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)

	removed, err := f.activity.CleanupOlderThan(context.Background(), 90)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	_, err = f.activity.CleanupOlderThan(context.Background(), 0)
	require.Error(t, err)
}
