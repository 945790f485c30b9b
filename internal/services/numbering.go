package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/models"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

// DocType names a numbered record family. Financial transactions are numbered separately
// per income and expense.
type DocType string

const (
	DocResident  DocType = "residents"
	DocClearance DocType = "clearances"
	DocBlotter   DocType = "blotter"
	DocIncome    DocType = "income"
	DocExpense   DocType = "expense"
	DocDocument  DocType = "documents"
)

type docTypeSpec struct {
	prefix string
	model  any
	filter func(*gorm.DB) *gorm.DB
}

var docTypes = map[DocType]docTypeSpec{
	DocResident:  {prefix: "RES", model: &models.Resident{}},
	DocClearance: {prefix: "CLR", model: &models.Clearance{}},
	DocBlotter:   {prefix: "BLT", model: &models.BlotterEntry{}},
	DocIncome: {prefix: "INC", model: &models.FinancialTransaction{}, filter: func(db *gorm.DB) *gorm.DB {
		return db.Where("type = ?", models.TransactionIncome)
	}},
	DocExpense: {prefix: "EXP", model: &models.FinancialTransaction{}, filter: func(db *gorm.DB) *gorm.DB {
		return db.Where("type = ?", models.TransactionExpense)
	}},
	DocDocument: {prefix: "DOC", model: &models.Document{}},
}

const maxSeedAttempts = 3

// Numberer hands out PREFIX-YYYY-NNNN identifiers from a counter row per
// (tenant, document type, year).
type Numberer struct{}

// NewNumberer constructs a Numberer.
func NewNumberer() *Numberer {
	return &Numberer{}
}

// Next reserves the next number. It must run in the transaction that inserts the record so
// an aborted insert releases the number together with the counter increment.
func (n *Numberer) Next(ctx context.Context, tx *gorm.DB, tenantID string, docType DocType, year int) (string, error) {
	spec, ok := docTypes[docType]
	if !ok {
		return "", fmt.Errorf("numbering: unknown document type %q", docType)
	}
	if strings.TrimSpace(tenantID) == "" {
		return "", apperrors.ErrTenantNotAssigned
	}

	db := tx.WithContext(ctx)
	for attempt := 0; attempt < maxSeedAttempts; attempt++ {
		value, found, err := incrementCounter(db, tenantID, docType, year)
		if err != nil {
			return "", storageError(err)
		}
		if found {
			return FormatNumber(spec.prefix, year, value), nil
		}

		seed, err := countExisting(db, spec, tenantID, year)
		if err != nil {
			return "", storageError(err)
		}
		seed++

		err = db.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&models.SequenceCounter{
				TenantID: tenantID,
				Scope:    string(docType),
				Year:     year,
				Value:    seed,
			}).Error
		})
		if err == nil {
			return FormatNumber(spec.prefix, year, seed), nil
		}
		if !isUniqueConstraintError(err) {
			return "", storageError(err)
		}
	}
	return "", apperrors.Backend(fmt.Errorf("numbering: counter for %s/%d not settled", docType, year))
}

// FormatNumber renders a sequence number.
func FormatNumber(prefix string, year int, value int64) string {
	return fmt.Sprintf("%s-%04d-%04d", prefix, year, value)
}

func incrementCounter(db *gorm.DB, tenantID string, docType DocType, year int) (int64, bool, error) {
	where := "tenant_id = ? AND scope = ? AND year = ?"
	res := db.Model(&models.SequenceCounter{}).
		Where(where, tenantID, string(docType), year).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, false, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, false, nil
	}

	var counter models.SequenceCounter
	if err := db.Where(where, tenantID, string(docType), year).Take(&counter).Error; err != nil {
		return 0, false, err
	}
	return counter.Value, true, nil
}

func countExisting(db *gorm.DB, spec docTypeSpec, tenantID string, year int) (int64, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	query := db.Model(spec.model).
		Where("tenant_id = ?", tenantID).
		Where("created_at >= ? AND created_at < ?", start, start.AddDate(1, 0, 0))
	if spec.filter != nil {
		query = spec.filter(query)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}
