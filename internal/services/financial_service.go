package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/charlesng35/barangay/internal/auth"
	"github.com/charlesng35/barangay/internal/models"
	"github.com/charlesng35/barangay/internal/tenancy"
	apperrors "github.com/charlesng35/barangay/pkg/errors"
)

// TransactionInput carries the editable financial transaction fields.
type TransactionInput struct {
	Type            string          `json:"type" validate:"required,oneof=income expense"`
	Category        string          `json:"category" validate:"required,notblank,max=128"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description" validate:"omitempty,max=1024"`
	TransactionDate *time.Time      `json:"transactionDate"`
	ReferenceNumber string          `json:"referenceNumber" validate:"omitempty,max=64"`
	TenantID        *string         `json:"tenantId"`
}

func (in TransactionInput) normalised(now time.Time) (TransactionInput, error) {
	out := in
	out.Type = strings.ToLower(strings.TrimSpace(out.Type))
	out.Category = strings.TrimSpace(out.Category)
	out.Description = strings.TrimSpace(out.Description)
	out.ReferenceNumber = strings.TrimSpace(out.ReferenceNumber)
	if out.TransactionDate == nil || out.TransactionDate.IsZero() {
		date := now
		out.TransactionDate = &date
	}
	if out.Type != models.TransactionIncome && out.Type != models.TransactionExpense {
		return out, apperrors.NewBadRequest("type must be income or expense")
	}
	if out.Category == "" {
		return out, apperrors.NewBadRequest("category is required")
	}
	if !out.Amount.IsPositive() {
		return out, apperrors.NewBadRequest("amount must be greater than zero")
	}
	return out, nil
}

func (in TransactionInput) docType() DocType {
	if in.Type == models.TransactionExpense {
		return DocExpense
	}
	return DocIncome
}

// TransactionFilters narrows transaction listings.
type TransactionFilters struct {
	ListOptions
	Type     string
	Category string
	From     *time.Time
	To       *time.Time
}

func (f TransactionFilters) apply(query *gorm.DB) *gorm.DB {
	query = equalsIfSet("type", f.Type)(query)
	query = equalsIfSet("category", f.Category)(query)
	if f.From != nil {
		query = query.Where("transaction_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("transaction_date <= ?", *f.To)
	}
	return query
}

// FinancialSummary totals the transactions in scope.
type FinancialSummary struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
	Count   int64           `json:"count"`
}

// FinancialService tracks barangay income and expenses.
type FinancialService struct {
	recordBase
	store scopedStore[models.FinancialTransaction]
}

// NewFinancialService constructs a FinancialService.
func NewFinancialService(db *gorm.DB, activity *ActivityService, numbers *Numberer, opts ...RecordOption) (*FinancialService, error) {
	if db == nil {
		return nil, errors.New("financial service: db is required")
	}
	return &FinancialService{
		recordBase: newRecordBase(db, activity, numbers, opts),
		store:      scopedStore[models.FinancialTransaction]{db: db},
	}, nil
}

// List returns transactions in scope, most recent first.
func (s *FinancialService) List(ctx context.Context, identity auth.Identity, filters TransactionFilters) ([]models.FinancialTransaction, int64, error) {
	return s.store.list(ensureContext(ctx), identity, filters.ListOptions, "transaction_date DESC", func(query *gorm.DB) *gorm.DB {
		query = searchColumns(filters.Search, "transaction_number", "category", "description", "reference_number")(query)
		return filters.apply(query)
	})
}

// Get returns one transaction in scope.
func (s *FinancialService) Get(ctx context.Context, identity auth.Identity, id string) (*models.FinancialTransaction, error) {
	return s.store.get(ensureContext(ctx), identity, id)
}

// Create records a transaction numbered INC or EXP by its type.
func (s *FinancialService) Create(ctx context.Context, identity auth.Identity, input TransactionInput) (*models.FinancialTransaction, error) {
	ctx = ensureContext(ctx)
	now := s.now()
	input, err := input.normalised(now)
	if err != nil {
		return nil, err
	}
	tenantID, err := s.creationTenant(ctx, identity, input.TenantID)
	if err != nil {
		return nil, err
	}

	txn := &models.FinancialTransaction{
		TenantModel:     tenantModel(tenantID, now),
		Type:            input.Type,
		Category:        input.Category,
		Amount:          input.Amount,
		Description:     input.Description,
		TransactionDate: *input.TransactionDate,
		ReferenceNumber: input.ReferenceNumber,
		RecordedBy:      identity.AccountID,
	}

	err = s.createNumbered(ctx, identity, tenantID, input.docType(), "financial_transaction", txn,
		func(number string) { txn.TransactionNumber = number },
		func() string { return txn.ID },
	)
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// Update replaces a transaction's editable fields. The type, and therefore the number
// series, is fixed at creation.
func (s *FinancialService) Update(ctx context.Context, identity auth.Identity, id string, input TransactionInput) (*models.FinancialTransaction, error) {
	ctx = ensureContext(ctx)
	input, err := input.normalised(s.now())
	if err != nil {
		return nil, err
	}

	err = s.mutate(ctx, identity, &models.FinancialTransaction{}, id, ActivityEntry{Action: ActionUpdate, Resource: "financial_transaction"}, func(tx *gorm.DB) error {
		var current models.FinancialTransaction
		if err := tx.Select("id", "type").Where("id = ?", id).Take(&current).Error; err != nil {
			return err
		}
		if current.Type != input.Type {
			return apperrors.NewBadRequest("The transaction type cannot be changed")
		}
		return tx.Model(&models.FinancialTransaction{}).Where("id = ?", id).Updates(map[string]any{
			"category":         input.Category,
			"amount":           input.Amount,
			"description":      input.Description,
			"transaction_date": *input.TransactionDate,
			"reference_number": input.ReferenceNumber,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.store.get(ctx, identity, id)
}

// Delete removes a transaction.
func (s *FinancialService) Delete(ctx context.Context, identity auth.Identity, id string) error {
	return s.mutate(ensureContext(ctx), identity, &models.FinancialTransaction{}, id, ActivityEntry{Action: ActionDelete, Resource: "financial_transaction"}, func(tx *gorm.DB) error {
		return tx.Where("id = ?", id).Delete(&models.FinancialTransaction{}).Error
	})
}

// Summary totals income and expense within scope. Amounts are summed in process as
// decimals.
func (s *FinancialService) Summary(ctx context.Context, identity auth.Identity, filters TransactionFilters) (*FinancialSummary, error) {
	query, err := tenancy.Scope(s.db.WithContext(ensureContext(ctx)).Model(&models.FinancialTransaction{}), identity)
	if err != nil {
		return nil, err
	}
	query = filters.apply(query)

	var rows []struct {
		Type   string
		Amount decimal.Decimal
	}
	if err := query.Select("type", "amount").Find(&rows).Error; err != nil {
		return nil, storageError(err)
	}

	summary := &FinancialSummary{Income: decimal.Zero, Expense: decimal.Zero}
	for _, row := range rows {
		switch row.Type {
		case models.TransactionIncome:
			summary.Income = summary.Income.Add(row.Amount)
		case models.TransactionExpense:
			summary.Expense = summary.Expense.Add(row.Amount)
		}
		summary.Count++
	}
	summary.Balance = summary.Income.Sub(summary.Expense)
	return summary, nil
}
