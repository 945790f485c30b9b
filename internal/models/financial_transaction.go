package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types.
const (
	TransactionIncome  = "income"
	TransactionExpense = "expense"
)

// FinancialTransaction is a barangay income or expense entry.
type FinancialTransaction struct {
	TenantModel

	TransactionNumber string          `gorm:"size:32;not null;index" json:"transactionNumber"`
	Type              string          `gorm:"size:16;not null;index" json:"type"`
	Category          string          `gorm:"size:128;not null" json:"category"`
	Amount            decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Description       string          `gorm:"size:1024" json:"description"`
	TransactionDate   time.Time       `gorm:"not null;index" json:"transactionDate"`
	ReferenceNumber   string          `gorm:"size:64" json:"referenceNumber"`
	RecordedBy        string          `gorm:"size:36" json:"recordedBy"`
}
