package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Transaction type values stored in Transaction.TransactionType.
const (
	TransactionTypeDebit  = "debit"
	TransactionTypeCredit = "credit"
)

// Transaction represents a single posted or pending account transaction.
// Amounts are signed: debits negative, credits positive.
type Transaction struct {
	BaseModel

	UserID    uint     `gorm:"not null;index" json:"user_id"`
	AccountID uint     `gorm:"not null;index" json:"account_id"`
	Account   *Account `gorm:"foreignKey:AccountID" json:"-"`

	Nickname        string          `json:"nickname"`
	OriginalName    string          `json:"original_name"`
	Amount          decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
	TransactionType string          `gorm:"type:varchar(16)" json:"transaction_type"`
	MerchantName    string          `gorm:"index" json:"merchant_name"`
	PostedAt        time.Time       `gorm:"index" json:"posted_at"`
	TransactedAt    *time.Time      `json:"transacted_at"`

	// Tags holds the user-assigned tag names as a JSON string array.
	Tags datatypes.JSON `json:"tags"`
}
