package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Budget tracks planned versus actual spending for a set of tags in one month.
type Budget struct {
	BaseModel

	UserID uint `gorm:"not null;index" json:"user_id"`

	Name         string          `gorm:"not null" json:"name"`
	BudgetAmount decimal.Decimal `gorm:"type:decimal(14,2)" json:"budget_amount"`
	Spent        decimal.Decimal `gorm:"type:decimal(14,2)" json:"spent"`
	Month        int             `json:"month"`
	Year         int             `json:"year"`
	ShowOnDash   bool            `json:"show_on_dashboard"`

	// TagNames holds the budgeted tag names as a JSON string array.
	TagNames datatypes.JSON `json:"tag_names"`
}
