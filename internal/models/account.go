package models

import "github.com/shopspring/decimal"

// Account states used by the vendor API.
const (
	AccountStateActive   = "active"
	AccountStateArchived = "archived"
	AccountStateClosed   = "closed"
)

// Account represents a linked financial account (checking, savings, card, loan).
type Account struct {
	BaseModel

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	Name              string          `gorm:"not null" json:"name"`
	DisplayName       string          `json:"display_name"`
	AccountType       string          `gorm:"type:varchar(32);not null" json:"account_type"`
	Balance           decimal.Decimal `gorm:"type:decimal(14,2)" json:"balance"`
	State             string          `gorm:"type:varchar(16);default:'active'" json:"state"`
	IncludeInNetworth bool            `json:"include_in_networth"`
	FinstitutionName  string          `json:"fi_name"`
}
