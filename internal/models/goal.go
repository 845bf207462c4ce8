package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal types distinguish saving up from paying down.
const (
	GoalTypeSavings = "savings"
	GoalTypePayoff  = "payoff"
)

// Goal states used by the vendor API.
const (
	GoalStateActive   = "active"
	GoalStateArchived = "archived"
)

// Goal represents a savings or payoff goal, optionally bound to an account.
type Goal struct {
	BaseModel

	UserID    uint     `gorm:"not null;index" json:"user_id"`
	AccountID *uint    `gorm:"index" json:"account_id"`
	Account   *Account `gorm:"foreignKey:AccountID" json:"-"`

	GoalType             string          `gorm:"type:varchar(16);not null" json:"goal_type"`
	Name                 string          `gorm:"not null" json:"name"`
	ImageURL             string          `json:"image_url"`
	TargetAmount         decimal.Decimal `gorm:"type:decimal(14,2)" json:"target_amount"`
	CurrentAmount        decimal.Decimal `gorm:"type:decimal(14,2)" json:"current_amount"`
	TargetCompletionDate *time.Time      `json:"target_completion_date"`
	State                string          `gorm:"type:varchar(16);default:'active'" json:"state"`
}

// PercentComplete reports goal progress in the range [0, 100+].
// Payoff goals invert the ratio: progress grows as the balance shrinks.
func (g *Goal) PercentComplete() decimal.Decimal {
	if g.TargetAmount.IsZero() {
		return decimal.Zero
	}
	if g.GoalType == GoalTypePayoff {
		remaining := g.CurrentAmount.Div(g.TargetAmount)
		return decimal.NewFromInt(1).Sub(remaining).Mul(decimal.NewFromInt(100))
	}
	return g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100))
}
