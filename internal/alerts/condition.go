package alerts

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tiles-dev/pfm-sim/internal/models"
)

// Threshold directions for balance alerts.
const (
	DirectionBelow = "below"
	DirectionAbove = "above"
)

// Condition is the decoded, typed form of an alert's JSON condition payload.
// The alert type field acts as the discriminant; DecodeCondition performs the
// decode exactly once per evaluation pass.
type Condition interface {
	alertCondition()
}

// BalanceThreshold fires when an account balance moves below (or above) a
// configured amount.
type BalanceThreshold struct {
	AccountID uint            `json:"account_id" validate:"required"`
	Threshold decimal.Decimal `json:"threshold" validate:"required"`
	Direction string          `json:"direction" validate:"omitempty,oneof=below above"`
}

// GoalMilestone fires when a goal's percent-complete reaches a milestone.
type GoalMilestone struct {
	GoalID  uint            `json:"goal_id" validate:"required"`
	Percent decimal.Decimal `json:"percent" validate:"required"`
}

// MerchantName fires when a new transaction's merchant name matches a pattern.
type MerchantName struct {
	Pattern string `json:"pattern" validate:"required"`
	Exact   bool   `json:"exact"`
}

// SpendingTarget fires when a budget's spent-to-date crosses a percentage of
// its budgeted amount.
type SpendingTarget struct {
	BudgetID uint            `json:"budget_id" validate:"required"`
	Percent  decimal.Decimal `json:"percent" validate:"required"`
}

// TransactionLimit fires when a single transaction's absolute amount exceeds
// a configured limit. AccountID narrows the check to one account when set.
type TransactionLimit struct {
	AccountID *uint           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount" validate:"required"`
}

// UpcomingBill fires when a recurring bill's next due date falls within Days
// of now. BillID narrows the check to one bill when set.
type UpcomingBill struct {
	BillID *uint `json:"bill_id"`
	Days   int   `json:"days"`
}

func (BalanceThreshold) alertCondition() {}
func (GoalMilestone) alertCondition()    {}
func (MerchantName) alertCondition()     {}
func (SpendingTarget) alertCondition()   {}
func (TransactionLimit) alertCondition() {}
func (UpcomingBill) alertCondition()     {}

// DecodeCondition parses the raw condition payload for the given alert type.
func DecodeCondition(alertType string, raw []byte) (Condition, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("alert type %s: empty condition payload", alertType)
	}

	decode := func(dest Condition) (Condition, error) {
		if err := json.Unmarshal(raw, dest); err != nil {
			return nil, fmt.Errorf("alert type %s: decode condition: %w", alertType, err)
		}
		return dest, nil
	}

	switch alertType {
	case models.AlertTypeBalanceThreshold:
		return decode(&BalanceThreshold{})
	case models.AlertTypeGoalMilestone:
		return decode(&GoalMilestone{})
	case models.AlertTypeMerchantName:
		return decode(&MerchantName{})
	case models.AlertTypeSpendingTarget:
		return decode(&SpendingTarget{})
	case models.AlertTypeTransactionLimit:
		return decode(&TransactionLimit{})
	case models.AlertTypeUpcomingBill:
		return decode(&UpcomingBill{})
	default:
		return nil, fmt.Errorf("unknown alert type %q", alertType)
	}
}

// EncodeCondition serialises a typed condition back to its JSON payload form.
func EncodeCondition(cond Condition) ([]byte, error) {
	if cond == nil {
		return nil, fmt.Errorf("nil condition")
	}
	return json.Marshal(cond)
}
