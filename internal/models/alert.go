package models

import (
	"time"

	"gorm.io/datatypes"
)

// Alert types supported by the evaluator.
const (
	AlertTypeBalanceThreshold = "balance_threshold"
	AlertTypeGoalMilestone    = "goal_milestone"
	AlertTypeMerchantName     = "merchant_name"
	AlertTypeSpendingTarget   = "spending_target"
	AlertTypeTransactionLimit = "transaction_limit"
	AlertTypeUpcomingBill     = "upcoming_bill"
)

// AlertTypes lists every supported alert type, for validation.
var AlertTypes = []string{
	AlertTypeBalanceThreshold,
	AlertTypeGoalMilestone,
	AlertTypeMerchantName,
	AlertTypeSpendingTarget,
	AlertTypeTransactionLimit,
	AlertTypeUpcomingBill,
}

// Alert is a user-configured rule that produces a Notification when its
// condition becomes true and its cooldown has elapsed. Conditions is a JSON
// payload whose shape depends on AlertType; it is decoded once into a typed
// condition by the alerts package rather than re-read ad hoc per predicate.
type Alert struct {
	BaseModel

	UserID uint  `gorm:"not null;index" json:"user_id"`
	User   *User `gorm:"foreignKey:UserID" json:"-"`

	AlertType  string         `gorm:"type:varchar(32);not null;index" json:"alert_type"`
	Conditions datatypes.JSON `json:"conditions"`

	// Flag defaults live in the service layer, not the schema: a column
	// default makes GORM skip explicit false values on insert.
	EmailDelivery bool `json:"email_delivery"`
	SMSDelivery   bool `json:"sms_delivery"`
	Active        bool `gorm:"index" json:"active"`

	LastTriggeredAt *time.Time `json:"last_triggered_at"`
}
