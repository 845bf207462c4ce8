package models

import "time"

// Delivery statuses for notification channels. Only "pending" is produced by
// the evaluator; actual dispatch belongs to a delivery component that does not
// exist yet.
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// Notification is an immutable record that an alert fired. Created exclusively
// by the alert evaluator; read and soft-deleted by the user.
type Notification struct {
	BaseModel

	UserID  uint   `gorm:"not null;index" json:"user_id"`
	AlertID uint   `gorm:"not null;index" json:"alert_id"`
	Alert   *Alert `gorm:"foreignKey:AlertID" json:"-"`

	AlertType string `gorm:"type:varchar(32)" json:"alert_type"`
	Message   string `gorm:"type:text;not null" json:"message"`

	// Delivery statuses are written by the evaluator, empty when the channel
	// is disabled on the alert. No column default: it would resurrect
	// "pending" for disabled channels because GORM omits zero values from
	// the insert when one is set.
	EmailStatus string `gorm:"type:varchar(16)" json:"email_status"`
	SMSStatus   string `gorm:"type:varchar(16)" json:"sms_status"`

	Read   bool       `gorm:"index" json:"read"`
	ReadAt *time.Time `json:"read_at"`
}
