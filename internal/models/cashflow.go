package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recurrence frequencies shared by bills and incomes.
const (
	FrequencyOnce       = "once"
	FrequencyWeekly     = "weekly"
	FrequencyBiweekly   = "biweekly"
	FrequencyMonthly    = "monthly"
	FrequencyQuarterly  = "quarterly"
	FrequencyTwiceAYear = "twice_a_year"
	FrequencyYearly     = "yearly"
)

// CashflowBill is a recurring outgoing payment.
type CashflowBill struct {
	BaseModel

	UserID uint `gorm:"not null;index" json:"user_id"`

	Name      string          `gorm:"not null" json:"name"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
	StartDate time.Time       `json:"start_date"`
	Frequency string          `gorm:"type:varchar(16);default:'monthly'" json:"frequency"`
	StoppedOn *time.Time      `json:"stopped_on"`
}

// CashflowIncome is a recurring incoming payment.
type CashflowIncome struct {
	BaseModel

	UserID uint `gorm:"not null;index" json:"user_id"`

	Name      string          `gorm:"not null" json:"name"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
	StartDate time.Time       `json:"start_date"`
	Frequency string          `gorm:"type:varchar(16);default:'monthly'" json:"frequency"`
	StoppedOn *time.Time      `json:"stopped_on"`
}

// CashflowEvent is a single projected occurrence of a bill or income on the
// cashflow calendar. SourceType is "bill" or "income".
type CashflowEvent struct {
	BaseModel

	UserID uint `gorm:"not null;index" json:"user_id"`

	SourceType string          `gorm:"type:varchar(16);not null" json:"source_type"`
	SourceID   uint            `gorm:"not null;index" json:"source_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `gorm:"type:decimal(14,2)" json:"amount"`
	EventDate  time.Time       `gorm:"index" json:"event_date"`
	Processed  bool            `gorm:"default:false" json:"processed"`
}

// NextOccurrence returns the first occurrence of the bill on or after the
// given time, or nil when the recurrence has stopped before that time.
func (b *CashflowBill) NextOccurrence(after time.Time) *time.Time {
	return nextOccurrence(b.StartDate, b.Frequency, b.StoppedOn, after)
}

// NextOccurrence returns the first occurrence of the income on or after the
// given time, or nil when the recurrence has stopped before that time.
func (i *CashflowIncome) NextOccurrence(after time.Time) *time.Time {
	return nextOccurrence(i.StartDate, i.Frequency, i.StoppedOn, after)
}

func nextOccurrence(start time.Time, frequency string, stoppedOn *time.Time, after time.Time) *time.Time {
	next := start
	for next.Before(after) {
		switch frequency {
		case FrequencyOnce:
			return nil
		case FrequencyWeekly:
			next = next.AddDate(0, 0, 7)
		case FrequencyBiweekly:
			next = next.AddDate(0, 0, 14)
		case FrequencyQuarterly:
			next = next.AddDate(0, 3, 0)
		case FrequencyTwiceAYear:
			next = next.AddDate(0, 6, 0)
		case FrequencyYearly:
			next = next.AddDate(1, 0, 0)
		default: // monthly
			next = next.AddDate(0, 1, 0)
		}
	}
	if stoppedOn != nil && next.After(*stoppedOn) {
		return nil
	}
	return &next
}
