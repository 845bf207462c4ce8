package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/models"
	apperrors "github.com/tiles-dev/pfm-sim/pkg/errors"
)

// Source types for projected cashflow events.
const (
	CashflowSourceBill   = "bill"
	CashflowSourceIncome = "income"
)

// DefaultProjectionDays is the cashflow calendar horizon.
const DefaultProjectionDays = 90

// CreateCashflowItemInput defines the attributes shared by bills and incomes.
type CreateCashflowItemInput struct {
	Name      string
	Amount    decimal.Decimal
	StartDate time.Time
	Frequency string
}

// UpdateCashflowItemInput carries optional updates; nil fields are untouched.
type UpdateCashflowItemInput struct {
	Name      *string
	Amount    *decimal.Decimal
	StartDate *time.Time
	Frequency *string
	StoppedOn *time.Time
}

// CashflowProjection is the calendar view of upcoming bill and income events.
type CashflowProjection struct {
	StartDate time.Time              `json:"start_date"`
	EndDate   time.Time              `json:"end_date"`
	Events    []models.CashflowEvent `json:"events"`
}

// CashflowService manages recurring bills and incomes and projects them onto a
// calendar of events.
type CashflowService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewCashflowService constructs a CashflowService.
func NewCashflowService(db *gorm.DB) (*CashflowService, error) {
	if db == nil {
		return nil, errors.New("cashflow service: db is required")
	}
	return &CashflowService{db: db, now: time.Now}, nil
}

// ListBills returns the user's recurring bills.
func (s *CashflowService) ListBills(ctx context.Context, userID uint) ([]models.CashflowBill, error) {
	ctx = ensureContext(ctx)

	var rows []models.CashflowBill
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cashflow service: list bills: %w", err)
	}
	return rows, nil
}

// CreateBill persists a recurring bill.
func (s *CashflowService) CreateBill(ctx context.Context, userID uint, input CreateCashflowItemInput) (*models.CashflowBill, error) {
	ctx = ensureContext(ctx)

	if err := validateCashflowItem(input); err != nil {
		return nil, err
	}
	bill := models.CashflowBill{
		UserID:    userID,
		Name:      strings.TrimSpace(input.Name),
		Amount:    input.Amount,
		StartDate: input.StartDate,
		Frequency: defaultIfEmpty(strings.TrimSpace(input.Frequency), models.FrequencyMonthly),
	}
	if err := s.db.WithContext(ctx).Create(&bill).Error; err != nil {
		return nil, fmt.Errorf("cashflow service: create bill: %w", err)
	}
	return &bill, nil
}

// UpdateBill applies the non-nil fields of input to a bill.
func (s *CashflowService) UpdateBill(ctx context.Context, userID, billID uint, input UpdateCashflowItemInput) (*models.CashflowBill, error) {
	ctx = ensureContext(ctx)

	var bill models.CashflowBill
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", billID, userID).
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("cashflow service: load bill: %w", err)
	}

	updates, err := cashflowItemUpdates(input)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return &bill, nil
	}
	if err := s.db.WithContext(ctx).Model(&bill).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("cashflow service: update bill: %w", err)
	}
	return &bill, nil
}

// DeleteBill soft-deletes a bill owned by the user.
func (s *CashflowService) DeleteBill(ctx context.Context, userID, billID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", billID, userID).
		Delete(&models.CashflowBill{})
	if result.Error != nil {
		return fmt.Errorf("cashflow service: delete bill: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListIncomes returns the user's recurring incomes.
func (s *CashflowService) ListIncomes(ctx context.Context, userID uint) ([]models.CashflowIncome, error) {
	ctx = ensureContext(ctx)

	var rows []models.CashflowIncome
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cashflow service: list incomes: %w", err)
	}
	return rows, nil
}

// CreateIncome persists a recurring income.
func (s *CashflowService) CreateIncome(ctx context.Context, userID uint, input CreateCashflowItemInput) (*models.CashflowIncome, error) {
	ctx = ensureContext(ctx)

	if err := validateCashflowItem(input); err != nil {
		return nil, err
	}
	income := models.CashflowIncome{
		UserID:    userID,
		Name:      strings.TrimSpace(input.Name),
		Amount:    input.Amount,
		StartDate: input.StartDate,
		Frequency: defaultIfEmpty(strings.TrimSpace(input.Frequency), models.FrequencyMonthly),
	}
	if err := s.db.WithContext(ctx).Create(&income).Error; err != nil {
		return nil, fmt.Errorf("cashflow service: create income: %w", err)
	}
	return &income, nil
}

// UpdateIncome applies the non-nil fields of input to an income.
func (s *CashflowService) UpdateIncome(ctx context.Context, userID, incomeID uint, input UpdateCashflowItemInput) (*models.CashflowIncome, error) {
	ctx = ensureContext(ctx)

	var income models.CashflowIncome
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", incomeID, userID).
		First(&income).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("cashflow service: load income: %w", err)
	}

	updates, err := cashflowItemUpdates(input)
	if err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return &income, nil
	}
	if err := s.db.WithContext(ctx).Model(&income).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("cashflow service: update income: %w", err)
	}
	return &income, nil
}

// DeleteIncome soft-deletes an income owned by the user.
func (s *CashflowService) DeleteIncome(ctx context.Context, userID, incomeID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", incomeID, userID).
		Delete(&models.CashflowIncome{})
	if result.Error != nil {
		return fmt.Errorf("cashflow service: delete income: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListEvents returns the stored cashflow events inside the window.
func (s *CashflowService) ListEvents(ctx context.Context, userID uint, from, to time.Time) ([]models.CashflowEvent, error) {
	ctx = ensureContext(ctx)

	var rows []models.CashflowEvent
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND event_date >= ? AND event_date <= ?", userID, from, to).
		Order("event_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("cashflow service: list events: %w", err)
	}
	return rows, nil
}

// UpdateEvent marks a projected event processed (or not), the one edit the
// vendor permits on calendar entries.
func (s *CashflowService) UpdateEvent(ctx context.Context, userID, eventID uint, processed bool) (*models.CashflowEvent, error) {
	ctx = ensureContext(ctx)

	var event models.CashflowEvent
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", eventID, userID).
		First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("cashflow service: load event: %w", err)
	}

	if event.Processed != processed {
		if err := s.db.WithContext(ctx).Model(&event).Update("processed", processed).Error; err != nil {
			return nil, fmt.Errorf("cashflow service: update event: %w", err)
		}
	}
	return &event, nil
}

// DeleteEvent removes a single projected event, e.g. when a bill is skipped
// one month.
func (s *CashflowService) DeleteEvent(ctx context.Context, userID, eventID uint) error {
	ctx = ensureContext(ctx)

	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", eventID, userID).
		Delete(&models.CashflowEvent{})
	if result.Error != nil {
		return fmt.Errorf("cashflow service: delete event: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Project expands the user's bills and incomes into dated events over the
// horizon, persisting occurrences that are not stored yet so manual edits to
// individual events survive re-projection.
func (s *CashflowService) Project(ctx context.Context, userID uint, days int) (*CashflowProjection, error) {
	ctx = ensureContext(ctx)

	if days <= 0 {
		days = DefaultProjectionDays
	}
	start := s.now().UTC().Truncate(24 * time.Hour)
	end := start.AddDate(0, 0, days)

	bills, err := s.ListBills(ctx, userID)
	if err != nil {
		return nil, err
	}
	incomes, err := s.ListIncomes(ctx, userID)
	if err != nil {
		return nil, err
	}
	existing, err := s.ListEvents(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}

	known := make(map[string]struct{}, len(existing))
	for _, event := range existing {
		known[eventKey(event.SourceType, event.SourceID, event.EventDate)] = struct{}{}
	}

	events := existing
	for _, bill := range bills {
		occurrences := expandOccurrences(bill.StartDate, bill.Frequency, bill.StoppedOn, start, end)
		for _, when := range occurrences {
			if _, seen := known[eventKey(CashflowSourceBill, bill.ID, when)]; seen {
				continue
			}
			event := models.CashflowEvent{
				UserID:     userID,
				SourceType: CashflowSourceBill,
				SourceID:   bill.ID,
				Name:       bill.Name,
				Amount:     bill.Amount.Neg(),
				EventDate:  when,
			}
			if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
				return nil, fmt.Errorf("cashflow service: store event: %w", err)
			}
			events = append(events, event)
		}
	}
	for _, income := range incomes {
		occurrences := expandOccurrences(income.StartDate, income.Frequency, income.StoppedOn, start, end)
		for _, when := range occurrences {
			if _, seen := known[eventKey(CashflowSourceIncome, income.ID, when)]; seen {
				continue
			}
			event := models.CashflowEvent{
				UserID:     userID,
				SourceType: CashflowSourceIncome,
				SourceID:   income.ID,
				Name:       income.Name,
				Amount:     income.Amount,
				EventDate:  when,
			}
			if err := s.db.WithContext(ctx).Create(&event).Error; err != nil {
				return nil, fmt.Errorf("cashflow service: store event: %w", err)
			}
			events = append(events, event)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].EventDate.Before(events[j].EventDate)
	})

	return &CashflowProjection{StartDate: start, EndDate: end, Events: events}, nil
}

func validateCashflowItem(input CreateCashflowItemInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewBadRequest("name is required")
	}
	if input.StartDate.IsZero() {
		return apperrors.NewBadRequest("start date is required")
	}
	if frequency := strings.TrimSpace(input.Frequency); frequency != "" {
		if !validFrequency(frequency) {
			return apperrors.NewBadRequest("unknown frequency")
		}
	}
	return nil
}

func cashflowItemUpdates(input UpdateCashflowItemInput) (map[string]any, error) {
	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.NewBadRequest("name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Amount != nil {
		updates["amount"] = *input.Amount
	}
	if input.StartDate != nil {
		updates["start_date"] = *input.StartDate
	}
	if input.Frequency != nil {
		frequency := strings.TrimSpace(*input.Frequency)
		if !validFrequency(frequency) {
			return nil, apperrors.NewBadRequest("unknown frequency")
		}
		updates["frequency"] = frequency
	}
	if input.StoppedOn != nil {
		updates["stopped_on"] = *input.StoppedOn
	}
	return updates, nil
}

func validFrequency(frequency string) bool {
	switch frequency {
	case models.FrequencyOnce, models.FrequencyWeekly, models.FrequencyBiweekly,
		models.FrequencyMonthly, models.FrequencyQuarterly,
		models.FrequencyTwiceAYear, models.FrequencyYearly:
		return true
	}
	return false
}

// expandOccurrences lists every occurrence of a recurrence inside [from, to].
func expandOccurrences(start time.Time, frequency string, stoppedOn *time.Time, from, to time.Time) []time.Time {
	var out []time.Time
	next := start
	for !next.After(to) {
		if stoppedOn != nil && next.After(*stoppedOn) {
			break
		}
		if !next.Before(from) {
			out = append(out, next)
		}
		switch frequency {
		case models.FrequencyOnce:
			return out
		case models.FrequencyWeekly:
			next = next.AddDate(0, 0, 7)
		case models.FrequencyBiweekly:
			next = next.AddDate(0, 0, 14)
		case models.FrequencyQuarterly:
			next = next.AddDate(0, 3, 0)
		case models.FrequencyTwiceAYear:
			next = next.AddDate(0, 6, 0)
		case models.FrequencyYearly:
			next = next.AddDate(1, 0, 0)
		default:
			next = next.AddDate(0, 1, 0)
		}
	}
	return out
}

func eventKey(sourceType string, sourceID uint, when time.Time) string {
	return fmt.Sprintf("%s/%d/%s", sourceType, sourceID, when.UTC().Format("2006-01-02"))
}
