package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/models"
	"github.com/tiles-dev/pfm-sim/pkg/logger"
	"github.com/tiles-dev/pfm-sim/pkg/metrics"
)

const (
	// DefaultCooldown is the minimum interval between two notifications
	// fired by the same alert.
	DefaultCooldown = 6 * time.Hour

	// DefaultLookback bounds the transaction window considered for alerts
	// that have never fired.
	DefaultLookback = 7 * 24 * time.Hour

	// DefaultUpcomingBillDays is used when an upcoming-bill condition does
	// not specify a horizon.
	DefaultUpcomingBillDays = 7
)

// EvaluationError records a single alert that could not be evaluated. The
// alert is skipped for the pass and retried on the next one.
type EvaluationError struct {
	AlertID   uint   `json:"alert_id"`
	AlertType string `json:"alert_type"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

func (e EvaluationError) Error() string {
	return fmt.Sprintf("alert %d (%s): %v", e.AlertID, e.AlertType, e.Err)
}

// Summary aggregates the outcome of one evaluation pass.
type Summary struct {
	Evaluated int               `json:"evaluated"`
	Fired     int               `json:"fired"`
	Errors    []EvaluationError `json:"errors"`
}

func (s *Summary) merge(other Summary) {
	s.Evaluated += other.Evaluated
	s.Fired += other.Fired
	s.Errors = append(s.Errors, other.Errors...)
}

// Option customises the Evaluator.
type Option func(*Evaluator)

// WithCooldown overrides the per-alert cooldown window.
func WithCooldown(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.cooldown = d
		}
	}
}

// WithLookback overrides the transaction window for never-fired alerts.
func WithLookback(d time.Duration) Option {
	return func(e *Evaluator) {
		if d > 0 {
			e.lookback = d
		}
	}
}

// WithClock overrides the evaluation clock, primarily for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDedupWindow sets the content-fingerprint suppression window. Zero
// disables fingerprinting entirely.
func WithDedupWindow(d time.Duration) Option {
	return func(e *Evaluator) {
		e.dedup = newFingerprintCache(d)
	}
}

// Evaluator decides which of a user's alerts currently satisfy their
// condition and emits at most one notification per alert per cooldown window.
type Evaluator struct {
	db       *gorm.DB
	cooldown time.Duration
	lookback time.Duration
	now      func() time.Time
	dedup    *fingerprintCache
	log      *zap.Logger
}

// NewEvaluator constructs an Evaluator with the default cooldown and clock.
func NewEvaluator(db *gorm.DB, opts ...Option) (*Evaluator, error) {
	if db == nil {
		return nil, errors.New("alert evaluator: db is required")
	}

	e := &Evaluator{
		db:       db,
		cooldown: DefaultCooldown,
		lookback: DefaultLookback,
		now:      time.Now,
		log:      logger.WithModule("alerts"),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Evaluate runs one pass over a single user's active alerts. Per-alert
// failures are collected into the summary, never returned as an error; only a
// failure to list the alerts themselves aborts the pass.
func (e *Evaluator) Evaluate(ctx context.Context, userID uint) (Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var alerts []models.Alert
	if err := e.db.WithContext(ctx).
		Where("user_id = ? AND active = ?", userID, true).
		Find(&alerts).Error; err != nil {
		return Summary{}, fmt.Errorf("alert evaluator: list alerts: %w", err)
	}

	summary := Summary{}
	now := e.now()

	for i := range alerts {
		alert := &alerts[i]
		summary.Evaluated++

		fired, message, err := e.check(ctx, alert, now)
		if err != nil {
			metrics.AlertsEvaluated.WithLabelValues(alert.AlertType, "error").Inc()
			e.log.Warn("alert evaluation failed",
				zap.Uint("alert_id", alert.ID),
				zap.String("alert_type", alert.AlertType),
				zap.Error(err),
			)
			summary.Errors = append(summary.Errors, EvaluationError{
				AlertID:   alert.ID,
				AlertType: alert.AlertType,
				Err:       err,
				Message:   err.Error(),
			})
			continue
		}

		if !fired {
			metrics.AlertsEvaluated.WithLabelValues(alert.AlertType, "skipped").Inc()
			continue
		}

		if !e.cooldownElapsed(alert, now) {
			metrics.AlertsEvaluated.WithLabelValues(alert.AlertType, "cooldown").Inc()
			continue
		}

		if e.dedup.Seen(alert.ID, message, now) {
			metrics.AlertsEvaluated.WithLabelValues(alert.AlertType, "cooldown").Inc()
			continue
		}

		if err := e.fire(ctx, alert, message, now); err != nil {
			metrics.AlertsEvaluated.WithLabelValues(alert.AlertType, "error").Inc()
			e.log.Error("alert fire failed",
				zap.Uint("alert_id", alert.ID),
				zap.Error(err),
			)
			summary.Errors = append(summary.Errors, EvaluationError{
				AlertID:   alert.ID,
				AlertType: alert.AlertType,
				Err:       err,
				Message:   err.Error(),
			})
			continue
		}

		metrics.AlertsEvaluated.WithLabelValues(alert.AlertType, "fired").Inc()
		metrics.NotificationsCreated.Inc()
		summary.Fired++
	}

	return summary, nil
}

// EvaluateAll runs one pass for every user that has at least one active
// alert. Users are processed independently and sequentially.
func (e *Evaluator) EvaluateAll(ctx context.Context) (Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var userIDs []uint
	if err := e.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("active = ?", true).
		Distinct("user_id").
		Pluck("user_id", &userIDs).Error; err != nil {
		return Summary{}, fmt.Errorf("alert evaluator: list users: %w", err)
	}

	summary := Summary{}
	for _, userID := range userIDs {
		userSummary, err := e.Evaluate(ctx, userID)
		if err != nil {
			// Listing one user's alerts failed; keep going for the rest.
			e.log.Warn("user evaluation pass failed", zap.Uint("user_id", userID), zap.Error(err))
			summary.Errors = append(summary.Errors, EvaluationError{
				Err:     err,
				Message: err.Error(),
			})
			continue
		}
		summary.merge(userSummary)
	}

	return summary, nil
}

func (e *Evaluator) cooldownElapsed(alert *models.Alert, now time.Time) bool {
	if alert.LastTriggeredAt == nil {
		return true
	}
	return now.Sub(*alert.LastTriggeredAt) >= e.cooldown
}

// fire creates the notification and stamps last_triggered_at in a single
// transaction so a crash cannot suppress future notifications or duplicate
// this one.
func (e *Evaluator) fire(ctx context.Context, alert *models.Alert, message string, now time.Time) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		notification := models.Notification{
			UserID:      alert.UserID,
			AlertID:     alert.ID,
			AlertType:   alert.AlertType,
			Message:     message,
			EmailStatus: models.DeliveryPending,
			SMSStatus:   models.DeliveryPending,
		}
		if !alert.EmailDelivery {
			notification.EmailStatus = ""
		}
		if !alert.SMSDelivery {
			notification.SMSStatus = ""
		}

		if err := tx.Create(&notification).Error; err != nil {
			return fmt.Errorf("create notification: %w", err)
		}

		if err := tx.Model(&models.Alert{}).
			Where("id = ?", alert.ID).
			Update("last_triggered_at", now).Error; err != nil {
			return fmt.Errorf("stamp last triggered: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	alert.LastTriggeredAt = &now
	return nil
}

// check decodes the alert's condition and evaluates its predicate, returning
// whether the condition is true and the rendered notification message.
func (e *Evaluator) check(ctx context.Context, alert *models.Alert, now time.Time) (bool, string, error) {
	cond, err := DecodeCondition(alert.AlertType, alert.Conditions)
	if err != nil {
		return false, "", err
	}

	switch c := cond.(type) {
	case *BalanceThreshold:
		return e.checkBalanceThreshold(ctx, alert, c)
	case *GoalMilestone:
		return e.checkGoalMilestone(ctx, alert, c)
	case *MerchantName:
		return e.checkMerchantName(ctx, alert, c, now)
	case *SpendingTarget:
		return e.checkSpendingTarget(ctx, alert, c)
	case *TransactionLimit:
		return e.checkTransactionLimit(ctx, alert, c, now)
	case *UpcomingBill:
		return e.checkUpcomingBill(ctx, alert, c, now)
	default:
		return false, "", fmt.Errorf("unhandled condition type %T", cond)
	}
}

func (e *Evaluator) checkBalanceThreshold(ctx context.Context, alert *models.Alert, c *BalanceThreshold) (bool, string, error) {
	var account models.Account
	if err := e.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", c.AccountID, alert.UserID).
		First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", fmt.Errorf("account %d not found", c.AccountID)
		}
		return false, "", fmt.Errorf("load account %d: %w", c.AccountID, err)
	}

	direction := c.Direction
	if direction == "" {
		direction = DirectionBelow
	}

	var hit bool
	switch direction {
	case DirectionAbove:
		hit = account.Balance.GreaterThan(c.Threshold)
	default:
		hit = account.Balance.LessThan(c.Threshold)
	}
	if !hit {
		return false, "", nil
	}

	message := fmt.Sprintf("Your %s balance is $%s, %s your $%s threshold.",
		accountLabel(&account), account.Balance.StringFixed(2), direction, c.Threshold.StringFixed(2))
	return true, message, nil
}

func (e *Evaluator) checkGoalMilestone(ctx context.Context, alert *models.Alert, c *GoalMilestone) (bool, string, error) {
	var goal models.Goal
	if err := e.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", c.GoalID, alert.UserID).
		First(&goal).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", fmt.Errorf("goal %d not found", c.GoalID)
		}
		return false, "", fmt.Errorf("load goal %d: %w", c.GoalID, err)
	}

	percent := goal.PercentComplete()
	if percent.LessThan(c.Percent) {
		return false, "", nil
	}

	message := fmt.Sprintf("Your goal %q is %s%% complete, past the %s%% milestone.",
		goal.Name, percent.Round(0).String(), c.Percent.Round(0).String())
	return true, message, nil
}

func (e *Evaluator) checkMerchantName(ctx context.Context, alert *models.Alert, c *MerchantName, now time.Time) (bool, string, error) {
	if strings.TrimSpace(c.Pattern) == "" {
		return false, "", errors.New("merchant pattern is empty")
	}

	transactions, err := e.recentTransactions(ctx, alert, nil, now)
	if err != nil {
		return false, "", err
	}

	pattern := strings.ToLower(strings.TrimSpace(c.Pattern))
	for i := range transactions {
		merchant := strings.ToLower(strings.TrimSpace(transactions[i].MerchantName))
		if merchant == "" {
			continue
		}
		matched := merchant == pattern
		if !c.Exact {
			matched = strings.Contains(merchant, pattern)
		}
		if matched {
			message := fmt.Sprintf("A transaction from %s for $%s matched your merchant alert %q.",
				transactions[i].MerchantName, transactions[i].Amount.Abs().StringFixed(2), c.Pattern)
			return true, message, nil
		}
	}

	return false, "", nil
}

func (e *Evaluator) checkSpendingTarget(ctx context.Context, alert *models.Alert, c *SpendingTarget) (bool, string, error) {
	var budget models.Budget
	if err := e.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", c.BudgetID, alert.UserID).
		First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, "", fmt.Errorf("budget %d not found", c.BudgetID)
		}
		return false, "", fmt.Errorf("load budget %d: %w", c.BudgetID, err)
	}

	if budget.BudgetAmount.IsZero() {
		return false, "", fmt.Errorf("budget %d has a zero budget amount", c.BudgetID)
	}

	percent := budget.Spent.Div(budget.BudgetAmount).Mul(decimal.NewFromInt(100))
	if percent.LessThan(c.Percent) {
		return false, "", nil
	}

	message := fmt.Sprintf("You have spent $%s of your $%s %q budget (%s%%).",
		budget.Spent.StringFixed(2), budget.BudgetAmount.StringFixed(2), budget.Name, percent.Round(0).String())
	return true, message, nil
}

func (e *Evaluator) checkTransactionLimit(ctx context.Context, alert *models.Alert, c *TransactionLimit, now time.Time) (bool, string, error) {
	transactions, err := e.recentTransactions(ctx, alert, c.AccountID, now)
	if err != nil {
		return false, "", err
	}

	for i := range transactions {
		if transactions[i].Amount.Abs().GreaterThan(c.Amount) {
			message := fmt.Sprintf("A transaction of $%s exceeded your $%s limit.",
				transactions[i].Amount.Abs().StringFixed(2), c.Amount.StringFixed(2))
			return true, message, nil
		}
	}

	return false, "", nil
}

func (e *Evaluator) checkUpcomingBill(ctx context.Context, alert *models.Alert, c *UpcomingBill, now time.Time) (bool, string, error) {
	days := c.Days
	if days <= 0 {
		days = DefaultUpcomingBillDays
	}
	horizon := now.AddDate(0, 0, days)

	query := e.db.WithContext(ctx).Where("user_id = ?", alert.UserID)
	if c.BillID != nil {
		query = query.Where("id = ?", *c.BillID)
	}

	var bills []models.CashflowBill
	if err := query.Find(&bills).Error; err != nil {
		return false, "", fmt.Errorf("load bills: %w", err)
	}
	if c.BillID != nil && len(bills) == 0 {
		return false, "", fmt.Errorf("bill %d not found", *c.BillID)
	}

	for i := range bills {
		due := bills[i].NextOccurrence(now)
		if due == nil || due.After(horizon) {
			continue
		}
		message := fmt.Sprintf("Your bill %q for $%s is due on %s.",
			bills[i].Name, bills[i].Amount.StringFixed(2), due.Format("Jan 2"))
		return true, message, nil
	}

	return false, "", nil
}

// recentTransactions returns the user's transactions posted since the alert
// last fired, falling back to the lookback window for never-fired alerts.
func (e *Evaluator) recentTransactions(ctx context.Context, alert *models.Alert, accountID *uint, now time.Time) ([]models.Transaction, error) {
	since := now.Add(-e.lookback)
	if alert.LastTriggeredAt != nil && alert.LastTriggeredAt.After(since) {
		since = *alert.LastTriggeredAt
	}

	query := e.db.WithContext(ctx).
		Where("user_id = ? AND posted_at >= ?", alert.UserID, since).
		Order("posted_at DESC")
	if accountID != nil {
		query = query.Where("account_id = ?", *accountID)
	}

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return transactions, nil
}

func accountLabel(account *models.Account) string {
	if account.DisplayName != "" {
		return account.DisplayName
	}
	return account.Name
}
