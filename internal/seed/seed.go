package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tiles-dev/pfm-sim/internal/alerts"
	"github.com/tiles-dev/pfm-sim/internal/models"
	"github.com/tiles-dev/pfm-sim/pkg/logger"
)

// Options configures the demo data generator.
type Options struct {
	PCID     string
	Email    string
	Password string
	// Months of transaction history to generate, counting back from now.
	Months int
	// Seed drives the pseudo-random stream so repeated runs with the same
	// value produce the same dataset.
	Seed int64
	Now  func() time.Time
}

func (o *Options) applyDefaults() {
	if o.PCID == "" {
		o.PCID = "demo-user"
	}
	if o.Email == "" {
		o.Email = "demo@example.com"
	}
	if o.Password == "" {
		o.Password = "demo-password"
	}
	if o.Months <= 0 {
		o.Months = 3
	}
	if o.Seed == 0 {
		o.Seed = 1
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

type merchant struct {
	name string
	tag  string
	min  int
	max  int
}

var merchants = []merchant{
	{"Corner Grocer", "Groceries", 12, 140},
	{"Pump N Go", "Gas", 25, 70},
	{"Blue Bottle Cafe", "Dining", 4, 32},
	{"Metro Transit", "Transport", 2, 6},
	{"Streamflix", "Entertainment", 11, 18},
	{"City Pharmacy", "Health", 8, 60},
	{"Bright Books", "Shopping", 9, 45},
}

// Generator populates a database with a believable demo user.
type Generator struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewGenerator constructs a Generator.
func NewGenerator(db *gorm.DB) (*Generator, error) {
	if db == nil {
		return nil, errors.New("seed generator: db is required")
	}
	return &Generator{db: db, log: logger.WithModule("seed")}, nil
}

// Run creates the demo user with accounts, transaction history, budgets,
// goals, cashflow items and alerts. Running it twice with the same PCID
// fails on the user's unique index rather than duplicating data.
func (g *Generator) Run(ctx context.Context, opts Options) (*models.User, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	opts.applyDefaults()

	rng := rand.New(rand.NewSource(opts.Seed))
	now := opts.Now()

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("seed generator: hash password: %w", err)
	}

	user := models.User{
		PartnerCustomerID: opts.PCID,
		Email:             opts.Email,
		Password:          string(hash),
		FirstName:         "Demo",
		LastName:          "User",
		PostalCode:        "97201",
		BirthYear:         1988,
	}

	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		checking := models.Account{
			UserID:            user.ID,
			Name:              "Everyday Checking",
			AccountType:       "checking",
			Balance:           decimal.NewFromInt(2500),
			State:             models.AccountStateActive,
			IncludeInNetworth: true,
			FinstitutionName:  "First Demo Bank",
		}
		savings := models.Account{
			UserID:            user.ID,
			Name:              "Rainy Day Savings",
			AccountType:       "savings",
			Balance:           decimal.NewFromInt(8200),
			State:             models.AccountStateActive,
			IncludeInNetworth: true,
			FinstitutionName:  "First Demo Bank",
		}
		card := models.Account{
			UserID:            user.ID,
			Name:              "Rewards Card",
			AccountType:       "credit_card",
			Balance:           decimal.NewFromInt(-430),
			State:             models.AccountStateActive,
			IncludeInNetworth: true,
			FinstitutionName:  "Demo Card Services",
		}
		for _, account := range []*models.Account{&checking, &savings, &card} {
			if err := tx.Create(account).Error; err != nil {
				return fmt.Errorf("create account %q: %w", account.Name, err)
			}
		}

		if err := g.seedTransactions(tx, rng, &user, []models.Account{checking, card}, opts.Months, now); err != nil {
			return err
		}
		if err := g.seedBudgets(tx, &user, now); err != nil {
			return err
		}
		if err := g.seedGoals(tx, &user, savings, card); err != nil {
			return err
		}
		if err := g.seedCashflow(tx, &user, now); err != nil {
			return err
		}
		return g.seedAlerts(tx, &user, checking)
	})
	if err != nil {
		return nil, fmt.Errorf("seed generator: %w", err)
	}

	g.log.Info("demo user seeded",
		zap.String("pcid", user.PartnerCustomerID),
		zap.Int("months", opts.Months))
	return &user, nil
}

func (g *Generator) seedTransactions(tx *gorm.DB, rng *rand.Rand, user *models.User, accounts []models.Account, months int, now time.Time) error {
	start := now.AddDate(0, -months, 0)

	for day := start; day.Before(now); day = day.AddDate(0, 0, 1) {
		// Zero to three purchases a day keeps the history uneven.
		for i := 0; i < rng.Intn(4); i++ {
			m := merchants[rng.Intn(len(merchants))]
			cents := m.min*100 + rng.Intn((m.max-m.min)*100)
			account := accounts[rng.Intn(len(accounts))]

			row := models.Transaction{
				UserID:          user.ID,
				AccountID:       account.ID,
				Amount:          decimal.NewFromInt(int64(cents)).Div(decimal.NewFromInt(100)).Neg(),
				TransactionType: models.TransactionTypeDebit,
				MerchantName:    m.name,
				OriginalName:    m.name,
				PostedAt:        day.Add(time.Duration(rng.Intn(12)+8) * time.Hour),
				Tags:            tagList(m.tag),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("create transaction: %w", err)
			}
		}

		// Payday on the 1st and 15th.
		if day.Day() == 1 || day.Day() == 15 {
			payday := models.Transaction{
				UserID:          user.ID,
				AccountID:       accounts[0].ID,
				Amount:          decimal.NewFromInt(2100),
				TransactionType: models.TransactionTypeCredit,
				MerchantName:    "Acme Payroll",
				OriginalName:    "ACME PAYROLL DIRECT DEP",
				PostedAt:        day.Add(9 * time.Hour),
				Tags:            tagList("Income"),
			}
			if err := tx.Create(&payday).Error; err != nil {
				return fmt.Errorf("create payday transaction: %w", err)
			}
		}
	}
	return nil
}

func (g *Generator) seedBudgets(tx *gorm.DB, user *models.User, now time.Time) error {
	budgets := []models.Budget{
		{UserID: user.ID, Name: "Groceries", TagNames: tagList("Groceries"), Month: int(now.Month()), Year: now.Year(), BudgetAmount: decimal.NewFromInt(450), ShowOnDash: true},
		{UserID: user.ID, Name: "Dining out", TagNames: tagList("Dining"), Month: int(now.Month()), Year: now.Year(), BudgetAmount: decimal.NewFromInt(150), ShowOnDash: true},
		{UserID: user.ID, Name: "Fuel", TagNames: tagList("Gas"), Month: int(now.Month()), Year: now.Year(), BudgetAmount: decimal.NewFromInt(200), ShowOnDash: true},
	}
	for i := range budgets {
		if err := tx.Create(&budgets[i]).Error; err != nil {
			return fmt.Errorf("create budget %q: %w", budgets[i].Name, err)
		}
	}
	return nil
}

func (g *Generator) seedGoals(tx *gorm.DB, user *models.User, savings, card models.Account) error {
	goals := []models.Goal{
		{
			UserID:        user.ID,
			AccountID:     &savings.ID,
			GoalType:      models.GoalTypeSavings,
			Name:          "Emergency fund",
			TargetAmount:  decimal.NewFromInt(10000),
			CurrentAmount: decimal.NewFromInt(8200),
			State:         models.GoalStateActive,
		},
		{
			UserID:        user.ID,
			AccountID:     &card.ID,
			GoalType:      models.GoalTypePayoff,
			Name:          "Clear the rewards card",
			TargetAmount:  decimal.NewFromInt(430),
			CurrentAmount: decimal.NewFromInt(120),
			State:         models.GoalStateActive,
		},
	}
	for i := range goals {
		if err := tx.Create(&goals[i]).Error; err != nil {
			return fmt.Errorf("create goal %q: %w", goals[i].Name, err)
		}
	}
	return nil
}

func (g *Generator) seedCashflow(tx *gorm.DB, user *models.User, now time.Time) error {
	bills := []models.CashflowBill{
		{
			UserID:    user.ID,
			Name:      "Rent",
			Amount:    decimal.NewFromInt(1450),
			Frequency: models.FrequencyMonthly,
			StartDate: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		},
		{
			UserID:    user.ID,
			Name:      "Internet",
			Amount:    decimal.NewFromInt(65),
			Frequency: models.FrequencyMonthly,
			StartDate: time.Date(now.Year(), now.Month(), 12, 0, 0, 0, 0, time.UTC),
		},
	}
	for i := range bills {
		if err := tx.Create(&bills[i]).Error; err != nil {
			return fmt.Errorf("create bill %q: %w", bills[i].Name, err)
		}
	}

	income := models.CashflowIncome{
		UserID:    user.ID,
		Name:      "Acme payroll",
		Amount:    decimal.NewFromInt(2100),
		Frequency: models.FrequencyBiweekly,
		StartDate: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
	}
	if err := tx.Create(&income).Error; err != nil {
		return fmt.Errorf("create income %q: %w", income.Name, err)
	}
	return nil
}

func (g *Generator) seedAlerts(tx *gorm.DB, user *models.User, checking models.Account) error {
	lowBalance, err := alerts.EncodeCondition(&alerts.BalanceThreshold{
		AccountID: checking.ID,
		Threshold: decimal.NewFromInt(200),
		Direction: "below",
	})
	if err != nil {
		return fmt.Errorf("encode balance alert: %w", err)
	}
	bigSpend, err := alerts.EncodeCondition(&alerts.TransactionLimit{
		AccountID: &checking.ID,
		Amount:    decimal.NewFromInt(500),
	})
	if err != nil {
		return fmt.Errorf("encode transaction alert: %w", err)
	}

	rows := []models.Alert{
		{UserID: user.ID, AlertType: models.AlertTypeBalanceThreshold, Conditions: lowBalance, Active: true, EmailDelivery: true},
		{UserID: user.ID, AlertType: models.AlertTypeTransactionLimit, Conditions: bigSpend, Active: true, EmailDelivery: true},
	}
	for i := range rows {
		if err := tx.Create(&rows[i]).Error; err != nil {
			return fmt.Errorf("create alert %q: %w", rows[i].AlertType, err)
		}
	}
	return nil
}

func tagList(names ...string) datatypes.JSON {
	data, err := json.Marshal(names)
	if err != nil {
		return datatypes.JSON([]byte("[]"))
	}
	return datatypes.JSON(data)
}
