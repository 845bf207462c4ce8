package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	iauth "github.com/tiles-dev/pfm-sim/internal/auth"
	"github.com/tiles-dev/pfm-sim/internal/models"
	"github.com/tiles-dev/pfm-sim/pkg/logger"
	"github.com/tiles-dev/pfm-sim/pkg/metrics"
)

// Progress statuses, in the order a stage moves through them.
const (
	StatusFetching       = "fetching"
	StatusInserting      = "inserting"
	StatusEntityComplete = "entity_complete"
	StatusEntityError    = "entity_error"
	StatusComplete       = "complete"
)

// Entity names reported in progress events.
const (
	EntityUser         = "user"
	EntityAccounts     = "accounts"
	EntityTransactions = "transactions"
	EntityBudgets      = "budgets"
	EntityGoals        = "goals"
	EntityAlerts       = "alerts"
	EntityTags         = "tags"
)

// Progress checkpoint intervals; transactions arrive in bulk so they report
// less often.
const (
	checkpointSmall = 10
	checkpointBulk  = 50
)

// Event is one progress message streamed to the migration caller.
type Event struct {
	Entity   string `json:"entity,omitempty"`
	Status   string `json:"status,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Total    int    `json:"total,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// EmitFunc receives progress events. It is called synchronously between
// pipeline steps; a slow consumer slows the run.
type EmitFunc func(Event)

// Selection flags which entity collections a run imports.
type Selection struct {
	User         bool `json:"user"`
	Accounts     bool `json:"accounts"`
	Transactions bool `json:"transactions"`
	Budgets      bool `json:"budgets"`
	Goals        bool `json:"goals"`
	Alerts       bool `json:"alerts"`
	Tags         bool `json:"tags"`
}

// Importer pulls one user's data from the real vendor API and upserts it into
// the local store. Stages run strictly sequentially; a stage failure is
// reported and the pipeline moves on, so partial-success imports are expected.
type Importer struct {
	db  *gorm.DB
	now func() time.Time
	log *zap.Logger
}

// NewImporter constructs an Importer.
func NewImporter(db *gorm.DB) (*Importer, error) {
	if db == nil {
		return nil, errors.New("importer: db is required")
	}
	return &Importer{
		db:  db,
		now: time.Now,
		log: logger.WithModule("migrate"),
	}, nil
}

// TestConnection mints a token and fetches the vendor's current-user record.
// This is the one fatal credential check: nothing downstream can run without
// it succeeding.
func (imp *Importer) TestConnection(ctx context.Context, creds Credentials) (*VendorUser, error) {
	token, err := iauth.MintPartnerAssertion(creds.APIKey, creds.PartnerID, creds.PartnerDomain, creds.PCID, imp.now())
	if err != nil {
		return nil, err
	}
	return NewClient(creds, token).GetCurrentUser(ctx)
}

// Run executes the migration pipeline. The token is minted once for the whole
// run; runs that outlive the 15-minute assertion surface vendor 401s as
// entity_error events rather than re-minting. Run always finishes with a
// terminal complete event, even when every stage failed.
func (imp *Importer) Run(ctx context.Context, creds Credentials, sel Selection, emit EmitFunc) error {
	if emit == nil {
		emit = func(Event) {}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := iauth.MintPartnerAssertion(creds.APIKey, creds.PartnerID, creds.PartnerDomain, creds.PCID, imp.now())
	if err != nil {
		return fmt.Errorf("importer: mint assertion: %w", err)
	}
	client := NewClient(creds, token)

	var userID uint
	if sel.User {
		userID = imp.importUser(ctx, client, creds, emit)
	}
	if userID == 0 {
		userID = imp.lookupUser(ctx, creds.PCID)
	}

	type stage struct {
		entity  string
		enabled bool
		run     func(context.Context, *Client, uint, EmitFunc) error
	}

	stages := []stage{
		{EntityAccounts, sel.Accounts, imp.importAccounts},
		{EntityTransactions, sel.Transactions, imp.importTransactions},
		{EntityBudgets, sel.Budgets, imp.importBudgets},
		{EntityGoals, sel.Goals, imp.importGoals},
		{EntityAlerts, sel.Alerts, imp.importAlerts},
		{EntityTags, sel.Tags, imp.importTags},
	}

	for _, s := range stages {
		if !s.enabled {
			continue
		}
		if userID == 0 {
			imp.stageError(emit, s.entity, errors.New("no local user for pcid; run the user stage first"))
			continue
		}
		if err := s.run(ctx, client, userID, emit); err != nil {
			imp.stageError(emit, s.entity, err)
		}
	}

	emit(Event{Status: StatusComplete})
	return nil
}

func (imp *Importer) stageError(emit EmitFunc, entity string, err error) {
	imp.log.Warn("migration stage failed", zap.String("entity", entity), zap.Error(err))
	metrics.MigrationStageFailures.WithLabelValues(entity).Inc()
	emit(Event{Entity: entity, Status: StatusEntityError, Error: err.Error()})
}

func (imp *Importer) lookupUser(ctx context.Context, pcid string) uint {
	var user models.User
	if err := imp.db.WithContext(ctx).Where("partner_customer_id = ?", pcid).First(&user).Error; err != nil {
		return 0
	}
	return user.ID
}

func (imp *Importer) importUser(ctx context.Context, client *Client, creds Credentials, emit EmitFunc) uint {
	emit(Event{Entity: EntityUser, Status: StatusFetching})

	vendorUser, err := client.GetCurrentUser(ctx)
	if err != nil {
		imp.stageError(emit, EntityUser, err)
		return 0
	}

	user := models.User{
		BaseModel:         models.BaseModel{ID: vendorUser.ID},
		PartnerCustomerID: creds.PCID,
		Email:             vendorUser.Email,
		FirstName:         vendorUser.FirstName,
		LastName:          vendorUser.LastName,
		PostalCode:        vendorUser.PostalCode,
		BirthYear:         vendorUser.BirthYear,
	}
	if err := imp.upsert(ctx, &user); err != nil {
		imp.stageError(emit, EntityUser, err)
		return 0
	}

	metrics.MigrationRows.WithLabelValues(EntityUser).Inc()
	emit(Event{Entity: EntityUser, Status: StatusEntityComplete, Total: 1})
	return user.ID
}

func (imp *Importer) importAccounts(ctx context.Context, client *Client, userID uint, emit EmitFunc) error {
	emit(Event{Entity: EntityAccounts, Status: StatusFetching})

	rows, err := client.ListAccounts(ctx)
	if err != nil {
		return err
	}

	for i, row := range rows {
		account := models.Account{
			BaseModel:         models.BaseModel{ID: row.ID},
			UserID:            userID,
			Name:              row.Name,
			DisplayName:       row.DisplayName,
			AccountType:       row.AccountType,
			Balance:           row.Balance,
			State:             defaultState(row.State, models.AccountStateActive),
			IncludeInNetworth: row.IncludeInNetworth,
			FinstitutionName:  row.FiName,
		}
		if err := imp.upsert(ctx, &account); err != nil {
			return fmt.Errorf("account %d: %w", row.ID, err)
		}
		metrics.MigrationRows.WithLabelValues(EntityAccounts).Inc()
		imp.checkpoint(emit, EntityAccounts, i+1, len(rows), checkpointSmall)
	}

	emit(Event{Entity: EntityAccounts, Status: StatusEntityComplete, Total: len(rows)})
	return nil
}

func (imp *Importer) importTransactions(ctx context.Context, client *Client, userID uint, emit EmitFunc) error {
	emit(Event{Entity: EntityTransactions, Status: StatusFetching})

	rows, err := client.ListTransactions(ctx)
	if err != nil {
		return err
	}

	for i, row := range rows {
		tags, err := json.Marshal(row.Tags)
		if err != nil {
			return fmt.Errorf("transaction %d: encode tags: %w", row.ID, err)
		}
		transaction := models.Transaction{
			BaseModel:       models.BaseModel{ID: row.ID},
			UserID:          userID,
			AccountID:       row.AccountID,
			Nickname:        row.Nickname,
			OriginalName:    row.OriginalName,
			Amount:          row.Amount,
			TransactionType: row.TransactionType,
			MerchantName:    row.MerchantName,
			PostedAt:        row.PostedAt,
			TransactedAt:    row.TransactedAt,
			Tags:            datatypes.JSON(tags),
		}
		if err := imp.upsert(ctx, &transaction); err != nil {
			return fmt.Errorf("transaction %d: %w", row.ID, err)
		}
		metrics.MigrationRows.WithLabelValues(EntityTransactions).Inc()
		imp.checkpoint(emit, EntityTransactions, i+1, len(rows), checkpointBulk)
	}

	emit(Event{Entity: EntityTransactions, Status: StatusEntityComplete, Total: len(rows)})
	return nil
}

func (imp *Importer) importBudgets(ctx context.Context, client *Client, userID uint, emit EmitFunc) error {
	emit(Event{Entity: EntityBudgets, Status: StatusFetching})

	rows, err := client.ListBudgets(ctx)
	if err != nil {
		return err
	}

	for i, row := range rows {
		tagNames, err := json.Marshal(row.TagNames)
		if err != nil {
			return fmt.Errorf("budget %d: encode tag names: %w", row.ID, err)
		}
		budget := models.Budget{
			BaseModel:    models.BaseModel{ID: row.ID},
			UserID:       userID,
			Name:         row.Name,
			BudgetAmount: row.BudgetAmount,
			Spent:        row.Spent,
			Month:        row.Month,
			Year:         row.Year,
			TagNames:     datatypes.JSON(tagNames),
		}
		if err := imp.upsert(ctx, &budget); err != nil {
			return fmt.Errorf("budget %d: %w", row.ID, err)
		}
		metrics.MigrationRows.WithLabelValues(EntityBudgets).Inc()
		imp.checkpoint(emit, EntityBudgets, i+1, len(rows), checkpointSmall)
	}

	emit(Event{Entity: EntityBudgets, Status: StatusEntityComplete, Total: len(rows)})
	return nil
}

// importGoals merges the vendor's savings and payoff goal collections into the
// single local goals table.
func (imp *Importer) importGoals(ctx context.Context, client *Client, userID uint, emit EmitFunc) error {
	emit(Event{Entity: EntityGoals, Status: StatusFetching})

	savings, err := client.ListSavingsGoals(ctx)
	if err != nil {
		return err
	}
	payoff, err := client.ListPayoffGoals(ctx)
	if err != nil {
		return err
	}

	total := len(savings) + len(payoff)
	done := 0
	store := func(row VendorGoal, goalType string) error {
		goal := models.Goal{
			BaseModel:            models.BaseModel{ID: row.ID},
			UserID:               userID,
			AccountID:            row.AccountID,
			GoalType:             goalType,
			Name:                 row.Name,
			ImageURL:             row.ImageURL,
			TargetAmount:         row.TargetAmount,
			CurrentAmount:        row.CurrentAmount,
			TargetCompletionDate: row.TargetCompletionDate,
			State:                defaultState(row.State, models.GoalStateActive),
		}
		if err := imp.upsert(ctx, &goal); err != nil {
			return fmt.Errorf("goal %d: %w", row.ID, err)
		}
		metrics.MigrationRows.WithLabelValues(EntityGoals).Inc()
		done++
		imp.checkpoint(emit, EntityGoals, done, total, checkpointSmall)
		return nil
	}

	for _, row := range savings {
		if err := store(row, models.GoalTypeSavings); err != nil {
			return err
		}
	}
	for _, row := range payoff {
		if err := store(row, models.GoalTypePayoff); err != nil {
			return err
		}
	}

	emit(Event{Entity: EntityGoals, Status: StatusEntityComplete, Total: total})
	return nil
}

func (imp *Importer) importAlerts(ctx context.Context, client *Client, userID uint, emit EmitFunc) error {
	emit(Event{Entity: EntityAlerts, Status: StatusFetching})

	rows, err := client.ListAlerts(ctx)
	if err != nil {
		return err
	}

	for i, row := range rows {
		alert := models.Alert{
			BaseModel:       models.BaseModel{ID: row.ID},
			UserID:          userID,
			AlertType:       row.AlertType,
			Conditions:      datatypes.JSON(row.Conditions),
			EmailDelivery:   row.EmailDelivery,
			SMSDelivery:     row.SMSDelivery,
			Active:          row.Active,
			LastTriggeredAt: row.LastTriggeredAt,
		}
		if err := imp.upsert(ctx, &alert); err != nil {
			return fmt.Errorf("alert %d: %w", row.ID, err)
		}
		metrics.MigrationRows.WithLabelValues(EntityAlerts).Inc()
		imp.checkpoint(emit, EntityAlerts, i+1, len(rows), checkpointSmall)
	}

	emit(Event{Entity: EntityAlerts, Status: StatusEntityComplete, Total: len(rows)})
	return nil
}

func (imp *Importer) importTags(ctx context.Context, client *Client, userID uint, emit EmitFunc) error {
	emit(Event{Entity: EntityTags, Status: StatusFetching})

	rows, err := client.ListTags(ctx)
	if err != nil {
		return err
	}

	for i, row := range rows {
		uid := userID
		tag := models.Tag{
			BaseModel: models.BaseModel{ID: row.ID},
			UserID:    &uid,
			Name:      row.Name,
		}
		if err := imp.upsert(ctx, &tag); err != nil {
			return fmt.Errorf("tag %d: %w", row.ID, err)
		}
		metrics.MigrationRows.WithLabelValues(EntityTags).Inc()
		imp.checkpoint(emit, EntityTags, i+1, len(rows), checkpointSmall)
	}

	emit(Event{Entity: EntityTags, Status: StatusEntityComplete, Total: len(rows)})
	return nil
}

// upsert writes a row keyed on the vendor's original id so re-running a
// migration converges instead of duplicating.
func (imp *Importer) upsert(ctx context.Context, row any) error {
	return imp.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// checkpoint emits an inserting event at row-count intervals plus a final one
// for the last row, so large collections do not flood the stream.
func (imp *Importer) checkpoint(emit EmitFunc, entity string, done, total, step int) {
	if done%step != 0 && done != total {
		return
	}
	emit(Event{
		Entity:   entity,
		Status:   StatusInserting,
		Progress: done,
		Total:    total,
		Message:  fmt.Sprintf("%d/%d", done, total),
	})
}

func defaultState(state, fallback string) string {
	if state == "" {
		return fallback
	}
	return state
}
